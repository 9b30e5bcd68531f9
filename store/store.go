// Package store define o cliente da tabela única de documentos (pk/sk com
// prefixos e dois índices secundários) usado por todos os handlers.
//
// O cliente é sempre injetado: produção usa store/postgres, testes usam store/memory.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("store: item not found")
	ErrConditionFailed = errors.New("store: condition failed")
	ErrTxAborted       = errors.New("store: transaction aborted")
)

type Key struct {
	PK string
	SK string
}

func (k Key) String() string { return k.PK + "|" + k.SK }

// Index identifica um índice secundário. IndexTable é a chave primária.
type Index string

const (
	IndexTable Index = ""
	IndexGSI1  Index = "gsi1"
	IndexGSI2  Index = "gsi2"
)

// Item é uma linha da tabela. Data guarda os atributos do documento já
// normalizados para tipos JSON (string, float64, bool, []any, map[string]any).
type Item struct {
	PK     string
	SK     string
	GSI1PK string
	GSI1SK string
	GSI2PK string
	GSI2SK string
	Data   map[string]any
}

func (i Item) Key() Key { return Key{PK: i.PK, SK: i.SK} }

// IndexKeys devolve pk/sk do item no índice pedido.
func (i Item) IndexKeys(idx Index) (string, string) {
	switch idx {
	case IndexGSI1:
		return i.GSI1PK, i.GSI1SK
	case IndexGSI2:
		return i.GSI2PK, i.GSI2SK
	}
	return i.PK, i.SK
}

type Condition int

const (
	CondNone Condition = iota
	CondNotExists
	CondExists
)

// TxOp é uma operação dentro de Transact: Put, Delete ou UpdateOp.
type TxOp interface {
	txKey() Key
}

type Put struct {
	Item      Item
	Condition Condition
}

type Delete struct {
	Key       Key
	Condition Condition
}

// UpdateOp sempre exige que o item exista.
type UpdateOp struct {
	Key    Key
	Update *Update
}

func (p Put) txKey() Key      { return p.Item.Key() }
func (d Delete) txKey() Key   { return d.Key }
func (u UpdateOp) txKey() Key { return u.Key }

// Query busca por partição (na tabela ou num índice), opcionalmente com prefixo de sk.
// Resultados ordenados por sk crescente.
type Query struct {
	Index    Index
	PK       string
	SKPrefix string
	Limit    int
}

// Client é o contrato do armazenamento de documentos.
type Client interface {
	Get(ctx context.Context, key Key) (Item, error)
	Put(ctx context.Context, p Put) error
	Update(ctx context.Context, key Key, u *Update) (Item, error)
	Delete(ctx context.Context, key Key) error
	Query(ctx context.Context, q Query) ([]Item, error)
	// BatchGet omite as chaves inexistentes.
	BatchGet(ctx context.Context, keys []Key) ([]Item, error)
	// Scan percorre todos os itens cujo pk começa com pkPrefix. Uso offline (migrações).
	Scan(ctx context.Context, pkPrefix string, fn func(Item) error) error
	// Transact aplica tudo ou nada.
	Transact(ctx context.Context, ops ...TxOp) error
}
