package domain

import (
	"context"
	"time"
)

// StatsEvent registra uma decisão de qualquer limitador.
//
// Operation só vem preenchido no escopo quota. Cuidado com cardinalidade de
// Key/Path em bases como Redis.
type StatsEvent struct {
	Scope     Scope
	Key       Key
	Operation OperationType
	Allowed   bool
	Degraded  bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas das decisões. Erros são best-effort:
// quem chama loga e segue, a requisição nunca cai por causa disso.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
