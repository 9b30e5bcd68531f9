// Package memory implementa store.Client em memória para testes, com
// injeção de falhas por operação e contagem de escritas.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"rental-backend/store"
)

// Nomes de operação passados a FailFunc.
const (
	OpGet      = "get"
	OpPut      = "put"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpQuery    = "query"
	OpBatchGet = "batchget"
	OpScan     = "scan"
	OpTransact = "transact"
)

// FailFunc decide se a operação op sobre key deve falhar. Em Transact é
// chamada uma vez por operação com o nome da operação interna.
type FailFunc func(op string, key store.Key) error

type Store struct {
	mu     sync.Mutex
	items  map[store.Key]store.Item
	fail   FailFunc
	writes int
}

var _ store.Client = (*Store)(nil)

func New() *Store {
	return &Store{items: map[store.Key]store.Item{}}
}

// FailWith troca a função de falhas; nil desliga.
func (s *Store) FailWith(f FailFunc) {
	s.mu.Lock()
	s.fail = f
	s.mu.Unlock()
}

// Writes conta escritas efetivadas (Transact conta uma por operação).
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Seed grava itens sem condições nem contagem de escrita.
func (s *Store) Seed(items ...store.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.Key()] = clone(it)
	}
}

func (s *Store) check(op string, key store.Key) error {
	if s.fail == nil {
		return nil
	}
	return s.fail(op, key)
}

func (s *Store) Get(ctx context.Context, key store.Key) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpGet, key); err != nil {
		return store.Item{}, err
	}
	it, ok := s.items[key]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	return clone(it), nil
}

func (s *Store) Put(ctx context.Context, p store.Put) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpPut, p.Item.Key()); err != nil {
		return err
	}
	if err := s.putLocked(s.items, p); err != nil {
		return err
	}
	s.writes++
	return nil
}

func (s *Store) Update(ctx context.Context, key store.Key, u *store.Update) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpUpdate, key); err != nil {
		return store.Item{}, err
	}
	next, err := s.updateLocked(s.items, key, u)
	if err != nil {
		return store.Item{}, err
	}
	s.writes++
	return clone(next), nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpDelete, key); err != nil {
		return err
	}
	if err := s.deleteLocked(s.items, store.Delete{Key: key}); err != nil {
		return err
	}
	s.writes++
	return nil
}

func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpQuery, store.Key{PK: q.PK, SK: q.SKPrefix}); err != nil {
		return nil, err
	}

	var out []store.Item
	for _, it := range s.items {
		pk, sk := it.IndexKeys(q.Index)
		if pk == "" || pk != q.PK || !strings.HasPrefix(sk, q.SKPrefix) {
			continue
		}
		out = append(out, clone(it))
	}
	sort.Slice(out, func(i, j int) bool {
		_, a := out[i].IndexKeys(q.Index)
		_, b := out[j].IndexKeys(q.Index)
		if a == b {
			return out[i].Key().String() < out[j].Key().String()
		}
		return a < b
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) BatchGet(ctx context.Context, keys []store.Key) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Item, 0, len(keys))
	seen := make(map[store.Key]struct{}, len(keys))
	for _, k := range keys {
		if err := s.check(OpBatchGet, k); err != nil {
			return nil, err
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if it, ok := s.items[k]; ok {
			out = append(out, clone(it))
		}
	}
	return out, nil
}

// Scan itera sobre um snapshot; fn pode escrever no store sem deadlock.
func (s *Store) Scan(ctx context.Context, pkPrefix string, fn func(store.Item) error) error {
	s.mu.Lock()
	if err := s.check(OpScan, store.Key{PK: pkPrefix}); err != nil {
		s.mu.Unlock()
		return err
	}
	var snapshot []store.Item
	for k, it := range s.items {
		if strings.HasPrefix(k.PK, pkPrefix) {
			snapshot = append(snapshot, clone(it))
		}
	}
	s.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].Key().String() < snapshot[j].Key().String()
	})
	for _, it := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(it); err != nil {
			return err
		}
	}
	return nil
}

// Transact aplica as operações numa cópia e só troca o estado se todas passarem.
func (s *Store) Transact(ctx context.Context, ops ...store.TxOp) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[store.Key]store.Item, len(s.items))
	for k, v := range s.items {
		staged[k] = v
	}
	for i, op := range ops {
		var err error
		switch o := op.(type) {
		case store.Put:
			if err = s.check(OpPut, o.Item.Key()); err == nil {
				err = s.putLocked(staged, o)
			}
		case store.Delete:
			if err = s.check(OpDelete, o.Key); err == nil {
				err = s.deleteLocked(staged, o)
			}
		case store.UpdateOp:
			if err = s.check(OpUpdate, o.Key); err == nil {
				_, err = s.updateLocked(staged, o.Key, o.Update)
			}
		default:
			err = fmt.Errorf("unsupported op %T", op)
		}
		if err != nil {
			return fmt.Errorf("%w: op %d: %w", store.ErrTxAborted, i, err)
		}
	}
	if err := s.check(OpTransact, store.Key{}); err != nil {
		return fmt.Errorf("%w: %w", store.ErrTxAborted, err)
	}
	s.items = staged
	s.writes += len(ops)
	return nil
}

func (s *Store) putLocked(items map[store.Key]store.Item, p store.Put) error {
	_, exists := items[p.Item.Key()]
	switch p.Condition {
	case store.CondNotExists:
		if exists {
			return store.ErrConditionFailed
		}
	case store.CondExists:
		if !exists {
			return store.ErrConditionFailed
		}
	}
	items[p.Item.Key()] = clone(p.Item)
	return nil
}

func (s *Store) deleteLocked(items map[store.Key]store.Item, d store.Delete) error {
	_, exists := items[d.Key]
	if d.Condition == store.CondExists && !exists {
		return store.ErrConditionFailed
	}
	delete(items, d.Key)
	return nil
}

func (s *Store) updateLocked(items map[store.Key]store.Item, key store.Key, u *store.Update) (store.Item, error) {
	cur, ok := items[key]
	if !ok {
		return store.Item{}, store.ErrNotFound
	}
	if u == nil {
		u = store.NewUpdate()
	}
	plan, err := u.Plan()
	if err != nil {
		return store.Item{}, err
	}
	next, err := plan.Apply(cur)
	if err != nil {
		return store.Item{}, err
	}
	items[key] = next
	return next, nil
}

func clone(it store.Item) store.Item {
	it.Data = store.CloneData(it.Data)
	return it
}
