package infra

import (
	"context"
	"sync"

	"rental-backend/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed  int64
	Denied   int64
	Degraded int64
}

func (c *Counters) add(ev domain.StatsEvent) {
	if ev.Allowed {
		c.Allowed++
	} else {
		c.Denied++
	}
	if ev.Degraded {
		c.Degraded++
	}
}

// MemoryStatsStore agrega decisões em memória, sem expiração.
// Usado quando Redis não está configurado e nos testes.
type MemoryStatsStore struct {
	mu      sync.Mutex
	byScope map[domain.Scope]Counters
	byOp    map[domain.OperationType]Counters
	byKey   map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byScope: make(map[domain.Scope]Counters),
		byOp:    make(map[domain.OperationType]Counters),
		byKey:   make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.byScope[ev.Scope]
	c.add(ev)
	s.byScope[ev.Scope] = c

	if ev.Operation != "" {
		o := s.byOp[ev.Operation]
		o.add(ev)
		s.byOp[ev.Operation] = o
	}
	if s.trackKeys && ev.Key != "" {
		k := s.byKey[string(ev.Key)]
		k.add(ev)
		s.byKey[string(ev.Key)] = k
	}
	return nil
}

func (s *MemoryStatsStore) Scope(scope domain.Scope) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byScope[scope]
}

func (s *MemoryStatsStore) Operation(op domain.OperationType) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byOp[op]
}

func (s *MemoryStatsStore) ByKey() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byKey))
	for k, v := range s.byKey {
		out[k] = v
	}
	return out
}
