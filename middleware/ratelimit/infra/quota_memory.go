package infra

import (
	"context"
	"sync"
	"time"

	"rental-backend/middleware/ratelimit/domain"
)

type quotaRecord struct {
	count     int64
	windowEnd time.Time
	expiresAt time.Time
}

// MemoryQuotaStore é o CounterStore em memória, para dev e testes.
// Registros vencidos somem na leitura, imitando o TTL do Redis.
type MemoryQuotaStore struct {
	mu      sync.Mutex
	records map[string]*quotaRecord
	now     func() time.Time

	// Fail, se definido, é consultado antes de cada operação ("count"/"increment").
	Fail func(op string) error
}

func NewMemoryQuotaStore(now func() time.Time) *MemoryQuotaStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryQuotaStore{records: make(map[string]*quotaRecord), now: now}
}

func (s *MemoryQuotaStore) Count(_ context.Context, k domain.CounterKey) (int64, error) {
	if s.Fail != nil {
		if err := s.Fail("count"); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[k.String()]
	if !ok {
		return 0, nil
	}
	if !s.now().Before(rec.expiresAt) {
		delete(s.records, k.String())
		return 0, nil
	}
	return rec.count, nil
}

func (s *MemoryQuotaStore) Increment(_ context.Context, keys []domain.CounterKey, margin time.Duration) error {
	if s.Fail != nil {
		if err := s.Fail("increment"); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, k := range keys {
		id := k.String()
		rec, ok := s.records[id]
		if !ok || !now.Before(rec.expiresAt) {
			rec = &quotaRecord{windowEnd: k.Window.End}
			s.records[id] = rec
		}
		rec.count++
		rec.expiresAt = k.Window.End.Add(margin)
	}
	return nil
}

// Len devolve quantos registros ainda estão vivos.
func (s *MemoryQuotaStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, rec := range s.records {
		if now.Before(rec.expiresAt) {
			n++
		}
	}
	return n
}
