package application

import (
	"context"
	"sync/atomic"
	"time"

	"rental-backend/middleware/ratelimit/domain"
)

// ConcurrencyService controla vagas de requisições em voo com timeout de espera.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration

	rejected atomic.Int64
}

// Acquire tenta uma vaga. AcquireTimeout <= 0 espera até o ctx cancelar.
// ok=false significa que nada foi adquirido e a rejeição foi contabilizada.
func (s *ConcurrencyService) Acquire(ctx context.Context) (func(), bool) {
	if s.Pool == nil {
		return func() {}, true
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if !ok {
		s.rejected.Add(1)
		return nil, false
	}
	return release, true
}

// Rejected é o total de requisições recusadas por falta de vaga.
func (s *ConcurrencyService) Rejected() int64 { return s.rejected.Load() }

func (s *ConcurrencyService) InFlight() int {
	if s.Pool == nil {
		return 0
	}
	return s.Pool.InUse()
}
