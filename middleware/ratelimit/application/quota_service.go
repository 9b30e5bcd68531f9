package application

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rental-backend/middleware/ratelimit/domain"
)

const defaultTTLMargin = time.Hour

// QuotaService aplica as cotas de escrita por usuário e operação.
//
// O fluxo é ler (hora e dia em paralelo) e depois incrementar. Não é uma
// transação: duas requisições simultâneas podem ler o mesmo valor abaixo do
// teto e ambas passarem. Essa imprecisão é aceita.
type QuotaService struct {
	store     domain.CounterStore
	table     domain.QuotaTable
	policy    domain.FailurePolicy
	ttlMargin time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type QuotaOption func(*QuotaService)

func WithFailurePolicy(p domain.FailurePolicy) QuotaOption {
	return func(s *QuotaService) { s.policy = p }
}

// WithTTLMargin define quanto tempo após o fim da janela o registro expira.
func WithTTLMargin(d time.Duration) QuotaOption {
	return func(s *QuotaService) {
		if d > 0 {
			s.ttlMargin = d
		}
	}
}

func WithClock(now func() time.Time) QuotaOption {
	return func(s *QuotaService) { s.now = now }
}

func WithLogger(l *zap.Logger) QuotaOption {
	return func(s *QuotaService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewQuotaService valida a tabela de cotas; tabela inválida é erro de start.
func NewQuotaService(store domain.CounterStore, table domain.QuotaTable, opts ...QuotaOption) (*QuotaService, error) {
	if store == nil {
		return nil, fmt.Errorf("ratelimit: counter store is required")
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	s := &QuotaService{
		store:     store,
		table:     table,
		policy:    domain.FailOpen,
		ttlMargin: defaultTTLMargin,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *QuotaService) Policy() domain.FailurePolicy { return s.policy }

// CheckAndIncrement decide e, se permitido, consome uma unidade das duas janelas.
//
// Operação desconhecida retorna domain.ErrUnknownOperation antes de qualquer I/O.
func (s *QuotaService) CheckAndIncrement(ctx context.Context, userID string, op domain.OperationType) (domain.QuotaResult, error) {
	rule, err := s.table.Rule(op)
	if err != nil {
		return domain.QuotaResult{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return domain.QuotaResult{}, domain.ErrMissingUser
	}

	now := s.now()
	hourKey := domain.CounterKey{Op: op, UserID: userID, Window: domain.WindowFor(domain.WindowHour, now)}
	dayKey := domain.CounterKey{Op: op, UserID: userID, Window: domain.WindowFor(domain.WindowDay, now)}

	var hourly, daily int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx, hourKey)
		hourly = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.Count(gctx, dayKey)
		daily = n
		return err
	})
	if err := g.Wait(); err != nil {
		return s.onStoreError(op, userID, "check", err), nil
	}

	if hourly >= int64(rule.PerHour) {
		wait := hourKey.Window.Until(now)
		return domain.QuotaResult{
			Allowed:         false,
			HourlyRemaining: 0,
			DailyRemaining:  remaining(rule.PerDay, daily),
			ResetAt:         hourKey.Window.End,
			RetryAfter:      wait,
			Message: fmt.Sprintf("Rate limit exceeded: at most %d %s per hour. Try again in %d minute(s).",
				rule.PerHour, rule.HumanName, ceilUnits(wait, time.Minute)),
		}, nil
	}
	if daily >= int64(rule.PerDay) {
		wait := dayKey.Window.Until(now)
		return domain.QuotaResult{
			Allowed:         false,
			HourlyRemaining: remaining(rule.PerHour, hourly),
			DailyRemaining:  0,
			ResetAt:         dayKey.Window.End,
			RetryAfter:      wait,
			Message: fmt.Sprintf("Rate limit exceeded: at most %d %s per day. Try again in %d hour(s).",
				rule.PerDay, rule.HumanName, ceilUnits(wait, time.Hour)),
		}, nil
	}

	if err := s.store.Increment(ctx, []domain.CounterKey{hourKey, dayKey}, s.ttlMargin); err != nil {
		return s.onStoreError(op, userID, "increment", err), nil
	}

	return domain.QuotaResult{
		Allowed:         true,
		HourlyRemaining: remaining(rule.PerHour, hourly+1),
		DailyRemaining:  remaining(rule.PerDay, daily+1),
		ResetAt:         hourKey.Window.End,
	}, nil
}

func (s *QuotaService) onStoreError(op domain.OperationType, userID, stage string, err error) domain.QuotaResult {
	s.logger.Warn("quota store failure",
		zap.String("operation", string(op)),
		zap.String("user_id", userID),
		zap.String("stage", stage),
		zap.String("policy", s.policy.String()),
		zap.Error(err))

	if s.policy == domain.FailClosed {
		return domain.QuotaResult{
			Allowed:  false,
			Degraded: true,
			Message:  "Rate limit temporarily unavailable. Try again shortly.",
		}
	}
	return domain.QuotaResult{Allowed: true, Degraded: true}
}

func remaining(limit int, used int64) int {
	r := int64(limit) - used
	if r < 0 {
		return 0
	}
	return int(r)
}

func ceilUnits(d, unit time.Duration) int {
	n := int(math.Ceil(float64(d) / float64(unit)))
	if n < 1 {
		return 1
	}
	return n
}
