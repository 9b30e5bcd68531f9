package application

import (
	"time"

	"rental-backend/middleware/ratelimit/domain"
)

// EdgeService decide o limite de borda (rajadas por cliente).
// Não conhece HTTP: devolve só a decisão.
type EdgeService struct {
	Store      domain.LimiterStore
	RetryAfter time.Duration
}

func (s EdgeService) Decide(key domain.Key) domain.Decision {
	allowed := domain.Decision{Allowed: true, Scope: domain.ScopeEdge}
	if s.Store == nil {
		return allowed
	}
	lim := s.Store.Get(key)
	if lim == nil || lim.Allow() {
		return allowed
	}

	retry := s.RetryAfter
	if retry <= 0 {
		retry = time.Second
	}
	return domain.Decision{Allowed: false, Scope: domain.ScopeEdge, RetryAfter: retry}
}
