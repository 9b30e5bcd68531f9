package domain

// Camada de domínio do rate limit.
//
// Dois limitadores convivem aqui:
//   - borda (edge): token bucket por cliente, barato, protege contra rajadas;
//   - cota de escrita (quota): contadores por usuário+operação em janelas de hora/dia.

import "time"

type Key string

// Scope diz qual limitador gerou a decisão.
type Scope string

const (
	ScopeEdge  Scope = "edge"
	ScopeQuota Scope = "quota"
)

// Limiter decide se uma ação é permitida agora (token bucket na infra).
type Limiter interface {
	Allow() bool
}

// LimiterStore obtém um limiter por chave de cliente (IP, header).
type LimiterStore interface {
	Get(Key) Limiter
}

type Decision struct {
	Allowed bool
	Scope   Scope
	// RetryAfter vira o header Retry-After quando bloquear. 0 = sem recomendação.
	RetryAfter time.Duration
}
