package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OperationType identifica uma operação de escrita com cota própria (ex: "listing_suspend").
type OperationType string

// QuotaRule é o teto de uma operação por janela.
type QuotaRule struct {
	PerHour   int
	PerDay    int
	HumanName string
}

// QuotaTable é estática: montada no start do processo e nunca alterada.
type QuotaTable map[OperationType]QuotaRule

var (
	// ErrUnknownOperation é erro de programação/configuração, não de usuário.
	ErrUnknownOperation = errors.New("ratelimit: unknown operation type")
	ErrMissingUser      = errors.New("ratelimit: missing user id")
)

func (t QuotaTable) Rule(op OperationType) (QuotaRule, error) {
	rule, ok := t[op]
	if !ok {
		return QuotaRule{}, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	return rule, nil
}

func (t QuotaTable) Validate() error {
	if len(t) == 0 {
		return errors.New("ratelimit: empty quota table")
	}
	for op, rule := range t {
		switch {
		case strings.TrimSpace(string(op)) == "":
			return errors.New("ratelimit: empty operation type")
		case rule.PerHour <= 0:
			return fmt.Errorf("ratelimit: %s: perHour must be > 0", op)
		case rule.PerDay < rule.PerHour:
			return fmt.Errorf("ratelimit: %s: perDay must be >= perHour", op)
		case strings.TrimSpace(rule.HumanName) == "":
			return fmt.Errorf("ratelimit: %s: human name is required", op)
		}
	}
	return nil
}

type WindowKind string

const (
	WindowHour WindowKind = "hour"
	WindowDay  WindowKind = "day"
)

func (k WindowKind) Size() time.Duration {
	if k == WindowDay {
		return 24 * time.Hour
	}
	return time.Hour
}

// Window é um intervalo fixo alinhado à época Unix: todos os usuários
// compartilham as mesmas fronteiras.
type Window struct {
	Kind  WindowKind
	Start time.Time
	End   time.Time
}

func WindowFor(kind WindowKind, now time.Time) Window {
	size := int64(kind.Size() / time.Second)
	start := (now.Unix() / size) * size
	return Window{
		Kind:  kind,
		Start: time.Unix(start, 0).UTC(),
		End:   time.Unix(start+size, 0).UTC(),
	}
}

func (w Window) Until(now time.Time) time.Duration {
	if d := w.End.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CounterKey identifica um RateLimitRecord.
type CounterKey struct {
	Op     OperationType
	UserID string
	Window Window
}

func (k CounterKey) String() string {
	return string(k.Op) + ":" + k.UserID + ":" + string(k.Window.Kind) + ":" + strconv.FormatInt(k.Window.Start.Unix(), 10)
}

// CounterStore persiste os contadores por janela.
//
// Count devolve 0 quando o registro não existe (criação é preguiçosa).
// Increment soma 1 em cada chave de forma atômica por chave, grava os metadados
// da janela e agenda a expiração para Window.End + margin. Não há remoção explícita.
type CounterStore interface {
	Count(ctx context.Context, key CounterKey) (int64, error)
	Increment(ctx context.Context, keys []CounterKey, margin time.Duration) error
}

// FailurePolicy define o que fazer quando o CounterStore falha.
type FailurePolicy int

const (
	FailOpen FailurePolicy = iota
	FailClosed
)

func (p FailurePolicy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open", "fail-open":
		return FailOpen, nil
	case "closed", "fail-closed":
		return FailClosed, nil
	}
	return FailOpen, fmt.Errorf("ratelimit: unknown failure policy %q", s)
}

// QuotaResult é o resultado de CheckAndIncrement.
type QuotaResult struct {
	Allowed         bool
	HourlyRemaining int
	DailyRemaining  int
	ResetAt         time.Time
	RetryAfter      time.Duration
	Message         string
	// Degraded indica que a decisão saiu da política de falha, sem consultar contadores.
	Degraded bool
}
