// Package application implementa os casos de uso da moderação: decisões
// sobre hosts, suspensão e aprovação em lote de anúncios, e planos.
//
// Efeitos colaterais (e-mail, push, contadores, auditoria) são best-effort:
// falhas são registradas e nunca mudam o resultado da operação principal.
package application

import (
	"context"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"rental-backend/admin/domain"
	"rental-backend/audit"
	"rental-backend/notify"
)

// Actor é quem executa a ação administrativa.
type Actor struct {
	ID    string
	Email string
}

// Deps reúne os colaboradores comuns aos serviços.
type Deps struct {
	Notifier notify.Dispatcher
	Audit    audit.Recorder
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.LogDispatcher{Logger: d.Logger}
	}
	if d.Audit == nil {
		d.Audit = audit.NewZapRecorder(d.Logger)
	}
	return d
}

func (d Deps) now() time.Time { return d.Now().UTC() }

// bestEffort executa um efeito colateral e engole o erro, inclusive panic.
func (d Deps) bestEffort(ctx context.Context, what string, fn func(context.Context) error, fields ...zap.Field) {
	defer func() {
		if rec := recover(); rec != nil {
			d.Logger.Warn("side effect panicked", append(fields, zap.String("effect", what), zap.Any("panic", rec))...)
		}
	}()
	if err := fn(ctx); err != nil {
		d.Logger.Warn("side effect failed", append(fields, zap.String("effect", what), zap.Error(err))...)
	}
}

func (d Deps) record(ctx context.Context, actor Actor, action, resourceType, resourceID string, details map[string]any) {
	d.Audit.Record(ctx, audit.Entry{
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	})
}

var reasonPolicy = bluemonday.StrictPolicy()

// SanitizeReason remove marcação HTML e espaços das pontas. required exige
// texto não vazio; o limite é domain.MaxReasonLength caracteres.
func SanitizeReason(raw string, required bool) (string, error) {
	clean := strings.TrimSpace(html.UnescapeString(reasonPolicy.Sanitize(raw)))
	if clean == "" && required {
		return "", domain.Invalid("reason is required")
	}
	if utf8.RuneCountInString(clean) > domain.MaxReasonLength {
		return "", domain.Invalid("reason must be at most %d characters", domain.MaxReasonLength)
	}
	return clean, nil
}
