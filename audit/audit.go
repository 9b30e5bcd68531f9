// Package audit registra ações administrativas. Registrar nunca bloqueia
// nem falha a requisição que originou a ação.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental-backend/store"
)

type Entry struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actorId"`
	ActorEmail   string         `json:"actorEmail"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	Details      map[string]any `json:"details,omitempty"`
	At           time.Time      `json:"at"`
}

type Recorder interface {
	Record(ctx context.Context, e Entry)
}

const persistTimeout = 3 * time.Second

// ZapRecorder escreve a linha "admin audit" e, se houver store, grava o
// registro em AUDIT#<dia> numa goroutine própria.
type ZapRecorder struct {
	logger *zap.Logger
	store  store.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

type Option func(*ZapRecorder)

func WithStore(c store.Client) Option {
	return func(r *ZapRecorder) { r.store = c }
}

func WithClock(now func() time.Time) Option {
	return func(r *ZapRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewZapRecorder(logger *zap.Logger, opts ...Option) *ZapRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ZapRecorder{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ZapRecorder) Record(ctx context.Context, e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	r.logger.Info("admin audit",
		zap.String("audit_id", e.ID),
		zap.String("actor_id", e.ActorID),
		zap.String("actor_email", e.ActorEmail),
		zap.String("action", e.Action),
		zap.String("resource_type", e.ResourceType),
		zap.String("resource_id", e.ResourceID),
		zap.Any("details", e.Details),
	)
	if r.store == nil {
		return
	}

	// desacopla do ciclo de vida da requisição
	bg := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		pctx, cancel := context.WithTimeout(bg, persistTimeout)
		defer cancel()
		if err := r.persist(pctx, e); err != nil {
			r.logger.Warn("audit persist failed", zap.String("audit_id", e.ID), zap.Error(err))
		}
	}()
}

// Wait aguarda as gravações pendentes. Usado no desligamento e em testes.
func (r *ZapRecorder) Wait() {
	r.wg.Wait()
}

func (r *ZapRecorder) persist(ctx context.Context, e Entry) error {
	data, err := store.Encode(e)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, store.Put{
		Item: store.Item{
			PK:   PartitionKey(e.At),
			SK:   e.At.Format(time.RFC3339Nano) + "#" + e.ID,
			Data: data,
		},
		Condition: store.CondNotExists,
	})
}

func PartitionKey(at time.Time) string {
	return "AUDIT#" + at.UTC().Format("2006-01-02")
}
