package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rental-backend/admin/domain"
	"rental-backend/store"
)

type HostRepository struct {
	db store.Client
}

func NewHostRepository(db store.Client) *HostRepository {
	return &HostRepository{db: db}
}

func (r *HostRepository) Get(ctx context.Context, id string) (domain.Host, error) {
	it, err := r.db.Get(ctx, HostKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Host{}, domain.ErrHostNotFound
	}
	if err != nil {
		return domain.Host{}, fmt.Errorf("get host %s: %w", id, err)
	}
	var h domain.Host
	if err := store.Decode(it, &h); err != nil {
		return domain.Host{}, err
	}
	return h, nil
}

// Save grava o perfil inteiro, recalculando a chave do índice por status.
func (r *HostRepository) Save(ctx context.Context, h domain.Host) error {
	data, err := store.Encode(h)
	if err != nil {
		return err
	}
	key := HostKey(h.HostID)
	gpk, gsk := HostStatusIndex(h.Status, h.UpdatedAt, h.HostID)
	return r.db.Put(ctx, store.Put{Item: store.Item{PK: key.PK, SK: key.SK, GSI2PK: gpk, GSI2SK: gsk, Data: data}})
}

func (r *HostRepository) SaveDocument(ctx context.Context, d domain.HostDocument) error {
	data, err := store.Encode(d)
	if err != nil {
		return err
	}
	key := HostDocumentKey(d.HostID, d.DocumentID)
	return r.db.Put(ctx, store.Put{Item: store.Item{PK: key.PK, SK: key.SK, Data: data}})
}

// ListByStatus devolve os hosts de um status, do mais antigo para o mais recente.
func (r *HostRepository) ListByStatus(ctx context.Context, status domain.HostStatus, limit int) ([]domain.Host, error) {
	items, err := r.db.Query(ctx, store.Query{Index: store.IndexGSI2, PK: hostStatusPK + string(status), Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list hosts by status %s: %w", status, err)
	}
	out := make([]domain.Host, 0, len(items))
	for _, it := range items {
		var h domain.Host
		if err := store.Decode(it, &h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (r *HostRepository) Documents(ctx context.Context, hostID string) ([]domain.HostDocument, error) {
	items, err := r.db.Query(ctx, store.Query{PK: hostPrefix + hostID, SKPrefix: documentPrefix})
	if err != nil {
		return nil, fmt.Errorf("list documents of host %s: %w", hostID, err)
	}
	out := make([]domain.HostDocument, 0, len(items))
	for _, it := range items {
		var d domain.HostDocument
		if err := store.Decode(it, &d); err != nil {
			return nil, err
		}
		if d.DocumentID == "" {
			d.DocumentID = strings.TrimPrefix(it.SK, documentPrefix)
		}
		out = append(out, d)
	}
	return out, nil
}

// Approve move VERIFICATION -> VERIFIED.
func (r *HostRepository) Approve(ctx context.Context, id, by string, at time.Time) (domain.Host, error) {
	u := r.transition(id, domain.HostVerified, at, domain.HostVerification)
	store.Set(u, hostVerifiedAt, at)
	store.Set(u, hostVerifiedBy, by)
	store.Remove(u, hostRejectionReason)
	return r.apply(ctx, id, u, domain.HostVerified)
}

// Reject move VERIFICATION -> REJECTED guardando o motivo.
func (r *HostRepository) Reject(ctx context.Context, id, by, reason string, at time.Time) (domain.Host, error) {
	u := r.transition(id, domain.HostRejected, at, domain.HostVerification)
	store.Set(u, hostRejectedAt, at)
	store.Set(u, hostRejectedBy, by)
	store.Set(u, hostRejectionReason, reason)
	return r.apply(ctx, id, u, domain.HostRejected)
}

// SubmitVerification move NOT_STARTED ou REJECTED -> VERIFICATION.
func (r *HostRepository) SubmitVerification(ctx context.Context, id string, at time.Time) (domain.Host, error) {
	u := r.transition(id, domain.HostVerification, at, domain.HostNotStarted, domain.HostRejected)
	store.Set(u, hostSubmittedAt, at)
	return r.apply(ctx, id, u, domain.HostVerification)
}

func (r *HostRepository) transition(id string, to domain.HostStatus, at time.Time, from ...domain.HostStatus) *store.Update {
	u := store.ExpectIn(store.NewUpdate(), hostStatus, from...)
	store.Set(u, hostStatus, to)
	store.Set(u, updatedAt, at)
	gpk, gsk := HostStatusIndex(to, at, id)
	return u.SetIndex(store.IndexGSI2, gpk, gsk)
}

func (r *HostRepository) apply(ctx context.Context, id string, u *store.Update, to domain.HostStatus) (domain.Host, error) {
	it, err := r.db.Update(ctx, HostKey(id), u)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.Host{}, domain.ErrHostNotFound
	case errors.Is(err, store.ErrConditionFailed):
		// outro administrador decidiu entre a leitura e a escrita
		return domain.Host{}, &domain.TransitionError{Resource: "host", To: string(to)}
	case err != nil:
		return domain.Host{}, fmt.Errorf("update host %s: %w", id, err)
	}
	var h domain.Host
	if err := store.Decode(it, &h); err != nil {
		return domain.Host{}, err
	}
	return h, nil
}
