package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rental-backend/admin/domain"
	"rental-backend/admin/infra"
	"rental-backend/notify"
	"rental-backend/objectstore"
)

// Templates de e-mail enviados aos hosts.
const (
	TemplateHostApproved     = "host_verification_approved"
	TemplateHostRejected     = "host_verification_rejected"
	TemplateListingSuspended = "listing_suspended"
	TemplateListingsApproved = "listings_approved"
)

const defaultListLimit = 100

type HostService struct {
	hosts    *infra.HostRepository
	listings *infra.ListingRepository
	signer   objectstore.Signer
	deps     Deps
}

func NewHostService(hosts *infra.HostRepository, listings *infra.ListingRepository, signer objectstore.Signer, deps Deps) *HostService {
	return &HostService{hosts: hosts, listings: listings, signer: signer, deps: deps.withDefaults()}
}

func (s *HostService) List(ctx context.Context, status string, limit int) ([]domain.Host, error) {
	st := domain.HostStatus(status)
	if status == "" {
		st = domain.HostVerification
	}
	if !st.Valid() {
		return nil, domain.Invalid("unknown host status %q", status)
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.hosts.ListByStatus(ctx, st, limit)
}

func (s *HostService) Get(ctx context.Context, id string) (domain.Host, error) {
	return s.hosts.Get(ctx, id)
}

type DocumentLink struct {
	DocumentID string    `json:"documentId"`
	Kind       string    `json:"kind"`
	UploadedAt time.Time `json:"uploadedAt"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Documents lista os documentos de verificação com links temporários.
func (s *HostService) Documents(ctx context.Context, hostID string) ([]DocumentLink, error) {
	if _, err := s.hosts.Get(ctx, hostID); err != nil {
		return nil, err
	}
	docs, err := s.hosts.Documents(ctx, hostID)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentLink, 0, len(docs))
	for _, d := range docs {
		link, err := s.signer.Sign(d.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("sign document %s: %w", d.DocumentID, err)
		}
		out = append(out, DocumentLink{
			DocumentID: d.DocumentID,
			Kind:       d.Kind,
			UploadedAt: d.UploadedAt,
			URL:        link.URL,
			ExpiresAt:  link.ExpiresAt,
		})
	}
	return out, nil
}

// Approve: VERIFICATION -> VERIFIED.
func (s *HostService) Approve(ctx context.Context, actor Actor, hostID string) (domain.Host, error) {
	cur, err := s.hosts.Get(ctx, hostID)
	if err != nil {
		return domain.Host{}, err
	}
	if err := domain.CheckHostDecision(cur.Status, domain.HostVerified); err != nil {
		return domain.Host{}, err
	}
	now := s.deps.now()
	h, err := s.hosts.Approve(ctx, hostID, actor.ID, now)
	if err != nil {
		return domain.Host{}, err
	}

	log := zap.String("host_id", hostID)
	s.deps.bestEffort(ctx, "mark listings host verified", func(ctx context.Context) error {
		_, err := s.listings.MarkHostVerified(ctx, hostID, now)
		return err
	}, log)
	s.deps.bestEffort(ctx, "email", func(ctx context.Context) error {
		return s.deps.Notifier.SendEmail(ctx, notify.Email{To: h.Email, Template: TemplateHostApproved, Data: map[string]any{"name": h.Name}})
	}, log)
	s.deps.bestEffort(ctx, "push", func(ctx context.Context) error {
		return s.deps.Notifier.SendPush(ctx, notify.Push{UserID: hostID, Title: "Verification approved", Body: "Your host account is verified."})
	}, log)

	s.deps.record(ctx, actor, domain.AuditHostApproved, "host", hostID, map[string]any{"from": string(cur.Status)})
	return h, nil
}

// Reject: VERIFICATION -> REJECTED com motivo obrigatório.
func (s *HostService) Reject(ctx context.Context, actor Actor, hostID, rawReason string) (domain.Host, error) {
	reason, err := SanitizeReason(rawReason, true)
	if err != nil {
		return domain.Host{}, err
	}
	cur, err := s.hosts.Get(ctx, hostID)
	if err != nil {
		return domain.Host{}, err
	}
	if err := domain.CheckHostDecision(cur.Status, domain.HostRejected); err != nil {
		return domain.Host{}, err
	}
	h, err := s.hosts.Reject(ctx, hostID, actor.ID, reason, s.deps.now())
	if err != nil {
		return domain.Host{}, err
	}

	log := zap.String("host_id", hostID)
	s.deps.bestEffort(ctx, "email", func(ctx context.Context) error {
		return s.deps.Notifier.SendEmail(ctx, notify.Email{To: h.Email, Template: TemplateHostRejected, Data: map[string]any{"name": h.Name, "reason": reason}})
	}, log)
	s.deps.bestEffort(ctx, "push", func(ctx context.Context) error {
		return s.deps.Notifier.SendPush(ctx, notify.Push{UserID: hostID, Title: "Verification rejected", Body: reason})
	}, log)

	s.deps.record(ctx, actor, domain.AuditHostRejected, "host", hostID, map[string]any{"reason": reason})
	return h, nil
}

// SubmitVerification é a ação do próprio host: NOT_STARTED/REJECTED -> VERIFICATION.
// Exige ao menos um documento enviado.
func (s *HostService) SubmitVerification(ctx context.Context, hostID string) (domain.Host, error) {
	cur, err := s.hosts.Get(ctx, hostID)
	if err != nil {
		return domain.Host{}, err
	}
	if err := domain.CheckVerificationSubmit(cur.Status); err != nil {
		return domain.Host{}, err
	}
	docs, err := s.hosts.Documents(ctx, hostID)
	if err != nil {
		return domain.Host{}, err
	}
	if len(docs) == 0 {
		return domain.Host{}, domain.Invalid("at least one verification document is required")
	}
	return s.hosts.SubmitVerification(ctx, hostID, s.deps.now())
}
