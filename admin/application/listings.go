package application

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"rental-backend/admin/domain"
	"rental-backend/admin/infra"
	"rental-backend/fanout"
	"rental-backend/notify"
)

const (
	MaxBulkApprove = 100

	DefaultStoreConcurrency  = 25
	DefaultNotifyConcurrency = 10
)

type ListingService struct {
	listings          *infra.ListingRepository
	hosts             *infra.HostRepository
	deps              Deps
	storeConcurrency  int
	notifyConcurrency int
}

type ListingOption func(*ListingService)

// WithConcurrency ajusta as duas faixas do pool: chamadas ao store e notificações.
func WithConcurrency(storeCalls, notifyCalls int) ListingOption {
	return func(s *ListingService) {
		if storeCalls > 0 {
			s.storeConcurrency = storeCalls
		}
		if notifyCalls > 0 {
			s.notifyConcurrency = notifyCalls
		}
	}
}

func NewListingService(listings *infra.ListingRepository, hosts *infra.HostRepository, deps Deps, opts ...ListingOption) *ListingService {
	s := &ListingService{
		listings:          listings,
		hosts:             hosts,
		deps:              deps.withDefaults(),
		storeConcurrency:  DefaultStoreConcurrency,
		notifyConcurrency: DefaultNotifyConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ListingService) List(ctx context.Context, status string, limit int) ([]domain.Listing, error) {
	st := domain.ListingStatus(status)
	if status == "" {
		st = domain.ListingInReview
	}
	if !st.Valid() {
		return nil, domain.Invalid("unknown listing status %q", status)
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.listings.ListByStatus(ctx, st, limit)
}

func (s *ListingService) Get(ctx context.Context, id string) (domain.Listing, error) {
	return s.listings.Get(ctx, id)
}

// Suspend: {ONLINE, APPROVED} -> LOCKED. Se estava online, a vitrine pública
// sai na mesma transação e os contadores de localização baixam depois.
func (s *ListingService) Suspend(ctx context.Context, actor Actor, listingID, rawReason string) (infra.SuspendResult, error) {
	reason, err := SanitizeReason(rawReason, false)
	if err != nil {
		return infra.SuspendResult{}, err
	}
	cur, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return infra.SuspendResult{}, err
	}
	if err := domain.CheckSuspend(cur.Status); err != nil {
		return infra.SuspendResult{}, err
	}
	res, err := s.listings.Suspend(ctx, cur, actor.ID, reason, s.deps.now())
	if err != nil {
		return infra.SuspendResult{}, err
	}

	log := zap.String("listing_id", listingID)
	if res.WasOnline {
		// contadores independentes: a falha de um não impede o outro
		if id := cur.Location.PlaceID; id != "" {
			s.deps.bestEffort(ctx, "decrement place counter", func(ctx context.Context) error {
				return s.listings.DecrementLocation(ctx, id)
			}, log)
		}
		if id := cur.Location.LocalityID; id != "" {
			s.deps.bestEffort(ctx, "decrement locality counter", func(ctx context.Context) error {
				return s.listings.DecrementLocation(ctx, id)
			}, log)
		}
	}
	s.deps.bestEffort(ctx, "email", func(ctx context.Context) error {
		h, err := s.hosts.Get(ctx, cur.HostID)
		if err != nil {
			return err
		}
		return s.deps.Notifier.SendEmail(ctx, notify.Email{To: h.Email, Template: TemplateListingSuspended, Data: map[string]any{
			"listingId": listingID,
			"title":     cur.Title,
			"reason":    reason,
		}})
	}, log)

	s.deps.record(ctx, actor, domain.AuditListingSuspended, "listing", listingID, map[string]any{
		"from":         string(cur.Status),
		"reason":       reason,
		"wasOnline":    res.WasOnline,
		"removedMedia": res.RemovedMedia,
	})
	return res, nil
}

type BulkItemResult struct {
	ListingID string `json:"listingId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

type BulkResult struct {
	Results  []BulkItemResult `json:"results"`
	Approved int              `json:"approved"`
	Failed   int              `json:"failed"`
}

// ParseBulkIDs valida e deduplica os ids mantendo a ordem da primeira ocorrência.
func ParseBulkIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, domain.Invalid("listingIds must contain at least one id")
	}
	if len(ids) > MaxBulkApprove {
		return nil, domain.Invalid("listingIds must contain at most %d ids", MaxBulkApprove)
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, domain.Invalid("listingIds must not contain empty ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// BulkApprove aprova cada anúncio de forma independente. approved+failed é
// sempre igual ao número de ids distintos.
func (s *ListingService) BulkApprove(ctx context.Context, actor Actor, rawIDs []string) (BulkResult, error) {
	ids, err := ParseBulkIDs(rawIDs)
	if err != nil {
		return BulkResult{}, err
	}
	now := s.deps.now()

	found, err := s.listings.GetMany(ctx, ids)
	if err != nil {
		return BulkResult{}, err
	}

	results := make([]BulkItemResult, len(ids))
	approved := make([]domain.Listing, len(ids))
	errs := fanout.ForEach(ctx, s.storeConcurrency, len(ids), func(ctx context.Context, i int) error {
		id := ids[i]
		results[i] = BulkItemResult{ListingID: id}

		cur, ok := found[id]
		if !ok {
			return domain.ErrListingNotFound
		}
		if err := domain.CheckApprove(cur); err != nil {
			return err
		}
		l, err := s.listings.Approve(ctx, cur, actor.ID, now)
		if err != nil {
			return err
		}
		approved[i] = l
		return nil
	})

	out := BulkResult{Results: results}
	byHost := map[string][]string{}
	var hostOrder []string
	for i, err := range errs {
		if err == nil {
			out.Results[i].Success = true
			out.Approved++
			h := approved[i].HostID
			if _, ok := byHost[h]; !ok {
				hostOrder = append(hostOrder, h)
			}
			byHost[h] = append(byHost[h], ids[i])
			continue
		}
		out.Results[i].ListingID = ids[i]
		out.Results[i].Error = bulkError(err)
		out.Failed++
		if out.Results[i].Error == "internal error" {
			s.deps.Logger.Error("bulk approve item failed", zap.String("listing_id", ids[i]), zap.Error(err))
		}
	}

	s.notifyOwners(ctx, hostOrder, byHost)

	s.deps.record(ctx, actor, domain.AuditListingsBulkApproved, "listing", "", map[string]any{
		"requested": len(ids),
		"approved":  out.Approved,
		"failed":    out.Failed,
	})
	return out, nil
}

// notifyOwners manda um e-mail por dono com todos os anúncios aprovados dele.
func (s *ListingService) notifyOwners(ctx context.Context, hostIDs []string, byHost map[string][]string) {
	fanout.ForEach(ctx, s.notifyConcurrency, len(hostIDs), func(ctx context.Context, i int) error {
		hostID := hostIDs[i]
		s.deps.bestEffort(ctx, "email", func(ctx context.Context) error {
			h, err := s.hosts.Get(ctx, hostID)
			if err != nil {
				return err
			}
			return s.deps.Notifier.SendEmail(ctx, notify.Email{To: h.Email, Template: TemplateListingsApproved, Data: map[string]any{
				"listingIds": byHost[hostID],
			}})
		}, zap.String("host_id", hostID))
		return nil
	})
}

func bulkError(err error) string {
	var te *domain.TransitionError
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		return "not found"
	case errors.As(err, &te) && te.From == "":
		return "status changed concurrently"
	case errors.As(err, &te):
		return "invalid status transition from " + te.From
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "internal error"
}
