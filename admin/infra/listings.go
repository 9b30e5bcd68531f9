package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-backend/admin/domain"
	"rental-backend/store"
)

type ListingRepository struct {
	db store.Client
}

func NewListingRepository(db store.Client) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Get(ctx context.Context, id string) (domain.Listing, error) {
	it, err := r.db.Get(ctx, ListingKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("get listing %s: %w", id, err)
	}
	return decodeListing(it)
}

// GetMany busca em lote; ids inexistentes ficam fora do mapa.
func (r *ListingRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.Listing, error) {
	keys := make([]store.Key, len(ids))
	for i, id := range ids {
		keys[i] = ListingKey(id)
	}
	items, err := r.db.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("batch get listings: %w", err)
	}
	out := make(map[string]domain.Listing, len(items))
	for _, it := range items {
		l, err := decodeListing(it)
		if err != nil {
			return nil, err
		}
		out[l.ListingID] = l
	}
	return out, nil
}

func (r *ListingRepository) Save(ctx context.Context, l domain.Listing) error {
	data, err := store.Encode(l)
	if err != nil {
		return err
	}
	key := ListingKey(l.ListingID)
	it := store.Item{PK: key.PK, SK: key.SK, Data: data}
	it.GSI1PK, it.GSI1SK = ListingOwnerIndex(l.HostID, l.ListingID)
	it.GSI2PK, it.GSI2SK = ListingStatusIndex(l.Status, l.UpdatedAt, l.ListingID)
	return r.db.Put(ctx, store.Put{Item: it})
}

// SavePublic grava os registros públicos desnormalizados de um anúncio online.
func (r *ListingRepository) SavePublic(ctx context.Context, l domain.Listing, mediaIDs ...string) error {
	ops := []store.TxOp{store.Put{Item: publicItem(PublicPlaceKey(l.ListingID), l)}}
	if l.Location.LocalityID != "" {
		ops = append(ops, store.Put{Item: publicItem(PublicLocalityKey(l.ListingID), l)})
	}
	for _, m := range mediaIDs {
		ops = append(ops, store.Put{Item: publicItem(PublicMediaKey(l.ListingID, m), l)})
	}
	return r.db.Transact(ctx, ops...)
}

func publicItem(k store.Key, l domain.Listing) store.Item {
	return store.Item{PK: k.PK, SK: k.SK, Data: map[string]any{"listingId": l.ListingID, "title": l.Title}}
}

func (r *ListingRepository) ListByStatus(ctx context.Context, status domain.ListingStatus, limit int) ([]domain.Listing, error) {
	items, err := r.db.Query(ctx, store.Query{Index: store.IndexGSI2, PK: listingStatusPK + string(status), Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list listings by status %s: %w", status, err)
	}
	return decodeListings(items)
}

func (r *ListingRepository) ListByHost(ctx context.Context, hostID string) ([]domain.Listing, error) {
	pk, _ := ListingOwnerIndex(hostID, "")
	items, err := r.db.Query(ctx, store.Query{Index: store.IndexGSI1, PK: pk, SKPrefix: listingPrefix})
	if err != nil {
		return nil, fmt.Errorf("list listings of host %s: %w", hostID, err)
	}
	return decodeListings(items)
}

// MarkHostVerified marca todos os anúncios do host. Devolve quantos foram
// atualizados e o primeiro erro, sem parar nos demais.
func (r *ListingRepository) MarkHostVerified(ctx context.Context, hostID string, at time.Time) (int, error) {
	listings, err := r.ListByHost(ctx, hostID)
	if err != nil {
		return 0, err
	}
	var firstErr error
	n := 0
	for _, l := range listings {
		u := store.Set(store.NewUpdate(), listingHostVerified, true)
		store.Set(u, updatedAt, at)
		if _, err := r.db.Update(ctx, ListingKey(l.ListingID), u); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("mark listing %s: %w", l.ListingID, err)
			}
			continue
		}
		n++
	}
	return n, firstErr
}

// SuspendResult diz o que a suspensão removeu da vitrine pública.
type SuspendResult struct {
	Listing         domain.Listing
	WasOnline       bool
	RemovedLocality bool
	RemovedMedia    int
}

// Suspend move o anúncio para LOCKED. Se estava ONLINE, remove na mesma
// transação o registro público do lugar, o da localidade (se houver) e todas as mídias.
func (r *ListingRepository) Suspend(ctx context.Context, l domain.Listing, by, reason string, at time.Time) (SuspendResult, error) {
	u := store.ExpectIn(store.NewUpdate(), listingStatus, l.Status)
	store.Set(u, listingStatus, domain.ListingLocked)
	store.Set(u, listingLockedAt, at)
	store.Set(u, listingLockedBy, by)
	if reason != "" {
		store.Set(u, listingLockReason, reason)
	} else {
		store.Remove(u, listingLockReason)
	}
	store.Set(u, updatedAt, at)
	gpk, gsk := ListingStatusIndex(domain.ListingLocked, at, l.ListingID)
	u.SetIndex(store.IndexGSI2, gpk, gsk)

	res := SuspendResult{WasOnline: l.Status == domain.ListingOnline}
	ops := []store.TxOp{store.UpdateOp{Key: ListingKey(l.ListingID), Update: u}}

	if res.WasOnline {
		ops = append(ops, store.Delete{Key: PublicPlaceKey(l.ListingID)})

		if _, err := r.db.Get(ctx, PublicLocalityKey(l.ListingID)); err == nil {
			ops = append(ops, store.Delete{Key: PublicLocalityKey(l.ListingID)})
			res.RemovedLocality = true
		} else if !errors.Is(err, store.ErrNotFound) {
			return SuspendResult{}, fmt.Errorf("read public locality of %s: %w", l.ListingID, err)
		}

		media, err := r.db.Query(ctx, store.Query{PK: listingPrefix + l.ListingID, SKPrefix: publicMediaSK})
		if err != nil {
			return SuspendResult{}, fmt.Errorf("list public media of %s: %w", l.ListingID, err)
		}
		for _, m := range media {
			ops = append(ops, store.Delete{Key: m.Key()})
		}
		res.RemovedMedia = len(media)
	}

	if err := r.db.Transact(ctx, ops...); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return SuspendResult{}, &domain.TransitionError{Resource: "listing", To: string(domain.ListingLocked)}
		}
		return SuspendResult{}, fmt.Errorf("suspend listing %s: %w", l.ListingID, err)
	}

	l.Status = domain.ListingLocked
	l.LockReason = reason
	l.LockedAt = &at
	l.LockedBy = by
	l.UpdatedAt = at
	res.Listing = l
	return res, nil
}

// Approve move o anúncio para APPROVED, desde que o status não tenha mudado desde a leitura.
func (r *ListingRepository) Approve(ctx context.Context, l domain.Listing, by string, at time.Time) (domain.Listing, error) {
	u := store.ExpectIn(store.NewUpdate(), listingStatus, l.Status)
	store.Set(u, listingStatus, domain.ListingApproved)
	store.Set(u, listingApprovedAt, at)
	store.Set(u, listingApprovedBy, by)
	store.Set(u, updatedAt, at)
	gpk, gsk := ListingStatusIndex(domain.ListingApproved, at, l.ListingID)
	u.SetIndex(store.IndexGSI2, gpk, gsk)

	it, err := r.db.Update(ctx, ListingKey(l.ListingID), u)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.Listing{}, domain.ErrListingNotFound
	case errors.Is(err, store.ErrConditionFailed):
		return domain.Listing{}, &domain.TransitionError{Resource: "listing", To: string(domain.ListingApproved)}
	case err != nil:
		return domain.Listing{}, fmt.Errorf("approve listing %s: %w", l.ListingID, err)
	}
	return decodeListing(it)
}

// DecrementLocation baixa em um o contador de anúncios da localização.
func (r *ListingRepository) DecrementLocation(ctx context.Context, locationID string) error {
	_, err := r.db.Update(ctx, LocationCounterKey(locationID), store.Add(store.NewUpdate(), locationListingCount, -1))
	if err != nil {
		return fmt.Errorf("decrement location %s: %w", locationID, err)
	}
	return nil
}

// LocationCount lê o contador (zero se ausente).
func (r *ListingRepository) LocationCount(ctx context.Context, locationID string) (int64, error) {
	it, err := r.db.Get(ctx, LocationCounterKey(locationID))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, _ := it.Data[locationListingCount.Name()].(float64)
	return int64(n), nil
}

func (r *ListingRepository) SetLocationCount(ctx context.Context, locationID string, n int64) error {
	k := LocationCounterKey(locationID)
	data := map[string]any{"locationId": locationID}
	data[locationListingCount.Name()] = n
	return r.db.Put(ctx, store.Put{Item: store.Item{PK: k.PK, SK: k.SK, Data: data}})
}

func decodeListing(it store.Item) (domain.Listing, error) {
	var l domain.Listing
	if err := store.Decode(it, &l); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func decodeListings(items []store.Item) ([]domain.Listing, error) {
	out := make([]domain.Listing, 0, len(items))
	for _, it := range items {
		l, err := decodeListing(it)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}
