package migrations

import (
	"context"
	"errors"
	"strings"

	"rental-backend/admin/domain"
	"rental-backend/admin/infra"
	"rental-backend/store"
)

func init() {
	register(Migration{
		Name:        "plans-backfill-active",
		Description: "set isActive=true on plans created before soft delete existed and index them under GSI1",
		Run:         backfillPlansActive,
	})
	register(Migration{
		Name:        "listings-backfill-owner-index",
		Description: "write the HOST#<hostId> owner index on listings missing it",
		Run:         backfillListingOwnerIndex,
	})
	register(Migration{
		Name:        "normalize-status-case",
		Description: "upper-case and trim host and listing statuses and rebuild their status index",
		Run:         normalizeStatusCase,
	})
}

func backfillPlansActive(ctx context.Context, env Env) (Report, error) {
	return scanAndUpdate(ctx, env, infra.PlanPartitionPrefix, infra.IsPlanMeta, func(it store.Item) (*store.Update, error) {
		id := strings.TrimPrefix(it.PK, infra.PlanPartitionPrefix)
		u := store.NewUpdate()
		if _, ok := it.Data["isActive"]; !ok {
			store.Set(u, infra.PlanIsActiveField, true)
		}
		if pk, sk := infra.PlanIndex(id); it.GSI1PK != pk || it.GSI1SK != sk {
			u.SetIndex(store.IndexGSI1, pk, sk)
		}
		return u, nil
	})
}

func backfillListingOwnerIndex(ctx context.Context, env Env) (Report, error) {
	return scanAndUpdate(ctx, env, infra.ListingPartitionPrefix, infra.IsListingMeta, func(it store.Item) (*store.Update, error) {
		var l domain.Listing
		if err := store.Decode(it, &l); err != nil {
			return nil, err
		}
		if l.HostID == "" {
			return nil, errors.New("listing has no hostId")
		}
		pk, sk := infra.ListingOwnerIndex(l.HostID, l.ListingID)
		if it.GSI1PK == pk && it.GSI1SK == sk {
			return nil, nil
		}
		return store.NewUpdate().SetIndex(store.IndexGSI1, pk, sk), nil
	})
}

// normalizeStatusCase roda nas duas partições; os relatórios são somados.
func normalizeStatusCase(ctx context.Context, env Env) (Report, error) {
	hosts, err := scanAndUpdate(ctx, env, infra.HostPartitionPrefix, infra.IsHostProfile, func(it store.Item) (*store.Update, error) {
		var h domain.Host
		if err := store.Decode(it, &h); err != nil {
			return nil, err
		}
		raw := h.Status
		st := domain.HostStatus(normalizeStatus(string(raw)))
		if !st.Valid() {
			return nil, errors.New("unknown host status " + string(raw))
		}
		pk, sk := infra.HostStatusIndex(st, h.UpdatedAt, h.HostID)
		return statusUpdate(it, infra.HostStatusField, raw, st, pk, sk), nil
	})
	if err != nil {
		return hosts, err
	}

	listings, err := scanAndUpdate(ctx, env, infra.ListingPartitionPrefix, infra.IsListingMeta, func(it store.Item) (*store.Update, error) {
		var l domain.Listing
		if err := store.Decode(it, &l); err != nil {
			return nil, err
		}
		raw := l.Status
		st := domain.ListingStatus(normalizeStatus(string(raw)))
		if !st.Valid() {
			return nil, errors.New("unknown listing status " + string(raw))
		}
		pk, sk := infra.ListingStatusIndex(st, l.UpdatedAt, l.ListingID)
		return statusUpdate(it, infra.ListingStatusField, raw, st, pk, sk), nil
	})
	return Report{
		Scanned: hosts.Scanned + listings.Scanned,
		Updated: hosts.Updated + listings.Updated,
		Skipped: hosts.Skipped + listings.Skipped,
		Failed:  hosts.Failed + listings.Failed,
	}, err
}

func normalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// statusUpdate só grava se o status ou a chave do GSI2 divergirem. A condição
// sobre o valor lido evita sobrescrever uma transição feita durante a varredura.
func statusUpdate[T ~string](it store.Item, f store.Field[T], raw, next T, pk, sk string) *store.Update {
	u := store.ExpectIn(store.NewUpdate(), f, raw)
	if raw != next {
		store.Set(u, f, next)
	}
	if it.GSI2PK != pk || it.GSI2SK != sk {
		u.SetIndex(store.IndexGSI2, pk, sk)
	}
	return u
}
