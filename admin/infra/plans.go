package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-backend/admin/domain"
	"rental-backend/store"
)

type PlanRepository struct {
	db store.Client
}

func NewPlanRepository(db store.Client) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create grava com condição de inexistência; id repetido vira ErrPlanExists.
func (r *PlanRepository) Create(ctx context.Context, p domain.Plan) error {
	data, err := store.Encode(p)
	if err != nil {
		return err
	}
	key := PlanKey(p.PlanID)
	it := store.Item{PK: key.PK, SK: key.SK, Data: data}
	it.GSI1PK, it.GSI1SK = PlanIndex(p.PlanID)
	err = r.db.Put(ctx, store.Put{Item: it, Condition: store.CondNotExists})
	if errors.Is(err, store.ErrConditionFailed) {
		return domain.ErrPlanExists
	}
	if err != nil {
		return fmt.Errorf("create plan %s: %w", p.PlanID, err)
	}
	return nil
}

func (r *PlanRepository) Get(ctx context.Context, id string) (domain.Plan, error) {
	it, err := r.db.Get(ctx, PlanKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	if err != nil {
		return domain.Plan{}, fmt.Errorf("get plan %s: %w", id, err)
	}
	var p domain.Plan
	if err := store.Decode(it, &p); err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}

// List devolve os planos ordenados por id; inativos só com includeInactive.
func (r *PlanRepository) List(ctx context.Context, includeInactive bool) ([]domain.Plan, error) {
	items, err := r.db.Query(ctx, store.Query{Index: store.IndexGSI1, PK: planIndexPK})
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	out := make([]domain.Plan, 0, len(items))
	for _, it := range items {
		var p domain.Plan
		if err := store.Decode(it, &p); err != nil {
			return nil, err
		}
		if !p.IsActive && !includeInactive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Update grava só os campos presentes em patch, com os valores já
// normalizados de next.
func (r *PlanRepository) Update(ctx context.Context, next domain.Plan, patch domain.PlanPatch, by string, at time.Time) (domain.Plan, error) {
	u := store.NewUpdate()
	if patch.Name != nil {
		store.Set(u, planName, next.Name)
	}
	if patch.Description != nil {
		store.Set(u, planDescription, next.Description)
	}
	if patch.PriceCents != nil {
		store.Set(u, planPriceCents, next.PriceCents)
	}
	if patch.Currency != nil {
		store.Set(u, planCurrency, next.Currency)
	}
	if patch.Interval != nil {
		store.Set(u, planInterval, next.Interval)
	}
	if patch.MaxListings != nil {
		store.Set(u, planMaxListings, next.MaxListings)
	}
	if patch.Features != nil {
		store.Set(u, planFeatures, next.Features)
	}
	store.Set(u, updatedAt, at)
	store.Set(u, planUpdatedBy, by)
	return r.update(ctx, next.PlanID, u)
}

// Deactivate é a exclusão lógica: o plano nunca é apagado.
func (r *PlanRepository) Deactivate(ctx context.Context, id, by string, at time.Time) (domain.Plan, error) {
	u := store.Set(store.NewUpdate(), planIsActive, false)
	store.Set(u, planDeactivatedAt, at)
	store.Set(u, updatedAt, at)
	store.Set(u, planUpdatedBy, by)
	return r.update(ctx, id, u)
}

func (r *PlanRepository) update(ctx context.Context, id string, u *store.Update) (domain.Plan, error) {
	it, err := r.db.Update(ctx, PlanKey(id), u)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Plan{}, domain.ErrPlanNotFound
	}
	if err != nil {
		return domain.Plan{}, fmt.Errorf("update plan %s: %w", id, err)
	}
	var p domain.Plan
	if err := store.Decode(it, &p); err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}
