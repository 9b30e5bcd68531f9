package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/admin/domain"
)

func newPlan(id string) domain.Plan {
	return domain.Plan{PlanID: id, Name: "Plano " + id, PriceCents: 2990, Currency: "BRL", Interval: domain.IntervalMonthly, MaxListings: 3}
}

func TestPlanService_CreateSetsDefaults(t *testing.T) {
	f := newFixture(t)
	p, err := f.plans.Create(context.Background(), admin, newPlan("basic"))
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, "admin-1", p.CreatedBy)
	assert.NotNil(t, p.Features)
}

func TestPlanService_CreateDuplicateConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.plans.Create(context.Background(), admin, newPlan("basic"))
	require.NoError(t, err)
	_, err = f.plans.Create(context.Background(), admin, newPlan("basic"))
	assert.ErrorIs(t, err, domain.ErrPlanExists)
}

func TestPlanService_DeactivateTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.plans.Create(ctx, admin, newPlan("basic"))
	require.NoError(t, err)

	p, err := f.plans.Deactivate(ctx, admin, "basic")
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	require.NotNil(t, p.DeactivatedAt)

	before := f.db.Writes()
	_, err = f.plans.Deactivate(ctx, admin, "basic")
	assert.ErrorIs(t, err, domain.ErrPlanInactive)
	assert.Equal(t, before, f.db.Writes())

	// exclusão lógica: continua legível
	got, err := f.plans.Get(ctx, "basic")
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestPlanService_ListHidesInactiveByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		_, err := f.plans.Create(ctx, admin, newPlan(id))
		require.NoError(t, err)
	}
	_, err := f.plans.Deactivate(ctx, admin, "a")
	require.NoError(t, err)

	active, err := f.plans.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].PlanID)

	all, err := f.plans.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPlanService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.plans.Create(ctx, admin, newPlan("basic"))
	require.NoError(t, err)

	name := "  Basic Plus "
	p, err := f.plans.Update(ctx, admin, "basic", domain.PlanPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Basic Plus", p.Name)
	assert.Equal(t, int64(2990), p.PriceCents)

	_, err = f.plans.Update(ctx, admin, "basic", domain.PlanPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.plans.Update(ctx, admin, "missing", domain.PlanPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestPlanService_UpdateInactivePlanIsAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.plans.Create(ctx, admin, newPlan("basic"))
	require.NoError(t, err)
	_, err = f.plans.Deactivate(ctx, admin, "basic")
	require.NoError(t, err)

	price := int64(100)
	p, err := f.plans.Update(ctx, admin, "basic", domain.PlanPatch{PriceCents: &price})
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.Equal(t, int64(100), p.PriceCents)
}
