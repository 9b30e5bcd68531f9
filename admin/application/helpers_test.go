package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"rental-backend/admin/domain"
	"rental-backend/admin/infra"
	"rental-backend/audit"
	"rental-backend/notify/mock"
	"rental-backend/objectstore"
	"rental-backend/store/memory"
)

var (
	testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	admin   = Actor{ID: "admin-1", Email: "admin@example.com"}
)

type fixture struct {
	db       *memory.Store
	notifier *mock.MockDispatcher
	hostRepo *infra.HostRepository
	lstRepo  *infra.ListingRepository
	planRepo *infra.PlanRepository
	hosts    *HostService
	listings *ListingService
	plans    *PlanService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	db := memory.New()
	f := &fixture{
		db:       db,
		notifier: mock.NewMockDispatcher(ctrl),
		hostRepo: infra.NewHostRepository(db),
		lstRepo:  infra.NewListingRepository(db),
		planRepo: infra.NewPlanRepository(db),
	}
	deps := Deps{
		Notifier: f.notifier,
		Audit:    audit.NewZapRecorder(zap.NewNop()),
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return testNow },
	}
	signer, err := objectstore.NewHMACSigner("https://files.example.com", "kyc", []byte("k"), objectstore.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	f.hosts = NewHostService(f.hostRepo, f.lstRepo, signer, deps)
	f.listings = NewListingService(f.lstRepo, f.hostRepo, deps, WithConcurrency(4, 2))
	f.plans = NewPlanService(f.planRepo, deps)
	return f
}

func (f *fixture) seedHost(t *testing.T, id string, status domain.HostStatus) {
	t.Helper()
	require.NoError(t, f.hostRepo.Save(context.Background(), domain.Host{HostID: id, Email: id + "@example.com", Name: "Host " + id, Status: status, UpdatedAt: testNow}))
}

func (f *fixture) seedListing(t *testing.T, l domain.Listing) {
	t.Helper()
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = testNow
	}
	require.NoError(t, f.lstRepo.Save(context.Background(), l))
}
