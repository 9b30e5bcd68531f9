package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"rental-backend/admin/application"
	"rental-backend/admin/domain"
	"rental-backend/admin/infra"
	"rental-backend/audit"
	"rental-backend/auth"
	"rental-backend/httpx"
	"rental-backend/middleware/ratelimit"
	rlapp "rental-backend/middleware/ratelimit/application"
	rldomain "rental-backend/middleware/ratelimit/domain"
	rlinfra "rental-backend/middleware/ratelimit/infra"
	"rental-backend/notify"
	"rental-backend/notify/mock"
	"rental-backend/objectstore"
	"rental-backend/store"
	"rental-backend/store/memory"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// tokenExtractor resolve o usuário pelo valor cru do Authorization.
type tokenExtractor map[string]auth.UserContext

func (e tokenExtractor) Extract(r *http.Request) (auth.UserContext, error) {
	u, ok := e[r.Header.Get("Authorization")]
	if !ok {
		return auth.UserContext{}, auth.ErrUnauthenticated
	}
	return u, nil
}

func perms(ps ...string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, p := range ps {
		set[p] = struct{}{}
	}
	return set
}

var superPerms = perms(
	auth.PermKYCView, auth.PermKYCApprove, auth.PermListingView, auth.PermListingApprove,
	auth.PermListingSuspend, auth.PermPlanManage,
)

var users = tokenExtractor{
	"super":   {SubjectID: "admin-1", Email: "ops@example.com", Role: auth.RoleAdmin, Permissions: superPerms},
	"viewer":  {SubjectID: "admin-2", Role: auth.RoleAdmin, Permissions: perms(auth.PermKYCView)},
	"host-h1": {SubjectID: "user-h1", Role: auth.RoleHost, HostID: "h1", Permissions: perms()},
}

type server struct {
	t        *testing.T
	db       *memory.Store
	hosts    *infra.HostRepository
	listings *infra.ListingRepository
	router   http.Handler
}

type serverOption struct {
	notifier notify.Dispatcher
	quota    QuotaFunc
}

func newServer(t *testing.T, opt serverOption) *server {
	t.Helper()
	db := memory.New()
	if opt.notifier == nil {
		opt.notifier = notify.LogDispatcher{}
	}
	deps := application.Deps{
		Notifier: opt.notifier,
		Audit:    audit.NewZapRecorder(zap.NewNop()),
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return testNow },
	}
	signer, err := objectstore.NewHMACSigner("https://files.example.com", "kyc", []byte("k"))
	require.NoError(t, err)

	s := &server{t: t, db: db, hosts: infra.NewHostRepository(db), listings: infra.NewListingRepository(db)}
	h := NewHandler(
		application.NewHostService(s.hosts, s.listings, signer, deps),
		application.NewListingService(s.listings, s.hosts, deps, application.WithConcurrency(4, 2)),
		application.NewPlanService(infra.NewPlanRepository(db), deps),
		zap.NewNop(),
	)
	s.router = h.Routes(auth.NewGate(users, zap.NewNop()), opt.quota)
	return s
}

type response struct {
	code   int
	header http.Header
	body   map[string]any
	raw    string
}

func (r response) errorCode() string {
	e, _ := r.body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (s *server) do(method, path, token string, body any) response {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := response{code: rec.Code, header: rec.Header(), raw: rec.Body.String()}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out.body), rec.Body.String())
	return out
}

func (s *server) seedHost(id string, status domain.HostStatus) {
	require.NoError(s.t, s.hosts.Save(context.Background(), domain.Host{HostID: id, Email: id + "@example.com", Name: id, Status: status, UpdatedAt: testNow}))
}

func (s *server) seedListing(l domain.Listing) {
	l.UpdatedAt = testNow
	require.NoError(s.t, s.listings.Save(context.Background(), l))
}

func TestHealth(t *testing.T) {
	s := newServer(t, serverOption{})
	res := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, true, res.body["success"])
}

func TestRoutes_UnknownRouteAndMethodUseEnvelope(t *testing.T) {
	s := newServer(t, serverOption{})

	res := s.do(http.MethodGet, "/admin/nothing-here", "super", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "NOT_FOUND", res.errorCode())
	assert.Equal(t, false, res.body["success"])
	assert.Equal(t, "*", res.header.Get("Access-Control-Allow-Origin"))

	res = s.do(http.MethodDelete, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", res.errorCode())
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	s := newServer(t, serverOption{})
	res := s.do(http.MethodGet, "/admin/hosts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "UNAUTHORIZED", res.errorCode())
	assert.Equal(t, "*", res.header.Get("Access-Control-Allow-Origin"))
}

func TestRoutes_MissingPermissionIsForbidden(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerification)
	before := s.db.Writes()

	res := s.do(http.MethodPost, "/admin/hosts/h1/approve", "viewer", nil)
	assert.Equal(t, http.StatusForbidden, res.code)
	assert.Equal(t, "FORBIDDEN", res.errorCode())
	assert.Equal(t, before, s.db.Writes())
}

func TestApproveHost(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerification)
	s.seedListing(domain.Listing{ListingID: "l1", HostID: "h1", Status: domain.ListingDraft})

	res := s.do(http.MethodPost, "/admin/hosts/h1/approve", "super", nil)
	require.Equal(t, http.StatusOK, res.code, res.raw)
	host := res.body["host"].(map[string]any)
	assert.Equal(t, "VERIFIED", host["status"])
	assert.Equal(t, "admin-1", host["verifiedBy"])

	l, err := s.listings.Get(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, l.HostVerified)
}

func TestApproveHost_WrongStatusDoesNotWrite(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerified)
	before := s.db.Writes()

	res := s.do(http.MethodPost, "/admin/hosts/h1/approve", "super", nil)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", res.errorCode())
	assert.Equal(t, before, s.db.Writes())
}

func TestApproveHost_NotFound(t *testing.T) {
	s := newServer(t, serverOption{})
	res := s.do(http.MethodPost, "/admin/hosts/ghost/approve", "super", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "NOT_FOUND", res.errorCode())
}

func TestApproveHost_NotificationFailureStillSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	n := mock.NewMockDispatcher(ctrl)
	n.EXPECT().SendEmail(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))
	n.EXPECT().SendPush(gomock.Any(), gomock.Any()).Return(errors.New("push down"))

	s := newServer(t, serverOption{notifier: n})
	s.seedHost("h1", domain.HostVerification)
	res := s.do(http.MethodPost, "/admin/hosts/h1/approve", "super", nil)
	assert.Equal(t, http.StatusOK, res.code)
}

func TestRejectHost_ReasonValidation(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerification)
	before := s.db.Writes()

	res := s.do(http.MethodPost, "/admin/hosts/h1/reject", "super", map[string]any{"reason": strings.Repeat("a", 501)})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())

	res = s.do(http.MethodPost, "/admin/hosts/h1/reject", "super", map[string]any{"reason": "  <b></b> "})
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())

	res = s.do(http.MethodPost, "/admin/hosts/h1/reject", "super", map[string]any{"motivo": "x"})
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())
	assert.Equal(t, before, s.db.Writes())

	res = s.do(http.MethodPost, "/admin/hosts/h1/reject", "super", map[string]any{"reason": strings.Repeat("a", 500)})
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, "REJECTED", res.body["host"].(map[string]any)["status"])
}

func TestHostDocuments_SignedLinks(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerification)
	require.NoError(t, s.hosts.SaveDocument(context.Background(), domain.HostDocument{
		HostID: "h1", DocumentID: "d1", Kind: "ID_FRONT", ObjectKey: "h1/d1.jpg", UploadedAt: testNow,
	}))

	res := s.do(http.MethodGet, "/admin/hosts/h1/documents", "viewer", nil)
	require.Equal(t, http.StatusOK, res.code, res.raw)
	docs := res.body["documents"].([]any)
	require.Len(t, docs, 1)
	url := docs[0].(map[string]any)["url"].(string)
	assert.Contains(t, url, "signature=")
	assert.Contains(t, url, "expires=")
}

func TestListHosts_InvalidQuery(t *testing.T) {
	s := newServer(t, serverOption{})
	assert.Equal(t, "VALIDATION_ERROR", s.do(http.MethodGet, "/admin/hosts?status=BOGUS", "viewer", nil).errorCode())
	assert.Equal(t, "VALIDATION_ERROR", s.do(http.MethodGet, "/admin/hosts?limit=abc", "viewer", nil).errorCode())

	s.seedHost("h1", domain.HostVerification)
	s.seedHost("h2", domain.HostVerified)
	res := s.do(http.MethodGet, "/admin/hosts", "viewer", nil)
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, float64(1), res.body["count"])
}

func TestSuspendListing_RemovesPublicRecords(t *testing.T) {
	s := newServer(t, serverOption{})
	ctx := context.Background()
	s.seedHost("h1", domain.HostVerified)
	l := domain.Listing{ListingID: "l1", HostID: "h1", Status: domain.ListingOnline, Location: domain.Location{PlaceID: "p1", LocalityID: "loc1"}}
	s.seedListing(l)
	require.NoError(t, s.listings.SavePublic(ctx, l, "m1", "m2"))

	res := s.do(http.MethodPost, "/admin/listings/l1/suspend", "super", map[string]any{"reason": "fraude"})
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, true, res.body["publicRecordsRemoved"])
	assert.Equal(t, "LOCKED", res.body["listing"].(map[string]any)["status"])

	for _, k := range []store.Key{infra.PublicPlaceKey("l1"), infra.PublicLocalityKey("l1"), infra.PublicMediaKey("l1", "m1")} {
		_, err := s.db.Get(ctx, k)
		assert.ErrorIs(t, err, store.ErrNotFound, k.String())
	}
}

func TestSuspendListing_BodyIsOptional(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerified)
	s.seedListing(domain.Listing{ListingID: "l1", HostID: "h1", Status: domain.ListingApproved})

	res := s.do(http.MethodPost, "/admin/listings/l1/suspend", "super", nil)
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, false, res.body["publicRecordsRemoved"])
}

func TestSuspendListing_WrongStatus(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedListing(domain.Listing{ListingID: "l1", HostID: "h1", Status: domain.ListingDraft})
	before := s.db.Writes()

	res := s.do(http.MethodPost, "/admin/listings/l1/suspend", "super", nil)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", res.errorCode())
	assert.Equal(t, before, s.db.Writes())
}

func TestBulkApprove_CountsMatchDedupedIDs(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerified)
	s.seedListing(domain.Listing{ListingID: "a", HostID: "h1", Status: domain.ListingInReview})
	s.seedListing(domain.Listing{ListingID: "b", HostID: "h1", Status: domain.ListingOnline})

	res := s.do(http.MethodPost, "/admin/listings/bulk-approve", "super", map[string]any{"listingIds": []string{"a", "a", "missing", "b"}})
	require.Equal(t, http.StatusOK, res.code, res.raw)
	results := res.body["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, float64(1), res.body["approved"])
	assert.Equal(t, float64(2), res.body["failed"])
	assert.Equal(t, "not found", results[1].(map[string]any)["error"])
	assert.Equal(t, "invalid status transition from ONLINE", results[2].(map[string]any)["error"])
}

func TestBulkApprove_RejectsOversizedBatch(t *testing.T) {
	s := newServer(t, serverOption{})
	ids := make([]string, application.MaxBulkApprove+1)
	for i := range ids {
		ids[i] = "l" + string(rune('a'+i%26)) + strings.Repeat("x", i/26)
	}
	res := s.do(http.MethodPost, "/admin/listings/bulk-approve", "super", map[string]any{"listingIds": ids})
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())

	res = s.do(http.MethodPost, "/admin/listings/bulk-approve", "super", map[string]any{"listingIds": []string{}})
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())
}

func planBody(id string) map[string]any {
	return map[string]any{
		"planId": id, "name": "Basic", "priceCents": 990, "currency": "brl",
		"interval": "MONTHLY", "maxListings": 3, "features": []string{"support"},
	}
}

func TestPlans_Lifecycle(t *testing.T) {
	s := newServer(t, serverOption{})

	res := s.do(http.MethodPost, "/admin/subscription-plans", "super", planBody("basic"))
	require.Equal(t, http.StatusCreated, res.code, res.raw)
	assert.Equal(t, "BRL", res.body["plan"].(map[string]any)["currency"])

	res = s.do(http.MethodPost, "/admin/subscription-plans", "super", planBody("basic"))
	assert.Equal(t, http.StatusConflict, res.code)
	assert.Equal(t, "CONFLICT", res.errorCode())

	res = s.do(http.MethodPut, "/admin/subscription-plans/basic", "super", map[string]any{"priceCents": 1290})
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, float64(1290), res.body["plan"].(map[string]any)["priceCents"])

	res = s.do(http.MethodPut, "/admin/subscription-plans/basic", "super", map[string]any{})
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())

	res = s.do(http.MethodDelete, "/admin/subscription-plans/basic", "super", nil)
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, false, res.body["plan"].(map[string]any)["isActive"])

	before := s.db.Writes()
	res = s.do(http.MethodDelete, "/admin/subscription-plans/basic", "super", nil)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "ALREADY_INACTIVE", res.errorCode())
	assert.Equal(t, before, s.db.Writes())

	res = s.do(http.MethodGet, "/admin/subscription-plans", "super", nil)
	assert.Equal(t, float64(0), res.body["count"])
	res = s.do(http.MethodGet, "/admin/subscription-plans?includeInactive=true", "super", nil)
	assert.Equal(t, float64(1), res.body["count"])
	res = s.do(http.MethodGet, "/admin/subscription-plans?includeInactive=maybe", "super", nil)
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())

	res = s.do(http.MethodGet, "/admin/subscription-plans/nope", "super", nil)
	assert.Equal(t, http.StatusNotFound, res.code)
}

func TestPlans_ReadRequiresAdminRole(t *testing.T) {
	s := newServer(t, serverOption{})
	res := s.do(http.MethodGet, "/admin/subscription-plans", "host-h1", nil)
	assert.Equal(t, http.StatusForbidden, res.code)
}

func TestPlans_QuotaDeniesAfterLimit(t *testing.T) {
	table := rldomain.QuotaTable{domain.OpPlanWrite: {PerHour: 1, PerDay: 5, HumanName: "subscription plan changes"}}
	svc, err := rlapp.NewQuotaService(rlinfra.NewMemoryQuotaStore(func() time.Time { return testNow }), table,
		rlapp.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	quota := ratelimit.Quota(ratelimit.QuotaOptions{Checker: svc})

	s := newServer(t, serverOption{quota: quota})
	res := s.do(http.MethodPost, "/admin/subscription-plans", "super", planBody("basic"))
	require.Equal(t, http.StatusCreated, res.code, res.raw)

	before := s.db.Writes()
	res = s.do(http.MethodPost, "/admin/subscription-plans", "super", planBody("pro"))
	assert.Equal(t, http.StatusTooManyRequests, res.code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", res.errorCode())
	assert.NotEmpty(t, res.header.Get("Retry-After"))
	assert.Equal(t, before, s.db.Writes())
}

func TestStoreFailureDoesNotLeakDetails(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostVerification)
	s.db.FailWith(func(op string, _ store.Key) error {
		if op == memory.OpGet {
			return errors.New("dial tcp 10.0.0.7:5432: connection refused")
		}
		return nil
	})

	res := s.do(http.MethodPost, "/admin/hosts/h1/approve", "super", nil)
	assert.Equal(t, http.StatusInternalServerError, res.code)
	assert.Equal(t, "INTERNAL_ERROR", res.errorCode())
	assert.NotContains(t, res.raw, "10.0.0.7")
}

func TestVerification_HostAccess(t *testing.T) {
	s := newServer(t, serverOption{})
	s.seedHost("h1", domain.HostNotStarted)
	s.seedHost("h2", domain.HostNotStarted)

	res := s.do(http.MethodGet, "/hosts/h1/verification", "host-h1", nil)
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, "NOT_STARTED", res.body["status"])

	res = s.do(http.MethodGet, "/hosts/h2/verification", "host-h1", nil)
	assert.Equal(t, http.StatusForbidden, res.code)

	res = s.do(http.MethodPost, "/hosts/h1/verification/submit", "host-h1", nil)
	assert.Equal(t, "VALIDATION_ERROR", res.errorCode())

	require.NoError(t, s.hosts.SaveDocument(context.Background(), domain.HostDocument{HostID: "h1", DocumentID: "d1", Kind: "SELFIE", ObjectKey: "h1/d1", UploadedAt: testNow}))
	res = s.do(http.MethodPost, "/hosts/h1/verification/submit", "host-h1", nil)
	require.Equal(t, http.StatusOK, res.code, res.raw)
	assert.Equal(t, "VERIFICATION", res.body["status"])
}

func TestToAPIError_ConcurrentTransition(t *testing.T) {
	err := toAPIError(&domain.TransitionError{Resource: "listing", To: "LOCKED"})
	var apiErr *httpx.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, httpx.CodeInvalidTransition, apiErr.Code)
	assert.Contains(t, apiErr.Message, "changed concurrently")
}
