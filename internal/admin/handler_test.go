// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/oneclick-server/internal/billing"
	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/entitlement"
)

type adminFixture struct {
	router  chi.Router
	events  *billing.MockEventRepository
	entRepo *entitlement.MockRepository
	entSvc  *entitlement.Service
}

func passThrough(next http.Handler) http.Handler { return next }

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	entRepo := entitlement.NewMockRepository()
	entSvc := entitlement.NewService(entRepo, time.Second)
	events := billing.NewMockEventRepository()
	webhooks := billing.NewWebhookService(
		billing.NewStripeVerifier("whsec_unused"),
		events,
		entSvc,
		time.Second,
	)
	reconciler := billing.NewReconciler(webhooks, events, config.ReconcileConfig{
		Enabled:     true,
		Schedule:    "@every 5m",
		BatchSize:   10,
		MaxAttempts: 5,
	}, time.Second)

	h := NewHandler(HandlerConfig{
		DBStats: func() sql.DBStats { return sql.DBStats{MaxOpenConnections: 25} },
		DBPing:  func(context.Context) error { return nil },
		Events:  reconciler,
	})

	r := chi.NewRouter()
	h.RegisterRoutes(r, passThrough, passThrough)

	return &adminFixture{router: r, events: events, entRepo: entRepo, entSvc: entSvc}
}

func (f *adminFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func unresolvedEvent(id string) billing.WebhookEvent {
	now := time.Now()
	return billing.WebhookEvent{
		ID:        id,
		Provider:  billing.ProviderStripe,
		EventType: "checkout.session.completed",
		Payload:   []byte(`{"metadata":{}}`),
		Status:    billing.StatusUnresolved,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSystemStats_IncludesWebhookCounts(t *testing.T) {
	f := newAdminFixture(t)
	f.events.Put(unresolvedEvent("evt_1"))

	w := f.do(t, http.MethodGet, "/admin/stats", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp SystemStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Database.Healthy)
	assert.Equal(t, 25, resp.Database.Stats.MaxOpenConnections)
	assert.Nil(t, resp.Redis.Stats)
	assert.Equal(t, 1, resp.WebhookEvents["unresolved"])
	assert.NotEmpty(t, resp.Runtime.GoVersion)
}

func TestListWebhookEvents(t *testing.T) {
	f := newAdminFixture(t)
	f.events.Put(unresolvedEvent("evt_1"))
	f.events.Put(unresolvedEvent("evt_2"))

	w := f.do(t, http.MethodGet, "/admin/webhook-events?status=unresolved&limit=1", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp billing.EventListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Total)

	w = f.do(t, http.MethodGet, "/admin/webhook-events?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/admin/webhook-events?status=failed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestGetWebhookEvent(t *testing.T) {
	f := newAdminFixture(t)
	f.events.Put(unresolvedEvent("evt_1"))

	w := f.do(t, http.MethodGet, "/admin/webhook-events/evt_1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unresolved"`)

	w = f.do(t, http.MethodGet, "/admin/webhook-events/evt_missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveWebhookEvent(t *testing.T) {
	f := newAdminFixture(t)
	f.events.Put(unresolvedEvent("evt_1"))

	w := f.do(t, http.MethodPost, "/admin/webhook-events/evt_1/resolve", `{"user_id":"u42"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp OutcomeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, string(billing.OutcomeGranted), resp.Outcome)
	assert.True(t, f.entSvc.IsPro(context.Background(), "u42"))

	w = f.do(t, http.MethodPost, "/admin/webhook-events/evt_1/resolve", `{"user_id":"u43"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "already processed events cannot be re-attributed")
	assert.False(t, f.entSvc.IsPro(context.Background(), "u43"))
}

func TestResolveWebhookEvent_RequiresUserID(t *testing.T) {
	f := newAdminFixture(t)
	f.events.Put(unresolvedEvent("evt_1"))

	for _, body := range []string{`{}`, `{"user_id":"  "}`, `nope`} {
		w := f.do(t, http.MethodPost, "/admin/webhook-events/evt_1/resolve", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Equal(t, 0, f.entRepo.GrantCalls)
}

func TestReplayWebhookEvent(t *testing.T) {
	f := newAdminFixture(t)
	ev := unresolvedEvent("evt_1")
	ev.Status = billing.StatusFailed
	ev.Payload = []byte(`{"metadata":{"userId":"u7"}}`)
	f.events.Put(ev)

	w := f.do(t, http.MethodPost, "/admin/webhook-events/evt_1/replay", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, f.entSvc.IsPro(context.Background(), "u7"))

	w = f.do(t, http.MethodPost, "/admin/webhook-events/evt_nope/replay", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcileEndpoint(t *testing.T) {
	f := newAdminFixture(t)

	w := f.do(t, http.MethodPost, "/admin/webhook-events/reconcile", "")

	require.Equal(t, http.StatusOK, w.Code)
	var result billing.ReconcileResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, 0, result.Claimed)
}
