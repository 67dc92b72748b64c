// AngelaMos | 2026
// webhook_test.go

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/carterperez-dev/oneclick-server/internal/entitlement"
)

const testWebhookSecret = "whsec_test_secret"

type webhookFixture struct {
	entRepo *entitlement.MockRepository
	entSvc  *entitlement.Service
	events  *MockEventRepository
	svc     *WebhookService
	handler *Handler
}

func newWebhookFixture() *webhookFixture {
	entRepo := entitlement.NewMockRepository()
	entSvc := entitlement.NewService(entRepo, time.Second)
	events := NewMockEventRepository()
	svc := NewWebhookService(
		NewStripeVerifier(testWebhookSecret),
		events,
		entSvc,
		time.Second,
	)

	return &webhookFixture{
		entRepo: entRepo,
		entSvc:  entSvc,
		events:  events,
		svc:     svc,
		handler: NewHandler(NewCheckoutService(&fakeProvider{}, time.Second), svc),
	}
}

func eventPayload(id, eventType, userID string) []byte {
	metadata := `{}`
	if userID != "" {
		metadata = fmt.Sprintf(`{"userId":%q}`, userID)
	}

	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": "2025-03-31.basil",
		"type": %q,
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"client_reference_id": "someone-else",
				"metadata": %s
			}
		}
	}`, id, eventType, metadata))
}

func signHeader(payload []byte) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  testWebhookSecret,
	})
	return signed.Header
}

func (f *webhookFixture) post(t *testing.T, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sigHeader)
	w := httptest.NewRecorder()
	f.handler.Webhook(w, req)
	return w
}

func assertReceived(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, true, resp["received"])
}

func (f *webhookFixture) status(t *testing.T, id string) EventStatus {
	t.Helper()
	ev, err := f.events.Get(context.Background(), id)
	require.NoError(t, err)
	return ev.Status
}

func TestWebhook_CompletedCheckoutGrantsPro(t *testing.T) {
	f := newWebhookFixture()
	payload := eventPayload("evt_1", "checkout.session.completed", "u1")

	w := f.post(t, payload, signHeader(payload))

	assertReceived(t, w)
	assert.True(t, f.entSvc.IsPro(context.Background(), "u1"))
	assert.False(t, f.entSvc.IsPro(context.Background(), "someone-else"))
	assert.Equal(t, StatusProcessed, f.status(t, "evt_1"))
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	f := newWebhookFixture()
	payload := eventPayload("evt_1", "checkout.session.completed", "u1")

	for name, header := range map[string]string{
		"missing": "",
		"garbage": "t=123,v1=deadbeef",
		"wrong secret": webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload: payload,
			Secret:  "whsec_other",
		}).Header,
	} {
		w := f.post(t, payload, header)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.Contains(t, w.Body.String(), "Webhook Error", name)
	}

	assert.Equal(t, 0, f.entRepo.GrantCalls)
	assert.Equal(t, 0, f.events.RecordCalls)
}

func TestWebhook_TamperedBodyRejected(t *testing.T) {
	f := newWebhookFixture()
	original := eventPayload("evt_1", "checkout.session.completed", "u1")
	tampered := eventPayload("evt_1", "checkout.session.completed", "attacker")

	w := f.post(t, tampered, signHeader(original))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.entRepo.GrantCalls)
	assert.False(t, f.entSvc.IsPro(context.Background(), "attacker"))
}

func TestWebhook_OtherEventTypesIgnored(t *testing.T) {
	f := newWebhookFixture()
	payload := eventPayload("evt_2", "payment_intent.succeeded", "u1")

	w := f.post(t, payload, signHeader(payload))

	assertReceived(t, w)
	assert.Equal(t, 0, f.entRepo.GrantCalls)
	assert.Equal(t, 0, f.events.RecordCalls)
}

func TestWebhook_MissingUserIDIsUnresolved(t *testing.T) {
	f := newWebhookFixture()
	payload := eventPayload("evt_3", "checkout.session.completed", "")

	outcome, err := f.svc.Handle(context.Background(), payload, signHeader(payload))

	require.NoError(t, err)
	assert.Equal(t, OutcomeMissingUser, outcome)
	assert.Equal(t, 0, f.entRepo.GrantCalls)
	assert.Equal(t, StatusUnresolved, f.status(t, "evt_3"))
}

func TestWebhook_StoreFailureStillAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	f.entRepo.GrantErr = errors.New("connection reset")
	payload := eventPayload("evt_4", "checkout.session.completed", "u1")

	w := f.post(t, payload, signHeader(payload))

	assertReceived(t, w)
	ev, err := f.events.Get(context.Background(), "evt_4")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, ev.Status)
	assert.Contains(t, ev.LastError, "connection reset")
}

func TestWebhook_DuplicateDeliverySkipped(t *testing.T) {
	f := newWebhookFixture()
	payload := eventPayload("evt_5", "checkout.session.completed", "u1")

	first, err := f.svc.Handle(context.Background(), payload, signHeader(payload))
	require.NoError(t, err)
	second, err := f.svc.Handle(context.Background(), payload, signHeader(payload))
	require.NoError(t, err)

	assert.Equal(t, OutcomeGranted, first)
	assert.Equal(t, OutcomeDuplicate, second)
	assert.Equal(t, 1, f.entRepo.GrantCalls)
	assert.True(t, f.entSvc.IsPro(context.Background(), "u1"))
}

func TestWebhook_RedeliveryRetriesFailedGrant(t *testing.T) {
	f := newWebhookFixture()
	f.entRepo.GrantErr = errors.New("timeout")
	payload := eventPayload("evt_6", "checkout.session.completed", "u1")

	outcome, err := f.svc.Handle(context.Background(), payload, signHeader(payload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoreFailed, outcome)

	f.entRepo.GrantErr = nil
	outcome, err = f.svc.Handle(context.Background(), payload, signHeader(payload))
	require.NoError(t, err)

	assert.Equal(t, OutcomeGranted, outcome)
	assert.Equal(t, StatusProcessed, f.status(t, "evt_6"))
	assert.True(t, f.entSvc.IsPro(context.Background(), "u1"))
}

func TestWebhook_OutboxFailureDoesNotBlockGrant(t *testing.T) {
	f := newWebhookFixture()
	f.events.RecordErr = errors.New("outbox unavailable")
	payload := eventPayload("evt_7", "checkout.session.completed", "u1")

	w := f.post(t, payload, signHeader(payload))

	assertReceived(t, w)
	assert.True(t, f.entSvc.IsPro(context.Background(), "u1"))
}

func TestWebhook_OversizedBodyRejected(t *testing.T) {
	f := newWebhookFixture()
	payload := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)

	w := f.post(t, payload, signHeader(payload))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.entRepo.GrantCalls)
}

func TestUserIDFromSession(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"present", `{"metadata":{"userId":"u1"}}`, "u1"},
		{"trimmed", `{"metadata":{"userId":"  u1 "}}`, "u1"},
		{"blank", `{"metadata":{"userId":"   "}}`, ""},
		{"no metadata", `{"id":"cs_1"}`, ""},
		{"null metadata", `{"metadata":null}`, ""},
		{"client reference only", `{"client_reference_id":"u1","metadata":{}}`, ""},
		{"malformed", `{"metadata":`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserIDFromSession([]byte(tt.raw)))
		})
	}
}
