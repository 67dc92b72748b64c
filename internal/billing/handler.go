// AngelaMos | 2026
// handler.go

package billing

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

const (
	maxWebhookBodyBytes = 1 << 20

	successPage = "Payment successful. You can close this tab."
	cancelPage  = "Payment canceled."
)

type Handler struct {
	checkout  *CheckoutService
	webhooks  *WebhookService
	validator *validator.Validate
}

func NewHandler(checkout *CheckoutService, webhooks *WebhookService) *Handler {
	return &Handler{
		checkout:  checkout,
		webhooks:  webhooks,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/create-checkout-session", h.CreateCheckoutSession)
	r.Post("/webhook", h.Webhook)
	r.Get("/success", h.Success)
	r.Get("/cancel", h.Cancel)
}

func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sess, err := h.checkout.Create(r.Context(), req.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "checkout session creation failed",
			"user_id", req.UserID,
			"error", err,
		)
		core.JSONError(w, core.UpstreamError("Stripe failed", err).WithDetails(err.Error()))
		return
	}

	core.OK(w, CreateCheckoutResponse{URL: sess.URL})
}

// Webhook hands the untouched request bytes to the verifier. Anything that
// passes verification is acknowledged with 200 so the provider stops
// redelivering; failures are tracked in the outbox instead.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		core.BadRequest(w, "Webhook Error: unable to read request body")
		return
	}

	outcome, err := h.webhooks.Handle(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		slog.WarnContext(r.Context(), "webhook rejected", "error", err)

		if errors.Is(err, core.ErrInvalidSignature) {
			core.JSONError(w, core.NewAppError(
				err,
				"Webhook Error: "+err.Error(),
				"INVALID_SIGNATURE",
				http.StatusBadRequest,
			))
			return
		}
		core.JSONError(w, err)
		return
	}

	slog.DebugContext(r.Context(), "webhook acknowledged", "outcome", outcome)
	core.OK(w, WebhookResponse{Received: true})
}

func (h *Handler) Success(w http.ResponseWriter, _ *http.Request) {
	core.HTML(w, http.StatusOK, successPage)
}

func (h *Handler) Cancel(w http.ResponseWriter, _ *http.Request) {
	core.HTML(w, http.StatusOK, cancelPage)
}
