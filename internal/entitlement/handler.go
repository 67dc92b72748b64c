// AngelaMos | 2026
// handler.go

package entitlement

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/check-pro", h.CheckPro)
}

func (h *Handler) CheckPro(w http.ResponseWriter, r *http.Request) {
	var req CheckProRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	core.OK(w, CheckProResponse{
		IsPro: h.service.IsPro(r.Context(), req.UserID),
	})
}
