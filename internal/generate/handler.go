// AngelaMos | 2026
// handler.go

package generate

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

const maxGenerateBodyBytes = 256 << 10

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

// RegisterRoutes mounts /generate. Callers wrap r with the stricter
// generate rate limit before passing it in.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.Generate)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGenerateBodyBytes)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	reply, err := h.service.Reply(r.Context(), req.Type, req.EmailText)
	if err != nil {
		slog.ErrorContext(r.Context(), "reply generation failed",
			"reply_type", req.Type,
			"error", err,
		)
		core.JSONError(w, core.UpstreamError("AI generation failed", err).WithDetails(err.Error()))
		return
	}

	core.OK(w, GenerateResponse{Reply: reply})
}
