// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/oneclick-server/internal/billing"
	"github.com/carterperez-dev/oneclick-server/internal/core"
	"github.com/carterperez-dev/oneclick-server/internal/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// EventOperator is the slice of the webhook reconciler operators drive.
type EventOperator interface {
	ListEvents(
		ctx context.Context,
		status billing.EventStatus,
		limit, offset int,
	) ([]billing.WebhookEvent, int, error)
	GetEvent(ctx context.Context, eventID string) (*billing.WebhookEvent, error)
	StatusCounts(ctx context.Context) (map[billing.EventStatus]int, error)
	Replay(ctx context.Context, eventID string) (billing.Outcome, error)
	Resolve(ctx context.Context, eventID, userID string) (billing.Outcome, error)
	RunOnce(ctx context.Context) (billing.ReconcileResult, error)
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	events     EventOperator
	validator  *validator.Validate
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
	Events     EventOperator
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		events:     cfg.Events,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		r.Route("/webhook-events", func(r chi.Router) {
			r.Get("/", h.ListWebhookEvents)
			r.Post("/reconcile", h.Reconcile)
			r.Get("/{eventID}", h.GetWebhookEvent)
			r.Post("/{eventID}/replay", h.ReplayWebhookEvent)
			r.Post("/{eventID}/resolve", h.ResolveWebhookEvent)
		})
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealthy := true
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			dbHealthy = false
		}
	}

	redisHealthy := true
	if h.redisPing != nil {
		if err := h.redisPing(ctx); err != nil {
			redisHealthy = false
		}
	}

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: dbHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: readRuntimeStats(),
	}

	if h.events != nil {
		counts, err := h.events.StatusCounts(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "webhook event counts unavailable", "error", err)
		} else {
			response.WebhookEvents = make(map[string]int, len(counts))
			for status, n := range counts {
				response.WebhookEvents[string(status)] = n
			}
		}
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := billing.EventStatus(strings.TrimSpace(q.Get("status")))
	if status != "" && !status.Valid() {
		core.BadRequest(w, "status must be one of pending, processed, failed, unresolved")
		return
	}

	limit := parseIntParam(q.Get("limit"), defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := parseIntParam(q.Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	events, total, err := h.events.ListEvents(r.Context(), status, limit, offset)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if events == nil {
		events = []billing.WebhookEvent{}
	}

	core.OK(w, billing.EventListResponse{Items: events, Total: total})
}

func (h *Handler) GetWebhookEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeEventError(w, err)
		return
	}

	core.OK(w, ev)
}

func (h *Handler) ReplayWebhookEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	outcome, err := h.events.Replay(r.Context(), eventID)
	if err != nil {
		h.writeEventError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "webhook event replayed",
		"event_id", eventID,
		"outcome", outcome,
		"operator", middleware.GetSubject(r.Context()),
	)
	core.OK(w, OutcomeResponse{EventID: eventID, Outcome: string(outcome)})
}

func (h *Handler) ResolveWebhookEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req billing.ResolveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	outcome, err := h.events.Resolve(r.Context(), eventID, req.UserID)
	if err != nil {
		h.writeEventError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "webhook event resolved",
		"event_id", eventID,
		"user_id", req.UserID,
		"outcome", outcome,
		"operator", middleware.GetSubject(r.Context()),
	)
	core.OK(w, OutcomeResponse{EventID: eventID, Outcome: string(outcome)})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.events.RunOnce(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, result)
}

func (h *Handler) writeEventError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "webhook event")
	case errors.Is(err, billing.ErrEventNotResolvable):
		core.JSONError(w, core.NewAppError(err, err.Error(), "CONFLICT", http.StatusConflict))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}
