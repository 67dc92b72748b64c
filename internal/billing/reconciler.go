// AngelaMos | 2026
// reconciler.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/core"
)

// ErrEventNotResolvable is returned when an admin tries to resolve an event
// that is not waiting for a user ID.
var ErrEventNotResolvable = errors.New("webhook event is not unresolved")

// claimGrace keeps the reconciler away from rows a live webhook request
// recorded moments ago and is still applying.
const claimGrace = time.Minute

type ReconcileResult struct {
	Claimed     int `json:"claimed"`
	Granted     int `json:"granted"`
	Failed      int `json:"failed"`
	MissingUser int `json:"missing_user"`
}

type Reconciler struct {
	webhooks *WebhookService
	events   EventRepository
	cfg      config.ReconcileConfig
	timeout  time.Duration
	now      func() time.Time
	cron     *cron.Cron
}

func NewReconciler(
	webhooks *WebhookService,
	events EventRepository,
	cfg config.ReconcileConfig,
	storeTimeout time.Duration,
) *Reconciler {
	return &Reconciler{
		webhooks: webhooks,
		events:   events,
		cfg:      cfg,
		timeout:  storeTimeout,
		now:      time.Now,
	}
}

// RunOnce re-applies one batch of pending and failed events. Unresolved
// events are left for an operator.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileResult, error) {
	ctx, span := core.StartSpan(ctx, "billing.Reconcile")
	defer span.End()

	claimCtx, cancel := context.WithTimeout(ctx, r.timeout)
	claimed, err := r.events.ClaimRetryable(
		claimCtx,
		r.cfg.MaxAttempts,
		r.cfg.BatchSize,
		r.now().Add(-claimGrace),
	)
	cancel()
	if err != nil {
		core.SetSpanError(ctx, err)
		return ReconcileResult{}, fmt.Errorf("claim retryable events: %w", err)
	}

	result := ReconcileResult{Claimed: len(claimed)}
	for i := range claimed {
		ev := &claimed[i]
		switch r.webhooks.apply(ctx, ev.ID, eventUserID(ev), true) {
		case OutcomeGranted:
			result.Granted++
		case OutcomeMissingUser:
			result.MissingUser++
		default:
			result.Failed++
		}
	}

	if result.Claimed > 0 {
		slog.InfoContext(ctx, "webhook reconciliation finished",
			"claimed", result.Claimed,
			"granted", result.Granted,
			"failed", result.Failed,
			"missing_user", result.MissingUser,
		)
	}

	return result, nil
}

// Replay re-applies a single stored event regardless of its status or
// attempt count.
func (r *Reconciler) Replay(ctx context.Context, eventID string) (Outcome, error) {
	ev, err := r.get(ctx, eventID)
	if err != nil {
		return "", err
	}

	return r.webhooks.apply(ctx, ev.ID, eventUserID(ev), true), nil
}

// Resolve attaches userID to an unresolved event and grants it.
func (r *Reconciler) Resolve(
	ctx context.Context,
	eventID, userID string,
) (Outcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("resolve event: empty user id: %w", core.ErrInvalidInput)
	}

	ev, err := r.get(ctx, eventID)
	if err != nil {
		return "", err
	}
	if ev.Status != StatusUnresolved {
		return "", fmt.Errorf("resolve event %s (%s): %w", ev.ID, ev.Status, ErrEventNotResolvable)
	}

	slog.InfoContext(ctx, "resolving webhook event manually",
		"event_id", ev.ID,
		"user_id", userID,
	)

	return r.webhooks.apply(ctx, ev.ID, userID, true), nil
}

func (r *Reconciler) get(ctx context.Context, eventID string) (*WebhookEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.events.Get(ctx, eventID)
}

// Start schedules RunOnce on cfg.Schedule. It is a no-op when
// reconciliation is disabled.
func (r *Reconciler) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		return nil
	}

	r.cron = cron.New()
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			slog.ErrorContext(ctx, "webhook reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconciler %q: %w", r.cfg.Schedule, err)
	}

	r.cron.Start()
	slog.Info("webhook reconciler started", "schedule", r.cfg.Schedule)

	return nil
}

// Stop halts scheduling and waits for a running batch to finish or ctx to
// expire.
func (r *Reconciler) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}

	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("webhook reconciler did not stop before deadline")
	}
}

// eventUserID prefers the ID captured at receipt and falls back to the
// stored payload.
func eventUserID(ev *WebhookEvent) string {
	if ev.UserID != "" {
		return ev.UserID
	}
	return UserIDFromSession(ev.Payload)
}

// ListEvents returns one page of outbox events, newest first, together with
// the total for status. An empty status matches every event.
func (r *Reconciler) ListEvents(
	ctx context.Context,
	status EventStatus,
	limit, offset int,
) ([]WebhookEvent, int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	events, err := r.events.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.events.Count(ctx, status)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// StatusCounts reports how many outbox events sit in each status.
func (r *Reconciler) StatusCounts(ctx context.Context) (map[EventStatus]int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	counts := make(map[EventStatus]int, 4)
	for _, status := range []EventStatus{
		StatusPending, StatusProcessed, StatusFailed, StatusUnresolved,
	} {
		n, err := r.events.Count(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}

	return counts, nil
}

func (r *Reconciler) GetEvent(ctx context.Context, eventID string) (*WebhookEvent, error) {
	return r.get(ctx, eventID)
}
