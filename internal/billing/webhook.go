// AngelaMos | 2026
// webhook.go

package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/oneclick-server/internal/core"
	"github.com/carterperez-dev/oneclick-server/internal/entitlement"
)

type Outcome string

const (
	OutcomeIgnored     Outcome = "ignored"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeMissingUser Outcome = "missing_user"
	OutcomeStoreFailed Outcome = "store_failed"
	OutcomeGranted     Outcome = "granted"
)

const reasonMissingUser = "checkout session has no metadata.userId"

type Granter interface {
	Grant(ctx context.Context, userID string) (*entitlement.Entitlement, error)
}

type WebhookService struct {
	verifier Verifier
	events   EventRepository
	granter  Granter
	timeout  time.Duration
}

func NewWebhookService(
	verifier Verifier,
	events EventRepository,
	granter Granter,
	storeTimeout time.Duration,
) *WebhookService {
	return &WebhookService{
		verifier: verifier,
		events:   events,
		granter:  granter,
		timeout:  storeTimeout,
	}
}

// Handle verifies payload against sigHeader and applies a completed checkout
// to the entitlement store. The only error it returns wraps
// core.ErrInvalidSignature; every other outcome is acknowledged.
func (s *WebhookService) Handle(
	ctx context.Context,
	payload []byte,
	sigHeader string,
) (Outcome, error) {
	event, err := s.verifier.ConstructEvent(payload, sigHeader)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrInvalidSignature, err)
	}

	ctx, span := core.StartSpan(ctx, "billing.HandleWebhook",
		attribute.String("event_id", event.ID),
		attribute.String("event_type", string(event.Type)),
	)
	defer span.End()

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		slog.DebugContext(ctx, "ignoring webhook event",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return OutcomeIgnored, nil
	}

	var raw []byte
	if event.Data != nil {
		raw = event.Data.Raw
	}
	userID := UserIDFromSession(raw)

	ev := &WebhookEvent{
		ID:        event.ID,
		Provider:  ProviderStripe,
		EventType: string(event.Type),
		Payload:   raw,
		UserID:    userID,
	}

	tracked := true
	stored, created, err := s.record(ctx, ev)
	if err != nil {
		tracked = false
		slog.ErrorContext(ctx, "failed to record webhook event",
			"event_id", ev.ID,
			"error", err,
		)
	}
	if tracked && !created && stored.Status == StatusProcessed {
		slog.InfoContext(ctx, "duplicate webhook event skipped",
			"event_id", ev.ID,
			"user_id", stored.UserID,
		)
		return OutcomeDuplicate, nil
	}

	return s.apply(ctx, ev.ID, userID, tracked), nil
}

func (s *WebhookService) record(
	ctx context.Context,
	ev *WebhookEvent,
) (*WebhookEvent, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.events.Record(ctx, ev)
}

// apply grants userID and moves the outbox row to its resulting status.
// When tracked is false there is no row to update.
func (s *WebhookService) apply(
	ctx context.Context,
	eventID, userID string,
	tracked bool,
) Outcome {
	if userID == "" {
		slog.WarnContext(ctx, "checkout completed without user id",
			"event_id", eventID,
		)
		if tracked {
			s.mark(ctx, eventID, func(ctx context.Context) error {
				return s.events.MarkUnresolved(ctx, eventID, reasonMissingUser)
			})
		}
		return OutcomeMissingUser
	}

	if _, err := s.granter.Grant(ctx, userID); err != nil {
		core.SetSpanError(ctx, err)
		slog.ErrorContext(ctx, "failed to grant pro entitlement",
			"event_id", eventID,
			"user_id", userID,
			"error", err,
		)
		if tracked {
			s.mark(ctx, eventID, func(ctx context.Context) error {
				return s.events.MarkFailed(ctx, eventID, err.Error())
			})
		}
		return OutcomeStoreFailed
	}

	slog.InfoContext(ctx, "pro entitlement granted",
		"event_id", eventID,
		"user_id", userID,
	)
	if tracked {
		s.mark(ctx, eventID, func(ctx context.Context) error {
			return s.events.MarkProcessed(ctx, eventID, userID)
		})
	}
	return OutcomeGranted
}

func (s *WebhookService) mark(
	ctx context.Context,
	eventID string,
	fn func(ctx context.Context) error,
) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to update webhook event status",
			"event_id", eventID,
			"error", err,
		)
	}
}
