// AngelaMos | 2026
// event_repository.go

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

type EventRepository interface {
	Record(ctx context.Context, ev *WebhookEvent) (*WebhookEvent, bool, error)
	Get(ctx context.Context, id string) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, id, userID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	MarkUnresolved(ctx context.Context, id, reason string) error
	ClaimRetryable(
		ctx context.Context,
		maxAttempts, limit int,
		olderThan time.Time,
	) ([]WebhookEvent, error)
	List(
		ctx context.Context,
		status EventStatus,
		limit, offset int,
	) ([]WebhookEvent, error)
	Count(ctx context.Context, status EventStatus) (int, error)
}

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, provider, event_type, payload, user_id, status,
	attempts, last_error, created_at, updated_at, processed_at`

// Record inserts ev as pending unless a row with the same provider event ID
// already exists. It returns the stored row and whether this call created it.
func (r *eventRepository) Record(
	ctx context.Context,
	ev *WebhookEvent,
) (*WebhookEvent, bool, error) {
	payload := string(ev.Payload)
	if payload == "" {
		payload = "{}"
	}

	query := `
		INSERT INTO webhook_events (id, provider, event_type, payload, user_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.Provider,
		ev.EventType,
		payload,
		ev.UserID,
		string(StatusPending),
	)
	if err != nil {
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}

	stored, err := r.Get(ctx, ev.ID)
	if err != nil {
		return nil, false, err
	}

	return stored, rows == 1, nil
}

func (r *eventRepository) Get(
	ctx context.Context,
	id string,
) (*WebhookEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM webhook_events WHERE id = $1`

	var ev WebhookEvent
	err := r.db.GetContext(ctx, &ev, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get webhook event: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event: %w", err)
	}

	return &ev, nil
}

func (r *eventRepository) MarkProcessed(
	ctx context.Context,
	id, userID string,
) error {
	query := `
		UPDATE webhook_events
		SET status = $2, user_id = $3, last_error = '',
			processed_at = NOW(), updated_at = NOW()
		WHERE id = $1`

	return r.update(ctx, "mark processed", query, id, string(StatusProcessed), userID)
}

func (r *eventRepository) MarkFailed(
	ctx context.Context,
	id, reason string,
) error {
	query := `
		UPDATE webhook_events
		SET status = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1`

	return r.update(ctx, "mark failed", query, id, string(StatusFailed), reason)
}

func (r *eventRepository) MarkUnresolved(
	ctx context.Context,
	id, reason string,
) error {
	query := `
		UPDATE webhook_events
		SET status = $2, last_error = $3, updated_at = NOW()
		WHERE id = $1`

	return r.update(ctx, "mark unresolved", query, id, string(StatusUnresolved), reason)
}

func (r *eventRepository) update(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

// ClaimRetryable locks up to limit pending or failed events last touched
// before olderThan, bumps their attempt counter and returns them. Rows held
// by a concurrent claimer are skipped.
func (r *eventRepository) ClaimRetryable(
	ctx context.Context,
	maxAttempts, limit int,
	olderThan time.Time,
) ([]WebhookEvent, error) {
	var claimed []WebhookEvent

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			SELECT ` + eventColumns + `
			FROM webhook_events
			WHERE status IN ($1, $2)
				AND attempts < $3
				AND updated_at < $4
			ORDER BY created_at ASC
			LIMIT $5
			FOR UPDATE SKIP LOCKED`

		if err := tx.SelectContext(ctx, &claimed, query,
			string(StatusPending),
			string(StatusFailed),
			maxAttempts,
			olderThan,
			limit,
		); err != nil {
			return fmt.Errorf("select retryable events: %w", err)
		}
		if len(claimed) == 0 {
			return nil
		}

		ids := make([]string, len(claimed))
		for i := range claimed {
			ids[i] = claimed[i].ID
			claimed[i].Attempts++
		}

		update, args, err := sqlx.In(`
			UPDATE webhook_events
			SET attempts = attempts + 1, updated_at = NOW()
			WHERE id IN (?)`, ids)
		if err != nil {
			return fmt.Errorf("build claim update: %w", err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(update), args...); err != nil {
			return fmt.Errorf("claim retryable events: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (r *eventRepository) List(
	ctx context.Context,
	status EventStatus,
	limit, offset int,
) ([]WebhookEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM webhook_events
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var events []WebhookEvent
	if err := r.db.SelectContext(ctx, &events, query,
		string(status), limit, offset,
	); err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}

	return events, nil
}

func (r *eventRepository) Count(
	ctx context.Context,
	status EventStatus,
) (int, error) {
	query := `SELECT COUNT(*) FROM webhook_events WHERE ($1::text = '' OR status = $1::text)`

	var count int
	if err := r.db.GetContext(ctx, &count, query, string(status)); err != nil {
		return 0, fmt.Errorf("count webhook events: %w", err)
	}

	return count, nil
}
