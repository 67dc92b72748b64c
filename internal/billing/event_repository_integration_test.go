// AngelaMos | 2026
// event_repository_integration_test.go

//go:build integration

package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/oneclick-server/internal/core"
	"github.com/carterperez-dev/oneclick-server/internal/testutil"
)

func TestEventRepository_Lifecycle(t *testing.T) {
	db := testutil.StartPostgres(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	ev := &WebhookEvent{
		ID:        "evt_1",
		Provider:  ProviderStripe,
		EventType: "checkout.session.completed",
		Payload:   []byte(`{"metadata":{"userId":"u1"}}`),
		UserID:    "u1",
	}

	stored, created, err := repo.Record(ctx, ev)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, "u1", UserIDFromSession(stored.Payload))

	again, created, err := repo.Record(ctx, ev)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.CreatedAt, again.CreatedAt)

	require.NoError(t, repo.MarkFailed(ctx, "evt_1", "db down"))
	got, err := repo.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "db down", got.LastError)

	require.NoError(t, repo.MarkProcessed(ctx, "evt_1", "u1"))
	got, err = repo.Get(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, got.Status)
	assert.Empty(t, got.LastError)
	assert.NotNil(t, got.ProcessedAt)

	assert.ErrorIs(t, repo.MarkUnresolved(ctx, "evt_missing", "x"), core.ErrNotFound)
	_, err = repo.Get(ctx, "evt_missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEventRepository_ClaimRetryable(t *testing.T) {
	db := testutil.StartPostgres(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	for _, id := range []string{"evt_a", "evt_b", "evt_c", "evt_d"} {
		_, _, err := repo.Record(ctx, &WebhookEvent{
			ID:        id,
			Provider:  ProviderStripe,
			EventType: "checkout.session.completed",
			Payload:   []byte(`{}`),
		})
		require.NoError(t, err)
	}
	require.NoError(t, repo.MarkFailed(ctx, "evt_b", "boom"))
	require.NoError(t, repo.MarkUnresolved(ctx, "evt_c", "no user"))
	require.NoError(t, repo.MarkProcessed(ctx, "evt_d", "u1"))

	claimed, err := repo.ClaimRetryable(ctx, 2, 10, time.Now().Add(time.Minute))
	require.NoError(t, err)

	ids := make([]string, 0, len(claimed))
	for _, ev := range claimed {
		ids = append(ids, ev.ID)
		assert.Equal(t, 1, ev.Attempts)
	}
	assert.ElementsMatch(t, []string{"evt_a", "evt_b"}, ids)

	_, err = repo.ClaimRetryable(ctx, 2, 10, time.Now().Add(time.Minute))
	require.NoError(t, err)
	exhausted, err := repo.ClaimRetryable(ctx, 2, 10, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, exhausted)

	fresh, err := repo.ClaimRetryable(ctx, 10, 10, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, fresh)

	unresolved, err := repo.List(ctx, StatusUnresolved, 10, 0)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "evt_c", unresolved[0].ID)

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
