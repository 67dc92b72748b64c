// AngelaMos | 2026
// repository_integration_test.go

//go:build integration

package entitlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/oneclick-server/internal/core"
	"github.com/carterperez-dev/oneclick-server/internal/testutil"
)

func TestRepository_GrantProUpsert(t *testing.T) {
	db := testutil.StartPostgres(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.Get(ctx, "u1")
	require.ErrorIs(t, err, core.ErrNotFound)

	first, err := repo.GrantPro(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, first.IsPro)

	second, err := repo.GrantPro(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, second.IsPro)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	var count int
	require.NoError(t, db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM user_entitlements WHERE user_id = $1`, "u1"))
	assert.Equal(t, 1, count)

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsPro)
}
