// AngelaMos | 2026
// repository.go

package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Entitlement, error)
	GrantPro(ctx context.Context, userID string) (*Entitlement, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Get(
	ctx context.Context,
	userID string,
) (*Entitlement, error) {
	query := `
		SELECT user_id, is_pro, updated_at
		FROM user_entitlements
		WHERE user_id = $1`

	var ent Entitlement
	err := r.db.GetContext(ctx, &ent, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get entitlement: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entitlement: %w", err)
	}

	return &ent, nil
}

// GrantPro upserts the row for userID with is_pro set. Repeated calls
// converge on the same row and only move updated_at forward.
func (r *repository) GrantPro(
	ctx context.Context,
	userID string,
) (*Entitlement, error) {
	query := `
		INSERT INTO user_entitlements (user_id, is_pro, updated_at)
		VALUES ($1, TRUE, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET is_pro = TRUE, updated_at = NOW()
		RETURNING user_id, is_pro, updated_at`

	var ent Entitlement
	if err := r.db.GetContext(ctx, &ent, query, userID); err != nil {
		return nil, fmt.Errorf("grant pro: %w", err)
	}

	return &ent, nil
}
