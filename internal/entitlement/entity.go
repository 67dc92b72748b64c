// AngelaMos | 2026
// entity.go

package entitlement

import (
	"time"
)

// Entitlement is the per-user pro flag. One row per user ID.
type Entitlement struct {
	UserID    string    `db:"user_id"`
	IsPro     bool      `db:"is_pro"`
	UpdatedAt time.Time `db:"updated_at"`
}
