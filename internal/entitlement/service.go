// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

type Service struct {
	repo    Repository
	timeout time.Duration
}

func NewService(repo Repository, timeout time.Duration) *Service {
	return &Service{repo: repo, timeout: timeout}
}

// IsPro fails closed: a missing record and a store error both read as
// false. Store errors are logged and never returned.
func (s *Service) IsPro(ctx context.Context, userID string) bool {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false
	}

	ctx, span := core.StartSpan(ctx, "entitlement.IsPro",
		attribute.String("user_id", userID),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ent, err := s.repo.Get(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return false
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		slog.ErrorContext(ctx, "entitlement lookup failed, failing closed",
			"user_id", userID,
			"error", err,
		)
		return false
	}

	return ent.IsPro
}

// Grant sets the pro flag for userID. It is safe to call repeatedly.
func (s *Service) Grant(
	ctx context.Context,
	userID string,
) (*Entitlement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("grant: empty user id: %w", core.ErrInvalidInput)
	}

	ctx, span := core.StartSpan(ctx, "entitlement.Grant",
		attribute.String("user_id", userID),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ent, err := s.repo.GrantPro(ctx, userID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return ent, nil
}
