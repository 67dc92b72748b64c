// AngelaMos | 2026
// checkout.go

package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

type CheckoutService struct {
	provider Provider
	timeout  time.Duration
}

func NewCheckoutService(provider Provider, timeout time.Duration) *CheckoutService {
	return &CheckoutService{provider: provider, timeout: timeout}
}

func (s *CheckoutService) Create(
	ctx context.Context,
	userID string,
) (*CheckoutSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("create checkout: empty user id: %w", core.ErrInvalidInput)
	}

	ctx, span := core.StartSpan(ctx, "billing.CreateCheckoutSession",
		attribute.String("user_id", userID),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.provider.CreateCheckoutSession(ctx, userID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}
	if sess.URL == "" {
		err := fmt.Errorf("checkout session %s has no url: %w", sess.ID, core.ErrUpstream)
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return sess, nil
}
