// AngelaMos | 2026
// verifier.go

package billing

import (
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Verifier authenticates a webhook body before any field of it is trusted.
// payload must be the exact bytes received on the wire.
type Verifier interface {
	ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: strings.TrimSpace(secret)}
}

func (v *StripeVerifier) ConstructEvent(
	payload []byte,
	sigHeader string,
) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		v.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
}

var _ Verifier = (*StripeVerifier)(nil)
