// AngelaMos | 2026
// provider.go

package billing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/core"
)

// MetadataUserIDKey is the checkout session metadata key the webhook reads
// the user identifier back from.
const MetadataUserIDKey = "userId"

type CheckoutSession struct {
	ID  string
	URL string
}

type Provider interface {
	CreateCheckoutSession(
		ctx context.Context,
		userID string,
	) (*CheckoutSession, error)
}

type StripeProvider struct {
	sessions   session.Client
	cfg        config.StripeConfig
	successURL string
	cancelURL  string
}

func NewStripeProvider(
	cfg config.StripeConfig,
	successURL, cancelURL string,
) *StripeProvider {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(1),
	}
	if cfg.APIBaseURL != "" {
		backendCfg.URL = stripe.String(cfg.APIBaseURL)
	}

	return &StripeProvider{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		cfg:        cfg,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CreateCheckoutSession creates a one-time payment session for the fixed
// product and embeds userID so the completion webhook can recover it.
func (p *StripeProvider) CreateCheckoutSession(
	ctx context.Context,
	userID string,
) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(userID),
		SuccessURL:         stripe.String(p.successURL),
		CancelURL:          stripe.String(p.cancelURL),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{p.lineItem()},
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserIDKey, userID)

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w: %w", core.ErrUpstream, err)
	}

	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) lineItem() *stripe.CheckoutSessionLineItemParams {
	if p.cfg.PriceID != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(p.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}
	}

	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(p.cfg.Currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(p.cfg.ProductName),
			},
			UnitAmount: stripe.Int64(p.cfg.UnitAmount),
		},
		Quantity: stripe.Int64(1),
	}
}

var _ Provider = (*StripeProvider)(nil)
