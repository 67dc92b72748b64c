// AngelaMos | 2026
// dto.go

package billing

type CreateCheckoutRequest struct {
	UserID string `json:"userId" validate:"required,max=255"`
}

type CreateCheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type ResolveEventRequest struct {
	UserID string `json:"user_id" validate:"required,max=255"`
}

type EventListResponse struct {
	Items []WebhookEvent `json:"items"`
	Total int            `json:"total"`
}
