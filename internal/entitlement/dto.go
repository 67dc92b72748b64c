// AngelaMos | 2026
// dto.go

package entitlement

type CheckProRequest struct {
	UserID string `json:"userId" validate:"required,max=255"`
}

type CheckProResponse struct {
	IsPro bool `json:"isPro"`
}
