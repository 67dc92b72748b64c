// AngelaMos | 2026
// dto.go

package generate

type GenerateRequest struct {
	EmailText string    `json:"emailText" validate:"max=20000"`
	Type      ReplyType `json:"type"      validate:"max=32"`
}

type GenerateResponse struct {
	Reply string `json:"reply"`
}
