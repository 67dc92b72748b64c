// AngelaMos | 2026
// instruction.go

package generate

const SystemPrompt = "You are a professional sales assistant. Keep replies concise."

const NoReplyFallback = "No reply generated."

type ReplyType string

const (
	TypeFollowup  ReplyType = "followup"
	TypeConfident ReplyType = "confident"
	TypePolite    ReplyType = "polite"
	TypeShorten   ReplyType = "shorten"
	TypeDefault   ReplyType = "default"
)

var instructions = map[ReplyType]string{
	TypeFollowup:  "Write a short and polite follow-up email.",
	TypeConfident: "Rewrite this email to sound confident and professional.",
	TypePolite:    "Rewrite this email to sound polite and friendly.",
	TypeShorten:   "Rewrite this email to be shorter and clearer.",
	TypeDefault:   "Write a professional reply to this inbound email.",
}

// Instruction maps a requested reply type to its prompt. Unknown and empty
// types get the default reply instruction.
func Instruction(t ReplyType) string {
	if text, ok := instructions[t]; ok {
		return text
	}
	return instructions[TypeDefault]
}

func userMessage(t ReplyType, emailText string) string {
	return Instruction(t) + "\n\n" + emailText
}
