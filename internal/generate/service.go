// AngelaMos | 2026
// service.go

package generate

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

type Service struct {
	completer Completer
	timeout   time.Duration
}

func NewService(completer Completer, timeout time.Duration) *Service {
	return &Service{completer: completer, timeout: timeout}
}

// Reply drafts an email for emailText in the style named by t. A blank
// completion becomes NoReplyFallback.
func (s *Service) Reply(
	ctx context.Context,
	t ReplyType,
	emailText string,
) (string, error) {
	ctx, span := core.StartSpan(ctx, "generate.Reply",
		attribute.String("reply_type", string(t)),
		attribute.Int("email_length", len(emailText)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.completer.Complete(ctx, []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: userMessage(t, emailText)},
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return "", err
	}

	if strings.TrimSpace(reply) == "" {
		return NoReplyFallback, nil
	}
	return reply, nil
}
