// AngelaMos | 2026
// client.go

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/carterperez-dev/oneclick-server/internal/config"
	"github.com/carterperez-dev/oneclick-server/internal/core"
)

const maxErrorBodyBytes = 4 << 10

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatClient calls an OpenAI compatible chat completions endpoint.
type ChatClient struct {
	http *http.Client
	cfg  config.LLMConfig
}

func NewChatClient(cfg config.LLMConfig) *ChatClient {
	return &ChatClient{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

func (c *ChatClient) Complete(
	ctx context.Context,
	messages []Message,
) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s chat request: %w: %w", c.cfg.Provider, core.ErrUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("%s chat request: status %d: %s: %w",
			c.cfg.Provider, resp.StatusCode, bytes.TrimSpace(snippet), core.ErrUpstream)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w: %w", core.ErrUpstream, err)
	}
	if len(cr.Choices) == 0 {
		return "", nil
	}

	return contentText(cr.Choices[0].Message.Content), nil
}

// contentText accepts content as a plain string or as a list of typed
// parts, concatenating the text parts in order.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var b strings.Builder
	for _, p := range parts {
		if p.Type != "" && p.Type != "text" && p.Type != "output_text" {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

var _ Completer = (*ChatClient)(nil)
