// AngelaMos | 2026
// entity.go

package billing

import (
	"encoding/json"
	"strings"
	"time"
)

type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusProcessed  EventStatus = "processed"
	StatusFailed     EventStatus = "failed"
	StatusUnresolved EventStatus = "unresolved"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusFailed, StatusUnresolved:
		return true
	}
	return false
}

const ProviderStripe = "stripe"

// WebhookEvent is one provider event kept in the outbox so a grant that
// failed or could not be attributed is never silently lost.
type WebhookEvent struct {
	ID          string          `db:"id"           json:"id"`
	Provider    string          `db:"provider"     json:"provider"`
	EventType   string          `db:"event_type"   json:"event_type"`
	Payload     json.RawMessage `db:"payload"      json:"payload"`
	UserID      string          `db:"user_id"      json:"user_id"`
	Status      EventStatus     `db:"status"       json:"status"`
	Attempts    int             `db:"attempts"     json:"attempts"`
	LastError   string          `db:"last_error"   json:"last_error,omitempty"`
	CreatedAt   time.Time       `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"   json:"updated_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

type checkoutSessionObject struct {
	Metadata map[string]string `json:"metadata"`
}

// UserIDFromSession reads metadata.userId from a checkout session object.
// Malformed JSON, absent metadata and blank values all yield "".
func UserIDFromSession(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	var obj checkoutSessionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}

	return strings.TrimSpace(obj.Metadata[MetadataUserIDKey])
}
