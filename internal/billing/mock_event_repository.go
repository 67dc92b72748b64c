// AngelaMos | 2026
// mock_event_repository.go

package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

// MockEventRepository is an in-memory EventRepository for tests in this and
// dependent packages.
type MockEventRepository struct {
	mu     sync.Mutex
	events map[string]WebhookEvent
	now    func() time.Time

	RecordErr error
	MarkErr   error

	RecordCalls int
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{
		events: make(map[string]WebhookEvent),
		now:    time.Now,
	}
}

// Put stores ev as is, overwriting any event with the same ID.
func (m *MockEventRepository) Put(ev WebhookEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
}

func (m *MockEventRepository) Record(
	_ context.Context,
	ev *WebhookEvent,
) (*WebhookEvent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordCalls++
	if m.RecordErr != nil {
		return nil, false, m.RecordErr
	}

	if existing, ok := m.events[ev.ID]; ok {
		return &existing, false, nil
	}

	now := m.now()
	stored := *ev
	stored.Status = StatusPending
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.events[ev.ID] = stored

	return &stored, true, nil
}

func (m *MockEventRepository) Get(
	_ context.Context,
	id string,
) (*WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("get webhook event: %w", core.ErrNotFound)
	}
	return &ev, nil
}

func (m *MockEventRepository) MarkProcessed(
	_ context.Context,
	id, userID string,
) error {
	return m.mutate(id, func(ev *WebhookEvent) {
		now := m.now()
		ev.Status = StatusProcessed
		ev.UserID = userID
		ev.LastError = ""
		ev.ProcessedAt = &now
	})
}

func (m *MockEventRepository) MarkFailed(
	_ context.Context,
	id, reason string,
) error {
	return m.mutate(id, func(ev *WebhookEvent) {
		ev.Status = StatusFailed
		ev.LastError = reason
	})
}

func (m *MockEventRepository) MarkUnresolved(
	_ context.Context,
	id, reason string,
) error {
	return m.mutate(id, func(ev *WebhookEvent) {
		ev.Status = StatusUnresolved
		ev.LastError = reason
	})
}

func (m *MockEventRepository) mutate(id string, fn func(*WebhookEvent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MarkErr != nil {
		return m.MarkErr
	}

	ev, ok := m.events[id]
	if !ok {
		return fmt.Errorf("update webhook event: %w", core.ErrNotFound)
	}
	fn(&ev)
	ev.UpdatedAt = m.now()
	m.events[id] = ev

	return nil
}

func (m *MockEventRepository) ClaimRetryable(
	_ context.Context,
	maxAttempts, limit int,
	olderThan time.Time,
) ([]WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claimed []WebhookEvent
	for _, ev := range m.sorted(true) {
		if len(claimed) >= limit {
			break
		}
		if ev.Status != StatusPending && ev.Status != StatusFailed {
			continue
		}
		if ev.Attempts >= maxAttempts || !ev.UpdatedAt.Before(olderThan) {
			continue
		}

		ev.Attempts++
		ev.UpdatedAt = m.now()
		m.events[ev.ID] = ev
		claimed = append(claimed, ev)
	}

	return claimed, nil
}

func (m *MockEventRepository) List(
	_ context.Context,
	status EventStatus,
	limit, offset int,
) ([]WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []WebhookEvent
	for _, ev := range m.sorted(false) {
		if status != "" && ev.Status != status {
			continue
		}
		out = append(out, ev)
	}

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockEventRepository) Count(
	_ context.Context,
	status EventStatus,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, ev := range m.events {
		if status == "" || ev.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MockEventRepository) sorted(ascending bool) []WebhookEvent {
	out := make([]WebhookEvent, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var _ EventRepository = (*MockEventRepository)(nil)
