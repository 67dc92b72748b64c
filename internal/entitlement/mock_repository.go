// AngelaMos | 2026
// mock_repository.go

package entitlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carterperez-dev/oneclick-server/internal/core"
)

// MockRepository is an in-memory Repository for tests in this and
// dependent packages.
type MockRepository struct {
	mu      sync.Mutex
	records map[string]Entitlement

	GetErr   error
	GrantErr error

	GetCalls   int
	GrantCalls int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{records: make(map[string]Entitlement)}
}

func (m *MockRepository) Get(
	_ context.Context,
	userID string,
) (*Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	ent, ok := m.records[userID]
	if !ok {
		return nil, fmt.Errorf("get entitlement: %w", core.ErrNotFound)
	}
	return &ent, nil
}

func (m *MockRepository) GrantPro(
	_ context.Context,
	userID string,
) (*Entitlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GrantCalls++
	if m.GrantErr != nil {
		return nil, m.GrantErr
	}

	ent := Entitlement{UserID: userID, IsPro: true, UpdatedAt: time.Now()}
	m.records[userID] = ent
	return &ent, nil
}

// Len reports how many distinct users have a record.
func (m *MockRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ Repository = (*MockRepository)(nil)
