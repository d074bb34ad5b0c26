package sync

import (
	"context"
	"sync"

	"github.com/camdenhq/rapport/internal/model"
)

// Manager serializes syncs per user: a second sync request for the same user
// while one is in flight is rejected with model.ErrSyncRunning.
type Manager struct {
	orchestrator *Orchestrator

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewManager creates a sync manager around the orchestrator.
func NewManager(orchestrator *Orchestrator) *Manager {
	return &Manager{
		orchestrator: orchestrator,
		inFlight:     make(map[string]struct{}),
	}
}

// Sync runs one sync for the user unless one is already running.
func (m *Manager) Sync(ctx context.Context, userID, userEmail string) (*model.SyncReport, error) {
	if !m.acquire(userID) {
		return nil, model.ErrSyncRunning
	}
	defer m.release(userID)

	return m.orchestrator.Sync(ctx, userID, userEmail)
}

// IsRunning reports whether a sync is in flight for the user.
func (m *Manager) IsRunning(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[userID]
	return ok
}

func (m *Manager) acquire(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inFlight[userID]; ok {
		return false
	}
	m.inFlight[userID] = struct{}{}
	return true
}

func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, userID)
}
