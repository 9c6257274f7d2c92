package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface. It
// stores snapshots rather than live sessions, so a loaded session never
// aliases the one that was saved.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	closed    bool
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string][]byte),
	}
}

// Save stores or updates a session
func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	snapshot, err := session.Snapshot()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.snapshots[session.ClientID] = snapshot
	return nil
}

// Load retrieves a session by client ID
func (m *MemoryStore) Load(ctx context.Context, clientID string) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	snapshot, ok := m.snapshots[clientID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return Restore(snapshot)
}

// Delete removes a session
func (m *MemoryStore) Delete(ctx context.Context, clientID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.snapshots, clientID)
	return nil
}

// Exists checks if a session exists
func (m *MemoryStore) Exists(ctx context.Context, clientID string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStoreClosed
	}

	_, ok := m.snapshots[clientID]
	return ok, nil
}

// List returns all session client IDs
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	clientIDs := make([]string, 0, len(m.snapshots))
	for id := range m.snapshots {
		clientIDs = append(clientIDs, id)
	}
	return clientIDs, nil
}

// Close closes the store
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.closed = true
	m.snapshots = nil
	return nil
}
