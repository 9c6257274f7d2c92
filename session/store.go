package session

import (
	"context"
)

// Store defines the interface for session persistence. Values are the
// opaque snapshots produced by Session.Snapshot, keyed by client identifier.
type Store interface {
	// Save stores or updates a session
	Save(ctx context.Context, session *Session) error

	// Load retrieves a session by client ID
	Load(ctx context.Context, clientID string) (*Session, error)

	// Delete removes a session
	Delete(ctx context.Context, clientID string) error

	// Exists checks if a session exists
	Exists(ctx context.Context, clientID string) (bool, error)

	// List returns all session client IDs
	List(ctx context.Context) ([]string, error)

	// Close closes the store
	Close() error
}
