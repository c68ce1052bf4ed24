// Package store provides the persistent session storage backing
// session.Storage.
package store

import (
	"context"
	"time"

	"github.com/tasktide/desk/internal/session"
)

// Repository is the persistent session key-value store.
type Repository interface {
	session.Storage

	// CleanupExpired removes items not written within the TTL.
	CleanupExpired(ctx context.Context) (int64, error)

	// Clear removes every item, ending the stored session.
	Clear(ctx context.Context) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// DefaultTTL bounds how long a stored session survives without being written.
const DefaultTTL = 12 * time.Hour
