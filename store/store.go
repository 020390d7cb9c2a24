package store

import (
	"context"

	"github.com/xraph/redrive/dlq"
)

// Store is the aggregate persistence interface. A single backend
// implements the dead-letter contract plus lifecycle operations.
type Store interface {
	dlq.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
