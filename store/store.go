// Package store defines the aggregate persistence interface. The workflow
// package defines the record-level contract; the composite Store adds the
// lifecycle operations the engine uses to probe and manage a backend.
// Backends: Memory, SQLite, and Redis.
package store

import (
	"context"

	"github.com/ssdeanx/ai-sdk-DM-sub007/workflow"
)

// Store is the aggregate persistence interface. A single backend
// implements both the workflow record contract and the lifecycle surface.
type Store interface {
	workflow.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
