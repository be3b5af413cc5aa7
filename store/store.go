// Package store defines the composite Store interface for all engine
// persistence.
//
// Each subsystem defines its own store interface; the aggregate Store
// composes them all, and backends implement the whole surface.
package store

import (
	"context"

	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/project"
)

// Store is the aggregate persistence interface.
type Store interface {
	project.Store
	feedback.Store
	delivery.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
