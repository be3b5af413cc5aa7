package feedback

import (
	"context"
	"time"
)

// Store defines the read-only contract for feedback events.
type Store interface {
	// ListFeedback returns a project's feedback events with created_at in
	// [from, to), ordered oldest-first.
	ListFeedback(ctx context.Context, projectID string, from, to time.Time) ([]*Event, error)
}
