package project

import (
	"context"
	"encoding/json"
)

// Store defines the persistence contract for projects.
type Store interface {
	// GetProject returns a project by id.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// ListProjects returns all projects. The digest sweep enumerates them.
	ListProjects(ctx context.Context) ([]*Project, error)

	// UpdateWebhooks replaces a project's webhooks configuration blob.
	// Callers validate the blob first; the store persists it verbatim.
	UpdateWebhooks(ctx context.Context, projectID string, webhooks json.RawMessage) error
}
