// Package project defines the project read/write model and the webhooks
// configuration service.
package project

import (
	"encoding/json"

	"github.com/feedbacksdev/fanout/endpoint"
	"github.com/feedbacksdev/fanout/internal/entity"
)

// Project is one feedbacks.dev project owning a webhooks configuration.
type Project struct {
	entity.Entity

	// ID is the project identifier, owned by the dashboard application.
	ID string `json:"id"`

	// Name is the human-readable project name, used in payloads.
	Name string `json:"name"`

	// Webhooks is the raw per-kind endpoint configuration blob.
	Webhooks json.RawMessage `json:"webhooks,omitempty"`
}

// Registry returns the normalized endpoint view of the stored configuration.
// Configuration is re-read per invocation; nothing is cached across dispatch
// cycles.
func (p *Project) Registry() *endpoint.Registry {
	return endpoint.Normalize(p.Webhooks)
}
