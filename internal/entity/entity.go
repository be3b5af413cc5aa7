// Package entity defines the base entity type embedded by fanout domain objects.
package entity

import "time"

// Entity carries the creation and update timestamps shared by all
// fanout domain objects.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an Entity with both timestamps set to the current UTC time.
func New() Entity {
	now := time.Now().UTC()
	return Entity{CreatedAt: now, UpdatedAt: now}
}
