// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/project"
	fanoutstore "github.com/feedbacksdev/fanout/store"
)

// compile-time interface check.
var _ fanoutstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	projects map[string]*project.Project
	events   map[string][]*feedback.Event // keyed by project id, oldest-first
	records  map[string]*delivery.Record // keyed by record id

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		projects: make(map[string]*project.Project),
		events:   make(map[string][]*feedback.Event),
		records:  make(map[string]*delivery.Record),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fanout.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Seeding helpers for tests
// ──────────────────────────────────────────────────

// AddProject inserts a project.
func (s *Store) AddProject(p *project.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

// AddFeedback inserts feedback events for a project, keeping oldest-first
// order.
func (s *Store) AddFeedback(projectID string, events ...*feedback.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[projectID] = append(s.events[projectID], events...)
	sort.SliceStable(s.events[projectID], func(i, j int) bool {
		return s.events[projectID][i].CreatedAt.Before(s.events[projectID][j].CreatedAt)
	})
}

// ──────────────────────────────────────────────────
// project.Store
// ──────────────────────────────────────────────────

// GetProject returns a project by id.
func (s *Store) GetProject(_ context.Context, projectID string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, fanout.ErrProjectNotFound
	}
	return p, nil
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(_ context.Context) ([]*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*project.Project, 0, len(s.projects))
	for _, p := range s.projects {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateWebhooks replaces a project's webhooks configuration blob.
func (s *Store) UpdateWebhooks(_ context.Context, projectID string, webhooks json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return fanout.ErrProjectNotFound
	}
	p.Webhooks = webhooks
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ──────────────────────────────────────────────────
// feedback.Store
// ──────────────────────────────────────────────────

// ListFeedback returns a project's events with created_at in [from, to),
// oldest-first.
func (s *Store) ListFeedback(_ context.Context, projectID string, from, to time.Time) ([]*feedback.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*feedback.Event
	for _, evt := range s.events[projectID] {
		if evt.CreatedAt.Before(from) || !evt.CreatedAt.Before(to) {
			continue
		}
		result = append(result, evt)
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

// AppendRecord inserts one delivery record.
func (s *Store) AppendRecord(_ context.Context, rec *delivery.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fanout.ErrStoreClosed
	}
	s.records[rec.ID] = rec
	return nil
}

// GetRecord returns a record by id.
func (s *Store) GetRecord(_ context.Context, recordID string) (*delivery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[recordID]
	if !ok {
		return nil, delivery.ErrRecordNotFound
	}
	return rec, nil
}

// ListRecords returns a project's delivery history, newest first.
func (s *Store) ListRecords(_ context.Context, projectID string, opts delivery.ListOpts) ([]*delivery.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Record, 0)
	for _, rec := range s.records {
		if rec.ProjectID != projectID {
			continue
		}
		if !matchRecordOpts(rec, opts) {
			continue
		}
		result = append(result, rec)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// CountRecords returns the number of logged deliveries for a project,
// optionally narrowed to one status.
func (s *Store) CountRecords(_ context.Context, projectID string, status delivery.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, rec := range s.records {
		if rec.ProjectID != projectID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		count++
	}
	return count, nil
}

func matchRecordOpts(rec *delivery.Record, opts delivery.ListOpts) bool {
	if opts.EndpointID != "" && rec.EndpointID != opts.EndpointID {
		return false
	}
	if opts.Event != "" && rec.Event != opts.Event {
		return false
	}
	if opts.From != nil && rec.CreatedAt.Before(*opts.From) {
		return false
	}
	if opts.To != nil && !rec.CreatedAt.Before(*opts.To) {
		return false
	}
	return true
}

func applyPagination[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
