// Package redis implements the fanout store on Redis via Grove KV.
//
// Entities are stored as JSON blobs under prefixed keys; per-project sorted
// sets scored by created_at provide the time-ordered views the digest sweep
// and the delivery log need.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/project"
	fanoutstore "github.com/feedbacksdev/fanout/store"
)

// compile-time interface check
var _ fanoutstore.Store = (*Store)(nil)

// Store implements store.Store using Redis via Grove KV.
type Store struct {
	kv  *kv.Store
	rdb goredis.UniversalClient
}

// New creates a new Redis store backed by Grove KV.
func New(store *kv.Store) *Store {
	return &Store{
		kv:  store,
		rdb: redisdriver.UnwrapClient(store),
	}
}

// Migrate is a no-op for Redis (no schema migrations needed).
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// Close closes the KV store.
func (s *Store) Close() error {
	return s.kv.Close()
}

// scoreFromTime converts a time.Time to a sorted set score (unix seconds as float64).
func scoreFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// isNotFound checks if an error is a KV not-found sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

// getEntity retrieves and decodes a JSON entity from a KV key.
func (s *Store) getEntity(ctx context.Context, key string, dest any) error {
	raw, err := s.kv.GetRaw(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// setEntity encodes and stores a JSON entity under a KV key.
func (s *Store) setEntity(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("fanout/redis: marshal entity: %w", err)
	}
	return s.kv.SetRaw(ctx, key, raw)
}

// applyPagination applies offset and limit to a slice.
func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) {
		return nil
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ==================== Project Store ====================

// CreateProject stores a project. Projects are normally owned by the
// dashboard application; this is for standalone deployments and tests.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	if err := s.setEntity(ctx, entityKey(prefixProject, p.ID), p); err != nil {
		return fmt.Errorf("fanout/redis: create project: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zProjectAll, goredis.Z{
		Score:  scoreFromTime(p.CreatedAt),
		Member: p.ID,
	}).Err(); err != nil {
		return fmt.Errorf("fanout/redis: index project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	var p project.Project
	if err := s.getEntity(ctx, entityKey(prefixProject, projectID), &p); err != nil {
		if isNotFound(err) {
			return nil, fanout.ErrProjectNotFound
		}
		return nil, fmt.Errorf("fanout/redis: get project: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*project.Project, error) {
	ids, err := s.rdb.ZRange(ctx, zProjectAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fanout/redis: list projects: %w", err)
	}

	result := make([]*project.Project, 0, len(ids))
	for _, projectID := range ids {
		var p project.Project
		if err := s.getEntity(ctx, entityKey(prefixProject, projectID), &p); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &p)
	}
	return result, nil
}

func (s *Store) UpdateWebhooks(ctx context.Context, projectID string, webhooks json.RawMessage) error {
	key := entityKey(prefixProject, projectID)
	var p project.Project
	if err := s.getEntity(ctx, key, &p); err != nil {
		if isNotFound(err) {
			return fanout.ErrProjectNotFound
		}
		return fmt.Errorf("fanout/redis: update webhooks: %w", err)
	}
	p.Webhooks = webhooks
	p.UpdatedAt = time.Now().UTC()
	return s.setEntity(ctx, key, &p)
}

// ==================== Feedback Store ====================

// AddFeedback stores a feedback event. Feedback is normally written by the
// dashboard application; this is for standalone deployments and tests.
func (s *Store) AddFeedback(ctx context.Context, evt *feedback.Event) error {
	if err := s.setEntity(ctx, entityKey(prefixFeedback, evt.ID), evt); err != nil {
		return fmt.Errorf("fanout/redis: add feedback: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zFeedbackProject+evt.ProjectID, goredis.Z{
		Score:  scoreFromTime(evt.CreatedAt),
		Member: evt.ID,
	}).Err(); err != nil {
		return fmt.Errorf("fanout/redis: index feedback: %w", err)
	}
	return nil
}

func (s *Store) ListFeedback(ctx context.Context, projectID string, from, to time.Time) ([]*feedback.Event, error) {
	// Upper bound is exclusive to match the [from, to) window contract.
	ids, err := s.rdb.ZRangeByScore(ctx, zFeedbackProject+projectID, &goredis.ZRangeBy{
		Min: strconv.FormatFloat(scoreFromTime(from), 'f', -1, 64),
		Max: "(" + strconv.FormatFloat(scoreFromTime(to), 'f', -1, 64),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("fanout/redis: list feedback: %w", err)
	}

	result := make([]*feedback.Event, 0, len(ids))
	for _, evtID := range ids {
		var evt feedback.Event
		if err := s.getEntity(ctx, entityKey(prefixFeedback, evtID), &evt); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		result = append(result, &evt)
	}
	return result, nil
}

// ==================== Delivery Store ====================

func (s *Store) AppendRecord(ctx context.Context, rec *delivery.Record) error {
	if err := s.setEntity(ctx, entityKey(prefixRecord, rec.ID), rec); err != nil {
		return fmt.Errorf("fanout/redis: append record: %w", err)
	}
	if err := s.rdb.ZAdd(ctx, zRecordProject+rec.ProjectID, goredis.Z{
		Score:  scoreFromTime(rec.CreatedAt),
		Member: rec.ID,
	}).Err(); err != nil {
		return fmt.Errorf("fanout/redis: index record: %w", err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (*delivery.Record, error) {
	var rec delivery.Record
	if err := s.getEntity(ctx, entityKey(prefixRecord, recordID), &rec); err != nil {
		if isNotFound(err) {
			return nil, delivery.ErrRecordNotFound
		}
		return nil, fmt.Errorf("fanout/redis: get record: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListRecords(ctx context.Context, projectID string, opts delivery.ListOpts) ([]*delivery.Record, error) {
	ids, err := s.rdb.ZRange(ctx, zRecordProject+projectID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fanout/redis: list records: %w", err)
	}

	result := make([]*delivery.Record, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for newest-first order
		var rec delivery.Record
		if err := s.getEntity(ctx, entityKey(prefixRecord, ids[i]), &rec); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.EndpointID != "" && rec.EndpointID != opts.EndpointID {
			continue
		}
		if opts.Event != "" && rec.Event != opts.Event {
			continue
		}
		if opts.From != nil && rec.CreatedAt.Before(*opts.From) {
			continue
		}
		if opts.To != nil && rec.CreatedAt.After(*opts.To) {
			continue
		}
		result = append(result, &rec)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountRecords(ctx context.Context, projectID string, status delivery.Status) (int64, error) {
	if status == "" {
		count, err := s.rdb.ZCard(ctx, zRecordProject+projectID).Result()
		if err != nil {
			return 0, fmt.Errorf("fanout/redis: count records: %w", err)
		}
		return count, nil
	}

	ids, err := s.rdb.ZRange(ctx, zRecordProject+projectID, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("fanout/redis: count records: %w", err)
	}

	var count int64
	for _, recordID := range ids {
		var rec delivery.Record
		if err := s.getEntity(ctx, entityKey(prefixRecord, recordID), &rec); err != nil {
			if isNotFound(err) {
				continue
			}
			return 0, err
		}
		if rec.Status == status {
			count++
		}
	}
	return count, nil
}
