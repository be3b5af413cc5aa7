// Package sqlite implements the fanout store on SQLite via Grove ORM.
// It suits single-node deployments and local development where running
// PostgreSQL or Redis is not worth the trouble.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/project"
	fanoutstore "github.com/feedbacksdev/fanout/store"
)

// compile-time interface check
var _ fanoutstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("fanout/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("fanout/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Project Store ====================

// CreateProject inserts a project row. Projects are normally owned by the
// dashboard schema; this is for standalone deployments and integration tests.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	m := toProjectModel(p)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	m := new(projectModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", projectID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fanout.ErrProjectNotFound
		}
		return nil, err
	}
	return fromProjectModel(m), nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*project.Project, error) {
	var models []projectModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*project.Project, len(models))
	for i := range models {
		result[i] = fromProjectModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateWebhooks(ctx context.Context, projectID string, webhooks json.RawMessage) error {
	res, err := s.sdb.NewUpdate((*projectModel)(nil)).
		Set("webhooks = ?", string(webhooks)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", projectID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fanout.ErrProjectNotFound
	}
	return nil
}

// ==================== Feedback Store ====================

// AddFeedback inserts a feedback event row. Feedback is normally written by
// the dashboard schema; this is for standalone deployments and integration
// tests.
func (s *Store) AddFeedback(ctx context.Context, evt *feedback.Event) error {
	m := toFeedbackModel(evt)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListFeedback(ctx context.Context, projectID string, from, to time.Time) ([]*feedback.Event, error) {
	var models []feedbackModel
	err := s.sdb.NewSelect(&models).
		Where("project_id = ?", projectID).
		Where("created_at >= ?", from).
		Where("created_at < ?", to).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*feedback.Event, len(models))
	for i := range models {
		result[i] = fromFeedbackModel(&models[i])
	}
	return result, nil
}

// ==================== Delivery Store ====================

func (s *Store) AppendRecord(ctx context.Context, rec *delivery.Record) error {
	m := toRecordModel(rec)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (*delivery.Record, error) {
	m := new(recordModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", recordID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, delivery.ErrRecordNotFound
		}
		return nil, err
	}
	return fromRecordModel(m), nil
}

func (s *Store) ListRecords(ctx context.Context, projectID string, opts delivery.ListOpts) ([]*delivery.Record, error) {
	var models []recordModel
	q := s.sdb.NewSelect(&models).Where("project_id = ?", projectID)

	if opts.EndpointID != "" {
		q = q.Where("endpoint_id = ?", opts.EndpointID)
	}
	if opts.Event != "" {
		q = q.Where("event = ?", opts.Event)
	}
	if opts.From != nil {
		q = q.Where("created_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("created_at <= ?", *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Record, len(models))
	for i := range models {
		result[i] = fromRecordModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountRecords(ctx context.Context, projectID string, status delivery.Status) (int64, error) {
	q := s.sdb.NewSelect((*recordModel)(nil)).
		Where("project_id = ?", projectID)
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	return q.Count(ctx)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
