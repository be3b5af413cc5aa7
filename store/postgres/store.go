// Package postgres implements the fanout store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	fanout "github.com/feedbacksdev/fanout"
	"github.com/feedbacksdev/fanout/delivery"
	"github.com/feedbacksdev/fanout/feedback"
	"github.com/feedbacksdev/fanout/project"
	fanoutstore "github.com/feedbacksdev/fanout/store"
)

// compile-time interface check
var _ fanoutstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("fanout/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("fanout/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetProject(ctx context.Context, projectID string) (*project.Project, error) {
	m := new(projectModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", projectID).
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
	err := s.pg.NewSelect(&models).
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
	res, err := s.pg.NewUpdate((*projectModel)(nil)).
		Set("webhooks = $1", webhooks).
		Set("updated_at = $2", time.Now().UTC()).
		Where("id = $3", projectID).
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListFeedback(ctx context.Context, projectID string, from, to time.Time) ([]*feedback.Event, error) {
	var models []feedbackModel
	err := s.pg.NewSelect(&models).
		Where("project_id = $1", projectID).
		Where("created_at >= $2", from).
		Where("created_at < $3", to).
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (*delivery.Record, error) {
	m := new(recordModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", recordID).
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
	q := s.pg.NewSelect(&models).Where("project_id = $1", projectID)

	argIdx := 1
	if opts.EndpointID != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("endpoint_id = $%d", argIdx), opts.EndpointID)
	}
	if opts.Event != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("event = $%d", argIdx), opts.Event)
	}
	if opts.From != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at >= $%d", argIdx), *opts.From)
	}
	if opts.To != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at <= $%d", argIdx), *opts.To)
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
	q := s.pg.NewSelect((*recordModel)(nil)).
		Where("project_id = $1", projectID)
	if status != "" {
		q = q.Where("status = $2", string(status))
	}
	return q.Count(ctx)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
