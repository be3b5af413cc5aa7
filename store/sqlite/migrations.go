package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the fanout store (SQLite).
var Migrations = migrate.NewGroup("fanout")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_fanout_projects",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fanout_projects (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    webhooks   TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS fanout_projects`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_fanout_feedback",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fanout_feedback (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL DEFAULT '',
    message    TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    url        TEXT NOT NULL DEFAULT '',
    type       TEXT NOT NULL DEFAULT '',
    rating     INTEGER,
    tags       TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_fanout_feedback_project_created ON fanout_feedback (project_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS fanout_feedback`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_fanout_deliveries",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS fanout_deliveries (
    id               TEXT PRIMARY KEY,
    project_id       TEXT NOT NULL DEFAULT '',
    endpoint_id      TEXT NOT NULL DEFAULT '',
    kind             TEXT NOT NULL DEFAULT '',
    url              TEXT NOT NULL DEFAULT '',
    event            TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT '',
    status_code      INTEGER NOT NULL DEFAULT 0,
    error            TEXT NOT NULL DEFAULT '',
    response_time_ms INTEGER NOT NULL DEFAULT 0,
    payload          TEXT,
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_fanout_deliveries_project_created ON fanout_deliveries (project_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_fanout_deliveries_endpoint ON fanout_deliveries (endpoint_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS fanout_deliveries`)
				return err
			},
		},
	)
}
