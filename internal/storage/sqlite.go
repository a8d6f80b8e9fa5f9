package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (and creates if needed) the SQLite database at path
// and ensures required tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := checkStatePath(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// BootstrapSQLite creates tables/indexes if missing. Definitions are
// keyed by name; steps live in child tables replaced wholesale on each
// upsert.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pebbles (
  name        TEXT PRIMARY KEY,
  description TEXT,
  tags        JSON NOT NULL DEFAULT '[]',
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS cements (
  name        TEXT PRIMARY KEY,
  description TEXT,
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS cement_steps (
  cement_name TEXT NOT NULL REFERENCES cements(name) ON DELETE CASCADE,
  pebble_name TEXT NOT NULL,
  parameters  JSON NOT NULL DEFAULT '{}',
  step_order  INTEGER NOT NULL,
  depends_on  JSON NOT NULL DEFAULT '[]'
);`,
		`CREATE TABLE IF NOT EXISTS constructs (
  name        TEXT PRIMARY KEY,
  description TEXT,
  tags        JSON NOT NULL DEFAULT '[]',
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS construct_cements (
  construct_name TEXT NOT NULL REFERENCES constructs(name) ON DELETE CASCADE,
  cement_name    TEXT NOT NULL,
  step_order     INTEGER NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS passes (
  id             TEXT PRIMARY KEY,
  construct_name TEXT NOT NULL,
  pass_kind      TEXT NOT NULL,
  schedule       TEXT,
  created_at     TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS execution_logs (
  id             TEXT PRIMARY KEY,
  pebble_name    TEXT NOT NULL,
  construct_name TEXT NOT NULL,
  pass_id        TEXT NOT NULL,
  status         TEXT NOT NULL,
  result         JSON,
  error          TEXT,
  start_time     TEXT NOT NULL,
  end_time       TEXT,
  updated_at     TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS cement_steps_cement_idx ON cement_steps(cement_name, step_order);`,
		`CREATE INDEX IF NOT EXISTS construct_cements_construct_idx ON construct_cements(construct_name, step_order);`,
		`CREATE INDEX IF NOT EXISTS passes_created_at_idx ON passes(created_at);`,
		`CREATE INDEX IF NOT EXISTS execution_logs_pass_idx ON execution_logs(pass_id, start_time);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
