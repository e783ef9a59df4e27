// Package storage implements the persistent research workflow log.
//
// It uses SQLite (pure-Go modernc driver) to store projects, sessions,
// tool usage events, milestones and recommendations. Tool usage is
// append-only: the store never rewrites or deletes usage records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is replaced in tests to freeze record timestamps.
var timeNow = time.Now

var (
	// ErrNotFound is returned when a project or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("invalid record")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir     string
	BusyTimeout time.Duration
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:     filepath.Join(home, ".srrd"),
		BusyTimeout: 5 * time.Second,
	}
}

// DBFile is the database filename inside Config.DataDir.
const DBFile = "workflow.db"

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the SQLite-backed workflow log.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// storeHooks lets tests inject failures into exec and query paths.
type storeHooks struct {
	exec  func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	query func(ctx context.Context, db queryer, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execHook(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, s.db, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) queryHook(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(ctx, s.db, query, args...)
	}
	return s.db.QueryContext(ctx, query, args...)
}

// New opens the database under cfg.DataDir, creating the directory if
// needed, enables WAL mode and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			domain      TEXT,
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			project_id   TEXT NOT NULL,
			session_type TEXT NOT NULL,
			user_id      TEXT,
			started_at   TEXT NOT NULL,
			ended_at     TEXT,
			current_act  TEXT,
			focus        TEXT,
			goals        TEXT,
			FOREIGN KEY (project_id) REFERENCES projects(id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);

		CREATE TABLE IF NOT EXISTS tool_usage (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        TEXT    NOT NULL,
			project_id        TEXT    NOT NULL,
			tool_name         TEXT    NOT NULL,
			research_act      TEXT    NOT NULL,
			research_category TEXT    NOT NULL,
			timestamp         TEXT    NOT NULL,
			success           INTEGER NOT NULL DEFAULT 1,
			execution_time_ms INTEGER NOT NULL DEFAULT 0,
			error_message     TEXT,
			result_summary    TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_usage_project ON tool_usage(project_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_usage_session ON tool_usage(session_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_usage_act     ON tool_usage(project_id, research_act);
	`
	if _, err := s.execHook(ctx, schema); err != nil {
		return err
	}

	// Milestone names are unique per project so repeated detection runs
	// cannot insert the same achievement twice.
	if _, err := s.execHook(ctx, `
		CREATE TABLE IF NOT EXISTS milestones (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id        TEXT    NOT NULL,
			milestone_type    TEXT    NOT NULL,
			name              TEXT    NOT NULL,
			description       TEXT,
			research_act      TEXT,
			research_category TEXT,
			criteria          TEXT,
			tools_involved    TEXT,
			impact_score      INTEGER NOT NULL,
			achieved_at       TEXT    NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_milestone_unique ON milestones(project_id, name);

		CREATE TABLE IF NOT EXISTS recommendations (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id      TEXT    NOT NULL,
			session_id      TEXT,
			current_act     TEXT,
			recommended_act TEXT,
			tools           TEXT    NOT NULL,
			reasoning       TEXT,
			priority        INTEGER NOT NULL,
			status          TEXT    NOT NULL DEFAULT 'pending',
			created_at      TEXT    NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id)
		);

		CREATE INDEX IF NOT EXISTS idx_rec_project ON recommendations(project_id, status);
	`); err != nil {
		return err
	}

	return nil
}

// validateRecord runs struct-tag validation and wraps failures in ErrInvalidRecord.
func validateRecord(kind string, v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("storage: %s: %w: %v", kind, ErrInvalidRecord, err)
	}
	return nil
}
