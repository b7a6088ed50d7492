// Package history records wsmaint runs and their actions in a SQLite database.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/wsmaint/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// ErrRunNotFound is returned by GetRun when no run matches the given ID.
var ErrRunNotFound = errors.New("run not found")

// migration is one versioned schema change.
type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of schema changes.
var migrations = []migration{
	{Version: 1, Description: "Initial runs and actions tables", SQL: schemaSQL},
}

// Store manages the run history database
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewStore opens (creating if needed) the history database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// busy_timeout first so the rest wait on locks held by another run
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// applyMigrations applies pending migrations inside one transaction.
func (s *Store) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version WHERE version = ?`, m.Version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun inserts a new running run and returns it with its assigned ID.
func (s *Store) StartRun(ctx context.Context, command, root string, args []string, dryRun bool) (*models.Run, error) {
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	run := &models.Run{
		ID:        uuid.New().String(),
		Command:   command,
		Root:      root,
		Args:      args,
		DryRun:    dryRun,
		StartedAt: s.now().UTC(),
		Status:    models.RunRunning,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, root, args, dry_run, started_at, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Root, string(argsJSON), run.DryRun, run.StartedAt, string(run.Status))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return run, nil
}

// RecordAction appends an action to a run.
func (s *Store) RecordAction(ctx context.Context, rec *models.ActionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (run_id, kind, path, status, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, string(rec.Kind), rec.Path, string(rec.Status), rec.Detail, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get action id: %w", err)
	}
	rec.ID = id
	return nil
}

// FinishRun marks a run succeeded, or failed with runErr's message.
func (s *Store) FinishRun(ctx context.Context, run *models.Run, runErr error) error {
	finished := s.now().UTC()
	run.FinishedAt = &finished
	run.Status = models.RunSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		finished, string(run.Status), run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, command, root, args, dry_run, started_at, finished_at, status, error`

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose ID equals id or, failing that, the single run
// whose ID starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*models.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2`,
		id, id, id)
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListActions returns a run's actions in the order they were recorded.
func (s *Store) ListActions(ctx context.Context, runID string) ([]*models.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, kind, path, status, detail, created_at FROM actions WHERE run_id = ? ORDER BY id ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.ActionRecord
	for rows.Next() {
		rec := &models.ActionRecord{}
		var kind, status string
		if err := rows.Scan(&rec.ID, &rec.RunID, &kind, &rec.Path, &status, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.Kind = models.ActionKind(kind)
		rec.Status = models.ActionStatus(status)
		actions = append(actions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

// Clear deletes every run and action and returns the number of runs removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.deleteRuns(ctx, `SELECT id FROM runs`)
}

// ClearBefore deletes runs started before t and returns how many were removed.
func (s *Store) ClearBefore(ctx context.Context, t time.Time) (int64, error) {
	return s.deleteRuns(ctx, `SELECT id FROM runs WHERE started_at < ?`, t.UTC())
}

func (s *Store) deleteRuns(ctx context.Context, selectIDs string, args ...any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE run_id IN (`+selectIDs+`)`, args...); err != nil {
		return 0, fmt.Errorf("delete actions: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+selectIDs+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var argsJSON, status string
	var finished sql.NullTime

	if err := row.Scan(&run.ID, &run.Command, &run.Root, &argsJSON, &run.DryRun,
		&run.StartedAt, &finished, &status, &run.Error); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(argsJSON), &run.Args); err != nil {
		return nil, fmt.Errorf("unmarshal args of run %s: %w", run.ID, err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	run.Status = models.RunStatus(status)
	return run, nil
}
