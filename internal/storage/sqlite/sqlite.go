package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"monitoroff/internal/settings"
	"monitoroff/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultFilename is the history database created next to the executable
const DefaultFilename = "history.db"

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	// SQLite will store times as UTC strings, we'll convert in app layer
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY between the UI and the wake watch
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			outcome TEXT NOT NULL,
			lock_pc INTEGER NOT NULL,
			monitor_off_type INTEGER NOT NULL,
			monitor_on_method INTEGER NOT NULL,
			monitors INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			woke_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun records a new run
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *storage.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, outcome, lock_pc, monitor_off_type, monitor_on_method, monitors, failed, woke_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UTC(), string(run.Outcome),
		boolToInt(run.Settings.LockPC), int(run.Settings.OffType), boolToInt(run.Settings.WakeOnKeyboard),
		run.Monitors, run.Failed, nullTime(run.WokeAt))

	return err
}

// GetRun retrieves a run by ID
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, outcome, lock_pc, monitor_off_type, monitor_on_method, monitors, failed, woke_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]*storage.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, outcome, lock_pc, monitor_off_type, monitor_on_method, monitors, failed, woke_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// MarkWoken stores the time the monitors were powered back on
func (s *SQLiteStorage) MarkWoken(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET woke_at = ? WHERE id = ?
	`, at.UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrRunNotFound
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*storage.Run, error) {
	var (
		run               storage.Run
		outcome           string
		lockPC, wake, off int
		wokeAt            sql.NullTime
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &outcome, &lockPC, &off, &wake, &run.Monitors, &run.Failed, &wokeAt); err != nil {
		return nil, err
	}
	run.Outcome = storage.Outcome(outcome)
	run.Settings = settings.Settings{
		LockPC:         lockPC != 0,
		OffType:        settings.OffType(off),
		WakeOnKeyboard: wake != 0,
	}
	if wokeAt.Valid {
		t := wokeAt.Time
		run.WokeAt = &t
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Ensure SQLiteStorage implements storage.Storage
var _ storage.Storage = (*SQLiteStorage)(nil)
