/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists schedule definitions and evaluation runs so the API can
  re-evaluate a schedule later and compare runs over time.

INTERFACES IMPLEMENTED:
  generic.ScheduleStore: Definition CRUD
  generic.RunStore:      Append-only evaluation results

KEY TABLES:
  schedules: Raw definitions (JSON or YAML text) keyed by ID
  runs:      Evaluate options as JSON, results as a msgpack blob

ENCODING:
  Results hold one NPV row per realization and rate, so a probabilistic
  schedule easily produces thousands of rows. They are stored as msgpack
  rather than JSON. Decimal NPVs round-trip through their binary form.

CASCADE:
  runs.schedule_id references schedules(id) ON DELETE CASCADE. Foreign
  keys are enabled on open.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/forecast.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/warp/forecast-engine/generic"
)

// Fixed-width so stored timestamps sort lexically; RFC3339Nano trims
// trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		format TEXT NOT NULL,
		definition TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_name
		ON schedules(name);

	-- Runs (append-only)
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		options_json TEXT NOT NULL,
		result BLOB,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_schedule_created
		ON runs(schedule_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SCHEDULE STORE
// =============================================================================

// SaveSchedule inserts or replaces a definition. created_at is kept on
// update.
func (s *Store) SaveSchedule(ctx context.Context, rec generic.ScheduleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedules (id, name, format, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	created := rec.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Name, string(rec.Format), string(rec.Definition),
		created.UTC().Format(timeLayout), now.Format(timeLayout),
	)
	return err
}

// GetSchedule retrieves a definition by ID.
func (s *Store) GetSchedule(ctx context.Context, id string) (*generic.ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, format, definition, created_at, updated_at FROM schedules WHERE id = ?",
		id,
	)
	rec, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSchedules returns all definitions ordered by name.
func (s *Store) ListSchedules(ctx context.Context) ([]generic.ScheduleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, format, definition, created_at, updated_at FROM schedules ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.ScheduleRecord
	for rows.Next() {
		rec, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteSchedule removes a definition; its runs go with it.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrScheduleNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*generic.ScheduleRecord, error) {
	var rec generic.ScheduleRecord
	var format, definition, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &rec.Name, &format, &definition, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Format = generic.DefinitionFormat(format)
	rec.Definition = []byte(definition)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &rec, nil
}

// =============================================================================
// RUN STORE
// =============================================================================

// SaveRun appends a run. The schedule must exist.
func (s *Store) SaveRun(ctx context.Context, run generic.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("failed to encode run options: %w", err)
	}
	var result []byte
	if run.Result != nil {
		if result, err = msgpack.Marshal(run.Result); err != nil {
			return fmt.Errorf("failed to encode run result: %w", err)
		}
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	var exists int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM schedules WHERE id = ?", run.ScheduleID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrScheduleNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, schedule_id, options_json, result, created_at) VALUES (?, ?, ?, ?, ?)",
		run.ID, run.ScheduleID, string(opts), result, created.UTC().Format(timeLayout),
	)
	return err
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*generic.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, schedule_id, options_json, result, created_at FROM runs WHERE id = ?",
		id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns a schedule's runs, newest first.
func (s *Store) ListRuns(ctx context.Context, scheduleID string) ([]generic.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, schedule_id, options_json, result, created_at FROM runs WHERE schedule_id = ? ORDER BY created_at DESC",
		scheduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []generic.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanRun(row scanner) (*generic.RunRecord, error) {
	var run generic.RunRecord
	var opts, createdAt string
	var result []byte
	if err := row.Scan(&run.ID, &run.ScheduleID, &opts, &result, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(opts), &run.Options); err != nil {
		return nil, fmt.Errorf("run %s options: %w", run.ID, err)
	}
	if len(result) > 0 {
		run.Result = &generic.ScheduleResult{}
		if err := msgpack.Unmarshal(result, run.Result); err != nil {
			return nil, fmt.Errorf("run %s result: %w", run.ID, err)
		}
	}
	run.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &run, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"runs", "schedules"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

var _ generic.Store = (*Store)(nil)
