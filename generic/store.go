/*
store.go - Persistence interfaces for schedule definitions and runs

PURPOSE:
  Defines the interface between the API and the database. Schedules are
  stored as their raw definition (JSON or YAML), not as built objects:
  every evaluation rebuilds a fresh Schedule through the factory, so no
  engine state is ever shared between requests.

KEY INTERFACES:
  ScheduleStore: Definition CRUD
  RunStore:      Evaluation results, append-only
  Store:         Both, plus Close

NOT FOUND:
  Get* returns (nil, nil) when the record doesn't exist. Delete of a
  missing schedule returns ErrScheduleNotFound.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - evaluate.go: produces ScheduleResult
  - factory/: parses Definition
*/
package generic

import (
	"context"
	"time"
)

// DefinitionFormat is the encoding of a stored schedule definition.
type DefinitionFormat string

const (
	FormatJSON DefinitionFormat = "json"
	FormatYAML DefinitionFormat = "yaml"
)

// ScheduleRecord is a stored schedule definition.
type ScheduleRecord struct {
	ID         string
	Name       string
	Format     DefinitionFormat
	Definition []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RunRecord is one stored evaluation of a schedule.
type RunRecord struct {
	ID         string
	ScheduleID string
	Options    EvaluateOptions
	Result     *ScheduleResult
	CreatedAt  time.Time
}

type ScheduleStore interface {
	// SaveSchedule inserts or replaces a definition by ID.
	SaveSchedule(ctx context.Context, rec ScheduleRecord) error

	GetSchedule(ctx context.Context, id string) (*ScheduleRecord, error)

	// ListSchedules returns definitions ordered by name.
	ListSchedules(ctx context.Context) ([]ScheduleRecord, error)

	// DeleteSchedule removes a definition and its runs.
	DeleteSchedule(ctx context.Context, id string) error
}

// RunStore is append-only: runs are never updated.
type RunStore interface {
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns a schedule's runs, newest first.
	ListRuns(ctx context.Context, scheduleID string) ([]RunRecord, error)
}

type Store interface {
	ScheduleStore
	RunStore
	Close() error
}
