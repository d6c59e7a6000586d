/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Evaluation results
  are returned as generic.ScheduleResult directly: they are already a
  serialization-oriented type with stable JSON tags.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Schedules: ScheduleDTO
  Runs:      EvaluateRequest, RunDTO
  Examples:  ExampleDTO, LoadExampleRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - generic/evaluate.go: ScheduleResult
*/
package api

import (
	"time"

	"github.com/warp/forecast-engine/generic"
)

// =============================================================================
// SCHEDULES
// =============================================================================

// ScheduleDTO represents a stored schedule definition.
type ScheduleDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Format     string   `json:"format"`
	Scenarios  []string `json:"scenarios,omitempty"`
	Definition string   `json:"definition,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

func toScheduleDTO(rec generic.ScheduleRecord, scenarios []string, withDefinition bool) ScheduleDTO {
	dto := ScheduleDTO{
		ID:        rec.ID,
		Name:      rec.Name,
		Format:    string(rec.Format),
		Scenarios: scenarios,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
	if withDefinition {
		dto.Definition = string(rec.Definition)
	}
	return dto
}

// =============================================================================
// RUNS
// =============================================================================

// EvaluateRequest overrides the definition's evaluate block. Every field
// is optional.
type EvaluateRequest struct {
	Rates   []float64 `json:"rates,omitempty"`
	Freq    string    `json:"freq,omitempty"`
	Periods []string  `json:"periods,omitempty"`
}

// RunDTO is one stored evaluation. Result is omitted in listings.
type RunDTO struct {
	ID         string                  `json:"id"`
	ScheduleID string                  `json:"schedule_id"`
	Options    generic.EvaluateOptions `json:"options"`
	Result     *generic.ScheduleResult `json:"result,omitempty"`
	CreatedAt  string                  `json:"created_at"`
}

func toRunDTO(run generic.RunRecord, withResult bool) RunDTO {
	dto := RunDTO{
		ID:         run.ID,
		ScheduleID: run.ScheduleID,
		Options:    run.Options,
		CreatedAt:  run.CreatedAt.Format(time.RFC3339Nano),
	}
	if withResult {
		dto.Result = run.Result
	}
	return dto
}

// =============================================================================
// EXAMPLES
// =============================================================================

// ExampleDTO describes a loadable example definition.
type ExampleDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"` // bundled or dir
}

// LoadExampleRequest selects an example to store as a schedule.
type LoadExampleRequest struct {
	ExampleID string `json:"example_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
