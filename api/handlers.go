/*
handlers.go - HTTP API handlers for the forecast engine

PURPOSE:
  Exposes schedule definitions and their evaluation via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to the factory
  and generic.Evaluate.

ENDPOINTS:
  Schedules:
    GET    /api/schedules                List stored definitions
    POST   /api/schedules                Store a definition (JSON or YAML body)
    GET    /api/schedules/{id}           Get a definition with its source text
    PUT    /api/schedules/{id}           Replace a definition
    DELETE /api/schedules/{id}           Delete a definition and its runs

  Runs:
    POST   /api/schedules/{id}/evaluate  Evaluate and store the result
    GET    /api/schedules/{id}/runs      List runs, newest first
    GET    /api/runs/{id}                Get one run with its result

  Catalog:
    GET    /api/models                   Registered curve families
    GET    /api/examples                 Loadable example definitions
    POST   /api/examples/load            Store an example as a schedule

DEFINITION BODIES:
  POST/PUT take the raw definition. Content-Type containing "yaml" selects
  YAML; anything else is parsed as JSON. A definition is only stored if it
  builds, so every stored schedule can be evaluated.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid definition or request
  - 404: Schedule, run or example not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - examples.go: Example catalog
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/forecast-engine/factory"
	"github.com/warp/forecast-engine/generic"
)

// maxDefinitionBytes caps request bodies.
const maxDefinitionBytes = 4 << 20

// defaultRates is used when neither the request nor the definition names
// discount rates.
var defaultRates = []float64{0.1}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   generic.Store
	Factory *factory.ScheduleFactory

	examplesDir string
	log         zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger; it is also passed to the factory.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// WithExamplesDir adds definition files from dir to the example catalog.
func WithExamplesDir(dir string) Option {
	return func(h *Handler) { h.examplesDir = dir }
}

// NewHandler creates a new handler with the given store.
func NewHandler(store generic.Store, opts ...Option) *Handler {
	h := &Handler{Store: store, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With().Str("component", "api").Logger()
	h.Factory = factory.NewScheduleFactory(factory.WithLogger(h.log))
	return h
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// ListSchedules returns all stored definitions without their source text.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListSchedules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list schedules", err)
		return
	}

	dtos := make([]ScheduleDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toScheduleDTO(rec, nil, false))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSchedule returns one definition with its source text.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}

	var scenarios []string
	if def, err := h.Factory.Parse(rec.Definition, rec.Format); err == nil {
		for _, sc := range def.Scenarios {
			scenarios = append(scenarios, sc.Name)
		}
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(*rec, scenarios, true))
}

// CreateSchedule stores a new definition under a generated ID.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	h.saveDefinition(w, r, uuid.NewString(), http.StatusCreated)
}

// UpdateSchedule replaces an existing definition.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}
	h.saveDefinition(w, r, rec.ID, http.StatusOK)
}

// DeleteSchedule removes a definition and its runs.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, errorStatus(err), "failed to delete schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saveDefinition(w http.ResponseWriter, r *http.Request, id string, status int) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	format := formatFromContentType(r.Header.Get("Content-Type"))

	schedule, _, err := h.Factory.Load(body, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule definition", err)
		return
	}

	rec := generic.ScheduleRecord{
		ID:         id,
		Name:       schedule.Name,
		Format:     format,
		Definition: body,
	}
	if err := h.Store.SaveSchedule(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save schedule", err)
		return
	}

	saved, err := h.Store.GetSchedule(r.Context(), id)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "failed to reload schedule", err)
		return
	}
	h.log.Info().Str("schedule_id", id).Str("name", schedule.Name).Msg("schedule saved")
	writeJSON(w, status, toScheduleDTO(*saved, schedule.ScenarioNames(), true))
}

// loadSchedule fetches the {id} schedule, writing 404/500 itself.
func (h *Handler) loadSchedule(w http.ResponseWriter, r *http.Request) (*generic.ScheduleRecord, bool) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get schedule", err)
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "schedule not found", nil)
		return nil, false
	}
	return rec, true
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// EvaluateSchedule builds the stored definition fresh, evaluates it and
// stores the run.
func (h *Handler) EvaluateSchedule(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}

	var req EvaluateRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDefinitionBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	schedule, def, err := h.Factory.Load(rec.Definition, rec.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "stored definition does not build", err)
		return
	}
	opts, err := evaluateOptions(req, def)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evaluate options", err)
		return
	}

	start := time.Now()
	result, err := generic.Evaluate(schedule, opts)
	if err != nil {
		writeError(w, errorStatus(err), "evaluation failed", err)
		return
	}

	run := generic.RunRecord{
		ID:         uuid.NewString(),
		ScheduleID: rec.ID,
		Options:    opts,
		Result:     result,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.SaveRun(r.Context(), run); err != nil {
		writeError(w, errorStatus(err), "failed to save run", err)
		return
	}

	h.log.Info().
		Str("schedule_id", rec.ID).
		Str("run_id", run.ID).
		Int("scenarios", len(result.Scenarios)).
		Dur("elapsed", time.Since(start)).
		Msg("schedule evaluated")
	writeJSON(w, http.StatusCreated, toRunDTO(run, true))
}

// ListRuns returns a schedule's runs without results.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}

	runs, err := h.Store.ListRuns(r.Context(), rec.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs", err)
		return
	}
	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run, false))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run with its result.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run", err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run, true))
}

// evaluateOptions layers the request over the definition's evaluate block.
func evaluateOptions(req EvaluateRequest, def *factory.ScheduleDef) (generic.EvaluateOptions, error) {
	var opts generic.EvaluateOptions
	if def.Evaluate != nil {
		opts = *def.Evaluate
	}
	if len(req.Rates) > 0 {
		opts.Rates = req.Rates
	}
	if len(opts.Rates) == 0 {
		opts.Rates = defaultRates
	}
	if req.Freq != "" {
		freq, err := generic.ParseFreq(req.Freq)
		if err != nil {
			return opts, err
		}
		opts.Freq = freq
	}
	if len(req.Periods) > 0 {
		opts.Periods = req.Periods
	}
	return opts, nil
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListModels returns the registered curve families.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, generic.ListCurveModels())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// errorStatus maps engine errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConfigError(err), generic.IsPreconditionError(err):
		return http.StatusBadRequest
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func formatFromContentType(ct string) generic.DefinitionFormat {
	if strings.Contains(strings.ToLower(ct), "yaml") {
		return generic.FormatYAML
	}
	return generic.FormatJSON
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}
