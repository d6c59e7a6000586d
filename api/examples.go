/*
examples.go - Example schedule catalog

PURPOSE:
  Lets a fresh installation be explored without writing a definition
  first. Loading an example stores it as a schedule whose ID is the
  example ID, so loading twice replaces rather than duplicates.

SOURCES:
  bundled: factory/examples/*.yaml, compiled into the binary
  dir:     *.yaml, *.yml and *.json files in FORECAST_EXAMPLES_DIR.
           A dir file shadows a bundled example with the same ID.

USAGE VIA API:
  POST /api/examples/load
  {"example_id": "waterflood"}

SEE ALSO:
  - factory/examples.go: bundled definitions
  - handlers.go: schedule handlers
*/
package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/warp/forecast-engine/factory"
	"github.com/warp/forecast-engine/generic"
)

type catalogEntry struct {
	ExampleDTO
	format     generic.DefinitionFormat
	definition []byte
}

// ListExamples returns the example catalog.
func (h *Handler) ListExamples(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list examples", err)
		return
	}
	dtos := make([]ExampleDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, e.ExampleDTO)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadExample stores an example as a schedule.
func (h *Handler) LoadExample(w http.ResponseWriter, r *http.Request) {
	var req LoadExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ExampleID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body", badRequest("example_id is required"))
		return
	}

	entries, err := h.catalog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list examples", err)
		return
	}
	var entry *catalogEntry
	for i := range entries {
		if entries[i].ID == req.ExampleID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "example not found", nil)
		return
	}

	schedule, _, err := h.Factory.Load(entry.definition, entry.format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "example does not build", err)
		return
	}
	rec := generic.ScheduleRecord{
		ID:         entry.ID,
		Name:       schedule.Name,
		Format:     entry.format,
		Definition: entry.definition,
	}
	if err := h.Store.SaveSchedule(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save schedule", err)
		return
	}
	saved, err := h.Store.GetSchedule(r.Context(), rec.ID)
	if err != nil || saved == nil {
		writeError(w, http.StatusInternalServerError, "failed to reload schedule", err)
		return
	}

	h.log.Info().Str("example", entry.ID).Str("source", entry.Source).Msg("example loaded")
	writeJSON(w, http.StatusOK, toScheduleDTO(*saved, schedule.ScenarioNames(), true))
}

// catalog merges bundled examples with the examples directory.
func (h *Handler) catalog() ([]catalogEntry, error) {
	bundled, err := factory.Examples()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]catalogEntry, len(bundled))
	for _, ex := range bundled {
		byID[ex.ID] = catalogEntry{
			ExampleDTO: ExampleDTO{ID: ex.ID, Name: ex.Name, Description: ex.Description, Source: "bundled"},
			format:     generic.FormatYAML,
			definition: ex.Definition,
		}
	}

	if h.examplesDir != "" {
		files, err := os.ReadDir(h.examplesDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			ext := strings.ToLower(filepath.Ext(f.Name()))
			if f.IsDir() || (ext != ".yaml" && ext != ".yml" && ext != ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(h.examplesDir, f.Name()))
			if err != nil {
				return nil, err
			}
			id := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
			byID[id] = catalogEntry{
				ExampleDTO: ExampleDTO{ID: id, Name: strings.ReplaceAll(id, "-", " "), Source: "dir"},
				format:     factory.DetectFormat(f.Name()),
				definition: data,
			}
		}
	}

	out := make([]catalogEntry, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
