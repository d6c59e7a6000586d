package api_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/forecast-engine/api"
)

func TestListExamples_Bundled(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/examples", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	examples := decode[[]api.ExampleDTO](t, resp)
	require.Len(t, examples, 3)
	assert.Equal(t, "probabilistic-field", examples[0].ID)
	assert.Equal(t, "bundled", examples[0].Source)
}

func TestLoadExample_StoresUnderExampleID(t *testing.T) {
	// GIVEN: The bundled waterflood example
	// WHEN: Loading it twice and evaluating
	// THEN: One schedule exists under the example ID and evaluates

	srv := newServer(t)
	for range 2 {
		resp := do(t, http.MethodPost, srv.URL+"/api/examples/load", "application/json", []byte(`{"example_id":"waterflood"}`))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		dto := decode[api.ScheduleDTO](t, resp)
		assert.Equal(t, "waterflood", dto.ID)
		assert.Equal(t, []string{"primary-then-flood"}, dto.Scenarios)
	}

	resp := do(t, http.MethodGet, srv.URL+"/api/schedules", "", nil)
	assert.Len(t, decode[[]api.ScheduleDTO](t, resp), 1)

	resp = do(t, http.MethodPost, srv.URL+"/api/schedules/waterflood/evaluate", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	run := decode[api.RunDTO](t, resp)
	require.NotNil(t, run.Result)
	assert.NotEmpty(t, run.Result.Scenarios[0].Warnings, "primary has no water column")
}

func TestLoadExample_Errors(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/examples/load", "application/json", []byte(`{"example_id":"atlantis"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/examples/load", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListExamples_FromDir(t *testing.T) {
	dir := t.TempDir()
	def := `{"name":"dir-field","scenarios":[{"name":"a","periods":[
		{"name":"p","dca":{"type":"arps","qi":100,"di":0.1},"start":0,"end":12}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dir-field.json"), []byte(def), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	srv := newServer(t, api.WithExamplesDir(dir))

	resp := do(t, http.MethodGet, srv.URL+"/api/examples", "", nil)
	examples := decode[[]api.ExampleDTO](t, resp)
	require.Len(t, examples, 4)
	assert.Equal(t, "dir-field", examples[0].ID)
	assert.Equal(t, "dir", examples[0].Source)

	resp = do(t, http.MethodPost, srv.URL+"/api/examples/load", "application/json", []byte(`{"example_id":"dir-field"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "json", decode[api.ScheduleDTO](t, resp).Format)
}
