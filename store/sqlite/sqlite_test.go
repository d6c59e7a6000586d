package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/forecast-engine/factory"
	"github.com/warp/forecast-engine/generic"
	"github.com/warp/forecast-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_ScheduleUpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveSchedule(ctx, generic.ScheduleRecord{
		ID: "s1", Name: "field", Format: generic.FormatYAML, Definition: []byte("name: field"), CreatedAt: created,
	}))
	require.NoError(t, s.SaveSchedule(ctx, generic.ScheduleRecord{
		ID: "s1", Name: "field-v2", Format: generic.FormatJSON, Definition: []byte(`{"name":"field-v2"}`),
	}))

	got, err := s.GetSchedule(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "field-v2", got.Name)
	assert.Equal(t, generic.FormatJSON, got.Format)
	assert.Equal(t, `{"name":"field-v2"}`, string(got.Definition))
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.After(created))

	missing, err := s.GetSchedule(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ListSchedulesByName(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for id, name := range map[string]string{"a": "zeta", "b": "alpha", "c": "mid"} {
		require.NoError(t, s.SaveSchedule(ctx, generic.ScheduleRecord{ID: id, Name: name, Format: generic.FormatYAML}))
	}

	list, err := s.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[2].Name)
}

func TestStore_RunResultRoundTrip(t *testing.T) {
	// GIVEN: A real evaluation result with decimal NPVs and warnings
	// WHEN: Saving and reloading the run
	// THEN: The result decodes to the same values

	ctx := context.Background()
	s := newStore(t)

	ex, err := factory.ExampleByID("waterflood")
	require.NoError(t, err)
	schedule, def, err := factory.NewScheduleFactory().Load(ex.Definition, generic.FormatYAML)
	require.NoError(t, err)
	result, err := generic.Evaluate(schedule, *def.Evaluate)
	require.NoError(t, err)

	require.NoError(t, s.SaveSchedule(ctx, generic.ScheduleRecord{ID: "s1", Name: "waterflood", Format: generic.FormatYAML, Definition: ex.Definition}))
	require.NoError(t, s.SaveRun(ctx, generic.RunRecord{ID: "r1", ScheduleID: "s1", Options: *def.Evaluate, Result: result}))

	run, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, def.Evaluate.Rates, run.Options.Rates)
	assert.Equal(t, def.Evaluate.Freq, run.Options.Freq)

	require.NotNil(t, run.Result)
	require.Len(t, run.Result.Scenarios, len(result.Scenarios))
	want, got := result.Scenarios[0], run.Result.Scenarios[0]
	require.Len(t, got.NPV, len(want.NPV))
	assert.True(t, want.NPV[0].NPV.Equal(got.NPV[0].NPV))
	assert.Equal(t, want.Warnings, got.Warnings)
	assert.Equal(t, want.FreqOutput, got.FreqOutput)
}

func TestStore_RunsCascadeAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.SaveRun(ctx, generic.RunRecord{ID: "r0", ScheduleID: "ghost"})
	assert.ErrorIs(t, err, generic.ErrScheduleNotFound)

	require.NoError(t, s.SaveSchedule(ctx, generic.ScheduleRecord{ID: "s1", Name: "field", Format: generic.FormatYAML}))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, generic.RunRecord{ID: "old", ScheduleID: "s1", CreatedAt: base}))
	require.NoError(t, s.SaveRun(ctx, generic.RunRecord{ID: "new", ScheduleID: "s1", CreatedAt: base.Add(time.Millisecond)}))

	runs, err := s.ListRuns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Nil(t, runs[0].Result)

	require.NoError(t, s.DeleteSchedule(ctx, "s1"))
	run, err := s.GetRun(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, run)

	assert.ErrorIs(t, s.DeleteSchedule(ctx, "s1"), generic.ErrScheduleNotFound)
}
