package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/forecast-engine/generic"
	"github.com/warp/forecast-engine/generic/store"
)

func TestMemory_ScheduleLifecycle(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	rec := generic.ScheduleRecord{ID: "s1", Name: "field", Format: generic.FormatYAML, Definition: []byte("name: field")}
	require.NoError(t, m.SaveSchedule(ctx, rec))

	got, err := m.GetSchedule(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "field", got.Name)

	missing, err := m.GetSchedule(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, m.SaveRun(ctx, generic.RunRecord{ID: "r1", ScheduleID: "s1", CreatedAt: time.Now()}))
	runs, err := m.ListRuns(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// Deleting cascades to runs
	require.NoError(t, m.DeleteSchedule(ctx, "s1"))
	run, err := m.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, run)

	assert.ErrorIs(t, m.DeleteSchedule(ctx, "s1"), generic.ErrScheduleNotFound)
}

func TestMemory_RunsNeedSchedule_NewestFirst(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	err := m.SaveRun(ctx, generic.RunRecord{ID: "r0", ScheduleID: "ghost"})
	assert.ErrorIs(t, err, generic.ErrScheduleNotFound)

	require.NoError(t, m.SaveSchedule(ctx, generic.ScheduleRecord{ID: "s1", Name: "field"}))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.SaveRun(ctx, generic.RunRecord{ID: "old", ScheduleID: "s1", CreatedAt: base}))
	require.NoError(t, m.SaveRun(ctx, generic.RunRecord{ID: "new", ScheduleID: "s1", CreatedAt: base.Add(time.Hour)}))

	runs, err := m.ListRuns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
}
