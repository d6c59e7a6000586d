// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/forecast-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	schedules map[string]generic.ScheduleRecord
	runs      map[string]generic.RunRecord
}

func NewMemory() *Memory {
	return &Memory{
		schedules: make(map[string]generic.ScheduleRecord),
		runs:      make(map[string]generic.RunRecord),
	}
}

func (m *Memory) SaveSchedule(_ context.Context, rec generic.ScheduleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.schedules[rec.ID]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.Definition = append([]byte(nil), rec.Definition...)
	m.schedules[rec.ID] = rec
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, id string) (*generic.ScheduleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListSchedules(_ context.Context) ([]generic.ScheduleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]generic.ScheduleRecord, 0, len(m.schedules))
	for _, rec := range m.schedules {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteSchedule removes the definition and cascades to its runs.
func (m *Memory) DeleteSchedule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return generic.ErrScheduleNotFound
	}
	delete(m.schedules, id)
	for runID, run := range m.runs {
		if run.ScheduleID == id {
			delete(m.runs, runID)
		}
	}
	return nil
}

func (m *Memory) SaveRun(_ context.Context, run generic.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[run.ScheduleID]; !ok {
		return generic.ErrScheduleNotFound
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*generic.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (m *Memory) ListRuns(_ context.Context, scheduleID string) ([]generic.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []generic.RunRecord
	for _, run := range m.runs {
		if run.ScheduleID == scheduleID {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ generic.Store = (*Memory)(nil)
