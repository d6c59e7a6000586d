package generic

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// =============================================================================
// FORECAST TABLE - One row per (time, realization)
// =============================================================================

// Well-known forecast columns.
const (
	ColIteration = "iteration"
	ColPeriod    = "period"
	ColScenario  = "scenario"
)

// VolumeColumns are the per-step fluid volumes curve models may emit.
var VolumeColumns = []string{"oil", "gas", "water"}

// ForecastRow is one sample of one realization.
type ForecastRow struct {
	Time      TimePoint          `json:"time" msgpack:"time"`
	Iteration int                `json:"iteration" msgpack:"iteration"`
	Period    string             `json:"period,omitempty" msgpack:"period"`
	Scenario  string             `json:"scenario,omitempty" msgpack:"scenario"`
	Values    map[string]float64 `json:"values" msgpack:"values"`
}

// Forecast is a time-indexed table produced by a curve model. Rows keep the
// order they were produced in; every query that groups by realization
// returns groups in ascending iteration order.
type Forecast struct {
	Rows []ForecastRow `json:"rows" msgpack:"rows"`
}

func (f *Forecast) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// Columns returns the value columns in sorted order.
func (f *Forecast) Columns() []string {
	seen := make(map[string]bool)
	for _, r := range f.Rows {
		for k := range r.Values {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// HasColumn reports whether any row carries the column. The bookkeeping
// columns (iteration, period, scenario) count as present.
func (f *Forecast) HasColumn(name string) bool {
	switch name {
	case ColIteration, ColPeriod, ColScenario:
		return len(f.Rows) > 0
	}
	for _, r := range f.Rows {
		if _, ok := r.Values[name]; ok {
			return true
		}
	}
	return false
}

// Iterations returns the distinct realization indexes, ascending.
func (f *Forecast) Iterations() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range f.Rows {
		if !seen[r.Iteration] {
			seen[r.Iteration] = true
			out = append(out, r.Iteration)
		}
	}
	sort.Ints(out)
	return out
}

// ForIteration returns the rows of one realization sorted by time.
func (f *Forecast) ForIteration(iteration int) []ForecastRow {
	var rows []ForecastRow
	for _, r := range f.Rows {
		if r.Iteration == iteration {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	return rows
}

// Column returns one realization's values of a column, sorted by time.
// Rows without the column contribute zero.
func (f *Forecast) Column(name string, iteration int) []float64 {
	rows := f.ForIteration(iteration)
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Values[name]
	}
	return out
}

// Totals sums a column per realization, in ascending iteration order.
func (f *Forecast) Totals(name string) []float64 {
	its := f.Iterations()
	out := make([]float64, len(its))
	for i, it := range its {
		out[i] = floats.Sum(f.Column(name, it))
	}
	return out
}

// MaxTimeByIteration returns the latest time reached by each realization,
// in ascending iteration order.
func (f *Forecast) MaxTimeByIteration() []TimePoint {
	latest := make(map[int]TimePoint)
	for _, r := range f.Rows {
		if cur, ok := latest[r.Iteration]; !ok || r.Time.After(cur) {
			latest[r.Iteration] = r.Time
		}
	}
	out := make([]TimePoint, 0, len(latest))
	for _, it := range f.Iterations() {
		out = append(out, latest[it])
	}
	return out
}

// Stamp sets the period (and scenario when non-empty) on every row.
func (f *Forecast) Stamp(period, scenario string) {
	for i := range f.Rows {
		if period != "" {
			f.Rows[i].Period = period
		}
		if scenario != "" {
			f.Rows[i].Scenario = scenario
		}
	}
}

// Normalize snaps calendar times to the start of their freq period.
// Ordinal tables are left as they are.
func (f *Forecast) Normalize(freq Freq) {
	for i := range f.Rows {
		f.Rows[i].Time = f.Rows[i].Time.Truncate(freq)
	}
}

// Clone deep-copies the table so the copy shares no maps with the source.
func (f *Forecast) Clone() *Forecast {
	if f == nil {
		return nil
	}
	out := &Forecast{Rows: make([]ForecastRow, len(f.Rows))}
	for i, r := range f.Rows {
		values := make(map[string]float64, len(r.Values))
		for k, v := range r.Values {
			values[k] = v
		}
		r.Values = values
		out.Rows[i] = r
	}
	return out
}

// Concat appends deep copies of each table in order.
func Concat(tables ...*Forecast) *Forecast {
	out := &Forecast{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		out.Rows = append(out.Rows, t.Clone().Rows...)
	}
	return out
}
