/*
evaluate.go - End-to-end evaluation of a schedule

PURPOSE:
  Runs every scenario of a schedule through the full pipeline
  (forecast -> cashflow -> NPV -> IRR) and collects the results in a
  serializable form the API and CLI can store or print.

FAILURE POLICY:
  A forecast failure is fatal for the whole evaluation: the scenario has
  no data to work with. Cashflow failures of single periods are tolerated
  by the scenario and show up in ScenarioResult.Failed.

SUMMARY:
  When a scenario has several realizations, NPV is also summarized per
  rate across realizations (mean and P10/P50/P90). P10 follows the
  reserves convention: the value exceeded by 90% of realizations.

SEE ALSO:
  - scenario.go: orchestration
  - api/handlers.go, cmd/evaluate: callers
*/
package generic

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// EvaluateOptions configures Evaluate.
type EvaluateOptions struct {
	Rates   []float64 `json:"rates" yaml:"rates" msgpack:"rates"`
	Freq    Freq      `json:"freq" yaml:"freq" msgpack:"freq"` // basis of Rates and IRR; default annual
	Periods []string  `json:"periods,omitempty" yaml:"periods" msgpack:"periods"`
}

// NPVSummary aggregates one rate's NPV across realizations.
type NPVSummary struct {
	Rate float64 `json:"rate" msgpack:"rate"`
	Mean float64 `json:"mean" msgpack:"mean"`
	P10  float64 `json:"p10" msgpack:"p10"`
	P50  float64 `json:"p50" msgpack:"p50"`
	P90  float64 `json:"p90" msgpack:"p90"`
}

// ScenarioResult is everything one scenario produced.
type ScenarioResult struct {
	Name       string       `json:"name" msgpack:"name"`
	FreqOutput Freq         `json:"freq_output" msgpack:"freq_output"`
	Iterations int          `json:"iterations" msgpack:"iterations"`
	NPV        []NPVRow     `json:"npv" msgpack:"npv"`
	Summary    []NPVSummary `json:"summary,omitempty" msgpack:"summary"`
	IRR        []IRRRow     `json:"irr" msgpack:"irr"`
	Failed     []string     `json:"failed,omitempty" msgpack:"failed"`
	Warnings   []Warning    `json:"warnings,omitempty" msgpack:"warnings"`

	// Volumes holds total produced volume per fluid and realization.
	Volumes map[string][]float64 `json:"volumes,omitempty" msgpack:"volumes"`
}

// ScheduleResult is the outcome of Evaluate, scenarios in declaration order.
type ScheduleResult struct {
	Schedule  string           `json:"schedule" msgpack:"schedule"`
	Scenarios []ScenarioResult `json:"scenarios" msgpack:"scenarios"`
}

// Evaluate runs forecast, cashflow, NPV and IRR for every scenario.
func Evaluate(schedule *Schedule, opts EvaluateOptions) (*ScheduleResult, error) {
	freq := opts.Freq.OrDefault(FreqAnnual)
	if !freq.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFreq, opts.Freq)
	}

	result := &ScheduleResult{Schedule: schedule.Name}
	for _, sc := range schedule.Scenarios {
		res, err := evaluateScenario(sc, opts.Rates, freq, opts.Periods)
		if err != nil {
			return nil, fmt.Errorf("evaluate scenario %q: %w", sc.Name, err)
		}
		result.Scenarios = append(result.Scenarios, *res)
	}
	return result, nil
}

func evaluateScenario(sc *Scenario, rates []float64, freq Freq, periods []string) (*ScenarioResult, error) {
	if _, err := sc.GenerateForecast(ForecastOptions{Periods: periods}); err != nil {
		return nil, err
	}
	n, err := sc.Iterations(periods...)
	if err != nil {
		return nil, err
	}
	if _, err := sc.GenerateCashflow(CashflowOptions{Periods: periods}); err != nil {
		return nil, err
	}
	npv, err := sc.NPV(rates, freq)
	if err != nil {
		return nil, err
	}
	irr, err := sc.IRR(freq)
	if err != nil {
		return nil, err
	}

	return &ScenarioResult{
		Name:       sc.Name,
		FreqOutput: sc.FreqOutput(),
		Iterations: n,
		NPV:        npv,
		Summary:    summarize(npv, rates, n),
		Volumes:    volumes(sc.Forecast()),
		IRR:        irr,
		Failed:     sc.Failed(),
		Warnings:   sc.Warnings(),
	}, nil
}

func volumes(f *Forecast) map[string][]float64 {
	out := make(map[string][]float64)
	for _, col := range VolumeColumns {
		if f.HasColumn(col) {
			out[col] = f.Totals(col)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// summarize returns nil for deterministic scenarios.
func summarize(rows []NPVRow, rates []float64, n int) []NPVSummary {
	if n < 2 {
		return nil
	}
	out := make([]NPVSummary, 0, len(rates))
	for j, rate := range rates {
		var xs []float64
		for i, r := range rows {
			if i%len(rates) == j {
				xs = append(xs, r.NPV.InexactFloat64())
			}
		}
		if len(xs) == 0 {
			continue
		}
		sort.Float64s(xs)
		out = append(out, NPVSummary{
			Rate: rate,
			Mean: stat.Mean(xs, nil),
			P10:  stat.Quantile(0.9, stat.Empirical, xs, nil),
			P50:  stat.Quantile(0.5, stat.Empirical, xs, nil),
			P90:  stat.Quantile(0.1, stat.Empirical, xs, nil),
		})
	}
	return out
}
