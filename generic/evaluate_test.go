package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/forecast-engine/dca"
	"github.com/warp/forecast-engine/generic"
)

func TestEvaluate_RunsEveryScenario(t *testing.T) {
	// GIVEN: A schedule with a deterministic and a probabilistic scenario
	// WHEN: Evaluating at 10% annual
	// THEN: Each scenario reports NPV per realization; only the
	//       probabilistic one gets a percentile summary

	det, err := generic.NewScenario("det", []*generic.Period{ordinalPeriod(t, "p", 0, 24)})
	require.NoError(t, err)

	prob, err := generic.NewScenario("prob", []*generic.Period{
		ordinalPeriod(t, "p", 0, 24, func(c *generic.PeriodConfig) {
			c.Model = &dca.Arps{Qi: dca.Normal(1000, 150), Di: dca.Const(0.05), Seed: 11}
			c.Iterations = 20
		}),
	})
	require.NoError(t, err)

	schedule, err := generic.NewSchedule("field", []*generic.Scenario{det, prob})
	require.NoError(t, err)

	res, err := generic.Evaluate(schedule, generic.EvaluateOptions{Rates: []float64{0.1}})
	require.NoError(t, err)
	require.Len(t, res.Scenarios, 2)
	assert.Equal(t, "field", res.Schedule)

	d := res.Scenarios[0]
	assert.Equal(t, "det", d.Name)
	assert.Equal(t, 1, d.Iterations)
	assert.Len(t, d.NPV, 1)
	assert.Nil(t, d.Summary)
	require.Len(t, d.Volumes["oil"], 1)
	assert.Greater(t, d.Volumes["oil"][0], 0.0)
	assert.NotContains(t, d.Volumes, "gas")

	p := res.Scenarios[1]
	assert.Equal(t, 20, p.Iterations)
	assert.Len(t, p.NPV, 20)
	assert.Len(t, p.IRR, 20)
	assert.Len(t, p.Volumes["oil"], 20)
	require.Len(t, p.Summary, 1)
	s := p.Summary[0]
	assert.LessOrEqual(t, s.P90, s.P50)
	assert.LessOrEqual(t, s.P50, s.P10)
}

func TestEvaluate_ForecastFailureIsFatal(t *testing.T) {
	sc, err := generic.NewScenario("broken", []*generic.Period{
		ordinalPeriod(t, "p", 0, 10, dependsOn("missing", 0)),
	})
	require.NoError(t, err)
	schedule, err := generic.NewSchedule("field", []*generic.Scenario{sc})
	require.NoError(t, err)

	_, err = generic.Evaluate(schedule, generic.EvaluateOptions{Rates: []float64{0.1}})
	assert.ErrorIs(t, err, generic.ErrUnknownDependency)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewSchedule_DuplicateScenario_Rejected(t *testing.T) {
	a, err := generic.NewScenario("base", []*generic.Period{ordinalPeriod(t, "p", 0, 6)})
	require.NoError(t, err)
	b, err := generic.NewScenario("base", []*generic.Period{ordinalPeriod(t, "p", 0, 6)})
	require.NoError(t, err)

	_, err = generic.NewSchedule("field", []*generic.Scenario{a, b})
	assert.ErrorIs(t, err, generic.ErrDuplicateScenario)

	s, err := generic.NewSchedule("field", []*generic.Scenario{a})
	require.NoError(t, err)
	got, ok := s.Scenario("base")
	assert.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, []string{"base"}, s.ScenarioNames())
}

func TestForecast_ColumnAndTotals(t *testing.T) {
	f := &generic.Forecast{Rows: []generic.ForecastRow{
		{Time: generic.Ordinal(1), Iteration: 1, Values: map[string]float64{"oil": 5}},
		{Time: generic.Ordinal(1), Iteration: 0, Values: map[string]float64{"oil": 2}},
		{Time: generic.Ordinal(0), Iteration: 0, Values: map[string]float64{"oil": 1}},
		{Time: generic.Ordinal(0), Iteration: 1, Values: map[string]float64{}},
	}}

	assert.Equal(t, []float64{1, 2}, f.Column("oil", 0))
	assert.Equal(t, []float64{0, 5}, f.Column("oil", 1))
	assert.Equal(t, []float64{3, 5}, f.Totals("oil"))
}

func TestEvaluate_SummaryPairsRowsWithTheirRate(t *testing.T) {
	// GIVEN: Three realizations evaluated at two rates
	// WHEN: Summarizing
	// THEN: Each rate's mean is the mean of that rate's NPV rows only

	sc, err := generic.NewScenario("prob", []*generic.Period{
		ordinalPeriod(t, "p", 0, 24, func(c *generic.PeriodConfig) {
			c.Model = &dca.Arps{Qi: dca.Const(100, 200, 300), Di: dca.Const(0.05)}
		}),
	})
	require.NoError(t, err)
	schedule, err := generic.NewSchedule("field", []*generic.Scenario{sc})
	require.NoError(t, err)

	res, err := generic.Evaluate(schedule, generic.EvaluateOptions{Rates: []float64{0.05, 0.2}})
	require.NoError(t, err)
	r := res.Scenarios[0]
	require.Len(t, r.NPV, 6)
	require.Len(t, r.Summary, 2)

	for j, rate := range []float64{0.05, 0.2} {
		var sum float64
		for _, row := range r.NPV {
			if row.Rate == rate {
				sum += row.NPV.InexactFloat64()
			}
		}
		assert.Equal(t, rate, r.Summary[j].Rate)
		assert.InDelta(t, sum/3, r.Summary[j].Mean, 1e-6)
	}
	assert.Greater(t, r.Summary[0].Mean, r.Summary[1].Mean)
}
