package generic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/forecast-engine/cashflow"
	"github.com/warp/forecast-engine/dca"
	"github.com/warp/forecast-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func ptr(v float64) *float64 { return &v }

func oilIncome(price float64) generic.CashflowParam {
	return generic.CashflowParam{
		Name:       "oil_sales",
		Target:     "income",
		Multiply:   "oil",
		ConstValue: ptr(price),
	}
}

func arpsCurve() *dca.Arps {
	return &dca.Arps{Qi: dca.Const(1000), Di: dca.Const(0.05), B: dca.Const(0.5)}
}

// ordinalPeriod builds a monthly ordinal Arps period; mutate adjusts the
// config before construction.
func ordinalPeriod(t *testing.T, name string, start, end int, mutate ...func(*generic.PeriodConfig)) *generic.Period {
	t.Helper()
	cfg := generic.PeriodConfig{
		Name:           name,
		Model:          arpsCurve(),
		Start:          generic.Ordinal(start),
		End:            generic.Ordinal(end),
		FreqOutput:     generic.FreqMonthly,
		CashflowParams: []generic.CashflowParam{oilIncome(50)},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := generic.NewPeriod(cfg)
	require.NoError(t, err)
	return p
}

func warningCodes(ws []generic.Warning) []generic.WarningCode {
	var out []generic.WarningCode
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewPeriod_MixedTimeKinds_Rejected(t *testing.T) {
	// GIVEN: A start and end of different time kinds
	// WHEN: Constructing the period (both orders)
	// THEN: Construction fails with a time-kind mismatch

	cases := []struct {
		name       string
		start, end generic.TimePoint
	}{
		{"ordinal start, calendar end", generic.Ordinal(0), generic.Date(2025, 1, 1)},
		{"calendar start, ordinal end", generic.Date(2025, 1, 1), generic.Ordinal(12)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := generic.NewPeriod(generic.PeriodConfig{
				Name: "p", Model: arpsCurve(), Start: tc.start, End: tc.end,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, generic.ErrTimeKindMismatch)

			var kindErr *generic.TimeKindError
			assert.ErrorAs(t, err, &kindErr)
			assert.True(t, generic.IsConfigError(err))
		})
	}
}

func TestNewPeriod_Defaults(t *testing.T) {
	p, err := generic.NewPeriod(generic.PeriodConfig{
		Name: "p", Model: arpsCurve(), Start: generic.Ordinal(0), End: generic.Ordinal(5),
	})
	require.NoError(t, err)
	assert.Equal(t, generic.FreqMonthly, p.FreqInput)
	assert.Equal(t, generic.FreqMonthly, p.FreqOutput)
	assert.Equal(t, 1, p.Iterations)
	assert.Nil(t, p.Forecast())
	assert.Nil(t, p.Cashflow())
}

func TestNewPeriod_InvalidRanges(t *testing.T) {
	base := func() generic.PeriodConfig {
		return generic.PeriodConfig{Name: "p", Model: arpsCurve(), Start: generic.Ordinal(0), End: generic.Ordinal(5)}
	}

	cfg := base()
	cfg.RateLimit = ptr(-1)
	_, err := generic.NewPeriod(cfg)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	cfg = base()
	cfg.PPF = ptr(1.5)
	_, err = generic.NewPeriod(cfg)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	cfg = base()
	cfg.Iterations = -2
	_, err = generic.NewPeriod(cfg)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	cfg = base()
	cfg.FreqOutput = "W"
	_, err = generic.NewPeriod(cfg)
	assert.ErrorIs(t, err, generic.ErrInvalidFreq)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestPeriod_Preconditions(t *testing.T) {
	// GIVEN: A fresh period
	// WHEN: Skipping lifecycle stages
	// THEN: Each call fails with its precondition error

	p := ordinalPeriod(t, "p", 0, 10)

	_, err := p.EndDates()
	assert.ErrorIs(t, err, generic.ErrNoForecast)

	_, err = p.GenerateCashflow("")
	assert.ErrorIs(t, err, generic.ErrNoForecast)

	_, err = p.NPV([]float64{0.1}, generic.FreqAnnual)
	assert.ErrorIs(t, err, generic.ErrNoCashflow)
	assert.True(t, generic.IsPreconditionError(err))

	_, err = p.IRR(generic.FreqAnnual)
	assert.ErrorIs(t, err, generic.ErrNoCashflow)

	noParams := ordinalPeriod(t, "q", 0, 10, func(c *generic.PeriodConfig) { c.CashflowParams = nil })
	_, err = noParams.GenerateForecast("")
	require.NoError(t, err)
	_, err = noParams.GenerateCashflow("")
	assert.ErrorIs(t, err, generic.ErrNoCashflowParams)
}

func TestPeriod_GenerateForecast_StampsPeriod(t *testing.T) {
	p := ordinalPeriod(t, "base", 0, 10)

	f, err := p.GenerateForecast("")
	require.NoError(t, err)
	require.Equal(t, 11, f.Len())
	for _, r := range f.Rows {
		assert.Equal(t, "base", r.Period)
	}

	ends, err := p.EndDates()
	require.NoError(t, err)
	assert.Equal(t, []generic.TimePoint{generic.Ordinal(10)}, ends)

	// Re-running overwrites rather than appends
	_, err = p.GenerateForecast("")
	require.NoError(t, err)
	assert.Equal(t, 11, p.Forecast().Len())
}

func TestPeriod_Calendar_NormalizesToOutputFreq(t *testing.T) {
	p, err := generic.NewPeriod(generic.PeriodConfig{
		Name:       "cal",
		Model:      &dca.Arps{Qi: dca.Const(100), Di: dca.Const(0.02), Ti: []generic.TimePoint{generic.Date(2024, 1, 20)}},
		Start:      generic.Date(2024, 1, 20),
		End:        generic.Date(2024, 12, 31),
		FreqOutput: generic.FreqMonthly,
	})
	require.NoError(t, err)

	f, err := p.GenerateForecast("")
	require.NoError(t, err)
	for _, r := range f.Rows {
		assert.Equal(t, 1, r.Time.Time.Day())
	}
	assert.Equal(t, generic.Date(2024, 12, 1), f.Rows[f.Len()-1].Time)
}

// =============================================================================
// CASHFLOW PARAMS
// =============================================================================

func TestPeriod_GenerateCashflow_OneModelPerRealization(t *testing.T) {
	p := ordinalPeriod(t, "p", 0, 12, func(c *generic.PeriodConfig) {
		c.Model = &dca.Arps{Qi: dca.Const(100, 200, 300), Di: dca.Const(0.05)}
	})
	_, err := p.GenerateForecast("")
	require.NoError(t, err)

	models, err := p.GenerateCashflow("")
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "p_0", models[0].Name())
	assert.Equal(t, "p_2", models[2].Name())

	items := models[1].Accounts().Items("income")
	require.Len(t, items, 1)
	assert.Len(t, items[0].ConstValue, 13)
	assert.Equal(t, generic.Ordinal(0), items[0].Start)
	assert.Equal(t, generic.Ordinal(12), items[0].End)
}

func TestPeriod_TimeList_CashflowKeepsRowTimes(t *testing.T) {
	// GIVEN: A flat 100/step curve sampled only at steps 0, 5 and 10
	// WHEN: Generating cashflow at 10 per barrel
	// THEN: Income lands on steps 5 and 10; the steps in between are zero

	p := ordinalPeriod(t, "p", 0, 10, func(c *generic.PeriodConfig) {
		c.Model = &dca.Arps{Qi: dca.Const(100), Di: dca.Const(0)}
		c.TimeList = []generic.TimePoint{generic.Ordinal(0), generic.Ordinal(5), generic.Ordinal(10)}
		c.CashflowParams = []generic.CashflowParam{oilIncome(10)}
	})
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	models, err := p.GenerateCashflow("")
	require.NoError(t, err)
	require.Len(t, models, 1)

	items := models[0].Accounts().Items("income")
	require.Len(t, items, 1)
	assert.Equal(t, []generic.TimePoint{generic.Ordinal(0), generic.Ordinal(5), generic.Ordinal(10)}, items[0].Times)

	m, ok := models[0].(*cashflow.Model)
	require.True(t, ok)
	rows, err := m.Table()
	require.NoError(t, err)
	require.Len(t, rows, 11)
	for i, r := range rows {
		want := 0.0
		if i == 5 || i == 10 {
			want = 5000
		}
		assert.Equal(t, generic.Ordinal(i), r.Time)
		assert.Equal(t, want, r.Net.InexactFloat64(), "step %d", i)
	}
}

func TestPeriod_WorkingInterest_ScalesBothModes(t *testing.T) {
	// GIVEN: An absolute capex of 1000 and an oil-price param, both at 25% WI
	// WHEN: Generating cashflow
	// THEN: Every value is scaled by 0.25

	p := ordinalPeriod(t, "p", 0, 3, func(c *generic.PeriodConfig) {
		c.Model = &dca.Arps{Qi: dca.Const(100), Di: dca.Const(0)}
		income := oilIncome(10)
		income.WI = ptr(0.25)
		c.CashflowParams = []generic.CashflowParam{
			{Name: "drill", Target: "capex", ConstValue: ptr(1000), WI: ptr(0.25)},
			income,
		}
	})
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	models, err := p.GenerateCashflow("")
	require.NoError(t, err)

	capex := models[0].Accounts().Items("capex")
	require.Len(t, capex, 1)
	assert.Equal(t, []float64{250}, capex[0].ConstValue)

	// Flat 100/step: first step volume is 0, the rest 100
	income := models[0].Accounts().Items("income")
	require.Len(t, income, 1)
	assert.Equal(t, []float64{0, 250, 250, 250}, income[0].ConstValue)
	assert.Equal(t, []string{"capex", "income"}, models[0].Accounts().Names())
}

func TestPeriod_MissingColumn_SkipsParamWithWarning(t *testing.T) {
	p := ordinalPeriod(t, "p", 0, 6, func(c *generic.PeriodConfig) {
		c.CashflowParams = append(c.CashflowParams, generic.CashflowParam{
			Name: "gas_sales", Target: "income", Multiply: "gas", ConstValue: ptr(3),
		})
	})
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	models, err := p.GenerateCashflow("")
	require.NoError(t, err)

	assert.Len(t, models[0].Accounts().Items("income"), 1)
	assert.Equal(t, []generic.WarningCode{generic.WarnMissingColumn}, warningCodes(p.Warnings()))
	assert.Equal(t, "gas_sales", p.Warnings()[0].Param)
}

func TestPeriod_NonOverlappingOverride_OmitsLineItem(t *testing.T) {
	// GIVEN: A price override dated entirely after the forecast window
	// WHEN: Generating cashflow
	// THEN: No error, the line item is absent, and a no_overlap warning is raised

	p, err := generic.NewPeriod(generic.PeriodConfig{
		Name:       "cal",
		Model:      &dca.Arps{Qi: dca.Const(100), Di: dca.Const(0.02)},
		Start:      generic.Date(2024, 1, 1),
		End:        generic.Date(2024, 12, 1),
		FreqOutput: generic.FreqMonthly,
		CashflowParams: []generic.CashflowParam{
			{
				Name: "oil_sales", Target: "income", Multiply: "oil",
				ArrayValues: &generic.DatedValues{
					Times:  []generic.TimePoint{generic.Date(2030, 1, 15), generic.Date(2030, 6, 1)},
					Values: []float64{70, 75},
				},
			},
			{Name: "fixed", Target: "opex", ConstValue: ptr(10)},
		},
	})
	require.NoError(t, err)
	_, err = p.GenerateForecast("")
	require.NoError(t, err)

	models, err := p.GenerateCashflow("")
	require.NoError(t, err)
	require.Len(t, models, 1)

	assert.Empty(t, models[0].Accounts().Items("income"))
	assert.NotContains(t, models[0].Accounts().Names(), "income")
	assert.Equal(t, []generic.WarningCode{generic.WarnNoOverlap}, warningCodes(p.Warnings()))
}

func TestPeriod_OverlappingOverride_TruncatesDatesToFreq(t *testing.T) {
	p, err := generic.NewPeriod(generic.PeriodConfig{
		Name:       "cal",
		Model:      &dca.Arps{Qi: dca.Const(100), Di: dca.Const(0)},
		Start:      generic.Date(2024, 1, 1),
		End:        generic.Date(2024, 6, 1),
		FreqOutput: generic.FreqMonthly,
		CashflowParams: []generic.CashflowParam{{
			Name: "oil_sales", Target: "income", Multiply: "oil_rate",
			ArrayValues: &generic.DatedValues{
				Times:  []generic.TimePoint{generic.Date(2024, 3, 17), generic.Date(2029, 1, 1)},
				Values: []float64{2, 9},
			},
		}},
	})
	require.NoError(t, err)
	_, err = p.GenerateForecast("")
	require.NoError(t, err)
	models, err := p.GenerateCashflow("")
	require.NoError(t, err)

	items := models[0].Accounts().Items("income")
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ChangePoints)
	assert.Equal(t, []generic.TimePoint{generic.Date(2024, 3, 1)}, items[0].ChangePoints.Times)
	assert.Equal(t, []float64{200}, items[0].ChangePoints.Values)
}

// =============================================================================
// NPV / IRR
// =============================================================================

func TestPeriod_NPV_ConvertsRatesToOutputFreq(t *testing.T) {
	p := ordinalPeriod(t, "p", 0, 24)
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	_, err = p.GenerateCashflow("")
	require.NoError(t, err)

	rows, err := p.NPV([]float64{0.1, 0.15}, generic.FreqAnnual)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.1, rows[0].Rate)
	assert.InDelta(t, 0.00797414, rows[0].PeriodRate, 1e-7)
	assert.True(t, rows[0].NPV.GreaterThan(rows[1].NPV))
}

func TestPeriod_NPV_RowsOrderedByRealizationThenRate(t *testing.T) {
	// GIVEN: Three realizations with rising qi
	// WHEN: Discounting at two rates
	// THEN: Rows run realization by realization, rates in request order

	p := ordinalPeriod(t, "p", 0, 12, func(c *generic.PeriodConfig) {
		c.Model = &dca.Arps{Qi: dca.Const(100, 200, 300), Di: dca.Const(0.05)}
	})
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	_, err = p.GenerateCashflow("")
	require.NoError(t, err)

	rows, err := p.NPV([]float64{0.05, 0.1}, generic.FreqMonthly)
	require.NoError(t, err)
	require.Len(t, rows, 6)

	var iterations []int
	var rates []float64
	for _, r := range rows {
		iterations = append(iterations, r.Iteration)
		rates = append(rates, r.Rate)
	}
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2}, iterations)
	assert.Equal(t, []float64{0.05, 0.1, 0.05, 0.1, 0.05, 0.1}, rates)

	assert.True(t, rows[0].NPV.LessThan(rows[2].NPV))
	assert.True(t, rows[2].NPV.LessThan(rows[4].NPV))
	assert.True(t, rows[4].NPV.GreaterThan(rows[5].NPV))
}

func TestPeriod_IRR_NoSignChange_NilWithWarning(t *testing.T) {
	p := ordinalPeriod(t, "p", 0, 12)
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	_, err = p.GenerateCashflow("")
	require.NoError(t, err)

	rows, err := p.IRR(generic.FreqAnnual)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].IRR)
	assert.Contains(t, warningCodes(p.Warnings()), generic.WarnIRRNotFound)
}

func TestPeriod_IRR_WithCapex(t *testing.T) {
	p := ordinalPeriod(t, "p", 0, 36, func(c *generic.PeriodConfig) {
		c.CashflowParams = append(c.CashflowParams, generic.CashflowParam{
			Name:   "drill",
			Target: "capex",
			ChangePoints: &generic.DatedValues{
				Times:  []generic.TimePoint{generic.Ordinal(0), generic.Ordinal(1)},
				Values: []float64{400000, 0},
			},
		})
	})
	_, err := p.GenerateForecast("")
	require.NoError(t, err)
	_, err = p.GenerateCashflow("")
	require.NoError(t, err)

	rows, err := p.IRR(generic.FreqAnnual)
	require.NoError(t, err)
	require.NotNil(t, rows[0].IRR)
	assert.Greater(t, *rows[0].IRR, 0.0)
}
