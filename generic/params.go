/*
params.go - Declarative cashflow parameters applied against a forecast

PURPOSE:
  A CashflowParam says "put this line item in that account". It either
  stands alone (absolute mode: a constant and/or change points) or scales a
  forecast column (multiply mode: constant x column, or a sparse dated
  override series x column).

MULTIPLY MODE:
  - The column must exist in the forecast, otherwise the param is skipped
    with a missing_column warning.
  - Constant: value[t] = column[t] * const, dated with the row times so
    sparse time lists keep their spacing.
  - Array values: the param's own dates are truncated to the output freq
    (calendar mode), joined on the realization's time index, multiplied
    elementwise, and positions without a partner are dropped. An empty
    join is a no_overlap warning.
  - A multiply-mode param that yields neither part produces no line item.

WORKING INTEREST:
  Every value a param produces is scaled by WI (default 1), in multiply
  mode as well as in absolute mode.

SEE ALSO:
  - period.go: GenerateCashflow drives this per realization
  - model.go: LineItem and Accounts
*/
package generic

import "fmt"

// DatedValues is a sparse (time, value) series declared by a param.
type DatedValues struct {
	Times  []TimePoint `json:"date" yaml:"date" msgpack:"date"`
	Values []float64   `json:"value" yaml:"value" msgpack:"value"`
}

func (d *DatedValues) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Times)
}

// CashflowParam is one line-item declaration.
type CashflowParam struct {
	Name         string
	Target       string
	Multiply     string       // forecast column; empty means absolute mode
	ConstValue   *float64
	ArrayValues  *DatedValues // multiply mode sparse override
	ChangePoints *DatedValues // absolute mode change points

	// WI is the working interest, default 1. It scales multiply-mode values
	// (column x const, column x array values) as well as absolute-mode
	// constants and change points.
	WI *float64
}

func (p CashflowParam) wi() float64 {
	if p.WI == nil {
		return 1
	}
	return *p.WI
}

// Validate checks shape only; column presence is checked against a forecast.
func (p CashflowParam) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: cashflow param without name", ErrInvalidPeriod)
	}
	if p.Target == "" {
		return fmt.Errorf("%w: cashflow param %q without target", ErrInvalidPeriod, p.Name)
	}
	for _, d := range []*DatedValues{p.ArrayValues, p.ChangePoints} {
		if d != nil && len(d.Times) != len(d.Values) {
			return fmt.Errorf("%w: cashflow param %q has %d dates but %d values",
				ErrInvalidPeriod, p.Name, len(d.Times), len(d.Values))
		}
	}
	return nil
}

// =============================================================================
// APPLICATION
// =============================================================================

// applyParams builds the account mapping of a single realization. rows
// must be sorted by time and non-empty.
func applyParams(period string, params []CashflowParam, rows []ForecastRow, table *Forecast, freq Freq, ws *warnings) *Accounts {
	accounts := NewAccounts()
	start, end := rows[0].Time, rows[len(rows)-1].Time

	for _, p := range params {
		item := LineItem{Name: p.Name, Start: start, End: end, Freq: freq}
		wi := p.wi()

		if p.Multiply != "" {
			if !table.HasColumn(p.Multiply) {
				ws.add(Warning{
					Code:    WarnMissingColumn,
					Period:  period,
					Param:   p.Name,
					Message: fmt.Sprintf("%s is not in forecast columns %v", p.Multiply, table.Columns()),
				})
				continue
			}

			if p.ConstValue != nil {
				values := make([]float64, len(rows))
				times := make([]TimePoint, len(rows))
				for i, r := range rows {
					values[i] = r.Values[p.Multiply] * *p.ConstValue * wi
					times[i] = r.Time
				}
				item.ConstValue, item.Times = values, times
			}

			if p.ArrayValues.Len() > 0 {
				cp := alignOverride(p.ArrayValues, rows, p.Multiply, freq, wi)
				if cp.Len() == 0 {
					ws.add(Warning{
						Code:    WarnNoOverlap,
						Period:  period,
						Param:   p.Name,
						Message: fmt.Sprintf("param %s array values not multiplied with forecast: no index match", p.Name),
					})
				} else {
					item.ChangePoints = cp
				}
			}

			if item.ConstValue == nil && item.ChangePoints == nil {
				accounts.Ensure(p.Target)
				continue
			}
		} else {
			if p.ConstValue != nil {
				item.ConstValue = []float64{*p.ConstValue * wi}
			}
			if p.ChangePoints.Len() > 0 {
				item.ChangePoints = (&ChangePoints{
					Times:  p.ChangePoints.Times,
					Values: p.ChangePoints.Values,
				}).Scale(wi)
			}
		}

		accounts.Add(p.Target, item)
	}

	accounts.Prune()
	return accounts
}

// alignOverride joins the override series onto the realization's time index
// and multiplies by the column. Later duplicates of a truncated date win.
func alignOverride(override *DatedValues, rows []ForecastRow, column string, freq Freq, wi float64) *ChangePoints {
	byTime := make(map[string]float64, len(override.Times))
	for i, t := range override.Times {
		byTime[t.Truncate(freq).String()] = override.Values[i]
	}

	out := &ChangePoints{}
	for _, r := range rows {
		v, ok := byTime[r.Time.String()]
		if !ok {
			continue
		}
		out.Times = append(out.Times, r.Time)
		out.Values = append(out.Values, r.Values[column]*v*wi)
	}
	return out
}
