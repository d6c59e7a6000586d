/*
model.go - Default cashflow model

PURPOSE:
  Turns an account mapping of line items into a net cashflow series and
  computes NPV and IRR over it. Registered as the engine's default
  CashflowBuilder.

SIGN CONVENTION:
  Accounts capex, opex, abandonment and taxes are outflows and enter the
  net series negated. Every other account (income, revenue, ...) is an
  inflow. Line item values are always given as positive magnitudes.

LINE ITEM EXPANSION:
  The model's grid runs from the earliest item start to the latest item
  end, stepping the model freq. On that grid an item:
    - is zero outside [Start, End]
    - takes ConstValue[0] everywhere when ConstValue has one element
    - takes ConstValue[j] at the step of Times[j] when Times is set
    - takes ConstValue[j] at the j-th step after Start otherwise
    - takes a change point's value from that point's step onward,
      overriding the constant

DISCOUNTING:
  NPV = sum(cf_t / (1+r)^t), t = 0 at the first grid step. Rates must be
  expressed per model freq unit.

SEE ALSO:
  - generic/model.go: CashflowModel interface
  - irr.go: IRR solver
*/
package cashflow

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/forecast-engine/generic"
)

func init() {
	generic.RegisterCashflowBuilder(func(name string, freq generic.Freq, accounts *generic.Accounts) (generic.CashflowModel, error) {
		return New(name, freq, accounts)
	})
}

var outflowAccounts = map[string]bool{
	"capex":       true,
	"opex":        true,
	"abandonment": true,
	"taxes":       true,
}

// IsOutflow reports whether an account enters the net series negated.
func IsOutflow(account string) bool { return outflowAccounts[strings.ToLower(account)] }

// Model implements generic.CashflowModel.
type Model struct {
	name     string
	freq     generic.Freq
	accounts *generic.Accounts
}

// New copies accounts; later changes to the caller's mapping don't leak in.
func New(name string, freq generic.Freq, accounts *generic.Accounts) (*Model, error) {
	freq = freq.OrDefault(generic.FreqMonthly)
	if !freq.Valid() {
		return nil, fmt.Errorf("cashflow %q: %w: %q", name, generic.ErrInvalidFreq, freq)
	}
	if accounts == nil {
		accounts = generic.NewAccounts()
	}
	return &Model{name: name, freq: freq, accounts: accounts.Clone()}, nil
}

func (m *Model) Name() string                { return m.name }
func (m *Model) Freq() generic.Freq          { return m.freq }
func (m *Model) Accounts() *generic.Accounts { return m.accounts }

// Append merges other's line items. Models on different freqs only merge
// when other is empty.
func (m *Model) Append(other generic.CashflowModel) error {
	if other.Accounts().Len() == 0 {
		return nil
	}
	if other.Freq() != m.freq {
		return fmt.Errorf("append %s to %s: %w: %s vs %s",
			other.Name(), m.name, generic.ErrFreqMismatch, other.Freq(), m.freq)
	}
	m.accounts.Merge(other.Accounts())
	return nil
}

// =============================================================================
// GRID AND SERIES
// =============================================================================

// Grid returns the model's time steps.
func (m *Model) Grid() ([]generic.TimePoint, error) {
	var bounds []generic.TimePoint
	for _, name := range m.accounts.Names() {
		for _, item := range m.accounts.Items(name) {
			bounds = append(bounds, item.Start, item.End)
		}
	}
	if len(bounds) == 0 {
		return nil, nil
	}
	if !generic.SameKind(bounds...) {
		return nil, fmt.Errorf("cashflow %q: %w", m.name, generic.ErrTimeKindMismatch)
	}

	start, end := bounds[0], bounds[0]
	for _, b := range bounds[1:] {
		if b.Before(start) {
			start = b
		}
		if b.After(end) {
			end = b
		}
	}
	return generic.Range(start.Truncate(m.freq), end.Truncate(m.freq), m.freq), nil
}

// expand lays one line item onto grid.
func (m *Model) expand(item generic.LineItem, grid []generic.TimePoint) []decimal.Decimal {
	out := make([]decimal.Decimal, len(grid))
	start, end := item.Start.Truncate(m.freq), item.End.Truncate(m.freq)

	var cps []changePoint
	if item.ChangePoints != nil {
		for i, t := range item.ChangePoints.Times {
			cps = append(cps, changePoint{t.Truncate(m.freq), item.ChangePoints.Values[i]})
		}
		sort.SliceStable(cps, func(i, j int) bool { return cps[i].at.Before(cps[j].at) })
	}

	// Values sharing a truncated step add up.
	var dated map[string]float64
	if len(item.Times) > 0 && len(item.Times) == len(item.ConstValue) {
		dated = make(map[string]float64, len(item.Times))
		for j, at := range item.Times {
			dated[at.Truncate(m.freq).String()] += item.ConstValue[j]
		}
	}

	next := 0
	current, haveCP := 0.0, false
	for i, t := range grid {
		for next < len(cps) && cps[next].at.BeforeOrEqual(t) {
			current, haveCP = cps[next].value, true
			next++
		}
		if t.Before(start) || t.After(end) {
			continue
		}

		switch {
		case haveCP:
			out[i] = decimal.NewFromFloat(current)
		case dated != nil:
			if v, ok := dated[t.String()]; ok {
				out[i] = decimal.NewFromFloat(v)
			}
		case len(item.ConstValue) == 1:
			out[i] = decimal.NewFromFloat(item.ConstValue[0])
		case len(item.ConstValue) > 1:
			if j := t.StepsSince(start, m.freq); j >= 0 && j < len(item.ConstValue) {
				out[i] = decimal.NewFromFloat(item.ConstValue[j])
			}
		}
	}
	return out
}

type changePoint struct {
	at    generic.TimePoint
	value float64
}

// Series returns the sum of an account's line items on the grid, unsigned.
func (m *Model) Series(account string) ([]decimal.Decimal, error) {
	grid, err := m.Grid()
	if err != nil {
		return nil, err
	}
	total := make([]decimal.Decimal, len(grid))
	for _, item := range m.accounts.Items(account) {
		for i, v := range m.expand(item, grid) {
			total[i] = total[i].Add(v)
		}
	}
	return total, nil
}

// Net returns the signed net cashflow per grid step.
func (m *Model) Net() ([]decimal.Decimal, error) {
	rows, err := m.Table()
	if err != nil {
		return nil, err
	}
	net := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		net[i] = r.Net
	}
	return net, nil
}

// Row is one grid step of the cashflow table.
type Row struct {
	Time     generic.TimePoint          `json:"time"`
	Accounts map[string]decimal.Decimal `json:"accounts"`
	Net      decimal.Decimal            `json:"net"`
}

// Table returns per-account and net values for every grid step.
func (m *Model) Table() ([]Row, error) {
	grid, err := m.Grid()
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(grid))
	for i, t := range grid {
		rows[i] = Row{Time: t, Accounts: make(map[string]decimal.Decimal)}
	}
	for _, name := range m.accounts.Names() {
		series, err := m.Series(name)
		if err != nil {
			return nil, err
		}
		for i, v := range series {
			rows[i].Accounts[name] = v
			if IsOutflow(name) {
				v = v.Neg()
			}
			rows[i].Net = rows[i].Net.Add(v)
		}
	}
	return rows, nil
}

// =============================================================================
// NPV
// =============================================================================

// NPV discounts the net series at each rate. Rates are per freq unit and
// freq must be the model's own.
func (m *Model) NPV(rates []float64, freq generic.Freq) ([]decimal.Decimal, error) {
	net, err := m.Net()
	if err != nil {
		return nil, err
	}
	if len(net) > 0 && freq.OrDefault(m.freq) != m.freq {
		return nil, fmt.Errorf("npv %s: %w: rates per %s, model steps per %s",
			m.name, generic.ErrFreqMismatch, freq, m.freq)
	}

	out := make([]decimal.Decimal, len(rates))
	for j, r := range rates {
		out[j] = discount(net, r)
	}
	return out, nil
}

func discount(net []decimal.Decimal, rate float64) decimal.Decimal {
	sum := decimal.Zero
	for t, cf := range net {
		if cf.IsZero() {
			continue
		}
		df := decimal.NewFromFloat(math.Pow(1+rate, -float64(t)))
		sum = sum.Add(cf.Mul(df).Round(10))
	}
	return sum.Round(8)
}
