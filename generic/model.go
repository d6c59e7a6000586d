/*
model.go - Collaborator interfaces: curve models and cashflow models

PURPOSE:
  The engine orchestrates; it does not do curve math or discounting. Both
  are reached through the interfaces below so new curve families or cashflow
  conventions can be added without touching Period or Scenario.

KEY CONCEPTS:
  CurveModel:     Produces a Forecast for a time window and realization count.
  CashflowModel:  Owns line items grouped by account; computes NPV and IRR.
  Accounts:       Insertion-ordered account -> line items mapping a Period
                  builds before handing it to a CashflowBuilder.

SEE ALSO:
  - dca/: Arps and Wor curve families
  - cashflow/: Default CashflowModel
  - params.go: Builds Accounts from CashflowParams
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CURVE MODEL
// =============================================================================

// ForecastRequest carries everything a curve model needs to sample a window.
type ForecastRequest struct {
	Start      TimePoint
	End        TimePoint
	TimeList   []TimePoint // overrides Start/End sampling when set
	FreqInput  Freq
	FreqOutput Freq
	RateLimit  *float64
	CumLimit   *float64
	Iterations int
	PPF        *float64
}

// CurveModel is a decline-curve family instance.
type CurveModel interface {
	// Forecast returns one row per (time, realization).
	Forecast(req ForecastRequest) (*Forecast, error)

	// SetStart seeds the curve start time(s). Several starts fan out into
	// one realization each.
	SetStart(starts []TimePoint)

	// Start returns the current curve start time(s).
	Start() []TimePoint
}

// =============================================================================
// CASHFLOW MODEL
// =============================================================================

// ChangePoints is a sparse dated series: each value holds from its time
// until the next change point.
type ChangePoints struct {
	Times  []TimePoint `json:"date" msgpack:"date"`
	Values []float64   `json:"value" msgpack:"value"`
}

func (c *ChangePoints) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Times)
}

// Scale returns a copy with every value multiplied by k.
func (c *ChangePoints) Scale(k float64) *ChangePoints {
	if c == nil {
		return nil
	}
	out := &ChangePoints{
		Times:  append([]TimePoint(nil), c.Times...),
		Values: make([]float64, len(c.Values)),
	}
	for i, v := range c.Values {
		out.Values[i] = v * k
	}
	return out
}

// LineItem is one declarative cashflow line. ConstValue of length one is a
// flat value; a longer ConstValue is a per-step series starting at Start.
// When Times is set it pairs with ConstValue and each value lands on its
// own time instead of on consecutive steps.
type LineItem struct {
	Name         string        `json:"name" msgpack:"name"`
	Start        TimePoint     `json:"start" msgpack:"start"`
	End          TimePoint     `json:"end" msgpack:"end"`
	Freq         Freq          `json:"freq" msgpack:"freq"`
	ConstValue   []float64     `json:"const_value,omitempty" msgpack:"const_value"`
	Times        []TimePoint   `json:"times,omitempty" msgpack:"times"`
	ChangePoints *ChangePoints `json:"chgpts,omitempty" msgpack:"chgpts"`
}

// Accounts maps target account to line items, remembering the order in
// which accounts were first seen.
type Accounts struct {
	order []string
	items map[string][]LineItem
}

func NewAccounts() *Accounts {
	return &Accounts{items: make(map[string][]LineItem)}
}

// Ensure registers an account without adding an item.
func (a *Accounts) Ensure(target string) {
	if _, ok := a.items[target]; !ok {
		a.order = append(a.order, target)
		a.items[target] = nil
	}
}

// Add appends items under target.
func (a *Accounts) Add(target string, items ...LineItem) {
	a.Ensure(target)
	a.items[target] = append(a.items[target], items...)
}

// Names returns account names in first-seen order.
func (a *Accounts) Names() []string { return append([]string(nil), a.order...) }

func (a *Accounts) Items(target string) []LineItem { return a.items[target] }

// Len counts line items across all accounts.
func (a *Accounts) Len() int {
	n := 0
	for _, items := range a.items {
		n += len(items)
	}
	return n
}

// Prune drops accounts that ended up with no line items.
func (a *Accounts) Prune() {
	kept := a.order[:0]
	for _, name := range a.order {
		if len(a.items[name]) == 0 {
			delete(a.items, name)
			continue
		}
		kept = append(kept, name)
	}
	a.order = kept
}

// Merge appends every item of other, keeping first-seen order.
func (a *Accounts) Merge(other *Accounts) {
	if other == nil {
		return
	}
	for _, name := range other.order {
		a.Add(name, other.items[name]...)
	}
}

// Clone copies the mapping; line items are values and copy with it.
func (a *Accounts) Clone() *Accounts {
	out := NewAccounts()
	out.Merge(a)
	return out
}

// CashflowModel is one realization's financial model.
type CashflowModel interface {
	Name() string
	Freq() Freq
	Accounts() *Accounts

	// NPV discounts the net series at each rate; rates are per freq unit.
	NPV(rates []float64, freq Freq) ([]decimal.Decimal, error)

	// IRR returns the internal rate of return expressed per freq unit.
	IRR(freq Freq) (float64, error)

	// Append merges another model's line items into this one.
	Append(other CashflowModel) error
}

// CashflowBuilder constructs a cashflow model from an account mapping.
type CashflowBuilder func(name string, freq Freq, accounts *Accounts) (CashflowModel, error)

// =============================================================================
// RESULT ROWS
// =============================================================================

// NPVRow is the NPV of one realization at one discount rate. Rate is the
// caller's rate; PeriodRate is the same rate on the model's freq basis.
type NPVRow struct {
	Iteration  int             `json:"iteration" msgpack:"iteration"`
	Rate       float64         `json:"rate" msgpack:"rate"`
	PeriodRate float64         `json:"period_rate" msgpack:"period_rate"`
	NPV        decimal.Decimal `json:"npv" msgpack:"npv"`
}

// IRRRow is the IRR of one realization; IRR is nil when the net series
// never changes sign.
type IRRRow struct {
	Iteration int      `json:"iteration" msgpack:"iteration"`
	IRR       *float64 `json:"irr" msgpack:"irr"`
}
