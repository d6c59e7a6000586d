/*
scenario.go - Dependency-aware orchestration of a group of periods

PURPOSE:
  A Scenario is one alternative case: an ordered set of periods that share
  an output frequency. It resolves inter-period dependencies, aggregates
  forecasts, and folds per-period cashflow models into one model per
  realization.

DEPENDENCY RESOLUTION:
  ResolveTopological (default) orders the selected periods so every
  predecessor is forecast before its dependents (gonum graph/topo, ties
  broken by declaration index). A cycle, including a period depending on
  itself, is a configuration error.

  ResolveDeclarationOrder walks the periods as declared. A dependent period
  declared before its predecessor fails unless the predecessor already has
  a forecast from an earlier call.

  In both modes a dependent period's curve start(s) become the predecessor's
  end date(s) shifted by Depends.Delay.

CASHFLOW AGGREGATION:
  n = Iterations() accumulators are created. Each period's models merge into
  the accumulator with the same index; a single-model period is broadcast
  to all n. A period that fails or disagrees on realization count is
  recorded in Failed() and left out of the aggregate.

SEE ALSO:
  - period.go: per-period forecast and cashflow
  - schedule.go: container of scenarios
*/
package generic

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Resolution selects how dependent periods are ordered.
type Resolution string

const (
	ResolveTopological      Resolution = "topological"
	ResolveDeclarationOrder Resolution = "declaration"
)

// ParseResolution accepts "topological", "declaration", or empty (topological).
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(strings.ToLower(strings.TrimSpace(s))) {
	case "", ResolveTopological:
		return ResolveTopological, nil
	case ResolveDeclarationOrder, "declaration_order":
		return ResolveDeclarationOrder, nil
	}
	return "", fmt.Errorf("%w: unknown resolution %q", ErrInvalidPeriod, s)
}

// WithResolution sets how a scenario orders dependent periods.
func WithResolution(r Resolution) Option { return func(o *options) { o.resolution = r } }

// WithScenarioParams sets cashflow params that replace every member
// period's own params during scenario cashflow generation.
func WithScenarioParams(params ...CashflowParam) Option {
	return func(o *options) { o.params = params }
}

// ForecastOptions restricts and configures Scenario.GenerateForecast.
type ForecastOptions struct {
	Periods    []string // empty means all; unknown names are ignored
	FreqOutput Freq     // empty means the scenario's FreqOutput
}

// CashflowOptions restricts and configures Scenario.GenerateCashflow.
type CashflowOptions struct {
	Periods    []string
	FreqOutput Freq
}

type Scenario struct {
	Name           string
	Periods        []*Period
	CashflowParams []CashflowParam
	Resolution     Resolution

	freqOutput Freq
	forecast   *Forecast
	cashflow   []CashflowModel
	failed     []string

	builder  CashflowBuilder
	log      zerolog.Logger
	warnings warnings
}

// NewScenario checks that period names are unique and that every period
// shares one output frequency.
func NewScenario(name string, periods []*Period, opts ...Option) (*Scenario, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: scenario name is required", ErrInvalidPeriod)
	}
	if o.resolution == "" {
		o.resolution = ResolveTopological
	}

	seen := make(map[string]bool, len(periods))
	freq := FreqMonthly
	for i, p := range periods {
		if seen[p.Name] {
			return nil, fmt.Errorf("scenario %q: %w: %q", name, ErrDuplicatePeriod, p.Name)
		}
		seen[p.Name] = true

		if i == 0 {
			freq = p.FreqOutput
			continue
		}
		if p.FreqOutput != freq {
			return nil, &FreqMismatchError{Scenario: name, Period: p.Name, Want: freq, Got: p.FreqOutput}
		}
	}
	for _, param := range o.params {
		if err := param.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", name, err)
		}
	}

	log := o.log.With().Str("component", "scenario").Str("scenario", name).Logger()
	return &Scenario{
		Name:           name,
		Periods:        periods,
		CashflowParams: o.params,
		Resolution:     o.resolution,
		freqOutput:     freq,
		builder:        o.builder,
		log:            log,
		warnings:       warnings{log: log},
	}, nil
}

// FreqOutput is the common output frequency of the member periods.
func (s *Scenario) FreqOutput() Freq { return s.freqOutput }

// Forecast returns the aggregated forecast, or nil.
func (s *Scenario) Forecast() *Forecast { return s.forecast }

// Cashflow returns the aggregated per-realization models, or nil.
func (s *Scenario) Cashflow() []CashflowModel { return s.cashflow }

// Failed lists the periods left out of the last cashflow aggregation.
func (s *Scenario) Failed() []string { return append([]string(nil), s.failed...) }

// Warnings returns the scenario's own warnings followed by its periods'.
func (s *Scenario) Warnings() []Warning {
	out := s.warnings.all()
	for _, p := range s.Periods {
		out = append(out, p.Warnings()...)
	}
	return out
}

// Period looks up a member period by name.
func (s *Scenario) Period(name string) (*Period, bool) {
	for _, p := range s.Periods {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// selected returns the member periods named in filter, in declaration order.
func (s *Scenario) selected(filter []string) []*Period {
	if len(filter) == 0 {
		return s.Periods
	}
	want := make(map[string]bool, len(filter))
	for _, name := range filter {
		want[name] = true
	}
	var out []*Period
	for _, p := range s.Periods {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// FORECAST
// =============================================================================

// GenerateForecast forecasts the selected periods in dependency order and
// stores the concatenated, scenario-stamped table.
func (s *Scenario) GenerateForecast(opts ForecastOptions) (*Forecast, error) {
	freq := opts.FreqOutput.OrDefault(s.freqOutput)

	index := make(map[string]*Period, len(s.Periods))
	for _, p := range s.Periods {
		index[p.Name] = p
	}

	selected := s.selected(opts.Periods)
	for _, p := range selected {
		if p.Depends == nil {
			continue
		}
		if _, ok := index[p.Depends.Period]; !ok {
			return nil, &DependencyError{Period: p.Name, DependsOn: p.Depends.Period, Err: ErrUnknownDependency}
		}
	}

	order := selected
	if s.Resolution != ResolveDeclarationOrder {
		var err error
		if order, err = topoSort(selected); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	tables := make([]*Forecast, 0, len(order))
	for _, p := range order {
		if p.Depends != nil {
			if err := seedStart(p, index[p.Depends.Period]); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
			}
		}
		f, err := p.GenerateForecast(freq)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		tables = append(tables, f)
	}

	combined := Concat(tables...)
	combined.Stamp("", s.Name)
	combined.Normalize(freq)
	s.forecast = combined

	s.log.Info().Int("periods", len(order)).Int("rows", combined.Len()).Msg("scenario forecast generated")
	return combined, nil
}

// seedStart moves p's curve start to pred's end dates plus the delay.
func seedStart(p, pred *Period) error {
	ends, err := pred.EndDates()
	if err != nil {
		return &DependencyError{Period: p.Name, DependsOn: pred.Name, Err: err}
	}
	if len(ends) == 0 {
		return &DependencyError{
			Period:    p.Name,
			DependsOn: pred.Name,
			Err:       fmt.Errorf("%w: predecessor forecast has no rows", ErrNoForecast),
		}
	}
	starts := make([]TimePoint, len(ends))
	for i, t := range ends {
		starts[i] = t.Shift(p.Depends.Delay)
	}
	p.Model.SetStart(starts)
	return nil
}

// topoSort orders periods so predecessors come first. Ties between
// periods that are free to go in either order keep declaration order.
// Edges to periods outside the slice are ignored: those predecessors must
// already hold a forecast.
func topoSort(periods []*Period) ([]*Period, error) {
	pos := make(map[string]int64, len(periods))
	g := simple.NewDirectedGraph()
	for i, p := range periods {
		pos[p.Name] = int64(i)
		g.AddNode(simple.Node(i))
	}
	for i, p := range periods {
		if p.Depends == nil {
			continue
		}
		j, ok := pos[p.Depends.Period]
		if !ok {
			continue
		}
		if j == int64(i) {
			return nil, &DependencyError{
				Period:    p.Name,
				DependsOn: p.Name,
				Err:       fmt.Errorf("%w: %s", ErrDependencyCycle, p.Name),
			}
		}
		g.SetEdge(g.NewEdge(simple.Node(j), simple.Node(i)))
	}

	sorted, err := topo.SortStabilized(g, byDeclaration)
	if err != nil {
		var cycles topo.Unorderable
		if !errors.As(err, &cycles) || len(cycles) == 0 {
			return nil, err
		}
		var stuck []string
		for _, n := range cycles[0] {
			stuck = append(stuck, periods[n.ID()].Name)
		}
		first := periods[cycles[0][0].ID()]
		return nil, &DependencyError{
			Period:    first.Name,
			DependsOn: first.Depends.Period,
			Err:       fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", ")),
		}
	}

	out := make([]*Period, len(sorted))
	for i, n := range sorted {
		out[i] = periods[n.ID()]
	}
	return out, nil
}

// byDeclaration orders graph nodes by ID, which is the declaration index.
func byDeclaration(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// Iterations returns 1 + the highest realization index across the
// (optionally filtered) member forecasts.
func (s *Scenario) Iterations(periods ...string) (int, error) {
	maxIter, forecast := -1, false
	for _, p := range s.selected(periods) {
		if p.forecast == nil {
			continue
		}
		forecast = true
		for _, it := range p.forecast.Iterations() {
			if it > maxIter {
				maxIter = it
			}
		}
	}
	if !forecast {
		return 0, fmt.Errorf("scenario %q: %w", s.Name, ErrNoForecast)
	}
	return maxIter + 1, nil
}

// =============================================================================
// CASHFLOW
// =============================================================================

// GenerateCashflow builds per-period cashflows and folds them into one
// model per realization. Period failures are tolerated and reported
// through Failed() and Warnings().
func (s *Scenario) GenerateCashflow(opts CashflowOptions) ([]CashflowModel, error) {
	n, err := s.Iterations(opts.Periods...)
	if err != nil {
		return nil, err
	}
	freq := opts.FreqOutput.OrDefault(s.freqOutput)

	builder := s.builder
	if builder == nil {
		builder = DefaultCashflowBuilder()
	}
	if builder == nil {
		return nil, fmt.Errorf("scenario %q: no cashflow builder registered", s.Name)
	}

	acc := make([]CashflowModel, n)
	for i := range acc {
		if acc[i], err = builder(s.Name, freq, NewAccounts()); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	s.warnings.reset()
	s.failed = nil
	for _, p := range s.selected(opts.Periods) {
		params := p.CashflowParams
		if len(s.CashflowParams) > 0 {
			params = s.CashflowParams
		}

		models, err := p.generateCashflow(params, freq)
		if err != nil {
			s.fail(p.Name, WarnCashflowFailed, err.Error())
			continue
		}

		switch {
		case len(models) == 1 && n > 1:
			for i := range acc {
				if err := acc[i].Append(models[0]); err != nil {
					return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
				}
			}
		case len(models) == n:
			for i := range acc {
				if err := acc[i].Append(models[i]); err != nil {
					return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
				}
			}
		default:
			s.fail(p.Name, WarnRealizationMismatch,
				fmt.Sprintf("period has %d realizations, scenario expects %d", len(models), n))
		}
	}

	s.cashflow = acc
	s.log.Info().Int("realizations", n).Int("failed", len(s.failed)).Msg("scenario cashflow generated")
	return acc, nil
}

func (s *Scenario) fail(period string, code WarningCode, msg string) {
	s.failed = append(s.failed, period)
	s.warnings.add(Warning{Code: code, Period: period, Message: msg})
}

// =============================================================================
// NPV / IRR
// =============================================================================

// NPV has the same contract as Period.NPV over the aggregated cashflow.
func (s *Scenario) NPV(rates []float64, freq Freq) ([]NPVRow, error) {
	if s.cashflow == nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, ErrNoCashflow)
	}
	return npvRows(s.cashflow, rates, freq)
}

// IRR has the same contract as Period.IRR over the aggregated cashflow.
func (s *Scenario) IRR(freq Freq) ([]IRRRow, error) {
	if s.cashflow == nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, ErrNoCashflow)
	}
	return irrRows(s.cashflow, freq.OrDefault(s.freqOutput), s.Name, &s.warnings), nil
}
