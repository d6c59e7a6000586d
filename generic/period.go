package generic

import (
	"fmt"

	"github.com/rs/zerolog"
)

// =============================================================================
// PERIOD - One forecast definition over one time window
// =============================================================================

// Depends seeds a period's curve start from another period's end times.
// Delay is in ordinal steps for ordinal periods and in days for calendar ones.
type Depends struct {
	Period string
	Delay  int
}

// PeriodConfig is the declarative definition of a Period.
type PeriodConfig struct {
	Name           string
	Model          CurveModel
	Start          TimePoint
	End            TimePoint
	TimeList       []TimePoint
	FreqInput      Freq
	FreqOutput     Freq
	RateLimit      *float64
	CumLimit       *float64
	Iterations     int
	PPF            *float64
	CashflowParams []CashflowParam
	Depends        *Depends
}

// Period owns a forecast definition and, once generated, its forecast and
// per-realization cashflow models.
//
// Lifecycle: Unforecasted -> Forecasted (GenerateForecast) -> Cashflowed
// (GenerateCashflow). Re-running a stage overwrites its state.
type Period struct {
	PeriodConfig

	forecast *Forecast
	cashflow []CashflowModel

	builder  CashflowBuilder
	log      zerolog.Logger
	warnings warnings
}

// Option configures a Period or Scenario.
type Option func(*options)

type options struct {
	log        zerolog.Logger
	builder    CashflowBuilder
	resolution Resolution
	params     []CashflowParam
}

func defaultOptions() options {
	return options{log: zerolog.Nop(), resolution: ResolveTopological}
}

// WithLogger routes warnings and progress to log.
func WithLogger(log zerolog.Logger) Option { return func(o *options) { o.log = log } }

// WithCashflowBuilder overrides the registered cashflow builder.
func WithCashflowBuilder(b CashflowBuilder) Option { return func(o *options) { o.builder = b } }

// NewPeriod validates cfg and applies defaults (monthly frequencies, one iteration).
func NewPeriod(cfg PeriodConfig, opts ...Option) (*Period, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPeriod)
	}
	if cfg.Model == nil {
		return nil, fmt.Errorf("%w: period %q has no curve model", ErrInvalidPeriod, cfg.Name)
	}
	if cfg.Start.Kind != cfg.End.Kind {
		return nil, &TimeKindError{Period: cfg.Name, Start: cfg.Start.Kind, End: cfg.End.Kind}
	}
	if len(cfg.TimeList) > 0 && !SameKind(append([]TimePoint{cfg.Start}, cfg.TimeList...)...) {
		return nil, &TimeKindError{Period: cfg.Name, Start: cfg.Start.Kind, End: cfg.TimeList[0].Kind}
	}

	cfg.FreqInput = cfg.FreqInput.OrDefault(FreqMonthly)
	cfg.FreqOutput = cfg.FreqOutput.OrDefault(FreqMonthly)
	for _, f := range []Freq{cfg.FreqInput, cfg.FreqOutput} {
		if !f.Valid() {
			return nil, fmt.Errorf("period %q: %w: %q", cfg.Name, ErrInvalidFreq, f)
		}
	}

	if cfg.RateLimit != nil && *cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: period %q rate_limit must be >= 0", ErrInvalidPeriod, cfg.Name)
	}
	if cfg.CumLimit != nil && *cfg.CumLimit < 0 {
		return nil, fmt.Errorf("%w: period %q cum_limit must be >= 0", ErrInvalidPeriod, cfg.Name)
	}
	if cfg.PPF != nil && (*cfg.PPF < 0 || *cfg.PPF > 1) {
		return nil, fmt.Errorf("%w: period %q ppf must be in [0,1]", ErrInvalidPeriod, cfg.Name)
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = 1
	}
	if cfg.Iterations < 0 {
		return nil, fmt.Errorf("%w: period %q iter must be >= 1", ErrInvalidPeriod, cfg.Name)
	}
	for _, p := range cfg.CashflowParams {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("period %q: %w", cfg.Name, err)
		}
	}

	log := o.log.With().Str("component", "period").Str("period", cfg.Name).Logger()
	return &Period{
		PeriodConfig: cfg,
		builder:      o.builder,
		log:          log,
		warnings:     warnings{log: log},
	}, nil
}

// IsCalendar reports whether the period runs on calendar time.
func (p *Period) IsCalendar() bool { return p.Start.IsCalendar() }

// Forecast returns the generated forecast, or nil.
func (p *Period) Forecast() *Forecast { return p.forecast }

// Cashflow returns the per-realization cashflow models, or nil.
func (p *Period) Cashflow() []CashflowModel { return p.cashflow }

// Warnings returns non-fatal conditions raised by the last cashflow/IRR run.
func (p *Period) Warnings() []Warning { return p.warnings.all() }

// =============================================================================
// FORECAST
// =============================================================================

// GenerateForecast samples the curve model over the period window. An empty
// freqOutput uses the period's FreqOutput.
func (p *Period) GenerateForecast(freqOutput Freq) (*Forecast, error) {
	freq := freqOutput.OrDefault(p.FreqOutput)

	f, err := p.Model.Forecast(ForecastRequest{
		Start:      p.Start,
		End:        p.End,
		TimeList:   p.TimeList,
		FreqInput:  p.FreqInput,
		FreqOutput: freq,
		RateLimit:  p.RateLimit,
		CumLimit:   p.CumLimit,
		Iterations: p.Iterations,
		PPF:        p.PPF,
	})
	if err != nil {
		return nil, fmt.Errorf("period %q forecast: %w", p.Name, err)
	}

	f.Stamp(p.Name, "")
	if p.IsCalendar() {
		f.Normalize(freq)
	}

	p.forecast = f
	p.log.Debug().Int("rows", f.Len()).Msg("forecast generated")
	return f, nil
}

// EndDates returns the latest time of each realization, in iteration order.
func (p *Period) EndDates() ([]TimePoint, error) {
	if p.forecast == nil {
		return nil, fmt.Errorf("period %q: %w", p.Name, ErrNoForecast)
	}
	return p.forecast.MaxTimeByIteration(), nil
}

// =============================================================================
// CASHFLOW
// =============================================================================

// GenerateCashflow builds one cashflow model per realization named
// "<period>_<iteration>". An empty freqOutput uses the period's FreqOutput.
func (p *Period) GenerateCashflow(freqOutput Freq) ([]CashflowModel, error) {
	return p.generateCashflow(p.CashflowParams, freqOutput)
}

// generateCashflow applies params, which may come from the owning scenario
// instead of the period itself.
func (p *Period) generateCashflow(params []CashflowParam, freqOutput Freq) ([]CashflowModel, error) {
	if p.forecast == nil {
		return nil, fmt.Errorf("period %q: %w", p.Name, ErrNoForecast)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("period %q: %w", p.Name, ErrNoCashflowParams)
	}
	builder := p.builder
	if builder == nil {
		builder = DefaultCashflowBuilder()
	}
	if builder == nil {
		return nil, fmt.Errorf("period %q: no cashflow builder registered", p.Name)
	}
	freq := freqOutput.OrDefault(p.FreqOutput)

	p.warnings.reset()
	var models []CashflowModel
	for _, it := range p.forecast.Iterations() {
		rows := p.forecast.ForIteration(it)
		accounts := applyParams(p.Name, params, rows, p.forecast, freq, &p.warnings)

		m, err := builder(fmt.Sprintf("%s_%d", p.Name, it), freq, accounts)
		if err != nil {
			return nil, fmt.Errorf("period %q iteration %d: %w", p.Name, it, err)
		}
		models = append(models, m)
	}

	p.cashflow = models
	p.log.Debug().Int("models", len(models)).Msg("cashflow generated")
	return models, nil
}

// =============================================================================
// NPV / IRR
// =============================================================================

// NPV converts rates from freq to the cashflow's own freq basis and
// discounts every realization. Rows are ordered by realization, then rate.
// An empty freq means the rates are already on that basis.
func (p *Period) NPV(rates []float64, freq Freq) ([]NPVRow, error) {
	if p.cashflow == nil {
		return nil, fmt.Errorf("period %q: %w", p.Name, ErrNoCashflow)
	}
	return npvRows(p.cashflow, rates, freq)
}

// IRR computes the IRR of every realization expressed per freq unit.
func (p *Period) IRR(freq Freq) ([]IRRRow, error) {
	if p.cashflow == nil {
		return nil, fmt.Errorf("period %q: %w", p.Name, ErrNoCashflow)
	}
	return irrRows(p.cashflow, freq.OrDefault(p.FreqOutput), p.Name, &p.warnings), nil
}

func npvRows(models []CashflowModel, rates []float64, from Freq) ([]NPVRow, error) {
	var rows []NPVRow
	for i, m := range models {
		basis := m.Freq()
		converted := ConvertRates(rates, from.OrDefault(basis), basis)
		values, err := m.NPV(converted, basis)
		if err != nil {
			return nil, fmt.Errorf("npv %s: %w", m.Name(), err)
		}
		for j, v := range values {
			rows = append(rows, NPVRow{
				Iteration:  i,
				Rate:       rates[j],
				PeriodRate: converted[j],
				NPV:        v,
			})
		}
	}
	return rows, nil
}

func irrRows(models []CashflowModel, freq Freq, owner string, ws *warnings) []IRRRow {
	rows := make([]IRRRow, len(models))
	for i, m := range models {
		rows[i] = IRRRow{Iteration: i}
		v, err := m.IRR(freq)
		if err != nil {
			ws.add(Warning{
				Code:    WarnIRRNotFound,
				Period:  owner,
				Message: fmt.Sprintf("%s: %v", m.Name(), err),
			})
			continue
		}
		rows[i].IRR = &v
	}
	return rows
}
