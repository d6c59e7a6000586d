/*
Package factory converts JSON and YAML schedule definitions into engine
objects.

PURPOSE:
  Schedules are data: analysts describe periods, curves and cashflow
  params in a file, and the factory builds the matching generic.Schedule.
  The same definition can be stored, re-loaded and evaluated again later.

SCHEMA (YAML shown, JSON uses the same field names):
  name: field-a
  evaluate: {rates: [0.1], freq: A}
  scenarios:
    - name: base
      resolution: topological        # or declaration
      cashflow_params: [...]         # optional, replaces period params
      periods:
        - name: primary
          dca: {type: arps, qi: 1000, di: 0.05, b: 0.5}
          start: 0                   # integers are ordinal steps
          end: 120                   # "2025-01-01" strings are dates
          freq_input: M
          freq_output: M
          iter: 100
          cum_limit: 50000
          cashflow_params:
            - {name: oil_sales, target: revenue, multiply: oil, const_value: 70}
            - {name: capex, target: capex, const_value: -5000000}
        - name: infill
          dca: {type: arps, qi: [800, 900], di: 0.06}
          depends: {period: primary, delay: 3}

CURVES:
  dca.type picks a registered curve family; the remaining keys decode into
  that family's fields. Unknown families fail with generic.ErrUnknownModel.

USAGE:
  f := factory.NewScheduleFactory(factory.WithLogger(log))
  schedule, def, err := f.Load(data, generic.FormatYAML)

SEE ALSO:
  - generic/resource.go: curve registry
  - dca/: curve families and their fields
  - cmd/evaluate: loads definition files
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/warp/forecast-engine/generic"

	// Curve families and the default cashflow builder register on import.
	_ "github.com/warp/forecast-engine/cashflow"
	_ "github.com/warp/forecast-engine/dca"
)

// =============================================================================
// DEFINITION TYPES
// =============================================================================

// ScheduleDef is the serialized form of a schedule.
type ScheduleDef struct {
	Name      string                   `json:"name" yaml:"name"`
	Evaluate  *generic.EvaluateOptions `json:"evaluate,omitempty" yaml:"evaluate,omitempty"`
	Scenarios []ScenarioDef            `json:"scenarios" yaml:"scenarios"`
}

// ScenarioDef is one scenario of a definition.
type ScenarioDef struct {
	Name           string      `json:"name" yaml:"name"`
	Resolution     string      `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	CashflowParams []ParamDef  `json:"cashflow_params,omitempty" yaml:"cashflow_params,omitempty"`
	Periods        []PeriodDef `json:"periods" yaml:"periods"`
}

// PeriodDef is one period of a definition.
type PeriodDef struct {
	Name           string              `json:"name" yaml:"name"`
	Curve          CurveDef            `json:"dca" yaml:"dca"`
	Start          generic.TimePoint   `json:"start" yaml:"start"`
	End            generic.TimePoint   `json:"end" yaml:"end"`
	TimeList       []generic.TimePoint `json:"time_list,omitempty" yaml:"time_list,omitempty"`
	FreqInput      string              `json:"freq_input,omitempty" yaml:"freq_input,omitempty"`
	FreqOutput     string              `json:"freq_output,omitempty" yaml:"freq_output,omitempty"`
	RateLimit      *float64            `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	CumLimit       *float64            `json:"cum_limit,omitempty" yaml:"cum_limit,omitempty"`
	Iterations     int                 `json:"iter,omitempty" yaml:"iter,omitempty"`
	PPF            *float64            `json:"ppf,omitempty" yaml:"ppf,omitempty"`
	CashflowParams []ParamDef          `json:"cashflow_params,omitempty" yaml:"cashflow_params,omitempty"`
	Depends        *DependsDef         `json:"depends,omitempty" yaml:"depends,omitempty"`
}

// DependsDef links a period's start to another period's end.
type DependsDef struct {
	Period string `json:"period" yaml:"period"`
	Delay  int    `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// ParamDef is a cashflow param declaration.
type ParamDef struct {
	Name         string               `json:"name" yaml:"name"`
	Target       string               `json:"target" yaml:"target"`
	Multiply     string               `json:"multiply,omitempty" yaml:"multiply,omitempty"`
	ConstValue   *float64             `json:"const_value,omitempty" yaml:"const_value,omitempty"`
	ArrayValues  *generic.DatedValues `json:"array_values,omitempty" yaml:"array_values,omitempty"`
	ChangePoints *generic.DatedValues `json:"chgpts,omitempty" yaml:"chgpts,omitempty"`
	WI           *float64             `json:"wi,omitempty" yaml:"wi,omitempty"`
}

// CurveDef names a curve family and carries its fields untyped until the
// family is known.
type CurveDef struct {
	Type   string
	Params map[string]any
}

func (c *CurveDef) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("dca: %w", err)
	}
	return c.fromMap(raw)
}

func (c *CurveDef) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("dca: %w", err)
	}
	return c.fromMap(raw)
}

func (c *CurveDef) fromMap(raw map[string]any) error {
	typ, _ := raw["type"].(string)
	if typ == "" {
		return fmt.Errorf("%w: dca without type", generic.ErrUnknownModel)
	}
	delete(raw, "type")
	c.Type = typ
	c.Params = raw
	return nil
}

func (c CurveDef) flat() map[string]any {
	out := make(map[string]any, len(c.Params)+1)
	for k, v := range c.Params {
		out[k] = v
	}
	out["type"] = c.Type
	return out
}

func (c CurveDef) MarshalJSON() ([]byte, error) { return json.Marshal(c.flat()) }

func (c CurveDef) MarshalYAML() (any, error) { return c.flat(), nil }

// Model builds the curve family and decodes the params into it.
func (c CurveDef) Model() (generic.CurveModel, error) {
	model, err := generic.NewCurveModel(c.Type)
	if err != nil {
		return nil, err
	}
	// YAML maps are re-encoded as JSON so both formats share the
	// families' JSON decoders.
	b, err := json.Marshal(c.Params)
	if err != nil {
		return nil, fmt.Errorf("dca %s: %w", c.Type, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(model); err != nil {
		return nil, fmt.Errorf("dca %s: %w", c.Type, err)
	}
	return model, nil
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

// Option configures a ScheduleFactory.
type Option func(*ScheduleFactory)

// WithLogger sets the logger handed to every period and scenario built.
func WithLogger(log zerolog.Logger) Option {
	return func(f *ScheduleFactory) { f.log = log }
}

// WithCashflowBuilder overrides the registered cashflow builder.
func WithCashflowBuilder(b generic.CashflowBuilder) Option {
	return func(f *ScheduleFactory) { f.builder = b }
}

// ScheduleFactory converts definitions to schedules.
type ScheduleFactory struct {
	log     zerolog.Logger
	builder generic.CashflowBuilder
}

// NewScheduleFactory creates a new schedule factory.
func NewScheduleFactory(opts ...Option) *ScheduleFactory {
	f := &ScheduleFactory{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DetectFormat picks the definition format from a file name. Anything that
// is not .json is treated as YAML.
func DetectFormat(filename string) generic.DefinitionFormat {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return generic.FormatJSON
	}
	return generic.FormatYAML
}

// Parse decodes a definition without building it.
func (f *ScheduleFactory) Parse(data []byte, format generic.DefinitionFormat) (*ScheduleDef, error) {
	var def ScheduleDef
	switch format {
	case generic.FormatJSON:
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse schedule JSON: %w", err)
		}
	case generic.FormatYAML, "":
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse schedule YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown definition format %q", format)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("%w: schedule without name", generic.ErrInvalidPeriod)
	}
	return &def, nil
}

// Marshal encodes a definition in the given format.
func (f *ScheduleFactory) Marshal(def *ScheduleDef, format generic.DefinitionFormat) ([]byte, error) {
	if format == generic.FormatJSON {
		return json.MarshalIndent(def, "", "  ")
	}
	return yaml.Marshal(def)
}

// Load parses and builds in one step.
func (f *ScheduleFactory) Load(data []byte, format generic.DefinitionFormat) (*generic.Schedule, *ScheduleDef, error) {
	def, err := f.Parse(data, format)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := f.Build(def)
	if err != nil {
		return nil, nil, err
	}
	return schedule, def, nil
}

// Build creates fresh engine objects from def. Each call returns new
// periods, so a definition can be evaluated repeatedly.
func (f *ScheduleFactory) Build(def *ScheduleDef) (*generic.Schedule, error) {
	scenarios := make([]*generic.Scenario, 0, len(def.Scenarios))
	for _, sd := range def.Scenarios {
		sc, err := f.buildScenario(sd)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sd.Name, err)
		}
		scenarios = append(scenarios, sc)
	}

	schedule, err := generic.NewSchedule(def.Name, scenarios)
	if err != nil {
		return nil, err
	}
	f.log.Debug().
		Str("schedule", def.Name).
		Int("scenarios", len(scenarios)).
		Msg("schedule built")
	return schedule, nil
}

func (f *ScheduleFactory) buildScenario(sd ScenarioDef) (*generic.Scenario, error) {
	resolution, err := generic.ParseResolution(sd.Resolution)
	if err != nil {
		return nil, err
	}

	periods := make([]*generic.Period, 0, len(sd.Periods))
	for _, pd := range sd.Periods {
		p, err := f.buildPeriod(pd)
		if err != nil {
			return nil, fmt.Errorf("period %q: %w", pd.Name, err)
		}
		periods = append(periods, p)
	}

	opts := append(f.engineOptions(), generic.WithResolution(resolution))
	if len(sd.CashflowParams) > 0 {
		opts = append(opts, generic.WithScenarioParams(toParams(sd.CashflowParams)...))
	}
	return generic.NewScenario(sd.Name, periods, opts...)
}

func (f *ScheduleFactory) buildPeriod(pd PeriodDef) (*generic.Period, error) {
	model, err := pd.Curve.Model()
	if err != nil {
		return nil, err
	}

	cfg := generic.PeriodConfig{
		Name:           pd.Name,
		Model:          model,
		Start:          pd.Start,
		End:            pd.End,
		TimeList:       pd.TimeList,
		RateLimit:      pd.RateLimit,
		CumLimit:       pd.CumLimit,
		Iterations:     pd.Iterations,
		PPF:            pd.PPF,
		CashflowParams: toParams(pd.CashflowParams),
	}
	if cfg.FreqInput, err = parseFreq(pd.FreqInput); err != nil {
		return nil, err
	}
	if cfg.FreqOutput, err = parseFreq(pd.FreqOutput); err != nil {
		return nil, err
	}
	if pd.Depends != nil {
		cfg.Depends = &generic.Depends{Period: pd.Depends.Period, Delay: pd.Depends.Delay}
	}
	return generic.NewPeriod(cfg, f.engineOptions()...)
}

func (f *ScheduleFactory) engineOptions() []generic.Option {
	opts := []generic.Option{generic.WithLogger(f.log)}
	if f.builder != nil {
		opts = append(opts, generic.WithCashflowBuilder(f.builder))
	}
	return opts
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseFreq(s string) (generic.Freq, error) {
	if s == "" {
		return "", nil
	}
	return generic.ParseFreq(s)
}

func toParams(defs []ParamDef) []generic.CashflowParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]generic.CashflowParam, len(defs))
	for i, d := range defs {
		out[i] = generic.CashflowParam{
			Name:         d.Name,
			Target:       d.Target,
			Multiply:     d.Multiply,
			ConstValue:   d.ConstValue,
			ArrayValues:  d.ArrayValues,
			ChangePoints: d.ChangePoints,
			WI:           d.WI,
		}
	}
	return out
}
