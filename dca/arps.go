/*
arps.go - Arps decline curves

PURPOSE:
  Implements generic.CurveModel for the three Arps families. With nominal
  decline di (per FreqInput unit), initial rate qi and exponent b:

    b = 0      exponential  q = qi * exp(-di*t)          Np = (qi - q) / di
    b = 1      harmonic     q = qi / (1 + di*t)          Np = qi/di * ln(1 + di*t)
    0 < b      hyperbolic   q = qi / (1 + b*di*t)^(1/b)  Np = qi^b/((1-b)*di) * (qi^(1-b) - q^(1-b))

  t is measured in FreqInput units since the curve start Ti. Rates are
  volumes per FreqInput unit, so Np is a volume.

OUTPUT COLUMNS:
  <fluid>_rate  rate at the sample time
  <fluid>_cum   cumulative volume since Ti
  <fluid>       volume produced in the step (first step: volume since Ti)

REALIZATIONS:
  n = Iterations (1 when PPF is set), raised to the number of curve starts
  and to the length of any constant parameter list. Realization i starts at
  Ti[i % len(Ti)].

SEE ALSO:
  - probvar.go: parameter sampling
  - wor.go: water-oil-ratio curves
*/
package dca

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/warp/forecast-engine/generic"
)

func init() {
	generic.RegisterCurveModel("arps", func() generic.CurveModel { return &Arps{} })
}

// Arps is a decline curve. Ti may hold several starts, one per realization.
type Arps struct {
	Qi    ProbVar             `json:"qi" yaml:"qi"`
	Di    ProbVar             `json:"di" yaml:"di"`
	B     ProbVar             `json:"b" yaml:"b"`
	Ti    []generic.TimePoint `json:"ti,omitempty" yaml:"ti,omitempty"`
	Fluid string              `json:"fluid,omitempty" yaml:"fluid,omitempty"`
	Seed  uint64              `json:"seed,omitempty" yaml:"seed,omitempty"`
}

func (a *Arps) SetStart(starts []generic.TimePoint) {
	a.Ti = append([]generic.TimePoint(nil), starts...)
}

func (a *Arps) Start() []generic.TimePoint { return a.Ti }

func (a *Arps) fluid() string {
	if a.Fluid == "" {
		return "oil"
	}
	return a.Fluid
}

// Rate evaluates the curve for a single parameter set.
func Rate(qi, di, b, t float64) float64 {
	switch {
	case di == 0:
		return qi
	case b == 0:
		return qi * math.Exp(-di*t)
	case b == 1:
		return qi / (1 + di*t)
	default:
		return qi / math.Pow(1+b*di*t, 1/b)
	}
}

// Cumulative is the volume produced between 0 and t.
func Cumulative(qi, di, b, t float64) float64 {
	switch {
	case di == 0:
		return qi * t
	case b == 0:
		return (qi - Rate(qi, di, b, t)) / di
	case b == 1:
		return qi / di * math.Log(1+di*t)
	default:
		q := Rate(qi, di, b, t)
		return math.Pow(qi, b) / ((1 - b) * di) * (math.Pow(qi, 1-b) - math.Pow(q, 1-b))
	}
}

// Forecast implements generic.CurveModel.
func (a *Arps) Forecast(req generic.ForecastRequest) (*generic.Forecast, error) {
	if a.B.IsZero() {
		a.B = Const(0)
	}
	starts := curveStarts(a.Ti, req.Start)
	n := realizations(req, len(starts), a.Qi.Len(), a.Di.Len(), a.B.Len())

	src := rand.NewPCG(a.Seed, a.Seed^0x9e3779b97f4a7c15)
	qi, err := a.Qi.Sample(n, req.PPF, src)
	if err != nil {
		return nil, fmt.Errorf("arps qi: %w", err)
	}
	di, err := a.Di.Sample(n, req.PPF, src)
	if err != nil {
		return nil, fmt.Errorf("arps di: %w", err)
	}
	b, err := a.B.Sample(n, req.PPF, src)
	if err != nil {
		return nil, fmt.Errorf("arps b: %w", err)
	}
	for i := 0; i < n; i++ {
		if b[i] < 0 || di[i] < 0 {
			return nil, fmt.Errorf("arps realization %d: b and di must be >= 0", i)
		}
	}

	fluid := a.fluid()
	rateCol, cumCol := fluid+"_rate", fluid+"_cum"

	out := &generic.Forecast{}
	for i := 0; i < n; i++ {
		ti := starts[i%len(starts)]
		times, err := sampleTimes(req, ti)
		if err != nil {
			return nil, err
		}

		var prevCum float64
		for _, t := range times {
			elapsed := math.Max(t.Elapsed(ti, req.FreqInput), 0)
			rate := Rate(qi[i], di[i], b[i], elapsed)
			cum := Cumulative(qi[i], di[i], b[i], elapsed)
			if req.RateLimit != nil && rate < *req.RateLimit {
				break
			}
			if req.CumLimit != nil && cum > *req.CumLimit {
				break
			}
			out.Rows = append(out.Rows, generic.ForecastRow{
				Time:      t,
				Iteration: i,
				Values: map[string]float64{
					rateCol: rate,
					cumCol:  cum,
					fluid:   cum - prevCum,
				},
			})
			prevCum = cum
		}
	}
	return out, nil
}

// =============================================================================
// SAMPLING HELPERS (shared with wor.go)
// =============================================================================

func curveStarts(ti []generic.TimePoint, fallback generic.TimePoint) []generic.TimePoint {
	if len(ti) == 0 {
		return []generic.TimePoint{fallback}
	}
	return ti
}

func realizations(req generic.ForecastRequest, lens ...int) int {
	n := req.Iterations
	if req.PPF != nil || n < 1 {
		n = 1
	}
	for _, l := range lens {
		if l > n {
			n = l
		}
	}
	return n
}

// sampleTimes lists the sample times of one realization: TimeList when set,
// otherwise max(Start, ti) to End stepping FreqOutput. Times before ti are
// dropped.
func sampleTimes(req generic.ForecastRequest, ti generic.TimePoint) ([]generic.TimePoint, error) {
	if ti.Kind != req.Start.Kind {
		return nil, fmt.Errorf("%w: curve start %s vs period start %s",
			generic.ErrTimeKindMismatch, ti, req.Start)
	}

	if len(req.TimeList) > 0 {
		var out []generic.TimePoint
		for _, t := range req.TimeList {
			if !t.Before(ti) {
				out = append(out, t)
			}
		}
		return out, nil
	}

	from := req.Start
	if ti.After(from) {
		from = ti
	}
	freq := req.FreqOutput.OrDefault(generic.FreqMonthly)
	if from.IsCalendar() {
		from = from.Truncate(freq)
	}
	return generic.Range(from, req.End, freq), nil
}
