package dca

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/warp/forecast-engine/generic"
)

func init() {
	generic.RegisterCurveModel("wor", func() generic.CurveModel { return &Wor{} })
}

// Wor forecasts oil and water from a constant fluid rate whose water-oil
// ratio grows log-linearly with cumulative oil:
//
//	wor(Np) = wor_i * exp(slope * Np),  wor_i = bsw / (1 - bsw)
//	oil     = fluid / (1 + wor)
//
// The series is integrated step by step: each step's ratio uses the
// cumulative oil at the start of the step.
type Wor struct {
	Bsw       ProbVar             `json:"bsw" yaml:"bsw"`
	Slope     ProbVar             `json:"slope" yaml:"slope"`
	FluidRate ProbVar             `json:"fluid_rate" yaml:"fluid_rate"`
	Ti        []generic.TimePoint `json:"ti,omitempty" yaml:"ti,omitempty"`
	Seed      uint64              `json:"seed,omitempty" yaml:"seed,omitempty"`
}

func (w *Wor) SetStart(starts []generic.TimePoint) {
	w.Ti = append([]generic.TimePoint(nil), starts...)
}

func (w *Wor) Start() []generic.TimePoint { return w.Ti }

func (w *Wor) Forecast(req generic.ForecastRequest) (*generic.Forecast, error) {
	starts := curveStarts(w.Ti, req.Start)
	n := realizations(req, len(starts), w.Bsw.Len(), w.Slope.Len(), w.FluidRate.Len())

	src := rand.NewPCG(w.Seed, w.Seed^0x9e3779b97f4a7c15)
	bsw, err := w.Bsw.Sample(n, req.PPF, src)
	if err != nil {
		return nil, fmt.Errorf("wor bsw: %w", err)
	}
	slope, err := w.Slope.Sample(n, req.PPF, src)
	if err != nil {
		return nil, fmt.Errorf("wor slope: %w", err)
	}
	fluid, err := w.FluidRate.Sample(n, req.PPF, src)
	if err != nil {
		return nil, fmt.Errorf("wor fluid_rate: %w", err)
	}

	out := &generic.Forecast{}
	for i := 0; i < n; i++ {
		if bsw[i] < 0 || bsw[i] >= 1 {
			return nil, fmt.Errorf("wor realization %d: bsw must be in [0,1), got %v", i, bsw[i])
		}
		worI := bsw[i] / (1 - bsw[i])

		ti := starts[i%len(starts)]
		times, err := sampleTimes(req, ti)
		if err != nil {
			return nil, err
		}

		var oilCum, waterCum, prev float64
		for _, t := range times {
			elapsed := math.Max(t.Elapsed(ti, req.FreqInput), 0)
			dt := elapsed - prev
			prev = elapsed

			wor := worI * math.Exp(slope[i]*oilCum)
			oilRate := fluid[i] / (1 + wor)
			waterRate := fluid[i] - oilRate
			oil, water := oilRate*dt, waterRate*dt

			if req.RateLimit != nil && oilRate < *req.RateLimit {
				break
			}
			if req.CumLimit != nil && oilCum+oil > *req.CumLimit {
				break
			}
			oilCum += oil
			waterCum += water

			out.Rows = append(out.Rows, generic.ForecastRow{
				Time:      t,
				Iteration: i,
				Values: map[string]float64{
					"oil_rate":   oilRate,
					"oil_cum":    oilCum,
					"oil":        oil,
					"water_rate": waterRate,
					"water_cum":  waterCum,
					"water":      water,
					"bsw":        wor / (1 + wor),
					"wor":        wor,
				},
			})
		}
	}
	return out, nil
}
