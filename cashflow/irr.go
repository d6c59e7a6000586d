package cashflow

import (
	"errors"
	"fmt"
	"math"

	"github.com/warp/forecast-engine/generic"
)

// ErrNoSignChange is returned by IRR when the net series is all inflow or
// all outflow: no discount rate zeroes it.
var ErrNoSignChange = errors.New("net cashflow never changes sign")

// ErrIRRNotConverged is returned when neither Newton nor bisection finds a root.
var ErrIRRNotConverged = errors.New("irr did not converge")

const (
	irrTolerance = 1e-10
	irrMaxIter   = 100
)

// IRR returns the rate that zeroes the NPV, expressed per freq unit.
func (m *Model) IRR(freq generic.Freq) (float64, error) {
	net, err := m.Net()
	if err != nil {
		return 0, err
	}
	cf := make([]float64, len(net))
	for i, v := range net {
		cf[i] = v.InexactFloat64()
	}

	r, err := SolveIRR(cf)
	if err != nil {
		return 0, fmt.Errorf("irr %s: %w", m.name, err)
	}
	return generic.ConvertRate(r, m.freq, freq.OrDefault(m.freq)), nil
}

// SolveIRR finds the per-step rate r with sum(cf_t/(1+r)^t) = 0.
// Newton-Raphson runs first; bisection takes over if it diverges.
func SolveIRR(cf []float64) (float64, error) {
	if !changesSign(cf) {
		return 0, ErrNoSignChange
	}
	if r, ok := newtonIRR(cf, 0.1); ok {
		return r, nil
	}
	return bisectIRR(cf)
}

func changesSign(cf []float64) bool {
	var pos, neg bool
	for _, v := range cf {
		pos = pos || v > 0
		neg = neg || v < 0
	}
	return pos && neg
}

// npvAt returns the NPV and its derivative with respect to r.
func npvAt(cf []float64, r float64) (float64, float64) {
	var npv, d float64
	for t, v := range cf {
		den := math.Pow(1+r, float64(t))
		npv += v / den
		d -= float64(t) * v / (den * (1 + r))
	}
	return npv, d
}

func newtonIRR(cf []float64, guess float64) (float64, bool) {
	r := guess
	for i := 0; i < irrMaxIter; i++ {
		npv, d := npvAt(cf, r)
		if math.IsNaN(npv) || math.IsInf(npv, 0) || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}
		if math.Abs(npv) < irrTolerance {
			return r, true
		}
		if math.Abs(d) < 1e-15 {
			return 0, false
		}

		delta := npv / d
		// Damping: never move more than half the distance to -100%.
		if limit := 0.5 * (1 + r); math.Abs(delta) > limit {
			delta = math.Copysign(limit, delta)
		}
		r -= delta
		if r <= -1 {
			return 0, false
		}
	}
	return 0, false
}

func bisectIRR(cf []float64) (float64, error) {
	lo, hi := -0.999999, 1.0
	fLo, _ := npvAt(cf, lo)
	fHi, _ := npvAt(cf, hi)
	for fLo*fHi > 0 && hi < 1e6 {
		hi *= 2
		fHi, _ = npvAt(cf, hi)
	}
	if fLo*fHi > 0 {
		return 0, ErrIRRNotConverged
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fMid, _ := npvAt(cf, mid)
		if math.Abs(fMid) < irrTolerance || (hi-lo)/2 < 1e-12 {
			return mid, nil
		}
		if fMid*fLo < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return (lo + hi) / 2, nil
}
