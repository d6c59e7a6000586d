package generic

import (
	"fmt"
	"math"
	"strings"
)

// =============================================================================
// FREQUENCY - Calendar granularity of a series or a rate
// =============================================================================

type Freq string

const (
	FreqMonthly Freq = "M"
	FreqDaily   Freq = "D"
	FreqAnnual  Freq = "A"
)

// ParseFreq accepts the short codes and their long names.
func ParseFreq(s string) (Freq, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "monthly", "month":
		return FreqMonthly, nil
	case "d", "daily", "day":
		return FreqDaily, nil
	case "a", "y", "annual", "yearly", "year":
		return FreqAnnual, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFreq, s)
}

func (f Freq) Valid() bool {
	return f == FreqMonthly || f == FreqDaily || f == FreqAnnual
}

// OrDefault returns f, or fallback when f is empty.
func (f Freq) OrDefault(fallback Freq) Freq {
	if f == "" {
		return fallback
	}
	return f
}

// PeriodsPerYear is the compounding count used for rate conversion.
func (f Freq) PeriodsPerYear() float64 {
	switch f {
	case FreqDaily:
		return 365
	case FreqAnnual:
		return 1
	default:
		return 12
	}
}

func (f Freq) DaysPerUnit() float64 { return 365 / f.PeriodsPerYear() }

// Layout is the time layout a calendar label uses at this granularity.
func (f Freq) Layout() string {
	switch f {
	case FreqDaily:
		return "2006-01-02"
	case FreqAnnual:
		return "2006"
	default:
		return "2006-01"
	}
}

// =============================================================================
// RATE CONVERSION
// =============================================================================

// FreqFactor is the compounding exponent that moves a rate expressed per
// `from` unit to a rate per `to` unit: annual to monthly is 1/12.
func FreqFactor(from, to Freq) float64 {
	return to.DaysPerUnit() / from.DaysPerUnit()
}

// ConvertRate returns (1+rate)^c - 1 with c = FreqFactor(from, to).
func ConvertRate(rate float64, from, to Freq) float64 {
	if from == to {
		return rate
	}
	return math.Pow(1+rate, FreqFactor(from, to)) - 1
}

// ConvertRates applies ConvertRate to every rate.
func ConvertRates(rates []float64, from, to Freq) []float64 {
	out := make([]float64, len(rates))
	for i, r := range rates {
		out[i] = ConvertRate(r, from, to)
	}
	return out
}
