package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// TIME POINT - Ordinal step or calendar date, never both
// =============================================================================

// TimeKind tags which representation a TimePoint carries.
type TimeKind int

const (
	KindOrdinal TimeKind = iota
	KindCalendar
)

func (k TimeKind) String() string {
	if k == KindCalendar {
		return "calendar"
	}
	return "ordinal"
}

// TimePoint is a closed two-variant time value. Ordinal points are plain
// integer steps (0, 1, 2...); calendar points are UTC dates. Periods validate
// that Start and End share a kind when they are constructed.
type TimePoint struct {
	Kind    TimeKind
	Ordinal int
	Time    time.Time
}

// Constructors
func Ordinal(n int) TimePoint { return TimePoint{Kind: KindOrdinal, Ordinal: n} }

func Date(year int, month time.Month, day int) TimePoint {
	return TimePoint{Kind: KindCalendar, Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func FromTime(t time.Time) TimePoint {
	t = t.UTC()
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseTimePoint accepts an integer ("12"), an ISO date ("2025-03-01") or a
// month ("2025-03"). A bare year parses as an ordinal.
func ParseTimePoint(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Ordinal(n), nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return TimePoint{}, fmt.Errorf("invalid time point %q", s)
}

func (tp TimePoint) IsCalendar() bool { return tp.Kind == KindCalendar }

// Comparison. Points of different kinds compare by kind first so sorting
// never panics; callers validate kinds before it matters.
func (tp TimePoint) Compare(other TimePoint) int {
	if tp.Kind != other.Kind {
		if tp.Kind < other.Kind {
			return -1
		}
		return 1
	}
	if tp.Kind == KindOrdinal {
		switch {
		case tp.Ordinal < other.Ordinal:
			return -1
		case tp.Ordinal > other.Ordinal:
			return 1
		}
		return 0
	}
	return tp.Time.Compare(other.Time)
}

func (tp TimePoint) Before(other TimePoint) bool        { return tp.Compare(other) < 0 }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Compare(other) > 0 }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Compare(other) == 0 }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Compare(other) <= 0 }

// Arithmetic

// Shift moves an ordinal point by n steps and a calendar point by n days.
func (tp TimePoint) Shift(n int) TimePoint {
	if tp.Kind == KindOrdinal {
		return Ordinal(tp.Ordinal + n)
	}
	return TimePoint{Kind: KindCalendar, Time: tp.Time.AddDate(0, 0, n)}
}

// Step advances by n units of freq. Ordinal points advance by n.
func (tp TimePoint) Step(freq Freq, n int) TimePoint {
	if tp.Kind == KindOrdinal {
		return Ordinal(tp.Ordinal + n)
	}
	switch freq {
	case FreqDaily:
		return TimePoint{Kind: KindCalendar, Time: tp.Time.AddDate(0, 0, n)}
	case FreqAnnual:
		return TimePoint{Kind: KindCalendar, Time: tp.Time.AddDate(n, 0, 0)}
	default:
		return TimePoint{Kind: KindCalendar, Time: tp.Time.AddDate(0, n, 0)}
	}
}

// Truncate snaps a calendar point to the start of its freq period.
func (tp TimePoint) Truncate(freq Freq) TimePoint {
	if tp.Kind == KindOrdinal {
		return tp
	}
	t := tp.Time
	switch freq {
	case FreqDaily:
		return Date(t.Year(), t.Month(), t.Day())
	case FreqAnnual:
		return Date(t.Year(), time.January, 1)
	default:
		return Date(t.Year(), t.Month(), 1)
	}
}

// StepsSince counts whole freq units from origin to tp.
func (tp TimePoint) StepsSince(origin TimePoint, freq Freq) int {
	if tp.Kind == KindOrdinal {
		return tp.Ordinal - origin.Ordinal
	}
	a, b := origin.Time, tp.Time
	switch freq {
	case FreqDaily:
		return int(b.Sub(a).Hours() / 24)
	case FreqAnnual:
		return b.Year() - a.Year()
	default:
		return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	}
}

// Elapsed returns the fractional number of freq units between origin and tp.
// Calendar spans use 365 days a year so the factor agrees with FreqFactor.
func (tp TimePoint) Elapsed(origin TimePoint, freq Freq) float64 {
	if tp.Kind == KindOrdinal {
		return float64(tp.Ordinal - origin.Ordinal)
	}
	days := tp.Time.Sub(origin.Time).Hours() / 24
	return days / freq.DaysPerUnit()
}

// String renders calendar points as ISO dates and ordinal points as integers.
func (tp TimePoint) String() string {
	if tp.Kind == KindCalendar {
		return tp.Time.Format("2006-01-02")
	}
	return strconv.Itoa(tp.Ordinal)
}

// Format renders a calendar point at freq resolution ("2025-03" for monthly).
func (tp TimePoint) Format(freq Freq) string {
	if tp.Kind == KindOrdinal {
		return strconv.Itoa(tp.Ordinal)
	}
	return tp.Time.Format(freq.Layout())
}

// MarshalText keeps TimePoint readable in JSON payloads.
func (tp TimePoint) MarshalText() ([]byte, error) { return []byte(tp.String()), nil }

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseTimePoint(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// UnmarshalJSON also accepts bare integers as ordinal points.
func (tp *TimePoint) UnmarshalJSON(b []byte) error {
	return tp.UnmarshalText([]byte(strings.Trim(string(b), `"`)))
}

// UnmarshalYAML reads the raw scalar so unquoted dates are not resolved
// as timestamps first.
func (tp *TimePoint) UnmarshalYAML(node *yaml.Node) error {
	return tp.UnmarshalText([]byte(node.Value))
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// MaxTime returns the latest point. Panics on an empty slice.
func MaxTime(points []TimePoint) TimePoint {
	m := points[0]
	for _, p := range points[1:] {
		if p.After(m) {
			m = p
		}
	}
	return m
}

// SameKind reports whether every point shares the kind of the first one.
func SameKind(points ...TimePoint) bool {
	if len(points) == 0 {
		return true
	}
	for _, p := range points[1:] {
		if p.Kind != points[0].Kind {
			return false
		}
	}
	return true
}

// Range samples [start, end] stepping by freq.
func Range(start, end TimePoint, freq Freq) []TimePoint {
	var out []TimePoint
	for cur := start; cur.BeforeOrEqual(end); cur = cur.Step(freq, 1) {
		out = append(out, cur)
	}
	return out
}
