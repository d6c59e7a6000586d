package generic_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/forecast-engine/generic"
)

func TestParseTimePoint(t *testing.T) {
	tp, err := generic.ParseTimePoint("12")
	require.NoError(t, err)
	assert.Equal(t, generic.Ordinal(12), tp)

	tp, err = generic.ParseTimePoint("2025-03-17")
	require.NoError(t, err)
	assert.Equal(t, generic.Date(2025, 3, 17), tp)

	tp, err = generic.ParseTimePoint("2025-03")
	require.NoError(t, err)
	assert.Equal(t, generic.Date(2025, 3, 1), tp)

	_, err = generic.ParseTimePoint("next tuesday")
	assert.Error(t, err)
}

func TestTimePoint_ShiftAndStep(t *testing.T) {
	assert.Equal(t, generic.Ordinal(7), generic.Ordinal(10).Shift(-3))
	assert.Equal(t, generic.Date(2025, 2, 4), generic.Date(2025, 1, 31).Shift(4))
	assert.Equal(t, generic.Date(2025, 4, 1), generic.Date(2025, 1, 1).Step(generic.FreqMonthly, 3))
	assert.Equal(t, generic.Date(2027, 1, 1), generic.Date(2025, 1, 1).Step(generic.FreqAnnual, 2))
}

func TestTimePoint_Truncate(t *testing.T) {
	d := generic.Date(2025, 8, 19)
	assert.Equal(t, generic.Date(2025, 8, 1), d.Truncate(generic.FreqMonthly))
	assert.Equal(t, generic.Date(2025, 1, 1), d.Truncate(generic.FreqAnnual))
	assert.Equal(t, d, d.Truncate(generic.FreqDaily))
	assert.Equal(t, generic.Ordinal(5), generic.Ordinal(5).Truncate(generic.FreqAnnual))
}

func TestTimePoint_FormatByFreq(t *testing.T) {
	d := generic.Date(2025, 8, 19)
	assert.Equal(t, "2025-08", d.Format(generic.FreqMonthly))
	assert.Equal(t, "2025-08-19", d.Format(generic.FreqDaily))
	assert.Equal(t, "2025", d.Format(generic.FreqAnnual))
	assert.Equal(t, "42", generic.Ordinal(42).Format(generic.FreqMonthly))
}

func TestTimePoint_KindsOrderConsistently(t *testing.T) {
	assert.True(t, generic.Ordinal(3).Before(generic.Ordinal(4)))
	assert.True(t, generic.Date(2025, 1, 1).After(generic.Date(2024, 12, 31)))
	assert.False(t, generic.SameKind(generic.Ordinal(1), generic.Date(2025, 1, 1)))
	assert.True(t, generic.SameKind())
}

func TestTimePoint_JSONText(t *testing.T) {
	b, err := json.Marshal([]generic.TimePoint{generic.Ordinal(3), generic.Date(2025, 1, 2)})
	require.NoError(t, err)
	assert.JSONEq(t, `["3","2025-01-02"]`, string(b))

	var back []generic.TimePoint
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, generic.Ordinal(3), back[0])
	assert.Equal(t, generic.Date(2025, 1, 2), back[1])
}

func TestRange_Inclusive(t *testing.T) {
	assert.Len(t, generic.Range(generic.Ordinal(0), generic.Ordinal(10), generic.FreqMonthly), 11)
	assert.Len(t, generic.Range(generic.Date(2025, 1, 1), generic.Date(2025, 12, 1), generic.FreqMonthly), 12)
	assert.Empty(t, generic.Range(generic.Ordinal(5), generic.Ordinal(4), generic.FreqMonthly))
}
