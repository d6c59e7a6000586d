/*
errors.go - Centralized error types for the forecast engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on them with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Configuration errors - raised at construction (kind mismatch, freq mismatch)
  2. Precondition errors  - raised at call time (no forecast, no cashflow)
  3. Store errors         - missing schedule definitions or runs

Non-fatal data-alignment problems are NOT errors: they become Warnings
(see warning.go) and the operation continues.

SEE ALSO:
  - period.go: Raises kind and precondition errors
  - scenario.go: Raises frequency and dependency errors
  - warning.go: Non-fatal conditions
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTimeKindMismatch is returned when a period mixes ordinal and calendar time.
	ErrTimeKindMismatch = errors.New("start and end must be the same time kind")

	// ErrInvalidFreq is returned for an unknown frequency code.
	ErrInvalidFreq = errors.New("invalid frequency")

	// ErrInvalidPeriod is returned when limits, ppf or iterations are out of range.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrNoForecast is returned when an operation needs a forecast that was never generated.
	ErrNoForecast = errors.New("no forecast")

	// ErrNoCashflowParams is returned when cashflow generation has nothing to apply.
	ErrNoCashflowParams = errors.New("no cashflow params")

	// ErrNoCashflow is returned when NPV or IRR is requested before cashflow generation.
	ErrNoCashflow = errors.New("no cashflow")

	// ErrFreqMismatch is returned when members of a scenario disagree on output frequency,
	// or when rates are supplied on a basis a cashflow model does not use.
	ErrFreqMismatch = errors.New("frequency mismatch")

	// ErrDuplicatePeriod is returned when two periods of a scenario share a name.
	ErrDuplicatePeriod = errors.New("duplicate period name")

	// ErrDuplicateScenario is returned when two scenarios of a schedule share a name.
	ErrDuplicateScenario = errors.New("duplicate scenario name")

	// ErrUnknownDependency is returned when a Depends edge names no period of the scenario.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrDependencyCycle is returned when period dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrUnknownModel is returned when a curve model name is not registered.
	ErrUnknownModel = errors.New("unknown curve model")

	// ErrScheduleNotFound is returned when a stored schedule definition doesn't exist.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrRunNotFound is returned when a stored evaluation run doesn't exist.
	ErrRunNotFound = errors.New("run not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TimeKindError reports which period mixed time kinds.
type TimeKindError struct {
	Period string
	Start  TimeKind
	End    TimeKind
}

func (e *TimeKindError) Error() string {
	return fmt.Sprintf("period %q: start is %s but end is %s", e.Period, e.Start, e.End)
}

func (e *TimeKindError) Unwrap() error { return ErrTimeKindMismatch }

// FreqMismatchError names the scenario and the frequencies that disagree.
type FreqMismatchError struct {
	Scenario string
	Period   string
	Want     Freq
	Got      Freq
}

func (e *FreqMismatchError) Error() string {
	return fmt.Sprintf("scenario %q: period %q has freq_output %s, expected %s",
		e.Scenario, e.Period, e.Got, e.Want)
}

func (e *FreqMismatchError) Unwrap() error { return ErrFreqMismatch }

// DependencyError describes a Depends edge that cannot be resolved.
type DependencyError struct {
	Period    string
	DependsOn string
	Err       error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("period %q depends on %q: %v", e.Period, e.DependsOn, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true if the error comes from an invalid definition.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrTimeKindMismatch) ||
		errors.Is(err, ErrInvalidFreq) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrFreqMismatch) ||
		errors.Is(err, ErrDuplicatePeriod) ||
		errors.Is(err, ErrDuplicateScenario) ||
		errors.Is(err, ErrUnknownDependency) ||
		errors.Is(err, ErrDependencyCycle) ||
		errors.Is(err, ErrUnknownModel)
}

// IsPreconditionError returns true if a lifecycle step was skipped.
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrNoForecast) ||
		errors.Is(err, ErrNoCashflowParams) ||
		errors.Is(err, ErrNoCashflow)
}

// IsNotFound returns true if the error indicates a missing stored resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound) || errors.Is(err, ErrRunNotFound)
}
