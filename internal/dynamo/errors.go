package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration runs.
var (
	// ErrDimensionMismatch indicates a state or derivative whose length disagrees with the equation.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and equation")

	// ErrDegenerateStep indicates a zero, negative or non-finite step, or an empty integration span.
	ErrDegenerateStep = errors.New("dynamo: degenerate step size")

	// ErrNoBracketing indicates a root search started on an interval without a sign change.
	ErrNoBracketing = errors.New("dynamo: root is not bracketed")

	// ErrMaxIterations indicates a root search ran out of its evaluation budget.
	ErrMaxIterations = errors.New("dynamo: root bracketing exceeded maximal iteration count")

	// ErrStepExhausted indicates the accepted step budget ran out before the target time.
	ErrStepExhausted = errors.New("dynamo: maximal number of steps exceeded")

	// ErrOutOfRange indicates an interpolator query outside the bounds of its step.
	ErrOutOfRange = errors.New("dynamo: time outside interpolation range")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidSettings indicates unusable event detection settings.
	ErrInvalidSettings = errors.New("dynamo: invalid event settings")
)

// IntegrationError wraps a fatal run error with the last accepted point.
type IntegrationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
