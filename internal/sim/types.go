package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/sampling"
)

// Stepper advances the solution from t to end (either direction) and returns
// the record the interpolator is built from. The record spans exactly
// [t, end]. Implementations hold no state between calls.
type Stepper interface {
	Name() string
	Order() int
	Advance(eq dynamo.Equation, t float64, y dynamo.State, end float64) (*sampling.Step, error)
}

type Config struct {
	// Step is the magnitude of the fixed step; the sign follows the direction
	// of integration.
	Step float64
	// MaxSteps bounds the number of stepper invocations of a run. Zero means
	// no limit.
	MaxSteps int
	// ValidateState fails the run as soon as a step produces NaN or Inf.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Step:          0.01,
		MaxSteps:      1_000_000,
		ValidateState: true,
	}
}

func (c Config) Validate() error {
	if !(c.Step > 0) || math.IsInf(c.Step, 0) {
		return fmt.Errorf("%w: step must be positive and finite, got %v", dynamo.ErrDegenerateStep, c.Step)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max steps must not be negative, got %d", c.MaxSteps)
	}
	return nil
}

type Status int

const (
	Running Status = iota
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// EventRecord is one handler firing during a run.
type EventRecord struct {
	Time       float64
	Handler    int
	Increasing bool
	Action     events.Action
}

type Result struct {
	Status     Status
	FinalTime  float64
	FinalState dynamo.State
	// Stopped is set when a Stop event ended the run before the target.
	Stopped bool
	// Steps counts stepper invocations, Evaluations calls to Derive.
	Steps       int
	Evaluations int
	Events      []EventRecord
}

// countingEquation counts derivative evaluations of a run.
type countingEquation struct {
	dynamo.Equation
	calls int
}

func (c *countingEquation) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	c.calls++
	return c.Equation.Derive(t, y)
}
