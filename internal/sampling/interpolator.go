package sampling

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Interpolator gives dense output over the soft bounds [start, end] of one
// step. The bounds are a sub-interval of the full step [T0, T1] once the
// interpolator has been truncated or restricted; the reconstruction always
// uses the full step so no derivative is evaluated again.
//
// All queries are pure: the interpolator is never mutated after creation.
type Interpolator struct {
	step       *Step
	dir        dynamo.Direction
	start, end float64
	startState dynamo.State
	endState   dynamo.State
}

func NewInterpolator(s *Step) *Interpolator {
	return &Interpolator{
		step:       s,
		dir:        dynamo.DirectionOf(s.T0, s.T1),
		start:      s.T0,
		end:        s.T1,
		startState: s.Y0,
		endState:   s.Y1,
	}
}

func (in *Interpolator) PreviousTime() float64 { return in.start }
func (in *Interpolator) CurrentTime() float64  { return in.end }
func (in *Interpolator) IsForward() bool       { return in.dir == dynamo.Forward }
func (in *Interpolator) Direction() dynamo.Direction {
	return in.dir
}

// Duration is the signed length of the soft interval.
func (in *Interpolator) Duration() float64 { return in.end - in.start }

func (in *Interpolator) PreviousState() dynamo.State { return in.startState.Clone() }
func (in *Interpolator) CurrentState() dynamo.State  { return in.endState.Clone() }

// Contains reports whether t lies inside the soft bounds.
func (in *Interpolator) Contains(t float64) bool {
	return !in.dir.Before(t, in.start) && !in.dir.After(t, in.end)
}

func (in *Interpolator) StateAt(t float64) (dynamo.State, error) {
	if err := in.check(t); err != nil {
		return nil, err
	}
	switch t {
	case in.start:
		return in.startState.Clone(), nil
	case in.end:
		return in.endState.Clone(), nil
	}
	y, _ := in.eval(t)
	return y, nil
}

func (in *Interpolator) DerivativeAt(t float64) (dynamo.State, error) {
	if err := in.check(t); err != nil {
		return nil, err
	}
	_, yDot := in.eval(t)
	return yDot, nil
}

// Truncate returns an interpolator over [start, newEnd].
func (in *Interpolator) Truncate(newEnd float64) (*Interpolator, error) {
	if err := in.check(newEnd); err != nil {
		return nil, err
	}
	out := *in
	out.end = newEnd
	if newEnd != in.end {
		out.endState, _ = in.eval(newEnd)
	}
	if newEnd == in.start {
		out.endState = in.startState
	}
	return &out, nil
}

// Restrict returns an interpolator over [newStart, end].
func (in *Interpolator) Restrict(newStart float64) (*Interpolator, error) {
	if err := in.check(newStart); err != nil {
		return nil, err
	}
	out := *in
	out.start = newStart
	if newStart != in.start {
		out.startState, _ = in.eval(newStart)
	}
	if newStart == in.end {
		out.startState = in.endState
	}
	return &out, nil
}

// Copy returns an interpolator that owns its boundary states and step record.
func (in *Interpolator) Copy() *Interpolator {
	s := *in.step
	s.Y0 = in.step.Y0.Clone()
	s.Y1 = in.step.Y1.Clone()
	s.Stages = make([]dynamo.State, len(in.step.Stages))
	for i, k := range in.step.Stages {
		s.Stages[i] = k.Clone()
	}
	out := *in
	out.step = &s
	out.startState = in.startState.Clone()
	out.endState = in.endState.Clone()
	return &out
}

func (in *Interpolator) check(t float64) error {
	if !in.Contains(t) {
		return fmt.Errorf("%w: t=%v not in [%v, %v]", dynamo.ErrOutOfRange, t, in.start, in.end)
	}
	return nil
}

func (in *Interpolator) eval(t float64) (dynamo.State, dynamo.State) {
	n := in.step.Dimension()
	y := make(dynamo.State, n)
	yDot := make(dynamo.State, n)
	h := in.step.H()
	theta := 0.0
	if h != 0 {
		theta = (t - in.step.T0) / h
	}
	in.step.Kernel.Interpolate(in.step, theta, in.step.T1-t, y, yDot)
	return y, yDot
}
