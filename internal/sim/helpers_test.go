package sim_test

import (
	"errors"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/sampling"
	"github.com/san-kum/odestep/internal/sim"
)

// ramp is y' = 1 in every component.
type ramp struct{ dim int }

func (r ramp) Dimension() int { return r.dim }

func (r ramp) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	dy := make(dynamo.State, len(y))
	for i := range dy {
		dy[i] = 1
	}
	return dy, nil
}

// decay is y' = -y.
type decay struct{}

func (decay) Dimension() int { return 1 }

func (decay) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{-y[0]}, nil
}

// oscillator is d²x/dt² = -x.
type oscillator struct{}

func (oscillator) Dimension() int { return 2 }

func (oscillator) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{y[1], -y[0]}, nil
}

var errBoom = errors.New("boom")

// failing returns errBoom once t passes after.
type failing struct{ after float64 }

func (f failing) Dimension() int { return 1 }

func (f failing) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	if t > f.after {
		return nil, errBoom
	}
	return dynamo.State{1}, nil
}

// wrongDimension returns a derivative one component too long.
type wrongDimension struct{}

func (wrongDimension) Dimension() int { return 1 }

func (wrongDimension) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	return dynamo.State{1, 1}, nil
}

type piece struct {
	t0, t1 float64
	y0, y1 dynamo.State
	isLast bool
	exact  bool
}

// recorder keeps the bounds of every dispatched interpolator.
type recorder struct {
	t0, t1 float64
	y0     dynamo.State
	inits  int
	pieces []piece
}

func (r *recorder) Init(t0 float64, y0 dynamo.State, t float64) {
	r.inits++
	r.t0, r.t1, r.y0 = t0, t, y0.Clone()
	r.pieces = nil
}

func (r *recorder) HandleStep(in *sampling.Interpolator, isLast bool) error {
	ya, errA := in.StateAt(in.PreviousTime())
	yb, errB := in.StateAt(in.CurrentTime())
	exact := errA == nil && errB == nil &&
		equalBits(ya, in.PreviousState()) && equalBits(yb, in.CurrentState())
	r.pieces = append(r.pieces, piece{
		t0: in.PreviousTime(), t1: in.CurrentTime(),
		y0: in.PreviousState(), y1: in.CurrentState(),
		isLast: isLast, exact: exact,
	})
	return nil
}

func (r *recorder) lastCount() int {
	n := 0
	for _, p := range r.pieces {
		if p.isLast {
			n++
		}
	}
	return n
}

func equalBits(a, b dynamo.State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// handler builds event handlers from closures.
type handler struct {
	g      func(t float64, y dynamo.State) float64
	action events.Action
	reset  func(t float64, y dynamo.State) dynamo.State
}

func (h *handler) Init(float64, dynamo.State, float64) {}

func (h *handler) G(t float64, y dynamo.State) float64 { return h.g(t, y) }

func (h *handler) EventOccurred(float64, dynamo.State, bool) events.Action { return h.action }

func (h *handler) ResetState(t float64, y dynamo.State) dynamo.State {
	if h.reset == nil {
		return y
	}
	return h.reset(t, y)
}

// tracingStepper wraps a stepper and keeps the records it built together
// with the end each one was asked for.
type tracingStepper struct {
	sim.Stepper
	steps []*sampling.Step
	ends  []float64
}

func (s *tracingStepper) Advance(eq dynamo.Equation, t float64, y dynamo.State, end float64) (*sampling.Step, error) {
	st, err := s.Stepper.Advance(eq, t, y, end)
	if err == nil {
		s.steps = append(s.steps, st)
		s.ends = append(s.ends, st.T1)
	}
	return st, err
}
