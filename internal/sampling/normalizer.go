package sampling

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// FixedStepHandler receives samples on a regular time grid.
type FixedStepHandler interface {
	Init(t0 float64, y0 dynamo.State, t float64)
	HandleStep(t float64, y, yDot dynamo.State, isLast bool) error
}

// StepNormalizer is an Observer that resamples the integrator steps on the
// grid t0 + k*h. The initial point is always emitted; the final point of
// the run is emitted with isLast set even when it falls off the grid.
type StepNormalizer struct {
	h       float64
	handler FixedStepHandler

	dir       dynamo.Direction
	t0        float64
	k         int
	lastT     float64
	lastY     dynamo.State
	lastYDot  dynamo.State
	pending   bool
	firstStep bool
}

func NewStepNormalizer(h float64, handler FixedStepHandler) (*StepNormalizer, error) {
	if !(h > 0) || math.IsInf(h, 0) {
		return nil, fmt.Errorf("%w: sampling step %v", dynamo.ErrDegenerateStep, h)
	}
	return &StepNormalizer{h: h, handler: handler}, nil
}

func (n *StepNormalizer) Init(t0 float64, y0 dynamo.State, t float64) {
	n.dir = dynamo.DirectionOf(t0, t)
	n.t0 = t0
	n.k = 0
	n.lastT = t0
	n.lastY = y0.Clone()
	n.lastYDot = nil
	n.pending = true
	n.firstStep = true
	n.handler.Init(t0, y0, t)
}

func (n *StepNormalizer) HandleStep(in *Interpolator, isLast bool) error {
	if n.firstStep {
		// the derivative at t0 is only known once the first step exists
		yDot, err := in.DerivativeAt(in.PreviousTime())
		if err != nil {
			return err
		}
		n.lastYDot = yDot
		n.firstStep = false
	}

	for {
		next := n.t0 + float64(n.dir)*float64(n.k+1)*n.h
		if n.dir.After(next, in.CurrentTime()) {
			break
		}
		if n.pending {
			if err := n.handler.HandleStep(n.lastT, n.lastY, n.lastYDot, false); err != nil {
				return err
			}
		}
		y, err := in.StateAt(next)
		if err != nil {
			return err
		}
		yDot, err := in.DerivativeAt(next)
		if err != nil {
			return err
		}
		n.k++
		n.lastT, n.lastY, n.lastYDot = next, y, yDot
		n.pending = true
	}

	if !isLast {
		return nil
	}
	if n.lastT != in.CurrentTime() {
		if n.pending {
			if err := n.handler.HandleStep(n.lastT, n.lastY, n.lastYDot, false); err != nil {
				return err
			}
		}
		yDot, err := in.DerivativeAt(in.CurrentTime())
		if err != nil {
			return err
		}
		n.lastT, n.lastY, n.lastYDot = in.CurrentTime(), in.CurrentState(), yDot
	}
	n.pending = false
	return n.handler.HandleStep(n.lastT, n.lastY, n.lastYDot, true)
}

// Samples collects the output of a StepNormalizer in memory.
type Samples struct {
	Times       []float64
	States      []dynamo.State
	Derivatives []dynamo.State
}

func (s *Samples) Init(float64, dynamo.State, float64) {
	s.Times = s.Times[:0]
	s.States = s.States[:0]
	s.Derivatives = s.Derivatives[:0]
}

func (s *Samples) HandleStep(t float64, y, yDot dynamo.State, _ bool) error {
	s.Times = append(s.Times, t)
	s.States = append(s.States, y.Clone())
	s.Derivatives = append(s.Derivatives, yDot.Clone())
	return nil
}

func (s *Samples) Len() int { return len(s.Times) }

// Component extracts one state component across all samples.
func (s *Samples) Component(i int) []float64 {
	out := make([]float64, len(s.States))
	for k, y := range s.States {
		if i < len(y) {
			out[k] = y[i]
		}
	}
	return out
}
