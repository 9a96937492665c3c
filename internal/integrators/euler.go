package integrators

import (
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sampling"
	"gonum.org/v1/gonum/floats"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }
func (e *Euler) Order() int   { return 1 }

func (e *Euler) Advance(eq dynamo.Equation, t float64, y dynamo.State, end float64) (*sampling.Step, error) {
	h := end - t
	k1, err := derive(eq, t, y)
	if err != nil {
		return nil, err
	}
	return &sampling.Step{
		T0:     t,
		T1:     end,
		Y0:     y.Clone(),
		Y1:     y.AddScaled(h, k1),
		Stages: []dynamo.State{k1},
		Kernel: eulerKernel{},
	}, nil
}

// eulerKernel is the straight line through both ends of the step.
type eulerKernel struct{}

func (eulerKernel) Interpolate(s *sampling.Step, theta, oneMinusThetaH float64, y, yDot dynamo.State) {
	k1 := s.Stages[0]
	copy(yDot, k1)
	if theta <= 0.5 {
		floats.AddScaledTo(y, s.Y0, theta*s.H(), k1)
		return
	}
	floats.AddScaledTo(y, s.Y1, -oneMinusThetaH, k1)
}
