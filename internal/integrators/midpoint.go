package integrators

import (
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sampling"
)

// Midpoint is the explicit midpoint rule:
//
//	k1 = f(t, y)
//	k2 = f(t + h/2, y + h/2 k1)
//	y1 = y + h k2
type Midpoint struct{}

func NewMidpoint() *Midpoint {
	return &Midpoint{}
}

func (m *Midpoint) Name() string { return "midpoint" }
func (m *Midpoint) Order() int   { return 2 }

func (m *Midpoint) Advance(eq dynamo.Equation, t float64, y dynamo.State, end float64) (*sampling.Step, error) {
	h := end - t
	k1, err := derive(eq, t, y)
	if err != nil {
		return nil, err
	}
	k2, err := derive(eq, t+0.5*h, y.AddScaled(0.5*h, k1))
	if err != nil {
		return nil, err
	}
	return &sampling.Step{
		T0:     t,
		T1:     end,
		Y0:     y.Clone(),
		Y1:     y.AddScaled(h, k2),
		Stages: []dynamo.State{k1, k2},
		Kernel: midpointKernel{},
	}, nil
}

// midpointKernel is the quadratic matching y0, f(t0, y0) and y1:
//
//	y(θ)  = y0 + h [θ(1-θ) k1 + θ² k2]
//	y'(θ) = (1-2θ) k1 + 2θ k2
type midpointKernel struct{}

func (midpointKernel) Interpolate(s *sampling.Step, theta, oneMinusThetaH float64, y, yDot dynamo.State) {
	k1, k2 := s.Stages[0], s.Stages[1]
	coeffDot2 := 2 * theta
	coeffDot1 := 1 - coeffDot2

	if theta <= 0.5 {
		h := s.H()
		coeff1 := theta * (1 - theta) * h
		coeff2 := theta * theta * h
		for i := range y {
			y[i] = s.Y0[i] + coeff1*k1[i] + coeff2*k2[i]
			yDot[i] = coeffDot1*k1[i] + coeffDot2*k2[i]
		}
		return
	}

	coeff1 := oneMinusThetaH * theta
	coeff2 := oneMinusThetaH * (1 + theta)
	for i := range y {
		y[i] = s.Y1[i] + coeff1*k1[i] - coeff2*k2[i]
		yDot[i] = coeffDot1*k1[i] + coeffDot2*k2[i]
	}
}
