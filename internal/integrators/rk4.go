package integrators

import (
	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sampling"
)

var rk4Weights = []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0}

type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }
func (r *RK4) Order() int   { return 4 }

func (r *RK4) Advance(eq dynamo.Equation, t float64, y dynamo.State, end float64) (*sampling.Step, error) {
	h := end - t
	k1, err := derive(eq, t, y)
	if err != nil {
		return nil, err
	}
	k2, err := derive(eq, t+0.5*h, y.AddScaled(0.5*h, k1))
	if err != nil {
		return nil, err
	}
	k3, err := derive(eq, t+0.5*h, y.AddScaled(0.5*h, k2))
	if err != nil {
		return nil, err
	}
	k4, err := derive(eq, t+h, y.AddScaled(h, k3))
	if err != nil {
		return nil, err
	}

	k := []dynamo.State{k1, k2, k3, k4}
	return &sampling.Step{
		T0:     t,
		T1:     end,
		Y0:     y.Clone(),
		Y1:     combine(y, h, rk4Weights, k),
		Stages: k,
		Kernel: rk4Kernel{},
	}, nil
}

// rk4Kernel is the third order dense output built from the four stages.
type rk4Kernel struct{}

func (rk4Kernel) Interpolate(s *sampling.Step, theta, oneMinusThetaH float64, y, yDot dynamo.State) {
	k1, k2, k3, k4 := s.Stages[0], s.Stages[1], s.Stages[2], s.Stages[3]

	oneMinusTheta := 1 - theta
	oneMinus2Theta := 1 - 2*theta
	coeffDot1 := oneMinusTheta * oneMinus2Theta
	coeffDot23 := 2 * theta * oneMinusTheta
	coeffDot4 := -theta * oneMinus2Theta

	for i := range yDot {
		yDot[i] = coeffDot1*k1[i] + coeffDot23*(k2[i]+k3[i]) + coeffDot4*k4[i]
	}

	if theta <= 0.5 {
		fourTheta2 := 4 * theta * theta
		sc := theta * s.H() / 6.0
		coeff1 := sc * ((fourTheta2 - 9*theta) + 6)
		coeff23 := sc * (6*theta - fourTheta2)
		coeff4 := sc * (fourTheta2 - 3*theta)
		for i := range y {
			y[i] = s.Y0[i] + coeff1*k1[i] + coeff23*(k2[i]+k3[i]) + coeff4*k4[i]
		}
		return
	}

	fourTheta := 4 * theta
	sc := oneMinusThetaH / 6.0
	coeff1 := sc * ((-fourTheta+5)*theta - 1)
	coeff23 := sc * ((fourTheta-2)*theta - 2)
	coeff4 := sc * ((-fourTheta-1)*theta - 1)
	for i := range y {
		y[i] = s.Y1[i] + coeff1*k1[i] + coeff23*(k2[i]+k3[i]) + coeff4*k4[i]
	}
}
