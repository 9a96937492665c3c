package physics

import "github.com/san-kum/odestep/internal/dynamo"

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Equations:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
type VanDerPol struct {
	Mu float64 // nonlinearity
}

func NewVanDerPol() *VanDerPol {
	return &VanDerPol{Mu: 1.0}
}

func (v *VanDerPol) Dimension() int { return 2 }

func (v *VanDerPol) Derive(_ float64, state dynamo.State) (dynamo.State, error) {
	x, y := state[0], state[1]
	return dynamo.State{y, v.Mu*(1-x*x)*y - x}, nil
}

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.Mu}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	if name != "mu" {
		return unknownParam("vanderpol", name)
	}
	v.Mu = value
	return nil
}
