package physics

import "github.com/san-kum/odestep/internal/dynamo"

// DoubleWell models a damped particle in the bistable potential
// A(x² - B)². State: [x, v].
type DoubleWell struct {
	A, B, Mass, Damping float64
}

func NewDoubleWell() *DoubleWell {
	return &DoubleWell{1.0, 1.0, 1.0, 0.1}
}

func (d *DoubleWell) Dimension() int { return 2 }

func (d *DoubleWell) Derive(_ float64, s dynamo.State) (dynamo.State, error) {
	x, v := s[0], s[1]
	return dynamo.State{v, (-4*d.A*x*(x*x-d.B) - d.Damping*v) / d.Mass}, nil
}

func (d *DoubleWell) Energy(s dynamo.State) float64 {
	x, v := s[0], s[1]
	w := x*x - d.B
	return 0.5*d.Mass*v*v + d.A*w*w
}

func (d *DoubleWell) GetParams() map[string]float64 {
	return map[string]float64{"A": d.A, "B": d.B, "mass": d.Mass, "damping": d.Damping}
}

func (d *DoubleWell) SetParam(n string, v float64) error {
	switch n {
	case "A":
		d.A = v
	case "B":
		d.B = v
	case "mass":
		d.Mass = v
	case "damping":
		d.Damping = v
	default:
		return unknownParam("doublewell", n)
	}
	return nil
}
