package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Pendulum is a damped rigid pendulum. State: [theta, omega].
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) Dimension() int { return 2 }

func (p *Pendulum) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	theta, omega := y[0], y[1]
	inertia := p.Mass * p.Length * p.Length
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / inertia
	return dynamo.State{omega, alpha}, nil
}

func (p *Pendulum) Energy(y dynamo.State) float64 {
	v := p.Length * y[1]
	ke := 0.5 * p.Mass * v * v
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(y[0]))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	default:
		return unknownParam("pendulum", name)
	}
	return nil
}
