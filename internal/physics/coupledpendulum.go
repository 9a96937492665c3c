package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// CoupledPendulums are two pendulums joined by a spring.
// State: [theta1, omega1, theta2, omega2].
type CoupledPendulums struct {
	Length   float64
	Gravity  float64
	Coupling float64
	Mass     float64
}

func NewCoupledPendulums() *CoupledPendulums {
	return &CoupledPendulums{Length: 1.0, Gravity: 9.81, Coupling: 20.0, Mass: 1.0}
}

func (c *CoupledPendulums) Dimension() int { return 4 }

func (c *CoupledPendulums) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	theta1, omega1, theta2, omega2 := y[0], y[1], y[2], y[3]

	// spring torque, small angle form
	spring := c.Coupling * (theta2 - theta1) / (c.Mass * c.Length)
	g := c.Gravity / c.Length

	return dynamo.State{
		omega1, -g*math.Sin(theta1) + spring,
		omega2, -g*math.Sin(theta2) - spring,
	}, nil
}

func (c *CoupledPendulums) Energy(y dynamo.State) float64 {
	ml2 := c.Mass * c.Length * c.Length
	e := 0.5 * ml2 * (y[1]*y[1] + y[3]*y[3])
	e += c.Mass * c.Gravity * c.Length * (2 - math.Cos(y[0]) - math.Cos(y[2]))
	d := y[2] - y[0]
	return e + 0.5*c.Coupling*c.Length*d*d
}

func (c *CoupledPendulums) GetParams() map[string]float64 {
	return map[string]float64{"length": c.Length, "gravity": c.Gravity, "coupling": c.Coupling, "mass": c.Mass}
}

func (c *CoupledPendulums) SetParam(name string, value float64) error {
	switch name {
	case "length":
		c.Length = value
	case "gravity":
		c.Gravity = value
	case "coupling":
		c.Coupling = value
	case "mass":
		c.Mass = value
	default:
		return unknownParam("coupled", name)
	}
	return nil
}
