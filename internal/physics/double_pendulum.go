package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// DoublePendulum is a pendulum hanging from another.
// State: [theta1, theta2, omega1, omega2].
type DoublePendulum struct {
	M1, M2  float64
	L1, L2  float64
	Gravity float64
}

func NewDoublePendulum() *DoublePendulum {
	return &DoublePendulum{M1: 1, M2: 1, L1: 1, L2: 1, Gravity: 9.81}
}

func (d *DoublePendulum) Dimension() int { return 4 }

func (d *DoublePendulum) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	theta1, theta2, omega1, omega2 := y[0], y[1], y[2], y[3]
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.Gravity

	sinD, cosD := math.Sincos(theta2 - theta1)
	den1 := (m1+m2)*l1 - m2*l1*cosD*cosD
	den2 := (l2 / l1) * den1

	alpha1 := (m2*l1*omega1*omega1*sinD*cosD +
		m2*g*math.Sin(theta2)*cosD +
		m2*l2*omega2*omega2*sinD -
		(m1+m2)*g*math.Sin(theta1)) / den1

	alpha2 := (-m2*l2*omega2*omega2*sinD*cosD +
		(m1+m2)*g*math.Sin(theta1)*cosD -
		(m1+m2)*l1*omega1*omega1*sinD -
		(m1+m2)*g*math.Sin(theta2)) / den2

	return dynamo.State{omega1, omega2, alpha1, alpha2}, nil
}

func (d *DoublePendulum) Energy(y dynamo.State) float64 {
	theta1, theta2, omega1, omega2 := y[0], y[1], y[2], y[3]
	m1, m2, l1, l2, g := d.M1, d.M2, d.L1, d.L2, d.Gravity

	v1sq := l1 * l1 * omega1 * omega1
	v2sq := v1sq + l2*l2*omega2*omega2 + 2*l1*l2*omega1*omega2*math.Cos(theta1-theta2)
	h1 := -l1 * math.Cos(theta1)
	h2 := h1 - l2*math.Cos(theta2)

	return 0.5*m1*v1sq + 0.5*m2*v2sq + g*(m1*h1+m2*h2)
}

func (d *DoublePendulum) GetParams() map[string]float64 {
	return map[string]float64{"m1": d.M1, "m2": d.M2, "l1": d.L1, "l2": d.L2, "gravity": d.Gravity}
}

func (d *DoublePendulum) SetParam(name string, value float64) error {
	switch name {
	case "m1":
		d.M1 = value
	case "m2":
		d.M2 = value
	case "l1":
		d.L1 = value
	case "l2":
		d.L2 = value
	case "gravity":
		d.Gravity = value
	default:
		return unknownParam("double", name)
	}
	return nil
}
