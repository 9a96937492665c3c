package physics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// ThreeBody implements the planar gravitational three-body problem.
// State: [x1, y1, vx1, vy1, x2, y2, vx2, vy2, x3, y3, vx3, vy3].
// Distances are softened to keep close encounters integrable.
type ThreeBody struct {
	Masses    [3]float64
	G         float64
	Softening float64
}

func NewThreeBody() *ThreeBody {
	return &ThreeBody{
		Masses:    [3]float64{1, 1, 1},
		G:         1.0,
		Softening: 0.1,
	}
}

func (b *ThreeBody) Dimension() int { return 12 }

func (b *ThreeBody) distance(y dynamo.State, i, j int) (dx, dy, r float64) {
	dx = y[4*j] - y[4*i]
	dy = y[4*j+1] - y[4*i+1]
	r = math.Sqrt(dx*dx + dy*dy + b.Softening*b.Softening)
	return dx, dy, r
}

func (b *ThreeBody) Derive(_ float64, y dynamo.State) (dynamo.State, error) {
	d := make(dynamo.State, 12)
	for i := 0; i < 3; i++ {
		d[4*i] = y[4*i+2]
		d[4*i+1] = y[4*i+3]
		for j := 0; j < 3; j++ {
			if i == j {
				continue
			}
			dx, dy, r := b.distance(y, i, j)
			f := b.G * b.Masses[j] / (r * r * r)
			d[4*i+2] += f * dx
			d[4*i+3] += f * dy
		}
	}
	return d, nil
}

func (b *ThreeBody) Energy(y dynamo.State) float64 {
	e := 0.0
	for i := 0; i < 3; i++ {
		vx, vy := y[4*i+2], y[4*i+3]
		e += 0.5 * b.Masses[i] * (vx*vx + vy*vy)
		for j := i + 1; j < 3; j++ {
			_, _, r := b.distance(y, i, j)
			e -= b.G * b.Masses[i] * b.Masses[j] / r
		}
	}
	return e
}

// FigureEight is an approximation of the figure-eight choreography.
func FigureEight() dynamo.State {
	return dynamo.State{
		-1.0, 0.0, 0.347, 0.532,
		1.0, 0.0, 0.347, 0.532,
		0.0, 0.0, -0.694, -1.064,
	}
}

func (b *ThreeBody) GetParams() map[string]float64 {
	return map[string]float64{
		"m1": b.Masses[0],
		"m2": b.Masses[1],
		"m3": b.Masses[2],
		"g":  b.G,
	}
}

func (b *ThreeBody) SetParam(name string, value float64) error {
	switch name {
	case "m1":
		b.Masses[0] = value
	case "m2":
		b.Masses[1] = value
	case "m3":
		b.Masses[2] = value
	case "g":
		b.G = value
	default:
		return unknownParam("threebody", name)
	}
	return nil
}
