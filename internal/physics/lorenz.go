package physics

import "github.com/san-kum/odestep/internal/dynamo"

type Lorenz struct{ Sigma, Rho, Beta float64 }

func NewLorenz() *Lorenz         { return &Lorenz{10.0, 28.0, 8.0 / 3.0} }
func (l *Lorenz) Dimension() int { return 3 }

// Derive calculates the Lorenz attractor derivatives.
func (l *Lorenz) Derive(_ float64, s dynamo.State) (dynamo.State, error) {
	return dynamo.State{l.Sigma * (s[1] - s[0]), s[0]*(l.Rho-s[2]) - s[1], s[0]*s[1] - l.Beta*s[2]}, nil
}

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}

func (l *Lorenz) SetParam(n string, v float64) error {
	switch n {
	case "sigma":
		l.Sigma = v
	case "rho":
		l.Rho = v
	case "beta":
		l.Beta = v
	default:
		return unknownParam("lorenz", n)
	}
	return nil
}
