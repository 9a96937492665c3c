package integrators

import (
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// derive evaluates the equation and checks the derivative length. Errors
// coming from the equation itself are returned untouched.
func derive(eq dynamo.Equation, t float64, y dynamo.State) (dynamo.State, error) {
	dy, err := eq.Derive(t, y)
	if err != nil {
		return nil, err
	}
	if len(dy) != len(y) {
		return nil, fmt.Errorf("%w: derivative has %d components, state has %d",
			dynamo.ErrDimensionMismatch, len(dy), len(y))
	}
	return dy, nil
}

// combine returns y + h * sum(c[i] * k[i]).
func combine(y dynamo.State, h float64, c []float64, k []dynamo.State) dynamo.State {
	out := y.Clone()
	for i, ki := range k {
		if c[i] != 0 {
			floats.AddScaled(out, h*c[i], ki)
		}
	}
	return out
}
