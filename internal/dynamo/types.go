package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

// MaxDistance is the infinity-norm distance between two states of equal length.
func (s State) MaxDistance(other State) float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Distance(s, other, math.Inf(1))
}

func (s State) Add(other State) State {
	result := s.Clone()
	floats.Add(result, other)
	return result
}

func (s State) Sub(other State) State {
	result := s.Clone()
	floats.Sub(result, other)
	return result
}

func (s State) Scale(factor float64) State {
	result := s.Clone()
	floats.Scale(factor, result)
	return result
}

// AddScaled returns s + alpha*v as a new state.
func (s State) AddScaled(alpha float64, v State) State {
	result := make(State, len(s))
	floats.AddScaledTo(result, s, alpha, v)
	return result
}

// Equation is a first order system y' = f(t, y).
// Derive must not modify y and must return a slice of length Dimension().
type Equation interface {
	Dimension() int
	Derive(t float64, y State) (State, error)
}

type Hamiltonian interface {
	Energy(y State) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Direction of integration, fixed for the lifetime of a run.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func DirectionOf(t0, t float64) Direction {
	if t < t0 {
		return Backward
	}
	return Forward
}

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// After reports whether a lies strictly after b in direction d.
func (d Direction) After(a, b float64) bool {
	if d == Backward {
		return a < b
	}
	return a > b
}

// Before reports whether a lies strictly before b in direction d.
func (d Direction) Before(a, b float64) bool {
	return d.After(b, a)
}

// Shift moves t by the magnitude dt along d.
func (d Direction) Shift(t, dt float64) float64 {
	return t + float64(d)*dt
}

// CheckDimension verifies that y has exactly n components.
func CheckDimension(what string, y State, n int) error {
	if len(y) != n {
		return fmt.Errorf("%w: %s has %d components, expected %d", ErrDimensionMismatch, what, len(y), n)
	}
	return nil
}
