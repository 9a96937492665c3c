package roots

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(f func(float64) float64) Func {
	return func(x float64) (float64, error) { return f(x), nil }
}

func TestSolveFindsRoots(t *testing.T) {
	tests := []struct {
		name   string
		f      func(float64) float64
		lo, hi float64
		want   float64
	}{
		{"linear", func(x float64) float64 { return 2*x - 1 }, 0, 1, 0.5},
		{"cubic", func(x float64) float64 { return x*x*x - 2*x - 5 }, 2, 3, 2.0945514815423265},
		{"sine", math.Sin, 3, 4, math.Pi},
		{"reversed ends", math.Sin, 4, 3, math.Pi},
		{"flat near root", func(x float64) float64 { return math.Pow(x-1, 5) }, 0, 3, 1},
	}

	s := NewBrent(1e-12, 200)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Solve(plain(tt.f), tt.lo, tt.hi, tt.f(tt.lo), tt.f(tt.hi), AnySide)
			require.NoError(t, err)
			tol := 1e-10
			if tt.name == "flat near root" {
				tol = 1e-2
			}
			assert.InDelta(t, tt.want, got, tol)
		})
	}
}

func TestSolveSides(t *testing.T) {
	f := func(x float64) float64 { return x - 1.0/3.0 }
	s := NewBrent(1e-9, 100)

	right, err := s.Solve(plain(f), 0, 1, f(0), f(1), RightSide)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f(right), 0.0)
	assert.InDelta(t, 1.0/3.0, right, 1e-9)

	left, err := s.Solve(plain(f), 0, 1, f(0), f(1), LeftSide)
	require.NoError(t, err)
	assert.LessOrEqual(t, f(left), 0.0)
	assert.InDelta(t, 1.0/3.0, left, 1e-9)

	// sides refer to abscissas, not to the argument order
	left, err = s.Solve(plain(f), 1, 0, f(1), f(0), LeftSide)
	require.NoError(t, err)
	assert.LessOrEqual(t, f(left), 0.0)
}

func TestSolveZeroAtEnd(t *testing.T) {
	s := NewBrent(1e-12, 10)
	f := func(x float64) float64 { return x - 2 }

	got, err := s.Solve(plain(f), 2, 5, 0, 3, RightSide)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = s.Solve(plain(f), 0, 2, -2, 0, LeftSide)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestSolveNotBracketed(t *testing.T) {
	s := NewBrent(1e-12, 10)
	f := func(x float64) float64 { return x*x + 1 }
	_, err := s.Solve(plain(f), -1, 1, f(-1), f(1), AnySide)
	require.ErrorIs(t, err, dynamo.ErrNoBracketing)

	var be *BracketError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, -1.0, be.Lo)
	assert.Equal(t, 1.0, be.Hi)
}

func TestSolveIterationBudget(t *testing.T) {
	s := NewBrent(1e-15, 2)
	_, err := s.Solve(plain(math.Sin), 3, 4, math.Sin(3), math.Sin(4), AnySide)
	require.ErrorIs(t, err, dynamo.ErrMaxIterations)

	var be *BracketError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 2, be.Iterations)
	assert.LessOrEqual(t, be.Lo, math.Pi)
	assert.GreaterOrEqual(t, be.Hi, math.Pi)
}

func TestSolvePropagatesFunctionError(t *testing.T) {
	boom := errors.New("boom")
	s := NewBrent(1e-12, 50)
	f := func(x float64) (float64, error) { return 0, boom }
	_, err := s.Solve(f, 0, 1, -1, 1, AnySide)
	assert.Same(t, boom, err)
}
