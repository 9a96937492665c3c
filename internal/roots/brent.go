// Package roots isolates zeros of continuous scalar functions inside a
// bracketing interval.
package roots

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
)

// Side selects which end of the final bracket is returned.
type Side int

const (
	// AnySide returns the best estimate, whichever side of the root it is on.
	AnySide Side = iota
	// LeftSide returns the lower end of the final bracket.
	LeftSide
	// RightSide returns the upper end of the final bracket.
	RightSide
)

// Func is the function whose root is searched. Errors abort the search and
// are returned as is.
type Func func(x float64) (float64, error)

// BracketError reports a search that could not isolate the root.
type BracketError struct {
	Lo, Hi     float64
	Iterations int
	Wrapped    error
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("%v: bracket [%.17g, %.17g] after %d iterations", e.Wrapped, e.Lo, e.Hi, e.Iterations)
}

func (e *BracketError) Unwrap() error { return e.Wrapped }

// Brent is a bracketing solver combining bisection, secant and inverse
// quadratic interpolation. It only needs f to be continuous: every step
// keeps a sign change inside the bracket and falls back to bisection when
// interpolation does not shrink the bracket fast enough.
type Brent struct {
	// AbsoluteAccuracy is the width below which the bracket is accepted.
	AbsoluteAccuracy float64
	// MaxIterations is the evaluation budget, excluding the two end points.
	MaxIterations int
}

func NewBrent(accuracy float64, maxIterations int) *Brent {
	return &Brent{AbsoluteAccuracy: accuracy, MaxIterations: maxIterations}
}

// Solve finds a root of f in [lo, hi] given f(lo) = flo and f(hi) = fhi.
// The ends may be given in either order; sides always refer to the smaller
// and larger abscissa. With LeftSide the returned x satisfies sign(f(x)) == sign(flo) or f(x) == 0,
// with RightSide sign(f(x)) == sign(fhi) or f(x) == 0.
func (s *Brent) Solve(f Func, lo, hi, flo, fhi float64, side Side) (float64, error) {
	if lo > hi {
		lo, hi = hi, lo
		flo, fhi = fhi, flo
	}
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if (flo > 0) == (fhi > 0) {
		return 0, &BracketError{Lo: lo, Hi: hi, Wrapped: dynamo.ErrNoBracketing}
	}

	wantSign := math.Signbit(fhi)
	if side == LeftSide {
		wantSign = math.Signbit(flo)
	}

	a, b := lo, hi
	fa, fb := flo, fhi
	c, fc := b, fb
	var d, e float64

	for iter := 0; iter <= s.MaxIterations; iter++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}

		tol := 2*epsilon*math.Abs(b) + 0.5*s.AbsoluteAccuracy
		xm := 0.5 * (c - b)
		if fb == 0 {
			return b, nil
		}
		if math.Abs(xm) <= tol {
			return pick(b, fb, c, side, wantSign), nil
		}
		if iter == s.MaxIterations {
			break
		}

		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			sr := fb / fa
			if a == c {
				p = 2 * xm * sr
				q = 1 - sr
			} else {
				qa := fa / fc
				r := fb / fc
				p = sr * (2*xm*qa*(qa-r) - (b-a)*(r-1))
				q = (qa - 1) * (r - 1) * (sr - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			min1 := 3*xm*q - math.Abs(tol*q)
			min2 := math.Abs(e * q)
			if 2*p < math.Min(min1, min2) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}

		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else {
			b += math.Copysign(tol, xm)
		}
		var err error
		if fb, err = f(b); err != nil {
			return 0, err
		}
	}

	return 0, &BracketError{
		Lo:         math.Min(b, c),
		Hi:         math.Max(b, c),
		Iterations: s.MaxIterations,
		Wrapped:    dynamo.ErrMaxIterations,
	}
}

const epsilon = 0x1p-52

// pick returns the end of the final bracket [b, c] required by side.
func pick(b, fb, c float64, side Side, wantSign bool) float64 {
	switch side {
	case LeftSide, RightSide:
		if math.Signbit(fb) == wantSign {
			return b
		}
		return c
	default:
		return b
	}
}
