package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sim"
)

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// reference trajectory and a perturbed one. After every step the
// separation is logged and scaled back to the initial perturbation, so the
// two trajectories never drift apart. A positive value indicates chaos.
//
//	λ ≈ Σ ln(|δy_k| / δ0) / duration
func LyapunovExponent(
	stepper sim.Stepper,
	eq dynamo.Equation,
	t0 float64,
	y0 dynamo.State,
	step, duration float64,
	perturbation float64,
) (float64, error) {
	if err := dynamo.CheckDimension("initial state", y0, eq.Dimension()); err != nil {
		return 0, err
	}
	if !(step > 0) || !(duration > 0) || !(perturbation > 0) {
		return 0, fmt.Errorf("step, duration and perturbation must be positive")
	}

	y := y0.Clone()
	yp := y0.Clone()
	yp[0] += perturbation

	t := t0
	end := t0 + duration
	sumLog := 0.0
	for t < end {
		next := math.Min(t+step, end)
		s, err := stepper.Advance(eq, t, y, next)
		if err != nil {
			return 0, err
		}
		sp, err := stepper.Advance(eq, t, yp, next)
		if err != nil {
			return 0, err
		}
		y, yp, t = s.Y1, sp.Y1, s.T1

		sep := yp.Sub(y).Norm()
		if sep == 0 || !y.IsValid() || !yp.IsValid() {
			return 0, fmt.Errorf("%w: separation %v at t=%v", dynamo.ErrInvalidState, sep, t)
		}
		sumLog += math.Log(sep / perturbation)
		yp = y.AddScaled(perturbation/sep, yp.Sub(y))
	}
	return sumLog / (t - t0), nil
}
