package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |X_k|²/n for k = 0..n/2, where X is the discrete
// Fourier transform of data. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	coeffs := fft.FFTReal(data)
	ps := make([]float64, n/2+1)
	for k := range ps {
		a := cmplx.Abs(coeffs[k])
		ps[k] = a * a / float64(n)
	}
	return ps
}

// DominantFrequency returns the frequency of the strongest non-constant
// component of data sampled every dt.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	if !(dt > 0) {
		return 0, fmt.Errorf("sampling step must be positive, got %v", dt)
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("need at least 4 samples, got %d", len(data))
	}

	centered := make([]float64, len(data))
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	best := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[best] {
			best = k
		}
	}
	return float64(best) / (float64(len(data)) * dt), nil
}
