package sampling

import "github.com/san-kum/odestep/internal/dynamo"

// Kernel reconstructs the solution inside one step from the step record.
// theta is the normalized position (t - T0) / (T1 - T0) and oneMinusThetaH
// is T1 - t, passed separately to keep the end-side formula accurate.
// Implementations write into y and yDot and must not retain them.
type Kernel interface {
	Interpolate(s *Step, theta, oneMinusThetaH float64, y, yDot dynamo.State)
}

// Step is the record of one completed stepper invocation. It is never
// modified once built: truncation and restriction produce new interpolators
// sharing the same record.
type Step struct {
	T0, T1 float64
	Y0, Y1 dynamo.State
	// Stages holds the derivative samples the kernel needs, Stages[0] = f(T0, Y0).
	Stages []dynamo.State
	Kernel Kernel
}

func (s *Step) H() float64 { return s.T1 - s.T0 }

func (s *Step) Dimension() int { return len(s.Y0) }
