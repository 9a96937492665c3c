// Package dynamo provides the core primitives shared by the integration engine.
//
// The package defines the fundamental types used to describe an initial
// value problem y' = f(t, y):
//
//   - [State]: vector representing the system state
//   - [Equation]: interface for first order ODE systems
//   - [Direction]: forward or backward integration, fixed per run
//   - [Hamiltonian]: optional energy of an equation
//   - [Configurable]: optional runtime parameters of an equation
//
// Errors are exposed as sentinel values ([ErrDimensionMismatch],
// [ErrStepExhausted], ...) so callers can test them with errors.Is
// whatever context has been wrapped around them.
//
// # Example
//
//	eq := physics.NewOscillator(1.0)
//	s := sim.New(integrators.NewMidpoint(), sim.DefaultConfig())
//	y := make(dynamo.State, eq.Dimension())
//	tEnd, err := s.Integrate(eq, 0, dynamo.State{1, 0}, 10, y)
package dynamo
