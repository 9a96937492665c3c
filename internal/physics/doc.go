// Package physics provides the equations odestep integrates.
//
// Models implement [dynamo.Equation]; most also implement
// [dynamo.Configurable] for parameter overrides and [dynamo.Hamiltonian]
// when an energy is conserved (or dissipated) by the dynamics:
//
//   - [Pendulum], [CoupledPendulums], [DoublePendulum]: nonlinear pendulums
//   - [SpringMass]: chain of masses between two walls
//   - [Duffing], [DoubleWell], [VanDerPol]: nonlinear oscillators
//   - [Lorenz], [Rossler]: chaotic attractors
//   - [ThreeBody]: planar gravitational three-body problem
//
// A [Problem] bundles an equation with its initial point, its target time
// and, for the reference problems ([Ramp], [Decay], [DecayBackward],
// [Oscillator], [Bounce]), the exact solution used to measure errors.
package physics

import "fmt"

func unknownParam(model, name string) error {
	return fmt.Errorf("%s: unknown parameter %q", model, name)
}
