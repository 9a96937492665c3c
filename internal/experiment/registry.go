package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/physics"
	"github.com/san-kum/odestep/internal/sim"
)

// Registry maps names to problem and stepper factories. Every lookup builds
// a fresh value, so results of a lookup are never shared between runs.
type Registry struct {
	problems map[string]func() *physics.Problem
	steppers map[string]func() sim.Stepper
}

func NewRegistry() *Registry {
	r := &Registry{
		problems: make(map[string]func() *physics.Problem),
		steppers: make(map[string]func() sim.Stepper),
	}

	r.problems["ramp"] = physics.Ramp
	r.problems["decay"] = physics.Decay
	r.problems["decay-backward"] = physics.DecayBackward
	r.problems["oscillator"] = physics.Oscillator
	r.problems["bounce"] = physics.Bounce

	r.problems["pendulum"] = func() *physics.Problem {
		return model("pendulum", physics.NewPendulum(), 10, 0.5, 0)
	}
	r.problems["coupled"] = func() *physics.Problem {
		return model("coupled", physics.NewCoupledPendulums(), 20, 0.5, 0, 0, 0)
	}
	r.problems["double"] = func() *physics.Problem {
		return model("double", physics.NewDoublePendulum(), 20, 1.5, 1.5, 0, 0)
	}
	r.problems["spring"] = func() *physics.Problem {
		return model("spring", physics.NewSpringMassChain(3), 10, 1, 0, 0, 0, 0, 0)
	}
	r.problems["duffing"] = func() *physics.Problem {
		return model("duffing", physics.NewDuffing(), 50, 1, 0)
	}
	r.problems["doublewell"] = func() *physics.Problem {
		return model("doublewell", physics.NewDoubleWell(), 30, 1.5, 0)
	}
	r.problems["vanderpol"] = func() *physics.Problem {
		return model("vanderpol", physics.NewVanDerPol(), 30, 2, 0)
	}
	r.problems["lorenz"] = func() *physics.Problem {
		return model("lorenz", physics.NewLorenz(), 30, 1, 1, 1)
	}
	r.problems["rossler"] = func() *physics.Problem {
		return model("rossler", physics.NewRossler(), 100, 1, 1, 1)
	}
	r.problems["threebody"] = func() *physics.Problem {
		return model("threebody", physics.NewThreeBody(), 10, physics.FigureEight()...)
	}

	r.steppers["euler"] = func() sim.Stepper { return integrators.NewEuler() }
	r.steppers["midpoint"] = func() sim.Stepper { return integrators.NewMidpoint() }
	r.steppers["rk4"] = func() sim.Stepper { return integrators.NewRK4() }

	return r
}

// model wraps an equation without a closed form solution into a problem
// starting at t = 0.
func model(name string, eq dynamo.Equation, t1 float64, y0 ...float64) *physics.Problem {
	return &physics.Problem{Name: name, Equation: eq, T1: t1, Y0: dynamo.State(y0)}
}

func (r *Registry) GetProblem(name string) (*physics.Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetStepper(name string) (sim.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListProblems() []string {
	return sortedKeys(r.problems)
}

func (r *Registry) ListSteppers() []string {
	return sortedKeys(r.steppers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
