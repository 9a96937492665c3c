package metrics

import (
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/sampling"
)

// Metric is a step observer summarising a run in a single number.
type Metric interface {
	sampling.Observer
	Name() string
	Value() float64
}

// EnergyDrift tracks the largest relative deviation of the energy of a
// Hamiltonian system from its initial value, checked at every step end.
type EnergyDrift struct {
	h             dynamo.Hamiltonian
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(h dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{h: h}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Init(t0 float64, y0 dynamo.State, t float64) {
	e.initialEnergy = e.h.Energy(y0)
	e.currentEnergy = e.initialEnergy
	e.maxDrift = 0
	e.samples = 1
}

func (e *EnergyDrift) HandleStep(in *sampling.Interpolator, isLast bool) error {
	e.observe(in.CurrentState())
	return nil
}

func (e *EnergyDrift) observe(y dynamo.State) {
	energy := e.h.Energy(y)
	e.currentEnergy = energy
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if e.initialEnergy != 0 {
		drift /= math.Abs(e.initialEnergy)
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Final() float64 { return e.currentEnergy }
