package physics

import "github.com/san-kum/odestep/internal/dynamo"

const (
	DefaultMass      = 1.0
	DefaultStiffness = 10.0
	DefaultDamping   = 0.5
)

// SpringMass is a chain of n masses tied to two walls by n+1 springs.
// State: [x1..xn, v1..vn]. Without a right wall the last spring stiffness
// is zero.
type SpringMass struct {
	Masses    []float64
	Stiffness []float64
	Damping   []float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Masses:    []float64{DefaultMass},
		Stiffness: []float64{DefaultStiffness, 0},
		Damping:   []float64{DefaultDamping},
	}
}

func NewSpringMassChain(n int) *SpringMass {
	s := &SpringMass{
		Masses:    make([]float64, n),
		Stiffness: make([]float64, n+1),
		Damping:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Masses[i] = DefaultMass
		s.Stiffness[i] = DefaultStiffness
		s.Damping[i] = 0.2
	}
	s.Stiffness[n] = DefaultStiffness
	return s
}

func (s *SpringMass) n() int { return len(s.Masses) }

func (s *SpringMass) Dimension() int { return 2 * s.n() }

// stretch is the elongation of spring i, which links mass i-1 to mass i.
func (s *SpringMass) stretch(y dynamo.State, i int) float64 {
	n := s.n()
	switch {
	case i == 0:
		return y[0]
	case i == n:
		return -y[n-1]
	default:
		return y[i] - y[i-1]
	}
}

func (s *SpringMass) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	n := s.n()
	dy := make(dynamo.State, 2*n)
	copy(dy[:n], y[n:])

	for i := 0; i < n; i++ {
		force := -s.Stiffness[i]*s.stretch(y, i) + s.Stiffness[i+1]*s.stretch(y, i+1)
		force -= s.Damping[i] * y[n+i]
		dy[n+i] = force / s.Masses[i]
	}
	return dy, nil
}

func (s *SpringMass) Energy(y dynamo.State) float64 {
	n := s.n()
	energy := 0.0
	for i := 0; i < n; i++ {
		v := y[n+i]
		energy += 0.5 * s.Masses[i] * v * v
	}
	for i := 0; i <= n; i++ {
		d := s.stretch(y, i)
		energy += 0.5 * s.Stiffness[i] * d * d
	}
	return energy
}

// GetParams exposes the parameters shared by the whole chain.
func (s *SpringMass) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.Masses[0],
		"stiffness": s.Stiffness[0],
		"damping":   s.Damping[0],
	}
}

// SetParam applies value to every mass, spring or damper of the chain.
func (s *SpringMass) SetParam(name string, value float64) error {
	var target []float64
	switch name {
	case "mass":
		target = s.Masses
	case "stiffness":
		target = s.Stiffness
	case "damping":
		target = s.Damping
	default:
		return unknownParam("spring", name)
	}
	for i := range target {
		if name == "stiffness" && i == len(target)-1 && target[i] == 0 {
			continue
		}
		target[i] = value
	}
	return nil
}
