package sim_test

import (
	"context"
	"errors"
	"math"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/events"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/roots"
	"github.com/san-kum/odestep/internal/sim"
)

func newSim(stepper sim.Stepper, step float64) *sim.Simulator {
	cfg := sim.DefaultConfig()
	cfg.Step = step
	return sim.New(stepper, cfg)
}

var _ = Describe("Simulator", func() {
	Describe("fixed stepping", func() {
		It("takes full steps and lands exactly on the target", func() {
			s := newSim(integrators.NewEuler(), 1.23456)
			rec := &recorder{}
			s.AddObserver(rec)

			y := dynamo.State{0}
			tEnd, err := s.Integrate(ramp{dim: 1}, 0, dynamo.State{0}, 5, y)
			Expect(err).NotTo(HaveOccurred())
			Expect(tEnd).To(Equal(5.0))
			Expect(y[0]).To(BeNumerically("~", 5, 1e-12))

			Expect(rec.pieces).To(HaveLen(5))
			for _, p := range rec.pieces[:len(rec.pieces)-1] {
				Expect(p.t1 - p.t0).To(BeNumerically("~", 1.23456, 1e-12))
				Expect(p.isLast).To(BeFalse())
			}
			last := rec.pieces[len(rec.pieces)-1]
			Expect(last.isLast).To(BeTrue())
			Expect(last.t1).To(Equal(5.0))
			Expect(last.t1 - last.t0).To(BeNumerically("~", 5-4*1.23456, 1e-12))
		})

		DescribeTable("builds the last step on the target instead of patching it",
			func(t0, t1, step float64) {
				tr := &tracingStepper{Stepper: integrators.NewMidpoint()}
				s := newSim(tr, step)
				_, err := s.Run(oscillator{}, t0, dynamo.State{1, 0}, t1)
				Expect(err).NotTo(HaveOccurred())

				Expect(tr.steps).NotTo(BeEmpty())
				for i, st := range tr.steps {
					Expect(st.T1).To(Equal(tr.ends[i]), "step %d changed after it was built", i)
					if i > 0 {
						Expect(st.T0).To(Equal(tr.steps[i-1].T1))
					}
				}
				Expect(tr.steps[len(tr.steps)-1].T1).To(Equal(t1))
			},
			Entry("forward", 0.1, 0.7, 0.1),
			Entry("backward", 0.7, 0.1, 0.1),
			Entry("uneven", 0.3, 2.9, 0.37),
		)

		It("reports statistics", func() {
			s := newSim(integrators.NewRK4(), 0.5)
			res, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(sim.Done))
			Expect(res.Steps).To(Equal(4))
			Expect(res.Evaluations).To(Equal(16))
			Expect(res.Stopped).To(BeFalse())
			Expect(res.Events).To(BeEmpty())
		})

		It("initialises observers once with the run bounds", func() {
			s := newSim(integrators.NewMidpoint(), 0.1)
			rec := &recorder{}
			s.AddObserver(rec)
			_, err := s.Run(decay{}, 0, dynamo.State{1}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.inits).To(Equal(1))
			Expect(rec.t0).To(Equal(0.0))
			Expect(rec.t1).To(Equal(1.0))
			Expect(rec.y0).To(Equal(dynamo.State{1}))
			Expect(rec.lastCount()).To(Equal(1))
		})

		DescribeTable("keeps step end times monotonic",
			func(t0, t1 float64) {
				s := newSim(integrators.NewRK4(), 0.07)
				s.AddEventHandler(&events.Threshold{Index: 0, Level: 0.3, Action: events.Continue}, events.DefaultSettings())
				s.AddEventHandler(&events.Threshold{Index: 0, Level: -0.3, Action: events.Continue}, events.DefaultSettings())
				rec := &recorder{}
				s.AddObserver(rec)

				_, err := s.Run(oscillator{}, t0, dynamo.State{1, 0}, t1)
				Expect(err).NotTo(HaveOccurred())

				dir := dynamo.DirectionOf(t0, t1)
				prev := t0
				for _, p := range rec.pieces {
					Expect(dir.After(p.t1, prev)).To(BeTrue(), "piece [%v, %v] after %v", p.t0, p.t1, prev)
					Expect(p.t0).To(Equal(prev))
					prev = p.t1
				}
				Expect(prev).To(Equal(t1))
			},
			Entry("forward", 0.0, 10.0),
			Entry("backward", 10.0, 0.0),
		)

		It("hands out interpolators exact at both ends", func() {
			s := newSim(integrators.NewRK4(), 0.25)
			s.AddEventHandler(&events.Threshold{Index: 0, Level: 0, Action: events.Continue}, events.DefaultSettings())
			rec := &recorder{}
			s.AddObserver(rec)

			_, err := s.Run(oscillator{}, 0, dynamo.State{1, 0}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(rec.pieces)).To(BeNumerically(">", 28))
			for i, p := range rec.pieces {
				Expect(p.exact).To(BeTrue())
				if i > 0 {
					Expect(equalBits(p.y0, rec.pieces[i-1].y1)).To(BeTrue(), "piece %d does not continue piece %d", i, i-1)
				}
			}
		})

		It("returns to the initial state when integrating back", func() {
			for _, stepper := range []sim.Stepper{integrators.NewMidpoint(), integrators.NewRK4()} {
				s := newSim(stepper, 0.01)
				y := dynamo.State{0}
				_, err := s.Integrate(decay{}, 0, dynamo.State{1}, 2, y)
				Expect(err).NotTo(HaveOccurred())
				back := dynamo.State{0}
				tEnd, err := s.Integrate(decay{}, 2, y, 0, back)
				Expect(err).NotTo(HaveOccurred())
				Expect(tEnd).To(Equal(0.0))

				tol := 1e-3
				if stepper.Order() == 4 {
					tol = 1e-8
				}
				Expect(back[0]).To(BeNumerically("~", 1, tol), stepper.Name())
			}
		})

		It("reduces the error at every halving of the step", func() {
			for _, stepper := range []sim.Stepper{integrators.NewEuler(), integrators.NewMidpoint(), integrators.NewRK4()} {
				prev := math.Inf(1)
				for k := 0; k <= 5; k++ {
					s := newSim(stepper, 0.5/math.Pow(2, float64(k)))
					y := dynamo.State{0}
					_, err := s.Integrate(decay{}, 0, dynamo.State{1}, 2, y)
					Expect(err).NotTo(HaveOccurred())
					e := math.Abs(y[0] - math.Exp(-2))
					Expect(e).To(BeNumerically("<", prev), "%s at halving %d", stepper.Name(), k)
					prev = e
				}
			}
		})
	})

	Describe("events", func() {
		DescribeTable("stops at the root whatever the step",
			func(step float64) {
				s := newSim(integrators.NewRK4(), step)
				s.AddEventHandler(&events.Threshold{Index: 0, Level: 2.5, Action: events.Stop}, events.DefaultSettings())
				rec := &recorder{}
				s.AddObserver(rec)

				y := dynamo.State{0}
				tEnd, err := s.Integrate(ramp{dim: 1}, 0, dynamo.State{0}, 5, y)
				Expect(err).NotTo(HaveOccurred())
				Expect(tEnd).To(BeNumerically("~", 2.5, 1e-9))
				Expect(y[0]).To(BeNumerically("~", 2.5, 1e-9))

				last := rec.pieces[len(rec.pieces)-1]
				Expect(last.isLast).To(BeTrue())
				Expect(last.t1).To(Equal(tEnd))
				Expect(rec.lastCount()).To(Equal(1))
			},
			Entry("small", 0.1),
			Entry("irregular", 1.23456),
			Entry("one step to the root", 2.5),
			Entry("larger than the root", 4.0),
		)

		It("stops backward integration too", func() {
			s := newSim(integrators.NewMidpoint(), 0.3)
			s.AddEventHandler(&events.Threshold{Index: 0, Level: 2.5, Action: events.Stop}, events.DefaultSettings())
			res, err := s.Run(ramp{dim: 1}, 5, dynamo.State{5}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stopped).To(BeTrue())
			Expect(res.FinalTime).To(BeNumerically("~", 2.5, 1e-9))
			Expect(res.Events).To(HaveLen(1))
			Expect(res.Events[0].Increasing).To(BeFalse())
		})

		It("reports simultaneous events lowest index first, every time", func() {
			runOnce := func() []sim.EventRecord {
				s := newSim(integrators.NewRK4(), 0.4)
				s.AddEventHandler(&handler{g: func(t float64, y dynamo.State) float64 { return 1.5 - y[0] }}, events.DefaultSettings())
				s.AddEventHandler(&events.Threshold{Index: 0, Level: 1.5}, events.DefaultSettings())
				s.AddEventHandler(&events.AtTime{Time: 3}, events.DefaultSettings())
				res, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 4)
				Expect(err).NotTo(HaveOccurred())
				return res.Events
			}

			first := runOnce()
			Expect(first).To(HaveLen(3))
			Expect(first[0].Handler).To(Equal(0))
			Expect(first[1].Handler).To(Equal(1))
			Expect(first[0].Time).To(Equal(first[1].Time))
			Expect(first[2].Handler).To(Equal(2))
			Expect(first[2].Time).To(BeNumerically("~", 3, 1e-9))

			for i := 0; i < 3; i++ {
				Expect(cmp.Diff(first, runOnce())).To(BeEmpty())
			}
		})

		It("does not trigger again after a derivative reset", func() {
			s := newSim(integrators.NewRK4(), 0.3)
			s.AddEventHandler(&events.Threshold{Index: 0, Level: 1, Action: events.ResetDerivatives}, events.DefaultSettings())
			res, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Events).To(HaveLen(1))
			Expect(res.FinalTime).To(Equal(3.0))
			Expect(res.FinalState[0]).To(BeNumerically("~", 3, 1e-12))
		})

		It("restarts from the reset state", func() {
			s := newSim(integrators.NewRK4(), 0.3)
			s.AddEventHandler(&handler{
				g:      func(t float64, y dynamo.State) float64 { return y[0] - 1 },
				action: events.ResetState,
				reset:  func(t float64, y dynamo.State) dynamo.State { return dynamo.State{0} },
			}, events.DefaultSettings())
			rec := &recorder{}
			s.AddObserver(rec)

			res, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 4.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Events).To(HaveLen(4))
			for i, ev := range res.Events {
				Expect(ev.Time).To(BeNumerically("~", float64(i+1), 1e-8))
				Expect(ev.Action).To(Equal(events.ResetState))
			}
			Expect(res.FinalState[0]).To(BeNumerically("~", 0.5, 1e-8))
			Expect(rec.lastCount()).To(Equal(1))
		})

		It("keeps the larger action of a group", func() {
			s := newSim(integrators.NewEuler(), 1)
			s.AddEventHandler(&events.AtTime{Time: 2.5, Action: events.Continue}, events.DefaultSettings())
			s.AddEventHandler(&events.AtTime{Time: 2.5, Action: events.Stop}, events.DefaultSettings())
			res, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stopped).To(BeTrue())
			Expect(res.Events).To(HaveLen(2))
			Expect(res.FinalTime).To(BeNumerically("~", 2.5, 1e-9))
		})
	})

	Describe("failures", func() {
		It("rejects an initial state of the wrong size", func() {
			_, err := newSim(integrators.NewRK4(), 0.1).Run(ramp{dim: 2}, 0, dynamo.State{0}, 1)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("rejects derivatives of the wrong size", func() {
			_, err := newSim(integrators.NewRK4(), 0.1).Run(wrongDimension{}, 0, dynamo.State{0}, 1)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		DescribeTable("rejects degenerate steps",
			func(step, t0, t1 float64) {
				_, err := newSim(integrators.NewRK4(), step).Run(ramp{dim: 1}, t0, dynamo.State{0}, t1)
				Expect(err).To(MatchError(dynamo.ErrDegenerateStep))
			},
			Entry("zero step", 0.0, 0.0, 1.0),
			Entry("negative step", -0.1, 0.0, 1.0),
			Entry("infinite step", math.Inf(1), 0.0, 1.0),
			Entry("empty span", 0.1, 1.0, 1.0),
			Entry("step lost in rounding", 1e-20, 1e6, 2e6),
		)

		It("reports step exhaustion with the last accepted point", func() {
			cfg := sim.DefaultConfig()
			cfg.Step = 0.1
			cfg.MaxSteps = 3
			_, err := sim.New(integrators.NewEuler(), cfg).Run(ramp{dim: 1}, 0, dynamo.State{0}, 1)
			Expect(err).To(MatchError(dynamo.ErrStepExhausted))

			var ie *dynamo.IntegrationError
			Expect(errors.As(err, &ie)).To(BeTrue())
			Expect(ie.Step).To(Equal(3))
			Expect(ie.Time).To(BeNumerically("~", 0.3, 1e-12))
		})

		It("passes equation errors through untouched and leaves yOut alone", func() {
			y := dynamo.State{42}
			_, err := newSim(integrators.NewMidpoint(), 0.1).Integrate(failing{after: 0.5}, 0, dynamo.State{0}, 1, y)
			Expect(err).To(BeIdenticalTo(errBoom))
			Expect(y).To(Equal(dynamo.State{42}))
		})

		It("surfaces the bracket when a root cannot be isolated", func() {
			s := newSim(integrators.NewEuler(), 1)
			settings := events.DefaultSettings()
			settings.Convergence = 1e-15
			settings.MaxIterations = 1
			s.AddEventHandler(&handler{g: func(t float64, y dynamo.State) float64 { return y[0]*y[0]*y[0] - 2 }}, settings)

			_, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 3)
			Expect(err).To(MatchError(dynamo.ErrMaxIterations))
			var be *roots.BracketError
			Expect(errors.As(err, &be)).To(BeTrue())
			Expect(be.Lo).To(BeNumerically("<=", math.Cbrt(2)))
			Expect(be.Hi).To(BeNumerically(">=", math.Cbrt(2)))
		})

		It("fails rather than skip a handler whose check interval is too small", func() {
			s := newSim(integrators.NewEuler(), 0.5)
			settings := events.DefaultSettings()
			settings.MaxCheckInterval = 1e-300
			s.AddEventHandler(&events.Threshold{Index: 0, Level: 1, Action: events.Stop}, settings)

			_, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 3)
			Expect(err).To(MatchError(dynamo.ErrInvalidSettings))
			var ie *dynamo.IntegrationError
			Expect(errors.As(err, &ie)).To(BeTrue())
			Expect(ie.Step).To(Equal(1))
		})

		It("rejects a reset state of the wrong size", func() {
			s := newSim(integrators.NewRK4(), 0.5)
			s.AddEventHandler(&handler{
				g:      func(t float64, y dynamo.State) float64 { return y[0] - 1 },
				action: events.ResetState,
				reset:  func(float64, dynamo.State) dynamo.State { return dynamo.State{0, 0} },
			}, events.DefaultSettings())
			_, err := s.Run(ramp{dim: 1}, 0, dynamo.State{0}, 3)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
		})
	})
})

var _ = Describe("Ensemble", func() {
	jobs := func(n int) []sim.Job {
		out := make([]sim.Job, n)
		for i := range out {
			out[i] = sim.Job{
				Name:      "decay",
				Simulator: newSim(integrators.NewRK4(), 0.01),
				Equation:  decay{},
				T0:        0,
				Y0:        dynamo.State{float64(i + 1)},
				T1:        1,
			}
		}
		return out
	}

	It("returns results in job order", func() {
		results, err := sim.NewEnsemble(2).Run(context.Background(), jobs(6))
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(6))
		for i, res := range results {
			Expect(res.FinalState[0]).To(BeNumerically("~", float64(i+1)*math.Exp(-1), 1e-9))
		}
	})

	It("fails when a job fails", func() {
		js := jobs(3)
		js[1].Equation = failing{after: 0.5}
		js[1].Y0 = dynamo.State{0}
		_, err := sim.NewEnsemble(0).Run(context.Background(), js)
		Expect(err).To(MatchError(errBoom))
		Expect(err.Error()).To(ContainSubstring("job 1 (decay)"))
	})

	It("does not start jobs once the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := sim.NewEnsemble(1).Run(ctx, jobs(2))
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("Config", func() {
	It("has a usable default", func() {
		Expect(sim.DefaultConfig().Validate()).To(Succeed())
	})

	It("rejects negative step budgets", func() {
		cfg := sim.DefaultConfig()
		cfg.MaxSteps = -1
		Expect(cfg.Validate()).NotTo(Succeed())
	})

	It("names statuses", func() {
		Expect(sim.Running.String()).To(Equal("running"))
		Expect(sim.Done.String()).To(Equal("done"))
		Expect(sim.Failed.String()).To(Equal("failed"))
	})
})
