// Package metrics records integration statistics, both as Prometheus
// collectors shared by every run of the process and as per-run step
// observers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StepsTotal counts stepper invocations across all runs.
	StepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odestep_steps_total",
		Help: "Total number of accepted integration steps.",
	})

	// StepSize tracks the magnitude of accepted steps.
	StepSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "odestep_step_size",
		Help:    "Magnitude of accepted integration steps.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
	})

	// EventsTotal counts handled events by resulting action.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odestep_events_total",
		Help: "Total number of events handled, by action.",
	}, []string{"action"})

	// RunsTotal counts finished runs by outcome (done, stopped, failed).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odestep_runs_total",
		Help: "Total number of integration runs, by outcome.",
	}, []string{"outcome"})
)

func RecordStep(h float64) {
	if h < 0 {
		h = -h
	}
	StepsTotal.Inc()
	StepSize.Observe(h)
}

func RecordEvent(action string) {
	EventsTotal.WithLabelValues(action).Inc()
}

func RecordRun(outcome string) {
	RunsTotal.WithLabelValues(outcome).Inc()
}
