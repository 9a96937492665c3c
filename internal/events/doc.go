// Package events locates the zeros of switching functions g(t, y) inside the
// steps of a run.
//
// A Detector owns the per-run bookkeeping of every registered Handler. The
// scheduler hands it each accepted step as an interpolator; Scan either
// reports that nothing happens in the step or returns the first Occurrence,
// with the interpolator truncated at the root. Process then asks the firing
// handlers what to do and combines their answers:
//
//	Stop > ResetState > ResetDerivatives > Continue
//
// Handlers firing at the same time are always reported in registration
// order, and a handler is not armed again until the integration has moved
// past its proximity window.
package events
