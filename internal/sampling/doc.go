// Package sampling exposes the dense output of an integration run.
//
// Every stepper invocation produces an immutable [Step] record. An
// [Interpolator] built from it reconstructs the state anywhere inside the
// step without evaluating the equation again, and can be narrowed with
// Truncate and Restrict when an event cuts the step short.
//
// Accepted steps are pushed to [Observer] implementations:
//
//   - [StepNormalizer]: resamples steps on a fixed grid for a [FixedStepHandler]
//   - [Samples]: in-memory FixedStepHandler
//   - [Trajectory]: keeps copies of all steps for queries after the run
package sampling
