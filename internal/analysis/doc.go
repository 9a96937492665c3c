// Package analysis characterizes trajectories produced by the simulator.
//
//   - [PowerSpectrum], [DominantFrequency]: spectra of sampled components
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [PoincareSection]: states at upward crossings of a surface, located by
//     the event detector
//   - [BifurcationDiagram]: parameter sweep over Poincaré sections, run
//     concurrently
//   - [PhasePortrait]: 2D projection of sampled states, with ASCII rendering
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(integrators.NewRK4(), eq, 0, y0, 0.01, 50, 1e-8)
//	if err == nil && lambda > 0 {
//	    // System is chaotic
//	}
package analysis
