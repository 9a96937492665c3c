package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/odestep/internal/dynamo"
	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an ensemble. Jobs must not share a
// Simulator when observers or handlers keep per-run state.
type Job struct {
	Name      string
	Simulator *Simulator
	Equation  dynamo.Equation
	T0        float64
	Y0        dynamo.State
	T1        float64
}

// Ensemble runs jobs concurrently, at most limit at a time.
type Ensemble struct {
	limit int
}

// NewEnsemble returns an ensemble running at most limit jobs at once;
// limit <= 0 means no bound.
func NewEnsemble(limit int) *Ensemble {
	return &Ensemble{limit: limit}
}

// Run executes every job and returns the results in job order. The first
// failure cancels the jobs that have not started yet; runs already in
// progress complete.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, err := job.Simulator.Run(job.Equation, job.T0, job.Y0, job.T1)
			if err != nil {
				return fmt.Errorf("job %d (%s): %w", i, job.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
