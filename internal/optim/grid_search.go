// Package optim searches problem parameters for the values minimising a
// run metric.
package optim

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/san-kum/odestep/internal/config"
	"github.com/san-kum/odestep/internal/experiment"
)

// GridSearch evaluates every combination of candidate parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs base with every combination and returns the parameters giving
// the smallest value of metric. Combinations whose run fails are skipped;
// Search only fails when none succeeds or ctx is done.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	registry *experiment.Registry,
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("grid search needs one range per parameter, got %d parameters and %d ranges",
			len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var lastErr error

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) error {
		cfg := base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		maps.Copy(cfg.Params, params)

		exp := experiment.New(cfg, registry)
		if err := exp.Setup(); err != nil {
			lastErr = err
			return nil
		}
		out, err := exp.Run(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr = err
			return nil
		}

		val, ok := out.Metrics[metricName]
		if !ok {
			return fmt.Errorf("run of %s has no metric %q", cfg.Problem, metricName)
		}
		if val < best {
			best = val
			bestParams = maps.Clone(params)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("grid search: no successful run: %w", lastErr)
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	evaluate func(map[string]float64) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		return evaluate(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		if err := g.searchRecursive(ctx, depth+1, current, evaluate); err != nil {
			return err
		}
	}
	delete(current, paramName)
	return nil
}
