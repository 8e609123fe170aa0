package optimization

import (
	"context"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Refine polishes start with a bounded Nelder-Mead search of at most
// maxEvals objective calls. Points are clamped into bounds before they are
// evaluated. Each evaluation is passed to record. The first objective error
// or context cancellation stops the search and is returned.
func Refine(ctx context.Context, objective ObjectiveFunction, bounds [][2]float64, start []float64,
	maxEvals int, record func(x []float64, value float64)) (*Solution, error) {
	if maxEvals < 1 || len(start) == 0 {
		return nil, nil
	}

	var (
		best    *Solution
		evalErr error
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			if err := ctx.Err(); err != nil {
				evalErr = err
				return math.Inf(1)
			}
			p := Clamp(x, bounds)
			v, err := objective(ctx, p)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			if record != nil {
				record(p, v)
			}
			if best == nil || v < best.Value {
				best = &Solution{Parameters: p, Value: v}
			}
			return v
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-8,
			Relative:   1e-8,
			Iterations: 50,
		},
	}
	method := &optimize.NelderMead{SimplexSize: simplexSize(bounds)}

	// Termination by evaluation budget is the normal exit; only objective
	// failures are reported.
	_, _ = optimize.Minimize(problem, Clamp(start, bounds), settings, method)
	if evalErr != nil {
		return best, evalErr
	}
	return best, nil
}

// Clamp returns a copy of x with every coordinate limited to its bounds.
func Clamp(x []float64, bounds [][2]float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(bounds[i][0], math.Min(v, bounds[i][1]))
	}
	return out
}

// simplexSize is a tenth of the narrowest non-degenerate bound width.
func simplexSize(bounds [][2]float64) float64 {
	size := math.Inf(1)
	for _, b := range bounds {
		if w := b[1] - b[0]; w > 0 && w < size {
			size = w
		}
	}
	if math.IsInf(size, 1) {
		return 0.1
	}
	return size / 10
}
