package optimization

import (
	"context"
)

// Optimizer defines the interface for black-box optimization algorithms.
// Optimizers see only numeric vectors inside Bounds and the scalar returned
// by the objective; lower is better.
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the history of evaluations
	GetHistory() []Evaluation

	// Stop gracefully stops the optimization process
	Stop()
}

// OptimizerConfig contains configuration for the optimizer
type OptimizerConfig struct {
	// Objective function to minimize
	Objective ObjectiveFunction

	// Bounds for each dimension [min, max]
	Bounds [][2]float64

	// Maximum number of iterations after the initial design
	MaxIterations int

	// Number of initial points to evaluate
	NInitialPoints int

	// Random seed for reproducibility
	RandomSeed int64

	// Refine polishes the best point with a local Nelder-Mead search
	// once the main loop is done.
	Refine bool
}

// Validate checks that the configuration can drive an optimizer.
func (c OptimizerConfig) Validate() error {
	if c.Objective == nil {
		return NewConfigError("objective function is required").WithComponent("optimizer")
	}
	if len(c.Bounds) == 0 {
		return NewConfigError("at least one bounded dimension is required").WithComponent("optimizer")
	}
	for i, b := range c.Bounds {
		if b[0] > b[1] {
			return NewConfigError("dimension %d: lower bound %v exceeds upper bound %v", i, b[0], b[1]).
				WithComponent("optimizer")
		}
	}
	return nil
}

// BoundsFrom zips lower and upper bound slices into optimizer bounds.
func BoundsFrom(lower, upper []float64) ([][2]float64, error) {
	if len(lower) != len(upper) {
		return nil, NewConfigError("bounds length mismatch: %d lower, %d upper", len(lower), len(upper))
	}
	bounds := make([][2]float64, len(lower))
	for i := range lower {
		bounds[i] = [2]float64{lower[i], upper[i]}
	}
	return bounds, nil
}

// ObjectiveFunction defines the function to be minimized
type ObjectiveFunction func(ctx context.Context, x []float64) (float64, error)

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Evaluation represents a single evaluation of the objective function
type Evaluation struct {
	Iteration int
	Solution  *Solution
	Error     error
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	Converged    bool
}
