// Package search provides model-free optimizers used as baselines.
package search

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// refineBudget is the number of objective calls the optional Nelder-Mead
// polish may spend.
const refineBudget = 30

// RandomSearch samples the box uniformly. MaxIterations and NInitialPoints
// are added together to give the sample count.
type RandomSearch struct {
	logger *zap.Logger

	mu     sync.RWMutex
	best   *optimization.Solution
	hist   []optimization.Evaluation
	cancel context.CancelFunc
}

var _ optimization.Optimizer = (*RandomSearch)(nil)

// NewRandomSearch creates a random search optimizer. A nil logger is allowed.
func NewRandomSearch(logger *zap.Logger) *RandomSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RandomSearch{logger: logger.Named("random_search")}
}

// Optimize implements optimization.Optimizer.
func (rs *RandomSearch) Optimize(ctx context.Context, cfg optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := cfg.MaxIterations + cfg.NInitialPoints
	if n < 1 {
		n = 1
	}
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rs.mu.Lock()
	rs.cancel = cancel
	rs.best = nil
	rs.hist = make([]optimization.Evaluation, 0, n)
	rs.mu.Unlock()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := make([]float64, len(cfg.Bounds))
		for j, b := range cfg.Bounds {
			x[j] = b[0] + rng.Float64()*(b[1]-b[0])
		}
		v, err := cfg.Objective(ctx, x)
		if err != nil {
			rs.mu.Lock()
			rs.hist = append(rs.hist, optimization.Evaluation{
				Iteration: len(rs.hist),
				Solution:  &optimization.Solution{Parameters: x, Value: math.NaN()},
				Error:     err,
			})
			rs.mu.Unlock()
			return nil, err
		}
		rs.record(x, v)
	}

	if cfg.Refine {
		start := rs.GetBestSolution().Parameters
		if _, err := optimization.Refine(ctx, cfg.Objective, cfg.Bounds, start, refineBudget, rs.record); err != nil {
			return nil, err
		}
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()
	rs.logger.Debug("Random search finished",
		zap.Int("evaluations", len(rs.hist)),
		zap.Float64("best", rs.best.Value))
	return &optimization.OptimizationResult{
		BestSolution: rs.best,
		History:      append([]optimization.Evaluation(nil), rs.hist...),
		Iterations:   len(rs.hist),
		Converged:    true,
	}, nil
}

func (rs *RandomSearch) record(x []float64, v float64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.hist = append(rs.hist, optimization.Evaluation{
		Iteration: len(rs.hist),
		Solution:  &optimization.Solution{Parameters: x, Value: v},
	})
	if rs.best == nil || v < rs.best.Value {
		rs.best = &optimization.Solution{Parameters: append([]float64(nil), x...), Value: v}
	}
}

// GetBestSolution implements optimization.Optimizer.
func (rs *RandomSearch) GetBestSolution() *optimization.Solution {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.best
}

// GetHistory implements optimization.Optimizer.
func (rs *RandomSearch) GetHistory() []optimization.Evaluation {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]optimization.Evaluation(nil), rs.hist...)
}

// Stop implements optimization.Optimizer.
func (rs *RandomSearch) Stop() {
	rs.mu.RLock()
	cancel := rs.cancel
	rs.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}
