// Package bayesian implements Gaussian-process Bayesian optimization over a
// bounded box.
package bayesian

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/acquisition"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/kernels"
)

const (
	defaultInitialPoints = 10
	defaultIterations    = 50
	defaultNoise         = 1e-6
	// refineBudget is the number of objective calls spent on the final
	// Nelder-Mead polish when refinement is enabled.
	refineBudget = 20
)

// Option configures a BayesianOptimizer.
type Option func(*BayesianOptimizer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(bo *BayesianOptimizer) {
		bo.logger = logger
	}
}

// WithKernel replaces the default Matérn 5/2 kernel.
func WithKernel(k kernels.Kernel) Option {
	return func(bo *BayesianOptimizer) {
		bo.kernel = k
	}
}

// WithAcquisition replaces the default expected improvement.
func WithAcquisition(a acquisition.Function) Option {
	return func(bo *BayesianOptimizer) {
		bo.acquisition = a
	}
}

// WithNoise sets the observation noise variance added to the kernel diagonal.
func WithNoise(v float64) Option {
	return func(bo *BayesianOptimizer) {
		bo.noiseVar = v
	}
}

// BayesianOptimizer implements optimization.Optimizer. It works in the unit
// cube internally and maps points back to the configured bounds before
// calling the objective.
type BayesianOptimizer struct {
	kernel      kernels.Kernel
	acquisition acquisition.Function
	noiseVar    float64
	logger      *zap.Logger

	mu     sync.RWMutex
	best   *optimization.Solution
	hist   []optimization.Evaluation
	cancel context.CancelFunc
}

var _ optimization.Optimizer = (*BayesianOptimizer)(nil)

// NewBayesianOptimizer creates an optimizer with a Matérn 5/2 kernel on the
// unit cube and expected improvement.
func NewBayesianOptimizer(opts ...Option) (*BayesianOptimizer, error) {
	bo := &BayesianOptimizer{
		noiseVar: defaultNoise,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(bo)
	}
	if bo.kernel == nil {
		k, err := kernels.NewMatern52Kernel(0.25, 1.0)
		if err != nil {
			return nil, err
		}
		bo.kernel = k
	}
	if bo.acquisition == nil {
		bo.acquisition = acquisition.NewExpectedImprovement(acquisition.DefaultParams().Xi)
	}
	if bo.noiseVar < 0 {
		return nil, optimization.NewConfigError("noise variance must be non-negative, got %v", bo.noiseVar).
			WithComponent("bayesian")
	}
	bo.logger = bo.logger.Named("bayesian")
	return bo, nil
}

// run holds the per-call state of Optimize.
type run struct {
	cfg    optimization.OptimizerConfig
	rng    *rand.Rand
	gp     *GP
	unitX  [][]float64
	values []float64
}

// Optimize runs Latin hypercube initialization followed by GP-guided
// proposals. An objective error aborts the run and is returned unchanged.
func (bo *BayesianOptimizer) Optimize(ctx context.Context, cfg optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.NInitialPoints < 1 {
		cfg.NInitialPoints = defaultInitialPoints
	}
	if cfg.MaxIterations < 0 {
		cfg.MaxIterations = defaultIterations
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bo.mu.Lock()
	bo.cancel = cancel
	bo.best = nil
	bo.hist = make([]optimization.Evaluation, 0, cfg.NInitialPoints+cfg.MaxIterations)
	bo.mu.Unlock()

	r := &run{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
		gp:  NewGP(bo.kernel, bo.noiseVar, bo.logger),
	}

	bo.logger.Debug("Starting Bayesian optimization",
		zap.Int("dimensions", len(cfg.Bounds)),
		zap.Int("initial_points", cfg.NInitialPoints),
		zap.Int("iterations", cfg.MaxIterations),
		zap.String("acquisition", bo.acquisition.Name()),
	)

	for _, u := range latinHypercube(r.rng, cfg.NInitialPoints, len(cfg.Bounds)) {
		if err := bo.evaluate(ctx, r, u); err != nil {
			return nil, err
		}
	}

	for i := 0; i < cfg.MaxIterations; i++ {
		u, err := bo.propose(r)
		if err != nil {
			bo.logger.Warn("Surrogate proposal failed, sampling uniformly", zap.Error(err))
			u = randomUnit(r.rng, len(cfg.Bounds))
		}
		if err := bo.evaluate(ctx, r, u); err != nil {
			return nil, err
		}
	}

	if cfg.Refine {
		bo.mu.RLock()
		start := append([]float64(nil), bo.best.Parameters...)
		bo.mu.RUnlock()

		_, err := optimization.Refine(ctx, cfg.Objective, cfg.Bounds, start, refineBudget, func(x []float64, v float64) {
			bo.record(x, v)
		})
		if err != nil {
			return nil, err
		}
	}

	bo.mu.RLock()
	defer bo.mu.RUnlock()
	return &optimization.OptimizationResult{
		BestSolution: bo.best,
		History:      append([]optimization.Evaluation(nil), bo.hist...),
		Iterations:   len(bo.hist),
		Converged:    true,
	}, nil
}

// evaluate maps u to the search box, calls the objective and records it.
func (bo *BayesianOptimizer) evaluate(ctx context.Context, r *run, u []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x := fromUnit(u, r.cfg.Bounds)
	value, err := r.cfg.Objective(ctx, x)
	if err != nil {
		bo.mu.Lock()
		bo.hist = append(bo.hist, optimization.Evaluation{
			Iteration: len(bo.hist),
			Solution:  &optimization.Solution{Parameters: x, Value: math.NaN()},
			Error:     err,
		})
		bo.mu.Unlock()
		return err
	}
	bo.record(x, value)
	r.unitX = append(r.unitX, u)
	r.values = append(r.values, value)
	return nil
}

func (bo *BayesianOptimizer) record(x []float64, value float64) {
	bo.mu.Lock()
	defer bo.mu.Unlock()

	bo.hist = append(bo.hist, optimization.Evaluation{
		Iteration: len(bo.hist),
		Solution:  &optimization.Solution{Parameters: x, Value: value},
	})
	if bo.best == nil || value < bo.best.Value {
		bo.best = &optimization.Solution{
			Parameters: append([]float64(nil), x...),
			Value:      value,
		}
	}
}

// propose fits the GP and maximizes the acquisition function over the unit
// cube with multi-start Nelder-Mead.
func (bo *BayesianOptimizer) propose(r *run) ([]float64, error) {
	n, d := len(r.unitX), len(r.cfg.Bounds)
	X := mat.NewDense(n, d, nil)
	for i, u := range r.unitX {
		X.SetRow(i, u)
	}
	if err := r.gp.Fit(X, mat.NewVecDense(n, append([]float64(nil), r.values...))); err != nil {
		return nil, err
	}

	bestIdx := 0
	for i, v := range r.values {
		if v < r.values[bestIdx] {
			bestIdx = i
		}
	}
	bo.acquisition.UpdateBest(r.values[bestIdx])

	unit := unitBounds(d)
	score := func(u []float64) float64 {
		mu, sigma, err := r.gp.PredictPoint(optimization.Clamp(u, unit))
		if err != nil {
			return math.Inf(1)
		}
		return -bo.acquisition.Compute(mu, sigma)
	}

	nStarts := 5 + int(5*math.Sqrt(float64(d)))
	starts := make([][]float64, 0, nStarts)
	starts = append(starts, append([]float64(nil), r.unitX[bestIdx]...))
	for len(starts) < nStarts {
		starts = append(starts, randomUnit(r.rng, d))
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
		FuncEvaluations: 200 * d,
	}

	bestU := starts[0]
	bestScore := score(bestU)
	for _, start := range starts {
		res, err := optimize.Minimize(optimize.Problem{Func: score}, start, settings, &optimize.NelderMead{SimplexSize: 0.1})
		if err != nil || res == nil {
			if s := score(start); s < bestScore {
				bestScore, bestU = s, start
			}
			continue
		}
		if res.F < bestScore {
			bestScore = res.F
			bestU = optimization.Clamp(res.X, unit)
		}
	}

	// Re-evaluating a known point teaches the surrogate nothing.
	for _, u := range r.unitX {
		if sqDist(u, bestU) < 1e-12 {
			bo.logger.Debug("Proposal duplicates an observed point, sampling uniformly")
			return randomUnit(r.rng, d), nil
		}
	}
	return bestU, nil
}

// GetBestSolution returns the best solution found so far.
func (bo *BayesianOptimizer) GetBestSolution() *optimization.Solution {
	bo.mu.RLock()
	defer bo.mu.RUnlock()
	return bo.best
}

// GetHistory returns a copy of the evaluation history.
func (bo *BayesianOptimizer) GetHistory() []optimization.Evaluation {
	bo.mu.RLock()
	defer bo.mu.RUnlock()
	return append([]optimization.Evaluation(nil), bo.hist...)
}

// Stop cancels a running Optimize call.
func (bo *BayesianOptimizer) Stop() {
	bo.mu.RLock()
	cancel := bo.cancel
	bo.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// latinHypercube draws n stratified points in [0,1]^d.
func latinHypercube(rng *rand.Rand, n, d int) [][]float64 {
	samples := make([][]float64, n)
	for j := range samples {
		samples[j] = make([]float64, d)
	}
	for i := 0; i < d; i++ {
		perm := rng.Perm(n)
		for j := 0; j < n; j++ {
			samples[j][i] = (float64(perm[j]) + rng.Float64()) / float64(n)
		}
	}
	return samples
}

func randomUnit(rng *rand.Rand, d int) []float64 {
	u := make([]float64, d)
	for i := range u {
		u[i] = rng.Float64()
	}
	return u
}

func unitBounds(d int) [][2]float64 {
	b := make([][2]float64, d)
	for i := range b {
		b[i] = [2]float64{0, 1}
	}
	return b
}

func fromUnit(u []float64, bounds [][2]float64) []float64 {
	x := make([]float64, len(u))
	for i, v := range u {
		x[i] = bounds[i][0] + v*(bounds[i][1]-bounds[i][0])
	}
	return x
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
