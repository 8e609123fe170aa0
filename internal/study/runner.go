// Package study drives optimizers over a problem's mixed parameter space
// and records every trial.
package study

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/metrics"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/problem"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/store"
)

// OptimizerFactory builds a fresh optimizer for one branch.
type OptimizerFactory func(cfg Config, logger *zap.Logger) (optimization.Optimizer, error)

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets where studies and trials are persisted.
func WithStore(s store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithMetrics sets the collectors updated per trial.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOptimizerFactory replaces NewOptimizer.
func WithOptimizerFactory(f OptimizerFactory) Option {
	return func(r *Runner) { r.newOptimizer = f }
}

// Runner executes studies. It is safe to run several studies concurrently
// with one Runner.
type Runner struct {
	store        store.Store
	metrics      *metrics.Metrics
	logger       *zap.Logger
	newOptimizer OptimizerFactory
}

// NewRunner creates a runner backed by an in-memory store unless WithStore
// is given.
func NewRunner(ctx context.Context, opts ...Option) (*Runner, error) {
	r := &Runner{logger: zap.NewNop(), newOptimizer: NewOptimizer}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = store.NewMemoryStore()
		if err := r.store.Init(ctx); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.Named("study")
	return r, nil
}

// Store returns the runner's store.
func (r *Runner) Store() store.Store { return r.store }

// run is the state of one Run call.
type run struct {
	r       *Runner
	p       *problem.Problem
	cfg     Config
	logger  *zap.Logger
	mu      sync.Mutex
	study   store.Study
	best    float64
	worst   float64
	success int
}

// Run optimizes p branch by branch. For every combination of discrete labels
// the continuous parameters are searched by a fresh optimizer; a space with
// no continuous parameters evaluates each branch once. The returned study is
// also persisted, including when Run fails.
func (r *Runner) Run(ctx context.Context, p *problem.Problem, cfg Config) (store.Study, error) {
	if err := cfg.validate(); err != nil {
		return store.Study{}, err
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	st, ok, err := r.store.GetStudy(ctx, cfg.ID)
	if err != nil {
		return store.Study{}, err
	}
	if !ok {
		st = store.Study{ID: cfg.ID, CreatedAt: now}
	}
	st.Problem = p.Name()
	st.Dimension = p.Dimension()
	st.Sense = p.Sense().String()
	st.Sampler = cfg.Sampler
	st.MaxIterations = cfg.MaxIterations
	st.InitialPoints = cfg.InitialPoints
	st.Seed = cfg.Seed
	st.ErrorPolicy = string(cfg.ErrorPolicy)
	st.Status = store.StatusRunning
	st.UpdatedAt = now

	ru := &run{
		r:      r,
		p:      p,
		cfg:    cfg,
		logger: r.logger.With(zap.String("study_id", cfg.ID), zap.String("problem", p.Name())),
		study:  st,
		best:   math.Inf(1),
		worst:  math.Inf(-1),
	}
	if err := ru.save(ctx); err != nil {
		return store.Study{}, err
	}

	r.metrics.StudyStarted()
	branches, runErr := Branches(p.LabelSets())
	if runErr == nil {
		ru.logger.Info("Study started",
			zap.String("sampler", cfg.Sampler),
			zap.Int("dimension", p.Dimension()),
			zap.Int("branches", len(branches)))
		runErr = ru.execute(ctx, branches)
	}

	ru.mu.Lock()
	switch {
	case runErr == nil:
		ru.study.Status = store.StatusCompleted
	case errors.Is(runErr, context.Canceled):
		ru.study.Status = store.StatusCancelled
		ru.study.Error = runErr.Error()
	default:
		ru.study.Status = store.StatusFailed
		ru.study.Error = runErr.Error()
	}
	ru.study.UpdatedAt = time.Now().UTC()
	final := ru.study
	ru.mu.Unlock()

	r.metrics.StudyFinished(string(final.Status))
	// The caller's context may already be cancelled; the final record must
	// still be written.
	if err := r.store.SaveStudy(context.WithoutCancel(ctx), final); err != nil {
		ru.logger.Error("Failed to persist study", zap.Error(err))
	}

	if runErr != nil {
		ru.logger.Warn("Study stopped", zap.String("status", string(final.Status)), zap.Error(runErr))
		return final, runErr
	}
	ru.logger.Info("Study completed", zap.Int("trials", final.Trials))
	return final, nil
}

func (ru *run) execute(ctx context.Context, branches [][]string) error {
	for i, branch := range branches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ru.p.Space().NumContinuous() == 0 {
			if _, err := ru.objective(ctx, nil, branch); err != nil {
				return err
			}
			continue
		}

		bounds, err := optimization.BoundsFrom(ru.p.LowerBounds(), ru.p.UpperBounds())
		if err != nil {
			return err
		}
		opt, err := ru.r.newOptimizer(ru.cfg, ru.r.logger)
		if err != nil {
			return err
		}

		seed := ru.cfg.Seed
		if seed != 0 {
			seed += int64(i)
		}
		ru.logger.Debug("Optimizing branch", zap.Strings("labels", branch))
		_, err = opt.Optimize(ctx, optimization.OptimizerConfig{
			Objective: func(ctx context.Context, x []float64) (float64, error) {
				return ru.objective(ctx, x, branch)
			},
			Bounds:         bounds,
			MaxIterations:  ru.cfg.MaxIterations,
			NInitialPoints: ru.cfg.InitialPoints,
			RandomSeed:     seed,
			Refine:         ru.cfg.Refine,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// objective evaluates one coordinate, records the trial and returns the
// value the optimizer should minimize.
func (ru *run) objective(ctx context.Context, x []float64, branch []string) (float64, error) {
	c := space.Coordinate{Continuous: append([]float64(nil), x...), Discrete: branch}
	if len(branch) == 0 {
		c.Discrete = nil
	}

	start := time.Now()
	values, evalErr := ru.p.EvaluateAll(ctx, c)
	took := time.Since(start)

	trial := store.Trial{
		StudyID:    ru.cfg.ID,
		Coordinate: c,
		Duration:   took,
		CreatedAt:  start.UTC(),
	}
	if args, err := ru.p.Resolve(c); err == nil {
		trial.Arguments = args
	}

	if evalErr != nil {
		trial.State = store.TrialFailed
		trial.Error = evalErr.Error()
		ru.r.metrics.ObserveEvaluation(ru.p.Name(), metrics.OutcomeError, took)
		if err := ru.record(ctx, &trial, 0); err != nil {
			return 0, err
		}
		ru.logger.Debug("Evaluation failed", zap.Int("trial", trial.Number), zap.Error(evalErr))

		if ru.cfg.ErrorPolicy == Abort || optimization.KindOf(evalErr) != optimization.KindEvaluation || ctx.Err() != nil {
			return 0, evalErr
		}
		return ru.rejected(), nil
	}

	objective := values[len(values)-1]
	outcome := metrics.OutcomeOK
	trial.State = store.TrialComplete
	if len(values) > 1 {
		trial.Values = values
		if v := violation(values[:len(values)-1]); v > 0 {
			objective += ru.cfg.Penalty * v
			outcome = metrics.OutcomeInfeasible
			trial.State = store.TrialInfeasible
		}
	}
	trial.Objective = &objective
	ru.r.metrics.ObserveEvaluation(ru.p.Name(), outcome, took)

	if err := ru.record(ctx, &trial, objective); err != nil {
		return 0, err
	}
	return objective, nil
}

// record numbers and stores the trial and updates the study summary.
func (ru *run) record(ctx context.Context, trial *store.Trial, objective float64) error {
	ru.mu.Lock()
	trial.Number = ru.study.Trials
	ru.study.Trials++
	ru.study.UpdatedAt = time.Now().UTC()

	improved := false
	if trial.State != store.TrialFailed {
		ru.success++
		ru.worst = math.Max(ru.worst, objective)
		if trial.State == store.TrialComplete && objective < ru.best {
			ru.best = objective
			// Undo the sense so the stored best is the evaluator's raw fitness.
			ru.study.Best = &store.Best{
				Trial:      trial.Number,
				Value:      objective * ru.p.Sense().Sign(),
				Coordinate: trial.Coordinate,
				Arguments:  trial.Arguments,
			}
			improved = true
		}
	}
	var bestValue float64
	if improved {
		bestValue = ru.study.Best.Value
	}
	ru.mu.Unlock()

	// Trials of a cancelled study are still written.
	ctx = context.WithoutCancel(ctx)
	if err := ru.r.store.AppendTrial(ctx, *trial); err != nil {
		return errors.Wrap(err, "append trial")
	}
	if improved {
		ru.r.metrics.SetBest(ru.cfg.ID, ru.p.Name(), bestValue)
		ru.logger.Debug("New best", zap.Int("trial", trial.Number), zap.Float64("value", bestValue))
	}
	return ru.save(ctx)
}

func (ru *run) save(ctx context.Context) error {
	ru.mu.Lock()
	st := ru.study
	ru.mu.Unlock()
	return ru.r.store.SaveStudy(ctx, st)
}

// rejected is the value reported for a rejected trial: one spread above the
// worst successful objective, so the surrogate keeps a finite scale.
func (ru *run) rejected() float64 {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	if ru.success == 0 {
		return rejectedValue
	}
	spread := ru.worst - ru.best
	if math.IsInf(spread, 0) || math.IsNaN(spread) || spread < 1 {
		spread = 1
	}
	return ru.worst + spread
}

// violation sums the positive parts of the constraint values.
func violation(g []float64) float64 {
	v := 0.0
	for _, gi := range g {
		if gi > 0 {
			v += gi
		}
	}
	return v
}
