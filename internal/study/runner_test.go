package study

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/metrics"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/problem"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/store"
)

func newRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	r, err := NewRunner(context.Background(), opts...)
	require.NoError(t, err)
	return r
}

func benchmark(t *testing.T, f interface {
	problem.Evaluator
	Space() (*space.Space, error)
}, name string) *problem.Problem {
	t.Helper()
	s, err := f.Space()
	require.NoError(t, err)
	p, err := problem.New(f, s, problem.Minimize, problem.WithName(name))
	require.NoError(t, err)
	return p
}

func unitProblem(t *testing.T, sense problem.Sense, f problem.EvaluatorFunc) *problem.Problem {
	t.Helper()
	s, err := space.NewBuilder().Numerical("x", space.Float, 0, 1).Build()
	require.NoError(t, err)
	p, err := problem.New(f, s, sense, problem.WithName("unit"))
	require.NoError(t, err)
	return p
}

func TestBranches(t *testing.T) {
	got, err := Branches([][]string{{"a", "b"}, {"1", "2", "3"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"a", "1"}, {"a", "2"}, {"a", "3"},
		{"b", "1"}, {"b", "2"}, {"b", "3"},
	}, got)

	got, err = Branches(nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{}}, got)

	got, err = Branches([][]string{{"a"}, {}})
	assert.ErrorIs(t, err, optimization.ErrConfig)
	assert.Nil(t, got)
}

func binaryAxes(n int) [][]string {
	sets := make([][]string, n)
	for i := range sets {
		sets[i] = []string{"-2.2", "1.8"}
	}
	return sets
}

func TestBranchCountLimit(t *testing.T) {
	tests := []struct {
		name  string
		sets  [][]string
		want  int
		fails bool
	}{
		{"none", nil, 1, false},
		{"at limit", binaryAxes(12), MaxBranches, false},
		{"one past limit", binaryAxes(13), 0, true},
		{"would overflow int", binaryAxes(63), 0, true},
		{"would wrap to zero", binaryAxes(64), 0, true},
		{"single large set", [][]string{make([]string, MaxBranches+1)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := BranchCount(tt.sets)
			if tt.fails {
				assert.ErrorIs(t, err, optimization.ErrConfig)
				assert.NotPanics(t, func() {
					b, err := Branches(tt.sets)
					assert.Error(t, err)
					assert.Nil(t, b)
				})
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestRunRejectsTooManyBranches(t *testing.T) {
	r := newRunner(t)
	p := benchmark(t, problem.RastriginInt{Continuous: 1, Discrete: 20}, "rastrigin-int")

	st, err := r.Run(context.Background(), p, Config{Sampler: SamplerRandom, MaxIterations: 1, InitialPoints: 1})
	assert.ErrorIs(t, err, optimization.ErrConfig)
	assert.Equal(t, store.StatusFailed, st.Status)
	assert.Zero(t, st.Trials)
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Abort, p)

	p, err = ParseErrorPolicy("Reject")
	require.NoError(t, err)
	assert.Equal(t, Reject, p)

	_, err = ParseErrorPolicy("retry")
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestRunSphereRandom(t *testing.T) {
	m, err := metrics.New(nil)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.InfoLevel)
	r := newRunner(t, WithMetrics(m), WithLogger(zap.New(core)))

	p := benchmark(t, problem.Sphere{Dim: 2}, "sphere")
	st, err := r.Run(context.Background(), p, Config{
		ID:            "s1",
		Sampler:       SamplerRandom,
		MaxIterations: 20,
		InitialPoints: 5,
		Seed:          42,
	})
	require.NoError(t, err)

	assert.Equal(t, store.StatusCompleted, st.Status)
	assert.Equal(t, 25, st.Trials)
	require.NotNil(t, st.Best)
	assert.GreaterOrEqual(t, st.Best.Value, 0.0)
	assert.Less(t, st.Best.Value, 1.0)
	assert.Contains(t, st.Best.Arguments, "x0")

	trials, err := r.Store().ListTrials(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, trials, 25)
	for i, tr := range trials {
		assert.Equal(t, i, tr.Number)
		assert.Equal(t, store.TrialComplete, tr.State)
		require.NotNil(t, tr.Objective)
		assert.GreaterOrEqual(t, *tr.Objective, st.Best.Value)
	}

	saved, ok, err := r.Store().GetStudy(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st.Best, saved.Best)

	assert.Equal(t, 25.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("sphere", metrics.OutcomeOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StudiesRunning))
	assert.Equal(t, st.Best.Value, testutil.ToFloat64(m.BestValue.WithLabelValues("s1", "sphere")))
	assert.Equal(t, 1, logs.FilterMessage("Study completed").Len())
}

func TestRunEnumeratesBranches(t *testing.T) {
	r := newRunner(t)
	p := benchmark(t, problem.RastriginInt{Continuous: 1, Discrete: 2}, "rastrigin-int")

	st, err := r.Run(context.Background(), p, Config{
		Sampler:       SamplerRandom,
		MaxIterations: 4,
		InitialPoints: 1,
		Seed:          7,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID, "generated id")
	assert.Equal(t, 4*5, st.Trials)

	trials, err := r.Store().ListTrials(context.Background(), st.ID)
	require.NoError(t, err)
	seen := map[[2]string]int{}
	for _, tr := range trials {
		require.Len(t, tr.Coordinate.Discrete, 2)
		seen[[2]string{tr.Coordinate.Discrete[0], tr.Coordinate.Discrete[1]}]++
	}
	assert.Len(t, seen, 4)
	for _, n := range seen {
		assert.Equal(t, 5, n)
	}

	require.NotNil(t, st.Best)
	assert.Len(t, st.Best.Coordinate.Discrete, 2)
}

func TestRunDiscreteOnly(t *testing.T) {
	var calls atomic.Int32
	s, err := space.NewBuilder().
		Categorical("kernel", "rbf", "poly").
		Numerical("degree", space.Int, 1, 3).
		Build()
	require.NoError(t, err)
	p, err := problem.New(problem.EvaluatorFunc(func(_ context.Context, args space.Arguments) (float64, error) {
		calls.Add(1)
		d, err := args.Int("degree")
		return float64(d), err
	}), s, problem.Maximize, problem.WithName("grid"))
	require.NoError(t, err)

	st, err := newRunner(t).Run(context.Background(), p, Config{MaxIterations: 50})
	require.NoError(t, err)
	assert.Equal(t, int32(6), calls.Load(), "one evaluation per branch")
	assert.Equal(t, 6, st.Trials)
	require.NotNil(t, st.Best)
	assert.Equal(t, 3.0, st.Best.Value)
	assert.Equal(t, []string{"rbf", "3"}, st.Best.Coordinate.Discrete)
}

func TestRunAbortPolicy(t *testing.T) {
	cause := errors.New("training diverged")
	p := unitProblem(t, problem.Minimize, func(context.Context, space.Arguments) (float64, error) {
		return 0, cause
	})

	r := newRunner(t)
	st, err := r.Run(context.Background(), p, Config{ID: "a", Sampler: SamplerRandom, MaxIterations: 5, InitialPoints: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, optimization.ErrEvaluation)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, store.StatusFailed, st.Status)
	assert.Equal(t, 1, st.Trials)
	assert.Nil(t, st.Best)

	trials, err := r.Store().ListTrials(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, store.TrialFailed, trials[0].State)
	assert.Contains(t, trials[0].Error, "training diverged")
}

func TestRunRejectPolicy(t *testing.T) {
	p := unitProblem(t, problem.Minimize, func(_ context.Context, args space.Arguments) (float64, error) {
		x, err := args.Float("x")
		if err != nil {
			return 0, err
		}
		if x > 0.5 {
			return 0, errors.New("unstable region")
		}
		return x, nil
	})

	r := newRunner(t)
	st, err := r.Run(context.Background(), p, Config{
		ID:            "r",
		Sampler:       SamplerRandom,
		MaxIterations: 30,
		InitialPoints: 0,
		Seed:          3,
		ErrorPolicy:   Reject,
	})
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, st.Status)
	assert.Equal(t, 30, st.Trials)
	require.NotNil(t, st.Best)
	assert.LessOrEqual(t, st.Best.Value, 0.5)

	trials, err := r.Store().ListTrials(context.Background(), "r")
	require.NoError(t, err)
	failed := 0
	for _, tr := range trials {
		if tr.State == store.TrialFailed {
			failed++
			assert.Nil(t, tr.Objective)
		}
	}
	assert.Positive(t, failed)
}

func TestRunPenalizesInfeasible(t *testing.T) {
	r := newRunner(t)
	p := benchmark(t, problem.StronginC3{}, "stronginc3")

	st, err := r.Run(context.Background(), p, Config{
		ID:            "c",
		Sampler:       SamplerRandom,
		MaxIterations: 60,
		Seed:          11,
	})
	require.NoError(t, err)

	trials, err := r.Store().ListTrials(context.Background(), "c")
	require.NoError(t, err)
	infeasible := 0
	for _, tr := range trials {
		require.Len(t, tr.Values, 4)
		if tr.State == store.TrialInfeasible {
			infeasible++
			assert.False(t, problem.Feasible(tr.Values))
			assert.Greater(t, *tr.Objective, tr.Values[3])
			continue
		}
		assert.True(t, problem.Feasible(tr.Values))
	}
	assert.Positive(t, infeasible)

	if st.Best != nil {
		best := trials[st.Best.Trial]
		assert.Equal(t, store.TrialComplete, best.State)
	}
}

func TestRunMaximizeReportsRawBest(t *testing.T) {
	p := unitProblem(t, problem.Maximize, func(_ context.Context, args space.Arguments) (float64, error) {
		return args.Float("x")
	})
	st, err := newRunner(t).Run(context.Background(), p, Config{
		Sampler:       SamplerRandom,
		MaxIterations: 40,
		Seed:          5,
	})
	require.NoError(t, err)
	require.NotNil(t, st.Best)
	assert.Equal(t, "maximize", st.Sense)
	assert.Greater(t, st.Best.Value, 0.8)
	x, err := st.Best.Arguments.Float("x")
	require.NoError(t, err)
	assert.Equal(t, x, st.Best.Value)
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	p := unitProblem(t, problem.Minimize, func(ctx context.Context, _ space.Arguments) (float64, error) {
		if calls.Add(1) == 3 {
			cancel()
			return 0, ctx.Err()
		}
		return 1, nil
	})

	r := newRunner(t)
	st, err := r.Run(ctx, p, Config{ID: "x", Sampler: SamplerRandom, MaxIterations: 100, ErrorPolicy: Reject})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, store.StatusCancelled, st.Status)
	assert.Equal(t, 3, st.Trials)

	saved, ok, err := r.Store().GetStudy(context.Background(), "x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.StatusCancelled, saved.Status)
}

func TestRunBayesianWithSQLite(t *testing.T) {
	s := store.NewSQLiteStore(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	r := newRunner(t, WithStore(s))
	p := benchmark(t, problem.Sphere{Dim: 2}, "sphere")
	st, err := r.Run(context.Background(), p, Config{
		ID:            "b",
		Sampler:       SamplerBayesian,
		Acquisition:   "ucb",
		Kernel:        "rbf",
		MaxIterations: 4,
		InitialPoints: 4,
		Seed:          42,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, st.Trials)

	trials, err := s.ListTrials(context.Background(), "b")
	require.NoError(t, err)
	assert.Len(t, trials, 8)
}

func TestRunConfigErrors(t *testing.T) {
	r := newRunner(t)
	p := benchmark(t, problem.Sphere{Dim: 1}, "sphere")

	_, err := r.Run(context.Background(), p, Config{MaxIterations: -1})
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = r.Run(context.Background(), p, Config{ErrorPolicy: "retry"})
	assert.ErrorIs(t, err, optimization.ErrConfig)

	st, err := r.Run(context.Background(), p, Config{Sampler: "annealing"})
	assert.ErrorIs(t, err, optimization.ErrConfig)
	assert.Equal(t, store.StatusFailed, st.Status)

	_, err = r.Run(context.Background(), p, Config{Acquisition: "thompson"})
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = r.Run(context.Background(), p, Config{Kernel: "periodic"})
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestRunCustomOptimizerFactory(t *testing.T) {
	var built atomic.Int32
	r := newRunner(t, WithOptimizerFactory(func(cfg Config, logger *zap.Logger) (optimization.Optimizer, error) {
		built.Add(1)
		return NewOptimizer(Config{Sampler: SamplerRandom}, logger)
	}))
	p := benchmark(t, problem.RastriginInt{Continuous: 1, Discrete: 1}, "rastrigin-int")
	_, err := r.Run(context.Background(), p, Config{MaxIterations: 1, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(2), built.Load(), "one optimizer per branch")
}
