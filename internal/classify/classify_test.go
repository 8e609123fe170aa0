package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/problem"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

// clusters places perClass points on a small 3x3 grid around each centre.
func clusters(t *testing.T, perClass int, centres ...[2]float64) *dataset.Dataset {
	t.Helper()
	n := perClass * len(centres)
	X := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for c, centre := range centres {
		for i := 0; i < perClass; i++ {
			r := c*perClass + i
			X.Set(r, 0, centre[0]+float64(i%3-1)*0.3)
			X.Set(r, 1, centre[1]+float64(i/3%3-1)*0.3)
			y[r] = c
		}
	}
	d, err := dataset.New(X, y, nil)
	require.NoError(t, err)
	return d
}

func TestNewSVCValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []SVCOption
	}{
		{"zero C", []SVCOption{WithC(0)}},
		{"negative gamma", []SVCOption{WithGamma(-1)}},
		{"unknown kernel", []SVCOption{WithKernel("laplace")}},
		{"zero degree", []SVCOption{WithDegree(0)}},
		{"no iterations", []SVCOption{WithMaxIter(0)}},
		{"zero tolerance", []SVCOption{WithTol(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSVC(tt.opts...)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, optimization.ErrConfig)
		})
	}
}

func TestSVCSeparatesClusters(t *testing.T) {
	tests := []struct {
		name    string
		kernel  string
		centres [][2]float64
	}{
		{"linear binary", KernelLinear, [][2]float64{{-3, -3}, {3, 3}}},
		{"rbf binary", KernelRBF, [][2]float64{{-3, -3}, {3, 3}}},
		{"rbf one-vs-rest", KernelRBF, [][2]float64{{-5, 0}, {5, 0}, {0, 8}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := clusters(t, 9, tt.centres...)
			s, err := NewSVC(WithKernel(tt.kernel), WithC(10), WithGamma(0.5))
			require.NoError(t, err)
			require.NoError(t, s.Fit(d.X, d.Y, d.NumClasses()))

			pred, err := s.Predict(d.X)
			require.NoError(t, err)
			acc, err := Accuracy(d.Y, pred, d.NumClasses())
			require.NoError(t, err)
			assert.Equal(t, 1.0, acc)
		})
	}
}

func TestSVCFitErrors(t *testing.T) {
	s, err := NewSVC()
	require.NoError(t, err)

	X := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})
	assert.Error(t, s.Fit(X, []int{0, 0, 0}, 2), "single class")
	assert.Error(t, s.Fit(X, []int{0, 1}, 2), "row mismatch")

	_, err = s.Predict(X)
	assert.Error(t, err, "untrained")

	require.NoError(t, s.Fit(X, []int{0, 1, 1}, 2))
	_, err = s.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err, "feature mismatch")
}

func TestSVCDeterministic(t *testing.T) {
	d := clusters(t, 9, [2]float64{-1, 0}, [2]float64{1, 0})
	fit := func() []int {
		s, err := NewSVC(WithKernel(KernelSigmoid), WithC(1e5), WithGamma(0.1), WithRandomState(42))
		require.NoError(t, err)
		require.NoError(t, s.Fit(d.X, d.Y, 2))
		pred, err := s.Predict(d.X)
		require.NoError(t, err)
		return pred
	}
	assert.Equal(t, fit(), fit())
}

func TestKNNVoting(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 1.1})
	y := []int{0, 1, 1}

	tests := []struct {
		name  string
		opts  []KNNOption
		query float64
		want  int
	}{
		{"nearest", []KNNOption{WithNeighbors(1)}, 0.2, 0},
		{"uniform majority", []KNNOption{WithNeighbors(3)}, 0, 1},
		{"exact match wins", []KNNOption{WithNeighbors(3), WithWeights(WeightsDistance)}, 0, 0},
		{"tie goes low", []KNNOption{WithNeighbors(2)}, 0.5, 0},
		{"manhattan", []KNNOption{WithNeighbors(1), WithP(1)}, 0.9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewKNN(tt.opts...)
			require.NoError(t, err)
			require.NoError(t, c.Fit(X, y, 2))
			pred, err := c.Predict(mat.NewDense(1, 1, []float64{tt.query}))
			require.NoError(t, err)
			assert.Equal(t, []int{tt.want}, pred)
		})
	}
}

func TestKNNValidation(t *testing.T) {
	_, err := NewKNN(WithNeighbors(0))
	assert.ErrorIs(t, err, optimization.ErrConfig)
	_, err = NewKNN(WithWeights("gaussian"))
	assert.ErrorIs(t, err, optimization.ErrConfig)
	_, err = NewKNN(WithP(0.5))
	assert.ErrorIs(t, err, optimization.ErrConfig)

	c, err := NewKNN(WithNeighbors(4))
	require.NoError(t, err)
	assert.Error(t, c.Fit(mat.NewDense(3, 1, []float64{0, 1, 2}), []int{0, 1, 1}, 2))
}

func TestMetrics(t *testing.T) {
	yTrue := []int{0, 0, 1, 1}
	yPred := []int{0, 1, 1, 1}

	acc, err := Accuracy(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.75, acc)

	// Class 2 never occurs and is left out of the average.
	f1, err := F1Macro(yTrue, yPred, 3)
	require.NoError(t, err)
	assert.InDelta(t, (2.0/3+0.8)/2, f1, 1e-12)

	f1, err = F1Macro([]int{0, 1}, []int{1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f1)

	_, err = Accuracy(nil, nil, 2)
	assert.Error(t, err)
	_, err = F1Macro([]int{0}, []int{0, 1}, 2)
	assert.Error(t, err)
	_, err = Accuracy([]int{5}, []int{0}, 2)
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("F1_Macro")
	require.NoError(t, err)
	v, err := m([]int{0, 1}, []int{0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = ParseMetric("roc_auc")
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestCrossValScore(t *testing.T) {
	d := clusters(t, 10, [2]float64{-5, 0}, [2]float64{5, 0}, [2]float64{0, 8})
	folds, err := dataset.StratifiedKFold(d.Y, 5, dataset.DefaultSeed)
	require.NoError(t, err)

	calls := 0
	factory := func() (Classifier, error) {
		calls++
		return NewKNN(WithNeighbors(1))
	}
	mean, scores, err := CrossValScore(context.Background(), factory, d, folds, Accuracy)
	require.NoError(t, err)
	assert.Equal(t, 1.0, mean)
	assert.Len(t, scores, 5)
	assert.Equal(t, 5, calls, "one fresh classifier per fold")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = CrossValScore(ctx, factory, d, folds, Accuracy)
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = CrossValScore(context.Background(), factory, d, nil, Accuracy)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestSVCEvaluator(t *testing.T) {
	d := clusters(t, 10, [2]float64{-3, -3}, [2]float64{3, 3})
	e, err := NewSVCEvaluator(d)
	require.NoError(t, err)

	score, err := e.Evaluate(context.Background(), space.Arguments{"C": 10.0, "gamma": 0.5, "kernel": "rbf"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)

	_, err = e.Evaluate(context.Background(), space.Arguments{"C": 10.0, "gamma": 0.5, "kernel": "laplace"})
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = e.Evaluate(context.Background(), space.Arguments{"C": 10.0})
	assert.Error(t, err)
}

func TestSVCEvaluatorDefaults(t *testing.T) {
	d := clusters(t, 10, [2]float64{-3, -3}, [2]float64{3, 3})
	e, err := NewSVCEvaluator(d, WithDefaults(space.Arguments{"gamma": 0.5, "kernel": "rbf"}))
	require.NoError(t, err)

	score, err := e.Evaluate(context.Background(), space.Arguments{"C": 100.0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestSVCEvaluatorOptionalArguments(t *testing.T) {
	d := clusters(t, 10, [2]float64{-3, -3}, [2]float64{3, 3})
	e, err := NewSVCEvaluator(d, WithDefaults(space.Arguments{"coef0": 1.0, "degree": 1, "tol": 1e-2}))
	require.NoError(t, err)

	score, err := e.Evaluate(context.Background(), space.Arguments{"C": 10.0, "gamma": 0.1, "kernel": KernelPoly})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)

	_, err = e.Evaluate(context.Background(), space.Arguments{"C": 10.0, "gamma": 0.1, "kernel": KernelPoly, "tol": -1.0})
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = e.Evaluate(context.Background(), space.Arguments{"C": 10.0, "gamma": 0.1, "kernel": KernelPoly, "coef0": "one"})
	assert.ErrorIs(t, err, optimization.ErrResolution)
}

func TestEvaluatorThroughProblem(t *testing.T) {
	d := clusters(t, 10, [2]float64{-5, 0}, [2]float64{5, 0})
	e, err := NewKNNEvaluator(d, WithFolds(2))
	require.NoError(t, err)

	s, err := space.NewBuilder().
		Numerical("n_neighbors", space.Int, 1, 10).
		Categorical("weights", WeightsUniform, WeightsDistance).
		Numerical("p", space.Int, 1, 2).
		Build()
	require.NoError(t, err)
	p, err := problem.New(e, s, problem.Maximize, problem.WithName("knn"))
	require.NoError(t, err)

	v, err := p.Evaluate(context.Background(), space.Coordinate{
		Continuous: []float64{2.6},
		Discrete:   []string{WeightsDistance, "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

func TestEvaluatorFoldErrors(t *testing.T) {
	d := clusters(t, 3, [2]float64{0, 0}, [2]float64{1, 1})
	_, err := NewSVCEvaluator(d)
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = NewKNNEvaluator(nil)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}
