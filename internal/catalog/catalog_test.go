package catalog

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/classify"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

func TestLookup(t *testing.T) {
	e, err := Lookup(" SVC ")
	require.NoError(t, err)
	assert.Equal(t, "svc", e.Name)

	_, err = Lookup("xgb")
	assert.ErrorIs(t, err, optimization.ErrConfig)

	assert.Equal(t, []string{
		"ecg-space", "knn", "rastrigin", "rastrigin-int", "sphere",
		"stronginc3", "svc", "svc-fixed-kernel",
	}, Names())
	assert.Len(t, All(), len(Names()))
}

func TestSVCSpace(t *testing.T) {
	e, err := Lookup("svc")
	require.NoError(t, err)

	s, err := e.Space(0)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Dimension())
	assert.InDeltaSlice(t, []float64{math.Log(1e5), math.Log(1e-3)}, s.LowerBounds(), 1e-12)
	assert.InDeltaSlice(t, []float64{math.Log(1e9), math.Log(10)}, s.UpperBounds(), 1e-12)
	assert.Equal(t, [][]string{{"rbf", "sigmoid", "poly"}}, s.LabelSets())
}

func TestECGSpaceIsDescriptorOnly(t *testing.T) {
	e, err := Lookup("ecg-space")
	require.NoError(t, err)
	assert.False(t, e.HasEvaluator())

	s, err := e.Space(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 80}, s.LowerBounds())
	assert.Equal(t, []float64{1, 200}, s.UpperBounds())
	assert.Zero(t, s.NumDiscrete())

	args, err := s.Resolve(space.Coordinate{Continuous: []float64{0.5, 120.6}})
	require.NoError(t, err)
	assert.Equal(t, space.Arguments{"p": 0.5, "o_features": 121}, args)

	_, err = e.NewProblem(0, nil)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestKNNSpace(t *testing.T) {
	e, err := Lookup("knn")
	require.NoError(t, err)
	s, err := e.Space(0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.NumContinuous())
	assert.Equal(t, [][]string{{"uniform", "distance"}, {"1", "2"}}, s.LabelSets())
}

func TestScalableDimension(t *testing.T) {
	e, err := Lookup("rastrigin")
	require.NoError(t, err)

	p, err := e.NewProblem(5, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Dimension())

	p, err = e.NewProblem(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Dimension())

	fixed, err := Lookup("stronginc3")
	require.NoError(t, err)
	p, err = fixed.NewProblem(7, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Dimension())
	assert.Equal(t, 3, p.NumberOfConstraints())
}

func TestDimensionLimit(t *testing.T) {
	for _, name := range []string{"sphere", "rastrigin", "rastrigin-int"} {
		t.Run(name, func(t *testing.T) {
			e, err := Lookup(name)
			require.NoError(t, err)

			s, err := e.Space(MaxDimension)
			require.NoError(t, err)
			assert.Equal(t, MaxDimension, s.Dimension())

			_, err = e.Space(MaxDimension + 1)
			assert.ErrorIs(t, err, optimization.ErrConfig)
			_, err = e.NewProblem(1<<30, nil)
			assert.ErrorIs(t, err, optimization.ErrConfig)
		})
	}

	fixed, err := Lookup("stronginc3")
	require.NoError(t, err)
	_, err = fixed.NewProblem(1<<30, nil)
	assert.NoError(t, err, "fixed spaces ignore the dimension")
}

func TestRastriginIntSplit(t *testing.T) {
	e, err := Lookup("rastrigin-int")
	require.NoError(t, err)

	s, err := e.Space(5)
	require.NoError(t, err)
	assert.Equal(t, 3, s.NumContinuous())
	assert.Equal(t, 2, s.NumDiscrete())

	_, err = e.NewProblem(1, nil)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestBenchmarkOptimaEvaluate(t *testing.T) {
	for _, name := range []string{"sphere", "rastrigin", "stronginc3", "rastrigin-int"} {
		t.Run(name, func(t *testing.T) {
			e, err := Lookup(name)
			require.NoError(t, err)
			p, err := e.NewProblem(0, nil)
			require.NoError(t, err)

			o, ok := p.Optimum()
			require.True(t, ok)
			v, err := p.Evaluate(context.Background(), o.Coordinate)
			require.NoError(t, err)
			assert.InDelta(t, o.Value, v, 1e-5)
		})
	}
}

func TestClassifierNeedsDataset(t *testing.T) {
	e, err := Lookup("svc")
	require.NoError(t, err)
	_, err = e.NewProblem(0, nil)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}

func TestSVCFixedKernelProblem(t *testing.T) {
	d, err := SyntheticDataset(1)
	require.NoError(t, err)
	assert.Equal(t, 150, d.Len())

	e, err := Lookup("svc-fixed-kernel")
	require.NoError(t, err)
	p, err := e.NewProblem(0, d, classify.WithFolds(3))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Dimension())

	v, err := p.Evaluate(context.Background(), p.StartPoint())
	require.NoError(t, err)
	assert.LessOrEqual(t, v, 0.0, "maximized score is negated")
	assert.GreaterOrEqual(t, v, -1.0)
}
