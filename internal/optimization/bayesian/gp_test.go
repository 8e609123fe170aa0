package bayesian

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/kernels"
)

func rbf(t *testing.T, ls float64) kernels.Kernel {
	t.Helper()
	k, err := kernels.NewRBFKernel(ls, 1.0)
	require.NoError(t, err)
	return k
}

func TestGPFitAndPredict(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewVecDense(3, []float64{1, 2, 1})

	gp := NewGP(rbf(t, 1), 1e-6, zaptest.NewLogger(t))
	require.NoError(t, gp.Fit(X, y))

	mean, variance, err := gp.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, y.AtVec(i), mean.AtVec(i), 1e-3, "interpolates training point %d", i)
		assert.InDelta(t, 0, variance.AtVec(i), 1e-3)
	}

	far, farVar, err := gp.Predict(mat.NewDense(1, 1, []float64{50}))
	require.NoError(t, err)
	// Far from data the posterior reverts to the prior on the original scale.
	assert.InDelta(t, 4.0/3.0, far.AtVec(0), 1e-6)
	assert.Greater(t, farVar.AtVec(0), variance.AtVec(1))
}

func TestGPPredictPoint(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	})
	y := mat.NewVecDense(4, []float64{0, 1, 1, 2})

	gp := NewGP(rbf(t, 0.8), 1e-6, nil)
	require.NoError(t, gp.Fit(X, y))

	mu, sigma, err := gp.PredictPoint([]float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 2, mu, 1e-3)
	assert.GreaterOrEqual(t, sigma, 0.0)

	_, sigmaMid, err := gp.PredictPoint([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.Greater(t, sigmaMid, sigma)
}

func TestGPConstantTargets(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 0.5, 1})
	y := mat.NewVecDense(3, []float64{7, 7, 7})

	gp := NewGP(rbf(t, 1), 1e-6, nil)
	require.NoError(t, gp.Fit(X, y))

	mu, _, err := gp.PredictPoint([]float64{0.25})
	require.NoError(t, err)
	assert.InDelta(t, 7, mu, 1e-6)
}

func TestGPDuplicatePoints(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0.5, 0.5, 0.5})
	y := mat.NewVecDense(3, []float64{1, 1, 1})

	gp := NewGP(rbf(t, 1), 0, nil)
	require.NoError(t, gp.Fit(X, y), "jitter makes a singular kernel matrix factorizable")
}

func TestGPErrorHandling(t *testing.T) {
	gp := NewGP(rbf(t, 1), 1e-6, nil)

	_, _, err := gp.Predict(mat.NewDense(1, 1, []float64{0}))
	assert.Error(t, err, "predict before fit")

	assert.Error(t, gp.Fit(nil, mat.NewVecDense(1, nil)))
	assert.Error(t, gp.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewVecDense(3, nil)))

	require.NoError(t, gp.Fit(mat.NewDense(1, 1, []float64{1}), mat.NewVecDense(1, []float64{3})))
	_, _, err = gp.Predict(nil)
	assert.Error(t, err)
}
