package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

func TestRBFKernel(t *testing.T) {
	tests := []struct {
		name string
		x1   []float64
		x2   []float64
		ls   float64
		sv   float64
		want float64
	}{
		{"same point", []float64{1, 2}, []float64{1, 2}, 1, 1, 1},
		{"unit distance squared two", []float64{0, 0}, []float64{1, 1}, 1, 1, math.Exp(-1)},
		{"longer length scale", []float64{0, 0}, []float64{2, 2}, 2, 1, math.Exp(-1)},
		{"signal variance scales", []float64{0}, []float64{0}, 1, 3.5, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewRBFKernel(tt.ls, tt.sv)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, k.Eval(tt.x1, tt.x2), 1e-12)
			assert.InDelta(t, k.Eval(tt.x1, tt.x2), k.Eval(tt.x2, tt.x1), 1e-15)
		})
	}
}

func TestMatern52Kernel(t *testing.T) {
	k, err := NewMatern52Kernel(1, 2)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, k.Eval([]float64{0.3, 0.3}, []float64{0.3, 0.3}), 1e-12)

	// r = sqrt(5) at unit distance.
	r := math.Sqrt(5)
	want := 2 * (1 + r + 5.0/3.0) * math.Exp(-r)
	assert.InDelta(t, want, k.Eval([]float64{0}, []float64{1}), 1e-12)

	near := k.Eval([]float64{0, 0}, []float64{0.1, 0})
	far := k.Eval([]float64{0, 0}, []float64{2, 0})
	assert.Greater(t, near, far)
	assert.Greater(t, far, 0.0)
}

func TestHyperparameters(t *testing.T) {
	k, err := NewMatern52Kernel(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, k.Hyperparameters())

	require.NoError(t, k.SetHyperparameters([]float64{0.5, 2}))
	assert.Equal(t, []float64{0.5, 2}, k.Hyperparameters())

	for _, bad := range [][]float64{{1}, {0, 1}, {1, -1}, {math.NaN(), 1}, {math.Inf(1), 1}} {
		err := k.SetHyperparameters(bad)
		assert.ErrorIs(t, err, optimization.ErrConfig, "%v", bad)
	}
	assert.Equal(t, []float64{0.5, 2}, k.Hyperparameters())
}

func TestNew(t *testing.T) {
	k, err := New("", 1, 1)
	require.NoError(t, err)
	assert.IsType(t, &Matern52Kernel{}, k)

	k, err = New("RBF", 1, 1)
	require.NoError(t, err)
	assert.IsType(t, &RBFKernel{}, k)

	_, err = New("periodic", 1, 1)
	assert.ErrorIs(t, err, optimization.ErrConfig)

	_, err = New("rbf", -1, 1)
	assert.ErrorIs(t, err, optimization.ErrConfig)
}
