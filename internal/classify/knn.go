package classify

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Neighbour weighting schemes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNN is a k-nearest-neighbours classifier with Minkowski distance.
type KNN struct {
	k       int
	weights string
	p       float64

	x        *mat.Dense
	y        []int
	nClasses int
}

// KNNOption is a functional option for KNN.
type KNNOption func(*KNN)

// WithNeighbors sets the number of neighbours that vote.
func WithNeighbors(k int) KNNOption {
	return func(c *KNN) { c.k = k }
}

// WithWeights selects uniform or inverse-distance voting.
func WithWeights(w string) KNNOption {
	return func(c *KNN) { c.weights = w }
}

// WithP sets the Minkowski power; 1 is Manhattan, 2 Euclidean.
func WithP(p float64) KNNOption {
	return func(c *KNN) { c.p = p }
}

// NewKNN creates a classifier with 5 uniform Euclidean neighbours unless
// overridden.
func NewKNN(opts ...KNNOption) (*KNN, error) {
	c := &KNN{k: 5, weights: WeightsUniform, p: 2}
	for _, opt := range opts {
		opt(c)
	}
	if c.k < 1 {
		return nil, optimization.NewConfigError("n_neighbors must be at least 1, got %d", c.k).WithComponent("knn")
	}
	if c.weights != WeightsUniform && c.weights != WeightsDistance {
		return nil, optimization.NewConfigError("unsupported weights %q", c.weights).WithComponent("knn")
	}
	if !(c.p >= 1) {
		return nil, optimization.NewConfigError("p must be at least 1, got %v", c.p).WithComponent("knn")
	}
	return c, nil
}

// Fit memorises the training set.
func (c *KNN) Fit(X *mat.Dense, y []int, nClasses int) error {
	if err := checkFit("knn", X, y, nClasses); err != nil {
		return err
	}
	if n := len(y); c.k > n {
		return optimization.NewError("n_neighbors (%d) exceeds training samples (%d)", c.k, n).
			WithComponent("knn").WithOperation("Fit")
	}
	c.x = mat.DenseCopyOf(X)
	c.y = append([]int(nil), y...)
	c.nClasses = nClasses
	return nil
}

// Predict votes among the k nearest training samples. Ties go to the lower
// class index. With distance weights, exact matches outvote everything else.
func (c *KNN) Predict(X *mat.Dense) ([]int, error) {
	if err := checkPredict("knn", c.x, X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	n := len(c.y)

	dist := make([]float64, n)
	idx := make([]int, n)
	votes := make([]float64, c.nClasses)
	out := make([]int, rows)
	for r := 0; r < rows; r++ {
		x := X.RawRowView(r)
		for i := 0; i < n; i++ {
			dist[i] = floats.Distance(x, c.x.RawRowView(i), c.p)
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			switch {
			case dist[a] < dist[b]:
				return -1
			case dist[a] > dist[b]:
				return 1
			}
			return 0
		})

		for i := range votes {
			votes[i] = 0
		}
		neighbours := idx[:c.k]
		exact := c.weights == WeightsDistance && dist[neighbours[0]] == 0
		for _, i := range neighbours {
			w := 1.0
			switch {
			case exact:
				if dist[i] != 0 {
					continue
				}
			case c.weights == WeightsDistance:
				w = 1 / dist[i]
			}
			votes[c.y[i]] += w
		}
		out[r] = argmax(votes)
	}
	return out, nil
}
