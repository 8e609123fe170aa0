// Package dataset holds labelled feature matrices and the splitting
// utilities used by cross-validated objective evaluators.
package dataset

import (
	"math"
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// DefaultSeed mirrors the fixed random_state used by the reference problems.
const DefaultSeed = 42

// Dataset is a read-only set of samples. Y holds class indices into Classes.
type Dataset struct {
	X       *mat.Dense
	Y       []int
	Classes []string
}

// New validates X and y. Class labels default to the decimal class index.
func New(X *mat.Dense, y []int, classes []string) (*Dataset, error) {
	const op = "New"

	if X == nil || X.IsEmpty() {
		return nil, optimization.NewConfigError("feature matrix is empty").
			WithComponent("dataset").WithOperation(op)
	}
	rows, _ := X.Dims()
	if rows != len(y) {
		return nil, optimization.NewConfigError("feature rows (%d) and labels (%d) differ", rows, len(y)).
			WithComponent("dataset").WithOperation(op)
	}

	maxClass := -1
	for _, c := range y {
		if c < 0 {
			return nil, optimization.NewConfigError("negative class index %d", c).
				WithComponent("dataset").WithOperation(op)
		}
		maxClass = max(maxClass, c)
	}
	if classes == nil {
		for i := 0; i <= maxClass; i++ {
			classes = append(classes, strconv.Itoa(i))
		}
	}
	if maxClass >= len(classes) {
		return nil, optimization.NewConfigError("class index %d has no label", maxClass).
			WithComponent("dataset").WithOperation(op)
	}

	return &Dataset{X: X, Y: y, Classes: classes}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Y) }

// NumFeatures returns the number of feature columns.
func (d *Dataset) NumFeatures() int {
	_, c := d.X.Dims()
	return c
}

// NumClasses returns the number of distinct class labels.
func (d *Dataset) NumClasses() int { return len(d.Classes) }

// Subset returns the rows at idx, in that order.
func (d *Dataset) Subset(idx []int) *Dataset {
	if len(idx) == 0 {
		return &Dataset{X: &mat.Dense{}, Classes: d.Classes}
	}
	X := mat.NewDense(len(idx), d.NumFeatures(), nil)
	y := make([]int, len(idx))
	for i, r := range idx {
		X.SetRow(i, d.X.RawRowView(r))
		y[i] = d.Y[r]
	}
	return &Dataset{X: X, Y: y, Classes: d.Classes}
}

// Shuffle returns a copy with rows permuted by a seeded generator.
func (d *Dataset) Shuffle(seed int64) *Dataset {
	perm := rand.New(rand.NewSource(seed)).Perm(d.Len())
	return d.Subset(perm)
}

// Standardize returns a copy whose columns have zero mean and unit
// population variance. Constant columns are only centred.
func (d *Dataset) Standardize() *Dataset {
	rows, cols := d.X.Dims()
	out := mat.NewDense(rows, cols, nil)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, d.X)
		mean, variance := stat.PopMeanVariance(col, nil)
		scale := math.Sqrt(variance)
		if scale < 1e-8 {
			scale = 1
		}
		for i := range col {
			out.Set(i, j, (col[i]-mean)/scale)
		}
	}
	return &Dataset{X: out, Y: append([]int(nil), d.Y...), Classes: d.Classes}
}

// ClassCounts returns the number of samples per class index.
func (d *Dataset) ClassCounts() []int {
	counts := make([]int, d.NumClasses())
	for _, c := range d.Y {
		counts[c]++
	}
	return counts
}
