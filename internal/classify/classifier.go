// Package classify provides the small set of classifiers, metrics and
// cross-validation helpers that back the machine-learning tuning problems.
package classify

import (
	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Classifier is a multi-class estimator over dense feature rows.
type Classifier interface {
	// Fit trains on X with class indices y in [0, nClasses).
	Fit(X *mat.Dense, y []int, nClasses int) error
	// Predict returns one class index per row of X.
	Predict(X *mat.Dense) ([]int, error)
}

// Factory builds a fresh, untrained classifier. CrossValScore calls it once
// per fold.
type Factory func() (Classifier, error)

func checkFit(component string, X *mat.Dense, y []int, nClasses int) error {
	if X == nil || X.IsEmpty() {
		return optimization.NewError("training matrix is empty").
			WithComponent(component).WithOperation("Fit")
	}
	rows, _ := X.Dims()
	if rows != len(y) {
		return optimization.NewError("training rows (%d) and labels (%d) differ", rows, len(y)).
			WithComponent(component).WithOperation("Fit")
	}
	if nClasses < 2 {
		return optimization.NewError("need at least 2 classes, got %d", nClasses).
			WithComponent(component).WithOperation("Fit")
	}
	return nil
}

func checkPredict(component string, trained *mat.Dense, X *mat.Dense) error {
	if trained == nil {
		return optimization.NewError("model not trained").
			WithComponent(component).WithOperation("Predict")
	}
	if X == nil || X.IsEmpty() {
		return optimization.NewError("input matrix is empty").
			WithComponent(component).WithOperation("Predict")
	}
	_, want := trained.Dims()
	if _, got := X.Dims(); got != want {
		return optimization.NewError("expected %d features, got %d", want, got).
			WithComponent(component).WithOperation("Predict")
	}
	return nil
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
