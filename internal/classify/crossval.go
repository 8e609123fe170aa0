package classify

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// CrossValScore trains a fresh classifier on every fold's training rows,
// scores it on the held-out rows and returns the mean and per-fold scores.
// The context is checked between folds.
func CrossValScore(ctx context.Context, factory Factory, d *dataset.Dataset, folds []dataset.Fold, metric Metric) (float64, []float64, error) {
	const op = "CrossValScore"

	if len(folds) == 0 {
		return 0, nil, optimization.NewConfigError("no folds given").
			WithComponent("classify").WithOperation(op)
	}

	scores := make([]float64, 0, len(folds))
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		train, test := d.Subset(fold.Train), d.Subset(fold.Test)

		clf, err := factory()
		if err != nil {
			return 0, nil, err
		}
		if err := clf.Fit(train.X, train.Y, d.NumClasses()); err != nil {
			return 0, nil, optimization.Wrap(err, "fold %d", i).
				WithComponent("classify").WithOperation(op)
		}
		pred, err := clf.Predict(test.X)
		if err != nil {
			return 0, nil, optimization.Wrap(err, "fold %d", i).
				WithComponent("classify").WithOperation(op)
		}
		score, err := metric(test.Y, pred, d.NumClasses())
		if err != nil {
			return 0, nil, err
		}
		scores = append(scores, score)
	}
	return stat.Mean(scores, nil), scores, nil
}
