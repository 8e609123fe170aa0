package classify

import (
	"context"
	"maps"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

const defaultFolds = 5

// EvaluatorOption configures a cross-validated evaluator.
type EvaluatorOption func(*crossValidator)

// WithFolds sets the number of stratified folds.
func WithFolds(k int) EvaluatorOption {
	return func(cv *crossValidator) { cv.k = k }
}

// WithSeed seeds the fold shuffle and the classifiers.
func WithSeed(seed int64) EvaluatorOption {
	return func(cv *crossValidator) { cv.seed = seed }
}

// WithMetric replaces the evaluator's default metric.
func WithMetric(m Metric) EvaluatorOption {
	return func(cv *crossValidator) { cv.metric = m }
}

// WithDefaults supplies values for hyperparameters the search space does
// not declare. Values present in the resolved arguments take precedence.
func WithDefaults(args space.Arguments) EvaluatorOption {
	return func(cv *crossValidator) { cv.defaults = maps.Clone(args) }
}

// crossValidator holds the dataset and a fold split computed once, so every
// evaluation of the same arguments sees the same partitions.
type crossValidator struct {
	data     *dataset.Dataset
	folds    []dataset.Fold
	k        int
	seed     int64
	metric   Metric
	defaults space.Arguments
}

func newCrossValidator(component string, d *dataset.Dataset, metric Metric, opts []EvaluatorOption) (*crossValidator, error) {
	if d == nil {
		return nil, optimization.NewConfigError("dataset is required").WithComponent(component)
	}
	cv := &crossValidator{data: d, k: defaultFolds, seed: dataset.DefaultSeed, metric: metric}
	for _, opt := range opts {
		opt(cv)
	}
	if cv.metric == nil {
		return nil, optimization.NewConfigError("metric is required").WithComponent(component)
	}
	folds, err := dataset.StratifiedKFold(d.Y, cv.k, cv.seed)
	if err != nil {
		return nil, err
	}
	cv.folds = folds
	return cv, nil
}

func (cv *crossValidator) merge(args space.Arguments) space.Arguments {
	if len(cv.defaults) == 0 {
		return args
	}
	merged := maps.Clone(cv.defaults)
	maps.Copy(merged, args)
	return merged
}

func (cv *crossValidator) score(ctx context.Context, factory Factory) (float64, error) {
	mean, _, err := CrossValScore(ctx, factory, cv.data, cv.folds, cv.metric)
	return mean, err
}

// SVCEvaluator scores SVC hyperparameters C, gamma and kernel by
// cross-validated macro F1. Higher is better. The optional arguments
// degree, coef0 and tol are passed through when present.
type SVCEvaluator struct {
	cv *crossValidator
}

// NewSVCEvaluator prepares stratified folds over d.
func NewSVCEvaluator(d *dataset.Dataset, opts ...EvaluatorOption) (*SVCEvaluator, error) {
	cv, err := newCrossValidator("svc_evaluator", d, F1Macro, opts)
	if err != nil {
		return nil, err
	}
	return &SVCEvaluator{cv: cv}, nil
}

// Evaluate implements problem.Evaluator.
func (e *SVCEvaluator) Evaluate(ctx context.Context, args space.Arguments) (float64, error) {
	args = e.cv.merge(args)
	c, err := args.Float("C")
	if err != nil {
		return 0, err
	}
	gamma, err := args.Float("gamma")
	if err != nil {
		return 0, err
	}
	kernel, err := args.String("kernel")
	if err != nil {
		return 0, err
	}

	opts := []SVCOption{WithC(c), WithGamma(gamma), WithKernel(kernel), WithRandomState(e.cv.seed)}
	extra, err := svcExtras(args)
	if err != nil {
		return 0, err
	}
	opts = append(opts, extra...)
	if _, err := NewSVC(opts...); err != nil {
		return 0, err
	}
	return e.cv.score(ctx, func() (Classifier, error) { return NewSVC(opts...) })
}

func svcExtras(args space.Arguments) ([]SVCOption, error) {
	var opts []SVCOption
	if _, ok := args["degree"]; ok {
		v, err := args.Int("degree")
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDegree(v))
	}
	if _, ok := args["coef0"]; ok {
		v, err := args.Float("coef0")
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCoef0(v))
	}
	if _, ok := args["tol"]; ok {
		v, err := args.Float("tol")
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTol(v))
	}
	return opts, nil
}

// KNNEvaluator scores n_neighbors, weights and p by cross-validated
// accuracy. Higher is better.
type KNNEvaluator struct {
	cv *crossValidator
}

// NewKNNEvaluator prepares stratified folds over d.
func NewKNNEvaluator(d *dataset.Dataset, opts ...EvaluatorOption) (*KNNEvaluator, error) {
	cv, err := newCrossValidator("knn_evaluator", d, Accuracy, opts)
	if err != nil {
		return nil, err
	}
	return &KNNEvaluator{cv: cv}, nil
}

// Evaluate implements problem.Evaluator.
func (e *KNNEvaluator) Evaluate(ctx context.Context, args space.Arguments) (float64, error) {
	args = e.cv.merge(args)
	k, err := args.Int("n_neighbors")
	if err != nil {
		return 0, err
	}
	weights, err := args.String("weights")
	if err != nil {
		return 0, err
	}
	p, err := args.Float("p")
	if err != nil {
		return 0, err
	}

	opts := []KNNOption{WithNeighbors(k), WithWeights(weights), WithP(p)}
	if _, err := NewKNN(opts...); err != nil {
		return 0, err
	}
	return e.cv.score(ctx, func() (Classifier, error) { return NewKNN(opts...) })
}
