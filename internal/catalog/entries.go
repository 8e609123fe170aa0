package catalog

import (
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/classify"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/problem"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

// Fixed SVC hyperparameters of the single-variable problem.
const (
	fixedGamma  = 1e-5
	fixedKernel = classify.KernelRBF
)

func init() {
	register(Entry{
		Name:             "svc",
		Description:      "SVC regularization, kernel width and kernel type scored by 5-fold macro F1",
		Sense:            problem.Maximize,
		NeedsDataset:     true,
		DefaultDimension: 3,
		space: func(int) (*space.Space, error) {
			return space.NewBuilder().
				Numerical("C", space.Float, 1e5, 1e9, space.LogScale()).
				Numerical("gamma", space.Float, 1e-3, 1e1, space.LogScale()).
				Categorical("kernel", classify.KernelRBF, classify.KernelSigmoid, classify.KernelPoly).
				Build()
		},
		evaluator: func(_ int, d *dataset.Dataset, opts []classify.EvaluatorOption) (problem.Evaluator, error) {
			return classify.NewSVCEvaluator(d, opts...)
		},
	})

	register(Entry{
		Name:             "svc-fixed-kernel",
		Description:      "SVC regularization only, rbf kernel with gamma 1e-5",
		Sense:            problem.Maximize,
		NeedsDataset:     true,
		DefaultDimension: 1,
		space: func(int) (*space.Space, error) {
			return space.NewBuilder().
				Numerical("C", space.Float, 1e1, 1e6, space.LogScale()).
				Build()
		},
		evaluator: func(_ int, d *dataset.Dataset, opts []classify.EvaluatorOption) (problem.Evaluator, error) {
			defaults := classify.WithDefaults(space.Arguments{"gamma": fixedGamma, "kernel": fixedKernel})
			return classify.NewSVCEvaluator(d, append([]classify.EvaluatorOption{defaults}, opts...)...)
		},
	})

	register(Entry{
		Name:             "knn",
		Description:      "k-nearest-neighbours size, weighting and Minkowski power scored by 5-fold accuracy",
		Sense:            problem.Maximize,
		NeedsDataset:     true,
		DefaultDimension: 3,
		space: func(int) (*space.Space, error) {
			return space.NewBuilder().
				Numerical("n_neighbors", space.Int, 1, 30).
				Categorical("weights", classify.WeightsUniform, classify.WeightsDistance).
				Numerical("p", space.Int, 1, 2).
				Build()
		},
		evaluator: func(_ int, d *dataset.Dataset, opts []classify.EvaluatorOption) (problem.Evaluator, error) {
			return classify.NewKNNEvaluator(d, opts...)
		},
	})

	register(Entry{
		Name:             "ecg-space",
		Description:      "Search space of the ECG classifier: threshold p and feature count",
		Sense:            problem.Maximize,
		DefaultDimension: 2,
		space: func(int) (*space.Space, error) {
			return space.NewBuilder().
				Numerical("p", space.Float, 0, 1).
				Numerical("o_features", space.Int, 80, 200).
				Build()
		},
	})

	register(Entry{
		Name:             "sphere",
		Description:      "Sum of squares on [-1, 1]^n",
		Sense:            problem.Minimize,
		DefaultDimension: 2,
		Scalable:         true,
		space:            func(dim int) (*space.Space, error) { return problem.Sphere{Dim: dim}.Space() },
		evaluator: func(dim int, _ *dataset.Dataset, _ []classify.EvaluatorOption) (problem.Evaluator, error) {
			return problem.Sphere{Dim: dim}, nil
		},
	})

	register(Entry{
		Name:             "rastrigin",
		Description:      "Rastrigin function on [-2.2, 1.8]^n",
		Sense:            problem.Minimize,
		DefaultDimension: 2,
		Scalable:         true,
		space:            func(dim int) (*space.Space, error) { return problem.Rastrigin{Dim: dim}.Space() },
		evaluator: func(dim int, _ *dataset.Dataset, _ []classify.EvaluatorOption) (problem.Evaluator, error) {
			return problem.Rastrigin{Dim: dim}, nil
		},
	})

	register(Entry{
		Name:             "stronginc3",
		Description:      "Two-variable function with three nonlinear inequality constraints",
		Sense:            problem.Minimize,
		DefaultDimension: 2,
		space:            func(int) (*space.Space, error) { return problem.StronginC3{}.Space() },
		evaluator: func(int, *dataset.Dataset, []classify.EvaluatorOption) (problem.Evaluator, error) {
			return problem.StronginC3{}, nil
		},
	})

	register(Entry{
		Name:             "rastrigin-int",
		Description:      "Rastrigin with half of the axes restricted to the box ends",
		Sense:            problem.Minimize,
		DefaultDimension: 4,
		Scalable:         true,
		space: func(dim int) (*space.Space, error) {
			f, err := rastriginInt(dim)
			if err != nil {
				return nil, err
			}
			return f.Space()
		},
		evaluator: func(dim int, _ *dataset.Dataset, _ []classify.EvaluatorOption) (problem.Evaluator, error) {
			return rastriginInt(dim)
		},
	})
}

// rastriginInt gives the discrete half of the axes to the box-end grid.
func rastriginInt(dim int) (problem.RastriginInt, error) {
	if dim < 2 {
		return problem.RastriginInt{}, optimization.NewConfigError("rastrigin-int needs at least 2 dimensions, got %d", dim).
			WithComponent("catalog")
	}
	discrete := dim / 2
	return problem.RastriginInt{Continuous: dim - discrete, Discrete: discrete}, nil
}

// SyntheticDataset is the fallback classification dataset used when no CSV
// is configured: three overlapping Gaussian clusters, shuffled.
func SyntheticDataset(seed uint64) (*dataset.Dataset, error) {
	d, err := dataset.Blobs(dataset.BlobsConfig{
		Samples:  150,
		Features: 4,
		Centers:  3,
		Spread:   2.5,
		Box:      5,
		Seed:     seed,
	})
	if err != nil {
		return nil, err
	}
	return d.Shuffle(dataset.DefaultSeed), nil
}
