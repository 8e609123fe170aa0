package classify

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Supported SVC kernels.
const (
	KernelLinear  = "linear"
	KernelRBF     = "rbf"
	KernelSigmoid = "sigmoid"
	KernelPoly    = "poly"
)

// SVC is a soft-margin support vector classifier trained with a simplified
// SMO solver. More than two classes are handled one-vs-rest.
type SVC struct {
	// Hyperparameters
	c           float64
	gamma       float64
	coef0       float64
	degree      int
	kernel      string
	tol         float64
	maxPasses   int
	maxIter     int
	randomState int64

	// Model parameters
	x        *mat.Dense
	machines []*binaryMachine
	nClasses int
}

// SVCOption is a functional option for SVC.
type SVCOption func(*SVC)

// WithC sets the penalty of the soft margin.
func WithC(c float64) SVCOption {
	return func(s *SVC) { s.c = c }
}

// WithGamma sets the kernel coefficient of rbf, poly and sigmoid.
func WithGamma(gamma float64) SVCOption {
	return func(s *SVC) { s.gamma = gamma }
}

// WithKernel selects the kernel by name.
func WithKernel(kernel string) SVCOption {
	return func(s *SVC) { s.kernel = kernel }
}

// WithDegree sets the polynomial degree.
func WithDegree(degree int) SVCOption {
	return func(s *SVC) { s.degree = degree }
}

// WithCoef0 sets the independent term of poly and sigmoid.
func WithCoef0(coef0 float64) SVCOption {
	return func(s *SVC) { s.coef0 = coef0 }
}

// WithTol sets the KKT violation tolerance.
func WithTol(tol float64) SVCOption {
	return func(s *SVC) { s.tol = tol }
}

// WithMaxIter bounds the number of sweeps over the training set.
func WithMaxIter(n int) SVCOption {
	return func(s *SVC) { s.maxIter = n }
}

// WithRandomState seeds the choice of the second working-set index.
func WithRandomState(seed int64) SVCOption {
	return func(s *SVC) { s.randomState = seed }
}

// NewSVC creates an SVC. Defaults follow the usual library defaults:
// C=1, rbf kernel, gamma=1, degree 3, coef0 0.
func NewSVC(opts ...SVCOption) (*SVC, error) {
	s := &SVC{
		c:           1,
		gamma:       1,
		degree:      3,
		kernel:      KernelRBF,
		tol:         1e-3,
		maxPasses:   5,
		maxIter:     200,
		randomState: 42,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case !(s.c > 0) || math.IsInf(s.c, 0):
		return nil, optimization.NewConfigError("C must be positive and finite, got %v", s.c).WithComponent("svc")
	case !(s.gamma > 0) || math.IsInf(s.gamma, 0):
		return nil, optimization.NewConfigError("gamma must be positive and finite, got %v", s.gamma).WithComponent("svc")
	case s.degree < 1:
		return nil, optimization.NewConfigError("degree must be at least 1, got %d", s.degree).WithComponent("svc")
	case !(s.tol > 0) || math.IsInf(s.tol, 0):
		return nil, optimization.NewConfigError("tol must be positive and finite, got %v", s.tol).WithComponent("svc")
	case s.maxIter < 1:
		return nil, optimization.NewConfigError("max iterations must be at least 1, got %d", s.maxIter).WithComponent("svc")
	}
	switch s.kernel {
	case KernelLinear, KernelRBF, KernelSigmoid, KernelPoly:
	default:
		return nil, optimization.NewConfigError("unsupported kernel %q", s.kernel).WithComponent("svc")
	}
	return s, nil
}

func (s *SVC) eval(a, b []float64) float64 {
	switch s.kernel {
	case KernelLinear:
		return floats.Dot(a, b)
	case KernelPoly:
		return math.Pow(s.gamma*floats.Dot(a, b)+s.coef0, float64(s.degree))
	case KernelSigmoid:
		return math.Tanh(s.gamma*floats.Dot(a, b) + s.coef0)
	default:
		d := floats.Distance(a, b, 2)
		return math.Exp(-s.gamma * d * d)
	}
}

// binaryMachine is one trained two-class problem with targets in {-1,+1}.
type binaryMachine struct {
	coef []float64 // alpha_i * y_i
	b    float64
}

func (m *binaryMachine) decision(k []float64) float64 {
	return floats.Dot(m.coef, k) + m.b
}

// Fit trains the classifier. Training data with fewer than two distinct
// classes is rejected.
func (s *SVC) Fit(X *mat.Dense, y []int, nClasses int) error {
	if err := checkFit("svc", X, y, nClasses); err != nil {
		return err
	}
	present := map[int]bool{}
	for _, c := range y {
		present[c] = true
	}
	if len(present) < 2 {
		return optimization.NewError("training data holds a single class").
			WithComponent("svc").WithOperation("Fit")
	}

	n, _ := X.Dims()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		xi := X.RawRowView(i)
		for j := i; j < n; j++ {
			K.SetSym(i, j, s.eval(xi, X.RawRowView(j)))
		}
	}

	rng := rand.New(rand.NewSource(s.randomState))
	targets := make([]float64, n)
	positives := []int{1}
	if nClasses > 2 {
		positives = make([]int, nClasses)
		for c := range positives {
			positives[c] = c
		}
	}

	s.machines = s.machines[:0]
	for _, pos := range positives {
		for i, c := range y {
			targets[i] = -1
			if c == pos {
				targets[i] = 1
			}
		}
		s.machines = append(s.machines, s.smo(K, targets, rng))
	}
	s.x = mat.DenseCopyOf(X)
	s.nClasses = nClasses
	return nil
}

// smo solves the dual problem with the simplified SMO heuristic, keeping a
// cache of the decision value at every training point.
func (s *SVC) smo(K *mat.SymDense, y []float64, rng *rand.Rand) *binaryMachine {
	n := len(y)
	alpha := make([]float64, n)
	f := make([]float64, n)
	b := 0.0

	passes := 0
	for iter := 0; passes < s.maxPasses && iter < s.maxIter; iter++ {
		changed := 0
		for i := 0; i < n; i++ {
			ei := f[i] - y[i]
			if !((y[i]*ei < -s.tol && alpha[i] < s.c) || (y[i]*ei > s.tol && alpha[i] > 0)) {
				continue
			}
			j := rng.Intn(n - 1)
			if j >= i {
				j++
			}
			ej := f[j] - y[j]

			ai, aj := alpha[i], alpha[j]
			var lo, hi float64
			if y[i] != y[j] {
				lo, hi = math.Max(0, aj-ai), math.Min(s.c, s.c+aj-ai)
			} else {
				lo, hi = math.Max(0, ai+aj-s.c), math.Min(s.c, ai+aj)
			}
			if lo >= hi {
				continue
			}
			kii, kjj, kij := K.At(i, i), K.At(j, j), K.At(i, j)
			eta := 2*kij - kii - kjj
			if eta >= 0 {
				continue
			}

			newAj := math.Min(hi, math.Max(lo, aj-y[j]*(ei-ej)/eta))
			if math.Abs(newAj-aj) < 1e-5*(newAj+aj+1e-5) {
				continue
			}
			newAi := ai + y[i]*y[j]*(aj-newAj)

			di, dj := y[i]*(newAi-ai), y[j]*(newAj-aj)
			b1 := b - ei - di*kii - dj*kij
			b2 := b - ej - di*kij - dj*kjj
			newB := (b1 + b2) / 2
			if newAi > 0 && newAi < s.c {
				newB = b1
			} else if newAj > 0 && newAj < s.c {
				newB = b2
			}

			db := newB - b
			for k := 0; k < n; k++ {
				f[k] += di*K.At(i, k) + dj*K.At(j, k) + db
			}
			alpha[i], alpha[j], b = newAi, newAj, newB
			changed++
		}
		if changed == 0 {
			passes++
		} else {
			passes = 0
		}
	}

	coef := make([]float64, n)
	for i := range coef {
		coef[i] = alpha[i] * y[i]
	}
	return &binaryMachine{coef: coef, b: b}
}

// Predict returns the class with the largest decision value. Binary models
// predict class 1 when the decision value is positive.
func (s *SVC) Predict(X *mat.Dense) ([]int, error) {
	if err := checkPredict("svc", s.x, X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	nTrain, _ := s.x.Dims()

	out := make([]int, rows)
	k := make([]float64, nTrain)
	scores := make([]float64, len(s.machines))
	for r := 0; r < rows; r++ {
		x := X.RawRowView(r)
		for i := range k {
			k[i] = s.eval(x, s.x.RawRowView(i))
		}
		if s.nClasses == 2 {
			if s.machines[0].decision(k) > 0 {
				out[r] = 1
			}
			continue
		}
		for m, machine := range s.machines {
			scores[m] = machine.decision(k)
		}
		out[r] = argmax(scores)
	}
	return out, nil
}
