package bayesian

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/kernels"
)

const (
	// maxJitterAttempts bounds how often the diagonal jitter is raised
	// before Fit gives up on the Cholesky factorization.
	maxJitterAttempts = 8
	initialJitter     = 1e-10
)

// GP is a zero-mean Gaussian process regressor. Targets are standardized
// internally so acquisition functions see predictions on the original scale
// while the kernel works with unit variance.
type GP struct {
	kernel   kernels.Kernel
	noiseVar float64

	X     *mat.Dense
	alpha *mat.VecDense
	chol  *mat.Cholesky

	yMean float64
	yStd  float64

	logger *zap.Logger
}

// NewGP creates a Gaussian process. A nil logger disables logging.
func NewGP(kernel kernels.Kernel, noiseVar float64, logger *zap.Logger) *GP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		yStd:     1,
		logger:   logger.Named("gaussian_process"),
	}
}

// Fit conditions the process on observations X (n x d) and y (n).
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "Fit"

	if X == nil || y == nil {
		return optimization.NewError("input matrices must not be nil").
			WithComponent("gaussian_process").WithOperation(op)
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return optimization.NewError("input matrix X must not be empty").
			WithComponent("gaussian_process").WithOperation(op)
	}
	if n != y.Len() {
		return optimization.NewError("dimension mismatch: X has %d samples but y has length %d", n, y.Len()).
			WithComponent("gaussian_process").WithOperation(op)
	}

	ys := mat.Col(nil, 0, y)
	gp.yMean, gp.yStd = stat.MeanStdDev(ys, nil)
	if !(gp.yStd > 0) || math.IsNaN(gp.yStd) {
		gp.yStd = 1
	}
	for i := range ys {
		ys[i] = (ys[i] - gp.yMean) / gp.yStd
	}

	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		xi := X.RawRowView(i)
		for j := i; j < n; j++ {
			K.SetSym(i, j, gp.kernel.Eval(xi, X.RawRowView(j)))
		}
	}

	var chol mat.Cholesky
	jitter := initialJitter
	ok := false
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		Kj := mat.NewSymDense(n, nil)
		Kj.CopySym(K)
		for i := 0; i < n; i++ {
			Kj.SetSym(i, i, Kj.At(i, i)+gp.noiseVar+jitter)
		}
		if ok = chol.Factorize(Kj); ok {
			break
		}
		gp.logger.Debug("Cholesky factorization failed, increasing jitter",
			zap.Int("attempt", attempt+1),
			zap.Float64("jitter", jitter))
		jitter *= 10
	}
	if !ok {
		return optimization.NewError("kernel matrix is not positive definite after %d jitter attempts", maxJitterAttempts).
			WithComponent("gaussian_process").WithOperation(op)
	}

	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, ys)); err != nil {
		return optimization.Wrap(err, "solving for alpha").
			WithComponent("gaussian_process").WithOperation(op)
	}

	gp.X = mat.DenseCopyOf(X)
	gp.alpha = alpha
	gp.chol = &chol

	gp.logger.Debug("Fitted GP model",
		zap.Int("samples", n),
		zap.Int("features", d),
		zap.Float64("jitter", jitter),
	)
	return nil
}

// Predict returns the posterior mean and variance at each row of X.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "Predict"

	if X == nil {
		return nil, nil, optimization.NewError("input matrix X is nil").
			WithComponent("gaussian_process").WithOperation(op)
	}
	if gp.X == nil || gp.alpha == nil {
		return nil, nil, optimization.NewError("model not trained").
			WithComponent("gaussian_process").WithOperation(op)
	}

	nTest, _ := X.Dims()
	nTrain, _ := gp.X.Dims()

	Kstar := mat.NewDense(nTest, nTrain, nil)
	prior := make([]float64, nTest)
	for i := 0; i < nTest; i++ {
		x := X.RawRowView(i)
		prior[i] = gp.kernel.Eval(x, x)
		for j := 0; j < nTrain; j++ {
			Kstar.Set(i, j, gp.kernel.Eval(x, gp.X.RawRowView(j)))
		}
	}

	mean := mat.NewVecDense(nTest, nil)
	mean.MulVec(Kstar, gp.alpha)

	v := mat.NewDense(nTrain, nTest, nil)
	if err := gp.chol.SolveTo(v, Kstar.T()); err != nil {
		return nil, nil, optimization.Wrap(err, "solving for variance").
			WithComponent("gaussian_process").WithOperation(op)
	}

	variance := mat.NewVecDense(nTest, nil)
	scale := gp.yStd * gp.yStd
	for i := 0; i < nTest; i++ {
		reduction := 0.0
		for j := 0; j < nTrain; j++ {
			reduction += Kstar.At(i, j) * v.At(j, i)
		}
		variance.SetVec(i, math.Max(prior[i]-reduction, 0)*scale)
		mean.SetVec(i, mean.AtVec(i)*gp.yStd+gp.yMean)
	}

	return mean, variance, nil
}

// PredictPoint is Predict for a single point, returning mean and standard deviation.
func (gp *GP) PredictPoint(x []float64) (mu, sigma float64, err error) {
	m, v, err := gp.Predict(mat.NewDense(1, len(x), append([]float64(nil), x...)))
	if err != nil {
		return 0, 0, err
	}
	return m.AtVec(0), math.Sqrt(v.AtVec(0)), nil
}
