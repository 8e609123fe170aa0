// Package kernels provides stationary covariance functions for the Gaussian
// process surrogate.
package kernels

import (
	"math"
	"strings"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Kernel is a covariance function k(x1, x2).
type Kernel interface {
	// Eval computes the covariance between x1 and x2.
	Eval(x1, x2 []float64) float64

	// Hyperparameters returns [lengthScale, signalVar].
	Hyperparameters() []float64

	// SetHyperparameters replaces [lengthScale, signalVar].
	SetHyperparameters(params []float64) error
}

// Kernel names accepted by New.
const (
	NameMatern52 = "matern52"
	NameRBF      = "rbf"
)

// New builds the kernel registered under name.
func New(name string, lengthScale, signalVar float64) (Kernel, error) {
	var (
		k   Kernel
		err error
	)
	switch strings.ToLower(name) {
	case "", NameMatern52:
		k, err = NewMatern52Kernel(lengthScale, signalVar)
	case NameRBF:
		k, err = NewRBFKernel(lengthScale, signalVar)
	default:
		return nil, optimization.NewConfigError("unknown kernel %q", name).WithComponent("kernels")
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// stationary holds the two hyperparameters shared by the kernels here.
type stationary struct {
	lengthScale float64
	signalVar   float64
}

func newStationary(lengthScale, signalVar float64) (stationary, error) {
	s := stationary{}
	if err := s.SetHyperparameters([]float64{lengthScale, signalVar}); err != nil {
		return stationary{}, err
	}
	return s, nil
}

func (s *stationary) Hyperparameters() []float64 {
	return []float64{s.lengthScale, s.signalVar}
}

func (s *stationary) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return optimization.NewConfigError("expected 2 hyperparameters, got %d", len(params)).
			WithComponent("kernels")
	}
	for _, p := range params {
		if !(p > 0) || math.IsInf(p, 0) {
			return optimization.NewConfigError("hyperparameters must be positive and finite, got %v", params).
				WithComponent("kernels")
		}
	}
	s.lengthScale, s.signalVar = params[0], params[1]
	return nil
}

func sqDist(x1, x2 []float64) float64 {
	sum := 0.0
	for i := range x1 {
		d := x1[i] - x2[i]
		sum += d * d
	}
	return sum
}

// RBFKernel is the squared exponential kernel
// signalVar * exp(-|x1-x2|^2 / (2 lengthScale^2)).
type RBFKernel struct {
	stationary
}

// NewRBFKernel creates an RBF kernel.
func NewRBFKernel(lengthScale, signalVar float64) (*RBFKernel, error) {
	s, err := newStationary(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	return &RBFKernel{stationary: s}, nil
}

// Eval implements Kernel.
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	return k.signalVar * math.Exp(-sqDist(x1, x2)/(2*k.lengthScale*k.lengthScale))
}

// Matern52Kernel is the Matérn 5/2 kernel. It is the default surrogate
// kernel: smooth enough for hyperparameter landscapes without the RBF's
// tendency to oversmooth.
type Matern52Kernel struct {
	stationary
}

// NewMatern52Kernel creates a Matérn 5/2 kernel.
func NewMatern52Kernel(lengthScale, signalVar float64) (*Matern52Kernel, error) {
	s, err := newStationary(lengthScale, signalVar)
	if err != nil {
		return nil, err
	}
	return &Matern52Kernel{stationary: s}, nil
}

// Eval implements Kernel.
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(5*sqDist(x1, x2)) / k.lengthScale
	return k.signalVar * (1 + r + r*r/3) * math.Exp(-r)
}
