// Package acquisition scores candidate points from a surrogate's posterior
// mean and standard deviation. All functions assume minimization and return
// larger values for more promising points.
package acquisition

import (
	"strings"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// sigmaFloor is the standard deviation below which a prediction is treated
// as certain.
const sigmaFloor = 1e-10

// Function is an acquisition function.
type Function interface {
	// Compute scores a point with posterior mean mu and standard deviation sigma.
	Compute(mu, sigma float64) float64
	// UpdateBest sets the incumbent (lowest observed) value.
	UpdateBest(best float64)
	// Name identifies the function in logs and configuration.
	Name() string
}

// Names of the supported acquisition functions.
const (
	NameEI  = "ei"
	NamePI  = "pi"
	NameUCB = "ucb"
)

// Params tunes the acquisition functions. Xi is the minimum improvement for
// EI and PI; Kappa is the exploration weight for UCB.
type Params struct {
	Xi    float64
	Kappa float64
}

// DefaultParams returns Xi 0.01 and Kappa 2.
func DefaultParams() Params {
	return Params{Xi: 0.01, Kappa: 2.0}
}

// New returns the acquisition function registered under name. The incumbent
// starts at +Inf until UpdateBest is called.
func New(name string, p Params) (Function, error) {
	switch strings.ToLower(name) {
	case "", NameEI:
		return NewExpectedImprovement(p.Xi), nil
	case NamePI:
		return NewProbabilityOfImprovement(p.Xi), nil
	case NameUCB:
		return NewUpperConfidenceBound(p.Kappa), nil
	default:
		return nil, optimization.NewConfigError("unknown acquisition function %q", name).
			WithComponent("acquisition")
	}
}
