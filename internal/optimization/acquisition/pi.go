package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ProbabilityOfImprovement is P[f(x) < best - xi] under the posterior.
type ProbabilityOfImprovement struct {
	best float64
	xi   float64
}

// NewProbabilityOfImprovement creates PI with minimum improvement xi.
func NewProbabilityOfImprovement(xi float64) *ProbabilityOfImprovement {
	return &ProbabilityOfImprovement{best: math.Inf(1), xi: xi}
}

// Compute returns a probability in [0, 1].
func (pi *ProbabilityOfImprovement) Compute(mu, sigma float64) float64 {
	if math.IsInf(pi.best, 1) {
		return 1
	}
	improvement := pi.best - mu - pi.xi
	if sigma <= sigmaFloor {
		if improvement > 0 {
			return 1
		}
		return 0
	}
	return distuv.UnitNormal.CDF(improvement / sigma)
}

// UpdateBest implements Function.
func (pi *ProbabilityOfImprovement) UpdateBest(best float64) { pi.best = best }

// Name implements Function.
func (pi *ProbabilityOfImprovement) Name() string { return NamePI }
