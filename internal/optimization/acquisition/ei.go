package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ExpectedImprovement is E[max(best - f(x) - xi, 0)] under the posterior.
type ExpectedImprovement struct {
	best float64
	xi   float64
}

// NewExpectedImprovement creates EI with trade-off parameter xi.
func NewExpectedImprovement(xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{best: math.Inf(1), xi: xi}
}

// Compute returns the expected improvement; it is never negative.
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	if math.IsInf(ei.best, 1) {
		// Nothing observed yet: every point is an improvement, prefer uncertainty.
		return sigma
	}

	improvement := ei.best - mu - ei.xi
	if sigma <= sigmaFloor {
		return math.Max(improvement, 0)
	}

	z := improvement / sigma
	v := improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z)
	return math.Max(v, 0)
}

// UpdateBest implements Function.
func (ei *ExpectedImprovement) UpdateBest(best float64) { ei.best = best }

// Best returns the incumbent value.
func (ei *ExpectedImprovement) Best() float64 { return ei.best }

// Name implements Function.
func (ei *ExpectedImprovement) Name() string { return NameEI }
