package acquisition

// UpperConfidenceBound scores kappa*sigma - mu, the negated lower confidence
// bound of a minimization problem. It ignores the incumbent.
type UpperConfidenceBound struct {
	kappa float64
}

// NewUpperConfidenceBound creates UCB with exploration weight kappa.
func NewUpperConfidenceBound(kappa float64) *UpperConfidenceBound {
	return &UpperConfidenceBound{kappa: kappa}
}

// Compute implements Function.
func (u *UpperConfidenceBound) Compute(mu, sigma float64) float64 {
	return u.kappa*sigma - mu
}

// UpdateBest is a no-op.
func (u *UpperConfidenceBound) UpdateBest(float64) {}

// Name implements Function.
func (u *UpperConfidenceBound) Name() string { return NameUCB }
