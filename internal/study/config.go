package study

import (
	"strings"

	"go.uber.org/zap"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/acquisition"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/bayesian"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/kernels"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/search"
)

// ErrorPolicy decides what happens when an evaluation fails.
type ErrorPolicy string

const (
	// Abort stops the study and reports the evaluation error.
	Abort ErrorPolicy = "abort"
	// Reject records the trial as failed and shows the optimizer a penalty
	// value instead.
	Reject ErrorPolicy = "reject"
)

// ParseErrorPolicy accepts "abort" (also the empty string) and "reject".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Abort:
		return Abort, nil
	case Reject:
		return Reject, nil
	}
	return "", optimization.NewConfigError("unknown error policy %q", s).WithComponent("study")
}

// Samplers accepted by NewOptimizer.
const (
	SamplerBayesian = "bayesian"
	SamplerRandom   = "random"
)

// Config controls one study run. Iteration budgets apply per branch.
// Acquisition and Kernel only affect the bayesian sampler.
type Config struct {
	ID            string
	Sampler       string
	Acquisition   string
	Kernel        string
	MaxIterations int
	InitialPoints int
	Seed          int64
	Refine        bool
	ErrorPolicy   ErrorPolicy
	// Penalty multiplies the total constraint violation added to the
	// objective of an infeasible trial.
	Penalty float64
}

const (
	// Surrogate kernel hyperparameters on the unit cube.
	defaultLengthScale = 0.25
	defaultSignalVar   = 1.0

	defaultPenalty = 1e3
	// rejectedValue is shown to the optimizer for a rejected trial when no
	// successful trial exists yet to derive a penalty from.
	rejectedValue = 1e6
)

func (c *Config) validate() error {
	if c.MaxIterations < 0 {
		return optimization.NewConfigError("max iterations must be non-negative, got %d", c.MaxIterations).
			WithComponent("study")
	}
	if c.InitialPoints < 0 {
		return optimization.NewConfigError("initial points must be non-negative, got %d", c.InitialPoints).
			WithComponent("study")
	}
	policy, err := ParseErrorPolicy(string(c.ErrorPolicy))
	if err != nil {
		return err
	}
	c.ErrorPolicy = policy
	if c.Penalty <= 0 {
		c.Penalty = defaultPenalty
	}
	if c.Sampler == "" {
		c.Sampler = SamplerBayesian
	}
	return nil
}

// NewOptimizer builds the optimizer named by cfg.Sampler.
func NewOptimizer(cfg Config, logger *zap.Logger) (optimization.Optimizer, error) {
	switch strings.ToLower(cfg.Sampler) {
	case "", SamplerBayesian:
		acq, err := acquisition.New(cfg.Acquisition, acquisition.DefaultParams())
		if err != nil {
			return nil, err
		}
		k, err := kernels.New(cfg.Kernel, defaultLengthScale, defaultSignalVar)
		if err != nil {
			return nil, err
		}
		return bayesian.NewBayesianOptimizer(
			bayesian.WithLogger(logger),
			bayesian.WithAcquisition(acq),
			bayesian.WithKernel(k),
		)
	case SamplerRandom:
		return search.NewRandomSearch(logger), nil
	}
	return nil, optimization.NewConfigError("unknown sampler %q", cfg.Sampler).WithComponent("study")
}
