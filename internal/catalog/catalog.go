// Package catalog registers the named tuning problems the service can run:
// classifier hyperparameter searches over a dataset and synthetic benchmark
// functions with known optima.
package catalog

import (
	"slices"
	"strings"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/classify"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/dataset"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/problem"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

// Entry describes one registered problem.
type Entry struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Sense       problem.Sense `json:"-"`
	// NeedsDataset is set for problems that train a classifier.
	NeedsDataset bool `json:"needs_dataset"`
	// DefaultDimension is used when a caller passes dimension 0. Entries
	// with a fixed space ignore the dimension entirely.
	DefaultDimension int  `json:"default_dimension"`
	Scalable         bool `json:"scalable"`

	space     func(dim int) (*space.Space, error)
	evaluator func(dim int, d *dataset.Dataset, opts []classify.EvaluatorOption) (problem.Evaluator, error)
}

// HasEvaluator reports whether problems can be built from the entry.
// Descriptor-only entries just publish a search space.
func (e Entry) HasEvaluator() bool {
	return e.evaluator != nil
}

// MaxDimension is the largest dimension a scalable entry accepts.
const MaxDimension = 100

func (e Entry) dimension(dim int) (int, error) {
	if dim <= 0 || !e.Scalable {
		return e.DefaultDimension, nil
	}
	if dim > MaxDimension {
		return 0, optimization.NewConfigError("%s supports at most %d dimensions, got %d", e.Name, MaxDimension, dim).
			WithComponent("catalog")
	}
	return dim, nil
}

// Space builds the entry's parameter space.
func (e Entry) Space(dim int) (*space.Space, error) {
	dim, err := e.dimension(dim)
	if err != nil {
		return nil, err
	}
	return e.space(dim)
}

// NewProblem builds the space and evaluator and binds them into a problem.
// Classifier entries require d. Options are passed to the cross-validated
// evaluator and ignored by benchmark functions.
func (e Entry) NewProblem(dim int, d *dataset.Dataset, opts ...classify.EvaluatorOption) (*problem.Problem, error) {
	const op = "NewProblem"

	if e.evaluator == nil {
		return nil, optimization.NewConfigError("%s only describes a search space", e.Name).
			WithComponent("catalog").WithOperation(op)
	}
	if e.NeedsDataset && d == nil {
		return nil, optimization.NewConfigError("%s needs a dataset", e.Name).
			WithComponent("catalog").WithOperation(op)
	}

	dim, err := e.dimension(dim)
	if err != nil {
		return nil, err
	}
	s, err := e.space(dim)
	if err != nil {
		return nil, err
	}
	ev, err := e.evaluator(dim, d, opts)
	if err != nil {
		return nil, err
	}
	return problem.New(ev, s, e.Sense, problem.WithName(e.Name))
}

var registry = map[string]Entry{}

func register(e Entry) {
	registry[e.Name] = e
}

// Lookup returns the entry registered under name, case-insensitively.
func Lookup(name string) (Entry, error) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, optimization.NewConfigError("unknown problem %q", name).
			WithComponent("catalog").WithOperation("Lookup")
	}
	return e, nil
}

// Names returns all registered names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// All returns every entry sorted by name.
func All() []Entry {
	entries := make([]Entry, 0, len(registry))
	for _, n := range Names() {
		entries = append(entries, registry[n])
	}
	return entries
}
