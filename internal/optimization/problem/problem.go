// Package problem exposes a parameter space and an objective evaluator to
// numeric optimizers as a single minimization problem.
package problem

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

// Evaluator computes the fitness of one resolved argument set. It is called
// synchronously, once per Evaluate, and may be arbitrarily expensive.
type Evaluator interface {
	Evaluate(ctx context.Context, args space.Arguments) (float64, error)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, args space.Arguments) (float64, error)

// Evaluate calls f(ctx, args).
func (f EvaluatorFunc) Evaluate(ctx context.Context, args space.Arguments) (float64, error) {
	return f(ctx, args)
}

// ConstrainedEvaluator is implemented by evaluators that also compute
// inequality constraints. EvaluateAll returns NumberOfConstraints values
// followed by the criterion. A constraint value g <= 0 is satisfied.
type ConstrainedEvaluator interface {
	Evaluator
	NumberOfConstraints() int
	EvaluateAll(ctx context.Context, args space.Arguments) ([]float64, error)
}

// Optimum is a known global optimum expressed in the evaluator's own sense.
type Optimum struct {
	Value      float64          `json:"value"`
	Coordinate space.Coordinate `json:"coordinate"`
}

// KnownOptimum is implemented by benchmark evaluators whose optimum is known.
type KnownOptimum interface {
	Optimum() Optimum
}

// Sense is the direction in which the evaluator's raw fitness improves.
// The problem always presents a minimization to the optimizer.
type Sense int

const (
	// Minimize means lower raw fitness is better, e.g. an error rate.
	Minimize Sense = 1
	// Maximize means higher raw fitness is better, e.g. accuracy. The raw
	// value is negated before it reaches the optimizer.
	Maximize Sense = -1
)

// Sign returns the factor applied to the raw fitness.
func (s Sense) Sign() float64 {
	return float64(s)
}

func (s Sense) String() string {
	switch s {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// ParseSense parses "minimize" or "maximize".
func ParseSense(s string) (Sense, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimize", "min":
		return Minimize, nil
	case "maximize", "max":
		return Maximize, nil
	default:
		return 0, optimization.NewConfigError("unknown sense %q", s).WithComponent("problem")
	}
}

// Option configures a Problem.
type Option func(*Problem)

// WithName sets the name used in logs, metrics and error messages.
func WithName(name string) Option {
	return func(p *Problem) {
		p.name = name
	}
}

// Problem binds an Evaluator to a parameter space. It keeps no state between
// evaluations and never caches results.
type Problem struct {
	name      string
	evaluator Evaluator
	space     *space.Space
	sense     Sense
}

// New creates a problem. Nothing is evaluated here.
func New(evaluator Evaluator, s *space.Space, sense Sense, opts ...Option) (*Problem, error) {
	const op = "New"

	if evaluator == nil {
		return nil, optimization.NewConfigError("evaluator is required").
			WithComponent("problem").WithOperation(op)
	}
	if s == nil || s.Dimension() < 1 {
		return nil, optimization.NewConfigError("parameter space must have at least one parameter").
			WithComponent("problem").WithOperation(op)
	}
	if sense != Minimize && sense != Maximize {
		return nil, optimization.NewConfigError("invalid sense %d", int(sense)).
			WithComponent("problem").WithOperation(op)
	}

	p := &Problem{
		name:      "problem",
		evaluator: evaluator,
		space:     s,
		sense:     sense,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the problem name.
func (p *Problem) Name() string { return p.name }

// Space returns the underlying parameter space.
func (p *Problem) Space() *space.Space { return p.space }

// Sense returns the evaluator's native sense.
func (p *Problem) Sense() Sense { return p.sense }

// Dimension returns the total number of parameters.
func (p *Problem) Dimension() int { return p.space.Dimension() }

// LowerBounds returns the continuous lower bounds. Discrete parameters are
// not included; see LabelSets.
func (p *Problem) LowerBounds() []float64 { return p.space.LowerBounds() }

// UpperBounds returns the continuous upper bounds.
func (p *Problem) UpperBounds() []float64 { return p.space.UpperBounds() }

// LabelSets returns the label set of each discrete parameter.
func (p *Problem) LabelSets() [][]string { return p.space.LabelSets() }

// NumberOfConstraints is zero unless the evaluator is a ConstrainedEvaluator.
func (p *Problem) NumberOfConstraints() int {
	if ce, ok := p.evaluator.(ConstrainedEvaluator); ok {
		return ce.NumberOfConstraints()
	}
	return 0
}

// NumberOfFunctions is the number of constraints plus the single criterion.
func (p *Problem) NumberOfFunctions() int {
	return p.NumberOfConstraints() + 1
}

// Resolve maps c to evaluator arguments without evaluating anything.
func (p *Problem) Resolve(c space.Coordinate) (space.Arguments, error) {
	return p.space.Resolve(c)
}

// Evaluate resolves c, calls the evaluator and returns the fitness in
// minimization form. Resolution errors are returned before the evaluator
// runs; evaluator failures come back as evaluation errors.
func (p *Problem) Evaluate(ctx context.Context, c space.Coordinate) (float64, error) {
	args, err := p.space.Resolve(c)
	if err != nil {
		return 0, err
	}

	raw, err := p.evaluator.Evaluate(ctx, args)
	if err != nil {
		return 0, optimization.WrapEvaluationError(err, "evaluating %s", p.name).
			WithComponent("problem").WithOperation("Evaluate")
	}
	if math.IsNaN(raw) {
		return 0, &optimization.Error{
			Kind:      optimization.KindEvaluation,
			Message:   fmt.Sprintf("evaluating %s: fitness is NaN", p.name),
			Component: "problem",
			Op:        "Evaluate",
		}
	}
	return p.sense.Sign() * raw, nil
}

// EvaluateAll returns every functional at c: constraints first, then the
// criterion in minimization form. Constraints keep their raw values.
func (p *Problem) EvaluateAll(ctx context.Context, c space.Coordinate) ([]float64, error) {
	ce, ok := p.evaluator.(ConstrainedEvaluator)
	if !ok {
		v, err := p.Evaluate(ctx, c)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	}

	args, err := p.space.Resolve(c)
	if err != nil {
		return nil, err
	}

	values, err := ce.EvaluateAll(ctx, args)
	if err != nil {
		return nil, optimization.WrapEvaluationError(err, "evaluating %s", p.name).
			WithComponent("problem").WithOperation("EvaluateAll")
	}
	if want := ce.NumberOfConstraints() + 1; len(values) != want {
		return nil, &optimization.Error{
			Kind:      optimization.KindEvaluation,
			Message:   fmt.Sprintf("evaluating %s: got %d functionals, want %d", p.name, len(values), want),
			Component: "problem",
			Op:        "EvaluateAll",
		}
	}

	out := append([]float64(nil), values...)
	out[len(out)-1] *= p.sense.Sign()
	return out, nil
}

// Feasible reports whether every constraint in values is satisfied.
// values is the output of EvaluateAll.
func Feasible(values []float64) bool {
	for _, g := range values[:max(len(values)-1, 0)] {
		if g > 0 {
			return false
		}
	}
	return true
}

// StartPoint is the centre of the continuous box paired with the first label
// of every discrete parameter.
func (p *Problem) StartPoint() space.Coordinate {
	lower, upper := p.space.LowerBounds(), p.space.UpperBounds()
	c := space.Coordinate{Continuous: make([]float64, len(lower))}
	for i := range lower {
		c.Continuous[i] = lower[i] + (upper[i]-lower[i])/2
	}
	for _, labels := range p.space.LabelSets() {
		c.Discrete = append(c.Discrete, labels[0])
	}
	return c
}

// Optimum returns the known optimum in minimization form, if the evaluator
// provides one.
func (p *Problem) Optimum() (Optimum, bool) {
	ko, ok := p.evaluator.(KnownOptimum)
	if !ok {
		return Optimum{}, false
	}
	o := ko.Optimum()
	o.Value *= p.sense.Sign()
	return o, true
}
