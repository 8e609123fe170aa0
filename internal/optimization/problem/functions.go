package problem

import (
	"context"
	"math"
	"strconv"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

// Benchmark functions used to exercise optimizers end to end. Their
// parameters are floats named x0, x1, ... in order.

// VarName returns the name of the i-th benchmark variable.
func VarName(i int) string {
	return "x" + strconv.Itoa(i)
}

func floatSpace(dim int, lower, upper []float64) (*space.Space, error) {
	if dim < 1 {
		return nil, optimization.NewConfigError("dimension must be positive, got %d", dim).
			WithComponent("problem")
	}
	b := space.NewBuilder()
	for i := 0; i < dim; i++ {
		b.Numerical(VarName(i), space.Float, lower[i%len(lower)], upper[i%len(upper)])
	}
	return b.Build()
}

// vector reads x0..x(n-1). Labels of discrete axes are parsed as floats.
func vector(args space.Arguments, n int) ([]float64, error) {
	x := make([]float64, n)
	for i := range x {
		name := VarName(i)
		switch v := args[name].(type) {
		case float64:
			x[i] = v
		case int:
			x[i] = float64(v)
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, optimization.WrapResolutionError(err, "argument %q", name).WithComponent("problem")
			}
			x[i] = f
		default:
			return nil, optimization.NewResolutionError("argument %q is missing or has type %T", name, v).
				WithComponent("problem")
		}
	}
	return x, nil
}

// Sphere is sum(x_i^2) on [-1, 1]^n.
type Sphere struct {
	Dim int
}

// Space returns the sphere's search box.
func (f Sphere) Space() (*space.Space, error) {
	return floatSpace(f.Dim, []float64{-1}, []float64{1})
}

// Evaluate implements Evaluator.
func (f Sphere) Evaluate(_ context.Context, args space.Arguments) (float64, error) {
	x, err := vector(args, f.Dim)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, xi := range x {
		sum += xi * xi
	}
	return sum, nil
}

// Optimum implements KnownOptimum.
func (f Sphere) Optimum() Optimum {
	return Optimum{Value: 0, Coordinate: space.Coordinate{Continuous: make([]float64, f.Dim)}}
}

// Rastrigin is 10n + sum(x_i^2 - 10cos(2 pi x_i)) on [-2.2, 1.8]^n.
type Rastrigin struct {
	Dim int
}

// Space returns the Rastrigin search box.
func (f Rastrigin) Space() (*space.Space, error) {
	return floatSpace(f.Dim, []float64{-2.2}, []float64{1.8})
}

// Evaluate implements Evaluator.
func (f Rastrigin) Evaluate(_ context.Context, args space.Arguments) (float64, error) {
	x, err := vector(args, f.Dim)
	if err != nil {
		return 0, err
	}
	return rastrigin(x), nil
}

// Optimum implements KnownOptimum.
func (f Rastrigin) Optimum() Optimum {
	return Optimum{Value: 0, Coordinate: space.Coordinate{Continuous: make([]float64, f.Dim)}}
}

func rastrigin(x []float64) float64 {
	sum := 0.0
	for _, xi := range x {
		sum += xi*xi - 10*math.Cos(2*math.Pi*xi) + 10
	}
	return sum
}

// StronginC3 is a two-dimensional problem with three nonlinear constraints.
// x0 in [0, 4], x1 in [-1, 3].
type StronginC3 struct{}

// Space returns the StronginC3 search box.
func (StronginC3) Space() (*space.Space, error) {
	return floatSpace(2, []float64{0, -1}, []float64{4, 3})
}

// NumberOfConstraints implements ConstrainedEvaluator.
func (StronginC3) NumberOfConstraints() int { return 3 }

// Evaluate returns the criterion only.
func (f StronginC3) Evaluate(ctx context.Context, args space.Arguments) (float64, error) {
	all, err := f.EvaluateAll(ctx, args)
	if err != nil {
		return 0, err
	}
	return all[3], nil
}

// EvaluateAll implements ConstrainedEvaluator.
func (StronginC3) EvaluateAll(_ context.Context, args space.Arguments) ([]float64, error) {
	x, err := vector(args, 2)
	if err != nil {
		return nil, err
	}
	x1, x2 := x[0], x[1]

	g1 := 0.01 * ((x1-2.2)*(x1-2.2) + (x2-1.2)*(x2-1.2) - 2.25)
	g2 := 100 * (1 - ((x1-2)/1.2)*((x1-2)/1.2) - (x2/2)*(x2/2))
	g3 := 10 * (x2 - 1.5 - 1.5*math.Sin(6.283*(x1-1.75)))

	t1 := math.Pow(0.5*x1-0.5, 4)
	t2 := math.Pow(x2-1, 4)
	f := 1.5 * x1 * x1 * math.Exp(1-x1*x1-20.25*(x1-x2)*(x1-x2))
	f += t1 * t2 * math.Exp(2-t1-t2)

	return []float64{g1, g2, g3, -f}, nil
}

// Optimum implements KnownOptimum.
func (StronginC3) Optimum() Optimum {
	return Optimum{
		Value:      -1.489444,
		Coordinate: space.Coordinate{Continuous: []float64{0.941176, 0.941176}},
	}
}

// RastriginInt mixes Rastrigin axes with discrete axes that only take the
// box ends. Each discrete axis at a permissible value subtracts that value
// from the sum, and the whole sum is scaled by a quadratic multiplier centred
// on the optimum.
type RastriginInt struct {
	Continuous int
	Discrete   int
}

const (
	rastriginIntLeft  = -2.2
	rastriginIntRight = 1.8
)

var rastriginIntLabels = []string{"-2.2", "1.8"}

// Space returns continuous axes x0..x(c-1) followed by discrete axes.
func (f RastriginInt) Space() (*space.Space, error) {
	if f.Continuous < 0 || f.Discrete < 0 || f.Continuous+f.Discrete < 1 {
		return nil, optimization.NewConfigError("invalid RastriginInt shape %d+%d", f.Continuous, f.Discrete).
			WithComponent("problem")
	}
	b := space.NewBuilder()
	for i := 0; i < f.Continuous; i++ {
		b.Numerical(VarName(i), space.Float, rastriginIntLeft, rastriginIntRight)
	}
	for i := 0; i < f.Discrete; i++ {
		b.Categorical(VarName(f.Continuous+i), rastriginIntLabels...)
	}
	return b.Build()
}

// Evaluate implements Evaluator.
func (f RastriginInt) Evaluate(_ context.Context, args space.Arguments) (float64, error) {
	x, err := vector(args, f.Continuous+f.Discrete)
	if err != nil {
		return 0, err
	}
	return f.value(x), nil
}

func (f RastriginInt) optimumPoint() []float64 {
	x := make([]float64, f.Continuous+f.Discrete)
	for i := f.Continuous; i < len(x); i++ {
		x[i] = rastriginIntRight
	}
	return x
}

// multiplier is -sum(((x_j - opt_j) / halfWidth)^2).
func (f RastriginInt) multiplier(x []float64) float64 {
	const halfWidth = (rastriginIntRight - rastriginIntLeft) / 2
	opt := f.optimumPoint()
	res := 0.0
	for j := range x {
		a := (x[j] - opt[j]) / halfWidth
		res += a * a
	}
	return -res
}

// offset is the largest |multiplier| over the box corners plus 4, which keeps
// the scale factor positive everywhere.
func (f RastriginInt) offset() float64 {
	const halfWidth = (rastriginIntRight - rastriginIntLeft) / 2
	opt := f.optimumPoint()
	res := 0.0
	for j := range opt {
		lo := (rastriginIntLeft - opt[j]) / halfWidth
		hi := (rastriginIntRight - opt[j]) / halfWidth
		res += math.Max(lo*lo, hi*hi)
	}
	return res + 4
}

func (f RastriginInt) value(x []float64) float64 {
	sum := rastrigin(x[:f.Continuous])
	for _, xi := range x[f.Continuous:] {
		if xi == rastriginIntLeft || xi == rastriginIntRight {
			sum -= xi
		}
	}
	return sum * (f.multiplier(x) + f.offset())
}

// Optimum implements KnownOptimum.
func (f RastriginInt) Optimum() Optimum {
	opt := f.optimumPoint()
	c := space.Coordinate{Continuous: opt[:f.Continuous]}
	for i := 0; i < f.Discrete; i++ {
		c.Discrete = append(c.Discrete, rastriginIntLabels[1])
	}
	return Optimum{Value: f.value(opt), Coordinate: c}
}
