// Package space maps the numeric vectors a black-box optimizer works with
// onto named, typed hyperparameters.
//
// A Space is built once from an ordered list of Descriptors and is immutable
// afterwards. It splits the descriptors into continuous parameters, which the
// optimizer sees as bounded real axes, and discrete parameters, which it sees
// as enumerated label sets. Resolve turns one optimizer coordinate back into
// the Arguments an objective evaluator consumes.
package space

import (
	"fmt"
	"math"
	"strings"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// maxDiscreteIntRange is the largest integer range that is enumerated as
// discrete labels instead of being searched as a continuous axis.
const maxDiscreteIntRange = 5

// Kind tags the variant held by a Descriptor.
type Kind int

const (
	// KindNumerical is a bounded int or float parameter.
	KindNumerical Kind = iota + 1
	// KindCategorical is a parameter drawn from an ordered set of strings.
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindNumerical:
		return "numerical"
	case KindCategorical:
		return "categorical"
	default:
		return "invalid"
	}
}

// ValueType is the type a numerical parameter resolves to.
type ValueType int

const (
	// Float parameters resolve to float64.
	Float ValueType = iota + 1
	// Int parameters resolve to int.
	Int
)

func (t ValueType) String() string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "int"
	default:
		return "invalid"
	}
}

// Descriptor describes one tunable parameter. The zero value is invalid;
// use NewNumerical or NewCategorical.
type Descriptor struct {
	name      string
	kind      Kind
	valueType ValueType
	min       float64
	max       float64
	logScale  bool
	values    []string
}

// NumericalOption configures a numerical descriptor.
type NumericalOption func(*Descriptor)

// LogScale makes the optimizer search the parameter on a natural-log axis.
// Requires a strictly positive minimum.
func LogScale() NumericalOption {
	return func(d *Descriptor) {
		d.logScale = true
	}
}

// NewNumerical creates a numerical descriptor over [min, max].
func NewNumerical(name string, valueType ValueType, min, max float64, opts ...NumericalOption) (Descriptor, error) {
	d := Descriptor{
		name:      name,
		kind:      KindNumerical,
		valueType: valueType,
		min:       min,
		max:       max,
	}
	for _, opt := range opts {
		opt(&d)
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// NewCategorical creates a categorical descriptor. The order of values is
// kept: it is the index-to-label mapping the optimizer relies on.
func NewCategorical(name string, values ...string) (Descriptor, error) {
	d := Descriptor{
		name:   name,
		kind:   KindCategorical,
		values: append([]string(nil), values...),
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func (d Descriptor) validate() error {
	const op = "validate"

	if strings.TrimSpace(d.name) == "" {
		return optimization.NewConfigError("parameter name must not be empty").
			WithComponent("space").WithOperation(op)
	}

	switch d.kind {
	case KindNumerical:
		if d.valueType != Int && d.valueType != Float {
			return optimization.NewConfigError("parameter %q: unknown value type", d.name).
				WithComponent("space").WithOperation(op)
		}
		if math.IsNaN(d.min) || math.IsNaN(d.max) || math.IsInf(d.min, 0) || math.IsInf(d.max, 0) {
			return optimization.NewConfigError("parameter %q: bounds must be finite", d.name).
				WithComponent("space").WithOperation(op)
		}
		if d.min > d.max {
			return optimization.NewConfigError("parameter %q: min %v exceeds max %v", d.name, d.min, d.max).
				WithComponent("space").WithOperation(op)
		}
		if d.logScale && d.min <= 0 {
			return optimization.NewConfigError("parameter %q: log scale requires min > 0, got %v", d.name, d.min).
				WithComponent("space").WithOperation(op)
		}
		if d.valueType == Int && (d.min != math.Trunc(d.min) || d.max != math.Trunc(d.max)) {
			return optimization.NewConfigError("parameter %q: int bounds must be whole numbers", d.name).
				WithComponent("space").WithOperation(op)
		}
	case KindCategorical:
		if len(d.values) == 0 {
			return optimization.NewConfigError("parameter %q: categorical values must not be empty", d.name).
				WithComponent("space").WithOperation(op)
		}
		seen := make(map[string]struct{}, len(d.values))
		for _, v := range d.values {
			if _, dup := seen[v]; dup {
				return optimization.NewConfigError("parameter %q: duplicate value %q", d.name, v).
					WithComponent("space").WithOperation(op)
			}
			seen[v] = struct{}{}
		}
	default:
		return optimization.NewConfigError("parameter %q: unknown kind", d.name).
			WithComponent("space").WithOperation(op)
	}
	return nil
}

// Name returns the parameter name.
func (d Descriptor) Name() string { return d.name }

// Kind returns the variant tag.
func (d Descriptor) Kind() Kind { return d.kind }

// ValueType returns the numeric type. Zero for categorical descriptors.
func (d Descriptor) ValueType() ValueType { return d.valueType }

// Min returns the inclusive lower bound of a numerical descriptor.
func (d Descriptor) Min() float64 { return d.min }

// Max returns the inclusive upper bound of a numerical descriptor.
func (d Descriptor) Max() float64 { return d.max }

// IsLogScale reports whether the parameter is searched on a log axis.
func (d Descriptor) IsLogScale() bool { return d.logScale }

// Values returns a copy of the allowed values of a categorical descriptor.
func (d Descriptor) Values() []string {
	return append([]string(nil), d.values...)
}

// IsDiscrete reports whether the optimizer sees this parameter as an
// enumerated label set. Small non-log integer ranges and all categorical
// parameters are discrete; everything else is continuous.
func (d Descriptor) IsDiscrete() bool {
	switch d.kind {
	case KindNumerical:
		return d.valueType == Int && !d.logScale && d.max-d.min+1 <= maxDiscreteIntRange
	case KindCategorical:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	switch d.kind {
	case KindNumerical:
		s := fmt.Sprintf("%s: %s[%v, %v]", d.name, d.valueType, d.min, d.max)
		if d.logScale {
			s += " log"
		}
		return s
	case KindCategorical:
		return fmt.Sprintf("%s: {%s}", d.name, strings.Join(d.values, ", "))
	default:
		return d.name + ": invalid"
	}
}
