package space

import (
	"math"
	"strconv"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Coordinate is one point proposed by an optimizer: a value per continuous
// parameter plus a label per discrete parameter.
type Coordinate struct {
	Continuous []float64 `json:"continuous"`
	Discrete   []string  `json:"discrete,omitempty"`
}

// Arguments maps parameter names to resolved values of type int, float64
// or string.
type Arguments map[string]any

// Int returns the named argument as an int.
func (a Arguments) Int(name string) (int, error) {
	switch v := a[name].(type) {
	case int:
		return v, nil
	case nil:
		return 0, missingArgument(name)
	default:
		return 0, wrongArgument(name, v, "int")
	}
}

// Float returns the named argument as a float64. Ints are widened.
func (a Arguments) Float(name string) (float64, error) {
	switch v := a[name].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case nil:
		return 0, missingArgument(name)
	default:
		return 0, wrongArgument(name, v, "float")
	}
}

// String returns the named argument as a string.
func (a Arguments) String(name string) (string, error) {
	switch v := a[name].(type) {
	case string:
		return v, nil
	case nil:
		return "", missingArgument(name)
	default:
		return "", wrongArgument(name, v, "string")
	}
}

func missingArgument(name string) error {
	return optimization.NewResolutionError("argument %q is missing", name).WithComponent("space")
}

func wrongArgument(name string, v any, want string) error {
	return optimization.NewResolutionError("argument %q is %T, want %s", name, v, want).WithComponent("space")
}

// Resolve is shorthand for s.Resolve(c).
func Resolve(s *Space, c Coordinate) (Arguments, error) {
	return s.Resolve(c)
}

// Resolve applies each parameter's inverse transform to c. Arity mismatches,
// non-finite values and unknown labels fail before anything is evaluated.
//
// Continuous values are exponentiated when log-scaled and int parameters are
// rounded with floor(x + 0.5), so halves always round up. Labels of discrete
// int ranges become ints; categorical labels that are plain digit strings
// become ints and all others are passed through unchanged.
func (s *Space) Resolve(c Coordinate) (Arguments, error) {
	const op = "Resolve"

	if len(c.Continuous) != len(s.continuous) {
		return nil, optimization.NewResolutionError("expected %d continuous values, got %d",
			len(s.continuous), len(c.Continuous)).WithComponent("space").WithOperation(op)
	}
	if len(c.Discrete) != len(s.discrete) {
		return nil, optimization.NewResolutionError("expected %d discrete labels, got %d",
			len(s.discrete), len(c.Discrete)).WithComponent("space").WithOperation(op)
	}

	args := make(Arguments, len(s.params))

	for i, d := range s.continuous {
		raw := c.Continuous[i]
		if math.IsNaN(raw) || math.IsInf(raw, 0) {
			return nil, optimization.NewResolutionError("parameter %q: value %v is not finite", d.name, raw).
				WithComponent("space").WithOperation(op)
		}
		if d.logScale {
			raw = math.Exp(raw)
		}
		if d.valueType == Int {
			args[d.name] = int(math.Floor(raw + 0.5))
		} else {
			args[d.name] = raw
		}
	}

	for j, d := range s.discrete {
		label := c.Discrete[j]
		if _, ok := s.labelIndex[j][label]; !ok {
			return nil, optimization.NewResolutionError("parameter %q: label %q not in %v", d.name, label, s.labels[j]).
				WithComponent("space").WithOperation(op)
		}

		switch d.kind {
		case KindNumerical:
			v, err := strconv.Atoi(label)
			if err != nil {
				return nil, optimization.NewResolutionError("parameter %q: label %q is not an integer", d.name, label).
					WithComponent("space").WithOperation(op)
			}
			args[d.name] = v
		case KindCategorical:
			if v, ok := digitsToInt(label); ok {
				args[d.name] = v
			} else {
				args[d.name] = label
			}
		}
	}

	return args, nil
}

// digitsToInt converts labels made only of ASCII digits.
func digitsToInt(label string) (int, bool) {
	if label == "" {
		return 0, false
	}
	for _, r := range label {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(label)
	if err != nil {
		return 0, false
	}
	return v, true
}
