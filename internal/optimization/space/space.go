package space

import (
	"math"
	"strconv"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Space is an immutable, ordered parameter space. All accessors return copies.
type Space struct {
	params     []Descriptor
	continuous []Descriptor
	discrete   []Descriptor
	lower      []float64
	upper      []float64
	labels     [][]string
	// labelIndex[j] maps a label of discrete parameter j to its position.
	labelIndex []map[string]int
}

// Builder accumulates descriptors and finalizes them into a Space.
// The first error is sticky and returned by Build.
type Builder struct {
	descriptors []Descriptor
	err         error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends an already constructed descriptor.
func (b *Builder) Add(descriptors ...Descriptor) *Builder {
	if b.err != nil {
		return b
	}
	b.descriptors = append(b.descriptors, descriptors...)
	return b
}

// Numerical appends a numerical descriptor.
func (b *Builder) Numerical(name string, valueType ValueType, min, max float64, opts ...NumericalOption) *Builder {
	if b.err != nil {
		return b
	}
	d, err := NewNumerical(name, valueType, min, max, opts...)
	if err != nil {
		b.err = err
		return b
	}
	return b.Add(d)
}

// Categorical appends a categorical descriptor.
func (b *Builder) Categorical(name string, values ...string) *Builder {
	if b.err != nil {
		return b
	}
	d, err := NewCategorical(name, values...)
	if err != nil {
		b.err = err
		return b
	}
	return b.Add(d)
}

// Build finalizes the accumulated descriptors.
func (b *Builder) Build() (*Space, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Build(b.descriptors...)
}

// Build partitions descriptors into continuous and discrete parameters,
// keeping their relative order, and derives the optimizer-facing bounds and
// label sets.
func Build(descriptors ...Descriptor) (*Space, error) {
	const op = "Build"

	s := &Space{
		params: make([]Descriptor, 0, len(descriptors)),
	}
	names := make(map[string]struct{}, len(descriptors))

	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, dup := names[d.name]; dup {
			return nil, optimization.NewConfigError("duplicate parameter name %q", d.name).
				WithComponent("space").WithOperation(op)
		}
		names[d.name] = struct{}{}
		// Descriptors share nothing mutable with the caller.
		d.values = append([]string(nil), d.values...)
		s.params = append(s.params, d)

		if !d.IsDiscrete() {
			s.continuous = append(s.continuous, d)
			s.lower = append(s.lower, searchBound(d, d.min))
			s.upper = append(s.upper, searchBound(d, d.max))
			continue
		}

		var labels []string
		switch d.kind {
		case KindNumerical:
			if d.valueType != Int || d.logScale {
				return nil, optimization.NewConfigError("discrete parameter %q must be a linear int range", d.name).
					WithComponent("space").WithOperation(op)
			}
			lo, hi := int(d.min), int(d.max)
			labels = make([]string, 0, hi-lo+1)
			for v := lo; v <= hi; v++ {
				labels = append(labels, strconv.Itoa(v))
			}
		case KindCategorical:
			labels = append([]string(nil), d.values...)
		}

		index := make(map[string]int, len(labels))
		for i, l := range labels {
			index[l] = i
		}
		s.discrete = append(s.discrete, d)
		s.labels = append(s.labels, labels)
		s.labelIndex = append(s.labelIndex, index)
	}

	return s, nil
}

func searchBound(d Descriptor, v float64) float64 {
	if d.logScale {
		return math.Log(v)
	}
	return v
}

// Dimension is the number of continuous plus discrete parameters.
func (s *Space) Dimension() int {
	return len(s.continuous) + len(s.discrete)
}

// NumContinuous returns the number of continuous parameters.
func (s *Space) NumContinuous() int { return len(s.continuous) }

// NumDiscrete returns the number of discrete parameters.
func (s *Space) NumDiscrete() int { return len(s.discrete) }

// Params returns all descriptors in their original order.
func (s *Space) Params() []Descriptor {
	return append([]Descriptor(nil), s.params...)
}

// Continuous returns the continuous descriptors in order.
func (s *Space) Continuous() []Descriptor {
	return append([]Descriptor(nil), s.continuous...)
}

// Discrete returns the discrete descriptors in order.
func (s *Space) Discrete() []Descriptor {
	return append([]Descriptor(nil), s.discrete...)
}

// LowerBounds returns the search-axis lower bounds of the continuous
// parameters (natural log for log-scaled ones).
func (s *Space) LowerBounds() []float64 {
	return append([]float64(nil), s.lower...)
}

// UpperBounds returns the search-axis upper bounds of the continuous parameters.
func (s *Space) UpperBounds() []float64 {
	return append([]float64(nil), s.upper...)
}

// Bounds returns the continuous bounds as [min, max] pairs.
func (s *Space) Bounds() [][2]float64 {
	b := make([][2]float64, len(s.lower))
	for i := range s.lower {
		b[i] = [2]float64{s.lower[i], s.upper[i]}
	}
	return b
}

// LabelSets returns, for each discrete parameter, its ordered labels.
func (s *Space) LabelSets() [][]string {
	out := make([][]string, len(s.labels))
	for i, l := range s.labels {
		out[i] = append([]string(nil), l...)
	}
	return out
}

// Names returns the parameter names in their original order.
func (s *Space) Names() []string {
	names := make([]string, len(s.params))
	for i, d := range s.params {
		names[i] = d.name
	}
	return names
}
