package problem

import "github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"

// ParameterInfo is the wire form of a descriptor.
type ParameterInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Type     string   `json:"type,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	LogScale bool     `json:"log_scale,omitempty"`
	Values   []string `json:"values,omitempty"`
	Discrete bool     `json:"discrete"`
}

// Description summarizes a problem for API clients.
type Description struct {
	Name                string           `json:"name"`
	Sense               string           `json:"sense"`
	Dimension           int              `json:"dimension"`
	Parameters          []ParameterInfo  `json:"parameters"`
	LowerBounds         []float64        `json:"lower_bounds"`
	UpperBounds         []float64        `json:"upper_bounds"`
	LabelSets           [][]string       `json:"label_sets,omitempty"`
	NumberOfConstraints int              `json:"number_of_constraints"`
	StartPoint          space.Coordinate `json:"start_point"`
	Optimum             *Optimum         `json:"optimum,omitempty"`
}

// Describe returns the wire description of p.
func (p *Problem) Describe() Description {
	d := Description{
		Name:                p.name,
		Sense:               p.sense.String(),
		Dimension:           p.Dimension(),
		LowerBounds:         p.LowerBounds(),
		UpperBounds:         p.UpperBounds(),
		LabelSets:           p.LabelSets(),
		NumberOfConstraints: p.NumberOfConstraints(),
		StartPoint:          p.StartPoint(),
	}
	for _, desc := range p.space.Params() {
		d.Parameters = append(d.Parameters, DescribeParameter(desc))
	}
	if o, ok := p.Optimum(); ok {
		d.Optimum = &o
	}
	return d
}

// DescribeParameter converts a descriptor to its wire form.
func DescribeParameter(d space.Descriptor) ParameterInfo {
	info := ParameterInfo{
		Name:     d.Name(),
		Kind:     d.Kind().String(),
		Discrete: d.IsDiscrete(),
	}
	switch d.Kind() {
	case space.KindNumerical:
		lo, hi := d.Min(), d.Max()
		info.Type = d.ValueType().String()
		info.Min = &lo
		info.Max = &hi
		info.LogScale = d.IsLogScale()
	case space.KindCategorical:
		info.Values = d.Values()
	}
	return info
}
