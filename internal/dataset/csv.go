package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// CSVOption configures LoadCSV.
type CSVOption func(*csvOptions)

type csvOptions struct {
	header bool
	comma  rune
}

// WithHeader skips the first record.
func WithHeader() CSVOption {
	return func(o *csvOptions) { o.header = true }
}

// WithComma sets the field delimiter.
func WithComma(r rune) CSVOption {
	return func(o *csvOptions) { o.comma = r }
}

// LoadCSV reads rows of numeric features followed by a class label in the
// last column. Labels are mapped to class indices in order of first
// appearance.
func LoadCSV(r io.Reader, opts ...CSVOption) (*Dataset, error) {
	const op = "LoadCSV"

	o := csvOptions{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}

	reader := csv.NewReader(r)
	reader.Comma = o.comma
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, optimization.WrapConfigError(err, "reading csv").
			WithComponent("dataset").WithOperation(op)
	}
	if o.header && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, optimization.NewConfigError("csv has no data rows").
			WithComponent("dataset").WithOperation(op)
	}

	nFeatures := len(records[0]) - 1
	if nFeatures < 1 {
		return nil, optimization.NewConfigError("csv needs at least one feature and a label column").
			WithComponent("dataset").WithOperation(op)
	}

	data := make([]float64, 0, len(records)*nFeatures)
	y := make([]int, len(records))
	index := make(map[string]int)
	var classes []string

	for i, rec := range records {
		for j, field := range rec[:nFeatures] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, optimization.WrapConfigError(err, "row %d column %d", i+1, j+1).
					WithComponent("dataset").WithOperation(op)
			}
			data = append(data, v)
		}
		label := strings.TrimSpace(rec[nFeatures])
		c, ok := index[label]
		if !ok {
			c = len(classes)
			index[label] = c
			classes = append(classes, label)
		}
		y[i] = c
	}

	return New(mat.NewDense(len(records), nFeatures, data), y, classes)
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string, opts ...CSVOption) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, optimization.WrapConfigError(err, "opening dataset %s", path).
			WithComponent("dataset").WithOperation("LoadCSVFile")
	}
	defer f.Close()
	return LoadCSV(f, opts...)
}
