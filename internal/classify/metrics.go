package classify

import (
	"strings"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization"
)

// Metric scores predictions against ground truth; higher is better.
type Metric func(yTrue, yPred []int, nClasses int) (float64, error)

// Metric names accepted by ParseMetric.
const (
	MetricAccuracy = "accuracy"
	MetricF1Macro  = "f1_macro"
)

// ParseMetric returns the metric registered under name.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(name) {
	case MetricAccuracy:
		return Accuracy, nil
	case MetricF1Macro:
		return F1Macro, nil
	}
	return nil, optimization.NewConfigError("unknown metric %q", name).WithComponent("classify")
}

func checkLabels(op string, yTrue, yPred []int, nClasses int) error {
	if len(yTrue) == 0 {
		return optimization.NewError("empty label vector").WithComponent("classify").WithOperation(op)
	}
	if len(yTrue) != len(yPred) {
		return optimization.NewError("label vectors differ in length: %d vs %d", len(yTrue), len(yPred)).
			WithComponent("classify").WithOperation(op)
	}
	for i := range yTrue {
		if yTrue[i] < 0 || yTrue[i] >= nClasses || yPred[i] < 0 || yPred[i] >= nClasses {
			return optimization.NewError("class index out of range [0,%d)", nClasses).
				WithComponent("classify").WithOperation(op)
		}
	}
	return nil
}

// Accuracy is the fraction of exact matches.
func Accuracy(yTrue, yPred []int, nClasses int) (float64, error) {
	if err := checkLabels("Accuracy", yTrue, yPred, nClasses); err != nil {
		return 0, err
	}
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue)), nil
}

// F1Macro is the unweighted mean of per-class F1 scores over the classes
// that occur in either yTrue or yPred. A class with no true positives
// scores 0.
func F1Macro(yTrue, yPred []int, nClasses int) (float64, error) {
	if err := checkLabels("F1Macro", yTrue, yPred, nClasses); err != nil {
		return 0, err
	}
	tp := make([]int, nClasses)
	fp := make([]int, nClasses)
	fn := make([]int, nClasses)
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
			continue
		}
		fp[yPred[i]]++
		fn[yTrue[i]]++
	}

	sum, labels := 0.0, 0
	for c := 0; c < nClasses; c++ {
		if tp[c]+fp[c]+fn[c] == 0 {
			continue
		}
		labels++
		if tp[c] == 0 {
			continue
		}
		sum += 2 * float64(tp[c]) / float64(2*tp[c]+fp[c]+fn[c])
	}
	return sum / float64(labels), nil
}
