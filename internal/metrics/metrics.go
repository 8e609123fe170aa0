// Package metrics defines the Prometheus collectors of the tuning service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcomes used as the "outcome" label.
const (
	OutcomeOK         = "ok"
	OutcomeInfeasible = "infeasible"
	OutcomeError      = "error"
)

// Metrics groups the collectors. Create one per registry.
type Metrics struct {
	// Evaluations counts objective evaluations per problem and outcome.
	Evaluations *prometheus.CounterVec
	// EvaluationDuration observes evaluation latency per problem.
	EvaluationDuration *prometheus.HistogramVec
	// BestValue holds the best raw fitness per study.
	BestValue *prometheus.GaugeVec
	// StudiesRunning is the number of studies currently executing.
	StudiesRunning prometheus.Gauge
	// StudiesFinished counts finished studies per final status.
	StudiesFinished *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalizer_evaluations_total",
			Help: "Total number of objective evaluations per problem and outcome",
		}, []string{"problem", "outcome"}),
		EvaluationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "globalizer_evaluation_duration_seconds",
			Help:    "Wall time of a single objective evaluation",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"problem"}),
		BestValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "globalizer_study_best_value",
			Help: "Best raw fitness found so far by a study",
		}, []string{"study", "problem"}),
		StudiesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "globalizer_studies_running",
			Help: "Number of studies currently executing",
		}),
		StudiesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalizer_studies_finished_total",
			Help: "Total number of finished studies per final status",
		}, []string{"status"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.Evaluations,
		m.EvaluationDuration,
		m.BestValue,
		m.StudiesRunning,
		m.StudiesFinished,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveEvaluation records one evaluation of problem.
func (m *Metrics) ObserveEvaluation(problem, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(problem, outcome).Inc()
	m.EvaluationDuration.WithLabelValues(problem).Observe(took.Seconds())
}

// SetBest publishes the best raw fitness of a study.
func (m *Metrics) SetBest(study, problem string, value float64) {
	if m == nil {
		return
	}
	m.BestValue.WithLabelValues(study, problem).Set(value)
}

// StudyStarted increments the running gauge.
func (m *Metrics) StudyStarted() {
	if m == nil {
		return
	}
	m.StudiesRunning.Inc()
}

// StudyFinished decrements the running gauge and counts the final status.
func (m *Metrics) StudyFinished(status string) {
	if m == nil {
		return
	}
	m.StudiesRunning.Dec()
	m.StudiesFinished.WithLabelValues(status).Inc()
}

// ForgetStudy drops the per-study series of a deleted study.
func (m *Metrics) ForgetStudy(study, problem string) {
	if m == nil {
		return
	}
	m.BestValue.DeleteLabelValues(study, problem)
}
