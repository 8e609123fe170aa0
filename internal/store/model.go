package store

import (
	"time"

	"github.com/OptimLLab/Globalizer-Benchmarks/internal/optimization/space"
)

// StudyStatus is the lifecycle state of a study.
type StudyStatus string

const (
	StatusPending   StudyStatus = "pending"
	StatusRunning   StudyStatus = "running"
	StatusCompleted StudyStatus = "completed"
	StatusFailed    StudyStatus = "failed"
	StatusCancelled StudyStatus = "cancelled"
)

// Terminal reports whether the study can no longer change.
func (s StudyStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TrialState is the outcome of a single evaluation.
type TrialState string

const (
	// TrialComplete is a successful, feasible evaluation.
	TrialComplete TrialState = "complete"
	// TrialInfeasible evaluated successfully but violated a constraint.
	TrialInfeasible TrialState = "infeasible"
	// TrialFailed is an evaluation that returned an error.
	TrialFailed TrialState = "failed"
)

// Best is the best feasible trial of a study. Value is the raw fitness in
// the evaluator's own sense.
type Best struct {
	Trial      int              `json:"trial"`
	Value      float64          `json:"value"`
	Coordinate space.Coordinate `json:"coordinate"`
	Arguments  space.Arguments  `json:"arguments"`
}

// Study is the persisted record of one tuning run.
type Study struct {
	ID            string      `json:"id"`
	Problem       string      `json:"problem"`
	Dimension     int         `json:"dimension"`
	Sense         string      `json:"sense"`
	Sampler       string      `json:"sampler"`
	MaxIterations int         `json:"max_iterations"`
	InitialPoints int         `json:"initial_points"`
	Seed          int64       `json:"seed"`
	ErrorPolicy   string      `json:"error_policy"`
	Status        StudyStatus `json:"status"`
	Trials        int         `json:"trials"`
	Best          *Best       `json:"best,omitempty"`
	Error         string      `json:"error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Trial is one evaluation inside a study. Objective is the minimized value
// the optimizer saw and is nil for failed trials. Values holds the
// constraint values followed by the objective when the problem has
// constraints.
type Trial struct {
	StudyID    string           `json:"study_id"`
	Number     int              `json:"number"`
	State      TrialState       `json:"state"`
	Coordinate space.Coordinate `json:"coordinate"`
	Arguments  space.Arguments  `json:"arguments,omitempty"`
	Objective  *float64         `json:"objective,omitempty"`
	Values     []float64        `json:"values,omitempty"`
	Error      string           `json:"error,omitempty"`
	Duration   time.Duration    `json:"duration"`
	CreatedAt  time.Time        `json:"created_at"`
}
