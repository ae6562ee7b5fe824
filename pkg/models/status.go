package models

import (
	"time"

	"github.com/google/uuid"
)

// Stage names, in the order they run.
const (
	StageDownload = "download"
	StageAnalysis = "analysis"
	StageMatching = "matching"
)

// Stages lists every reported stage in pipeline order.
var Stages = []string{StageDownload, StageAnalysis, StageMatching}

// StageState is the progress of a single stage.
type StageState string

const (
	StatePending    StageState = "pending"
	StateInProgress StageState = "in_progress"
	StateDone       StageState = "done"
)

// Rank orders states so progress can be compared.
func (s StageState) Rank() int {
	switch s {
	case StateInProgress:
		return 1
	case StateDone:
		return 2
	default:
		return 0
	}
}

// Pipeline phases carried by each snapshot.
const (
	PhaseRunning   = "running"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
)

// StageStatus pairs a stage with its state.
type StageStatus struct {
	Stage  string     `json:"stage"`
	State  StageState `json:"state"`
	Detail string     `json:"detail,omitempty"`
}

// StatusSnapshot is one immutable view of a pipeline's progress.
// Snapshots for a request carry strictly increasing Seq values.
type StatusSnapshot struct {
	RequestID uuid.UUID     `json:"request_id"`
	Seq       int           `json:"seq"`
	Stages    []StageStatus `json:"stages"`
	Phase     string        `json:"phase"`
	EmittedAt time.Time     `json:"emitted_at"`
}

// State returns the state of the named stage, or pending if absent.
func (s StatusSnapshot) State(stage string) StageState {
	for _, st := range s.Stages {
		if st.Stage == stage {
			return st.State
		}
	}
	return StatePending
}
