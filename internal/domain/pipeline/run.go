package pipeline

import (
	"time"

	"github.com/bryanwahyu/imagegate/internal/domain/findings"
)

// ID type for a pipeline run
type RunID string

// State enum
type State string

const (
	StateBuilding   State = "building"
	StateScanning   State = "scanning"
	StateEvaluating State = "evaluating"
	StatePublishing State = "publishing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether a run in this state can advance further
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var transitions = map[State][]State{
	StateBuilding:   {StateScanning, StateFailed},
	StateScanning:   {StateEvaluating, StateFailed},
	StateEvaluating: {StatePublishing, StateFailed},
	StatePublishing: {StateDone, StateFailed},
}

// CanTransition reports whether from → to is a legal state change
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Aggregate root: Run, one execution of the gate pipeline
type Run struct {
	ID          RunID                   `json:"id"`
	TenantID    string                  `json:"tenant_id"`
	TriggeredAt time.Time               `json:"triggered_at"`
	State       State                   `json:"state"`
	ContextPath string                  `json:"context_path,omitempty"`
	Tag         string                  `json:"tag"`
	Destination string                  `json:"destination,omitempty"`
	Digest      string                  `json:"digest,omitempty"`
	Pass        bool                    `json:"pass"`
	Counts      findings.SeverityCounts `json:"counts"`
	ArtifactURL string                  `json:"artifact_url,omitempty"`
	DurationMS  int64                   `json:"duration_ms"`
	Source      string                  `json:"source,omitempty"`
	CommitSHA   string                  `json:"commit_sha,omitempty"`
	Branch      string                  `json:"branch,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// Advance moves the run to the next state, rejecting illegal jumps
func (r *Run) Advance(to State) error {
	if !CanTransition(r.State, to) {
		return &TransitionError{From: r.State, To: to}
	}
	r.State = to
	return nil
}
