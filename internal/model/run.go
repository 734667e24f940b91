package model

import "time"

// RunState represents the status of a remote run.
type RunState string

const (
	// RunStateQueued indicates the run is waiting for its slot.
	RunStateQueued RunState = "queued"
	// RunStateRunning indicates the run is measuring.
	RunStateRunning RunState = "running"
	// RunStateDone indicates the run finished successfully.
	RunStateDone RunState = "done"
	// RunStateFailed indicates the run finished with an error.
	RunStateFailed RunState = "failed"
	// RunStateCancelled indicates the run was cancelled.
	RunStateCancelled RunState = "cancelled"
)

// Terminal reports whether no further transitions are expected for the state.
func (s RunState) Terminal() bool {
	return s == RunStateDone || s == RunStateFailed || s == RunStateCancelled
}

// RunStatus is the normalized, box-agnostic state of one run as last
// reported. It is produced fresh on every poll and fully replaces the prior
// status for that run, never merged across polls. Progress fields are
// authoritative as received, the client never derives them from elapsed time.
type RunStatus struct {
	RunID          string
	BoxID          string
	State          RunState
	StartedAt      *time.Time
	EndedAt        *time.Time
	ProgressPct    float64
	RemainingS     *float64
	CurrentMode    string
	RemainingModes []string
	ErrorMessage   string
	WellID         string
	Slot           string
}

// RunGroupSnapshot is the merged point-in-time view of all runs in a group as
// last polled. Derived, not stored; recomputed on every poll cycle.
type RunGroupSnapshot struct {
	GroupID  string
	Statuses []RunStatus
	AllDone  bool
	PolledAt time.Time
}

// AllTerminal reports whether the status set is non-empty and every status is
// in the terminal set.
func AllTerminal(statuses []RunStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, s := range statuses {
		if !s.State.Terminal() {
			return false
		}
	}
	return true
}
