package entity

import "time"

// RunPhase is the lifecycle state of the run controller.
type RunPhase string

const (
	PhaseIdle      RunPhase = "idle"
	PhaseRunning   RunPhase = "running"
	PhaseCompleted RunPhase = "completed"
	PhaseStopped   RunPhase = "stopped"
	PhaseFailed    RunPhase = "failed"
)

// Terminal reports whether the phase ends a run.
func (p RunPhase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseStopped || p == PhaseFailed
}

// ProgressSnapshot is a consistent, read-only copy of the run state.
type ProgressSnapshot struct {
	RunID          string
	Phase          RunPhase
	Running        bool
	Paused         bool
	CaptchaPending bool
	Elapsed        time.Duration
	Completed      int
	Total          int
	Log            string
	// Report is empty while the run is active.
	Report string
}
