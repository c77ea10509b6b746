package entity

import "time"

// RunRecord is the archived summary of a terminated run.
type RunRecord struct {
	RunID           string
	TargetDomain    string
	Phase           RunPhase
	StartedAt       time.Time
	FinishedAt      time.Time
	CompletedCount  int
	TotalCount      int
	Report          string
	Classifications []Classification
}
