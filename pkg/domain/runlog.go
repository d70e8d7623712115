package domain

import "time"

// StepRecord is one persisted event of a run's step log. Seq preserves the
// exact stream order; At is assigned at persistence time, not by the engine.
type StepRecord struct {
	RunID string
	Seq   int
	At    time.Time
	Event Event
}

// RunInfo summarizes one recorded run in a run store.
type RunInfo struct {
	RunID     string
	StartedAt time.Time
	Events    int
}
