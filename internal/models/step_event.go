package models

import "time"

// Step statuses
const (
	StepStarted   = "STARTED"
	StepSucceeded = "SUCCEEDED"
	StepFailed    = "FAILED"
)

// StepEvent represents the progress of a single pipeline step
type StepEvent struct {
	RunID      string            `json:"run_id"`
	Step       string            `json:"step"`
	Status     string            `json:"status"` // STARTED, SUCCEEDED, FAILED
	StartedAt  time.Time         `json:"started_at"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	Outputs    map[string]string `json:"outputs,omitempty"`
	Error      string            `json:"error,omitempty"`
}
