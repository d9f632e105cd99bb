package domain

import (
	"encoding/json"
	"time"
)

// Run represents a single traced execution of an agent against a query.
type Run struct {
	RunID       string     `json:"run_id"`
	Query       string     `json:"query"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	FinalOutput string     `json:"final_output,omitempty"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
}

// Step represents one atomic recorded event within a run. Step indices are
// assigned by the store and form a gapless sequence starting at 0.
type Step struct {
	RunID     string          `json:"run_id"`
	StepIndex int             `json:"step_index"`
	Type      StepType        `json:"step_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MetricsSnapshot is a derived aggregate over run history. It is always
// recomputed, never stored.
type MetricsSnapshot struct {
	TotalRuns     int               `json:"total_runs"`
	InProgress    int               `json:"in_progress"`
	Succeeded     int               `json:"succeeded"`
	Failed        int               `json:"failed"`
	SuccessRate   float64           `json:"success_rate"`
	ErrorCounts   map[ErrorKind]int `json:"error_counts"`
	AvgDurationMs float64           `json:"avg_duration_ms"`
}
