// Package domain defines the core domain models for the harness.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Terminal reports whether the status is a terminal one.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed
}

// StepType represents the type of a recorded step.
type StepType string

const (
	StepTypeReasoning   StepType = "reasoning"
	StepTypeToolCall    StepType = "tool_call"
	StepTypeToolResult  StepType = "tool_result"
	StepTypeError       StepType = "error"
	StepTypeFinalAnswer StepType = "final_answer"
)

// ErrorKind is the closed taxonomy label attached to a classified failure.
type ErrorKind string

const (
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindAPIError       ErrorKind = "api_error"
	ErrorKindValidation     ErrorKind = "validation_error"
	ErrorKindNotFound       ErrorKind = "not_found"
	ErrorKindDivisionByZero ErrorKind = "division_by_zero"
	ErrorKindRateLimit      ErrorKind = "rate_limit"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// ErrorKinds lists every member of the taxonomy.
var ErrorKinds = []ErrorKind{
	ErrorKindTimeout,
	ErrorKindAPIError,
	ErrorKindValidation,
	ErrorKindNotFound,
	ErrorKindDivisionByZero,
	ErrorKindRateLimit,
	ErrorKindUnknown,
}

// Valid reports whether the kind is a member of the taxonomy.
func (k ErrorKind) Valid() bool {
	for _, known := range ErrorKinds {
		if k == known {
			return true
		}
	}
	return false
}
