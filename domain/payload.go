package domain

import "encoding/json"

// ReasoningPayload carries free-form agent reasoning text.
type ReasoningPayload struct {
	Text string `json:"text"`
}

// ToolCallPayload records a tool invocation with its arguments.
type ToolCallPayload struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolResultPayload records the raw result of a tool invocation.
type ToolResultPayload struct {
	Tool       string          `json:"tool"`
	Result     json.RawMessage `json:"result,omitempty"`
	DurationMs float64         `json:"duration_ms,omitempty"`
}

// ErrorPayload records a classified failure.
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// FinalAnswerPayload records the agent's final textual output.
type FinalAnswerPayload struct {
	Output string `json:"output"`
}
