package domain

import "encoding/json"

// TestCase is a declarative expectation a harness consumer authors.
// ExpectedTools is a lower bound: extra tool use does not fail a case.
type TestCase struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Query            string          `json:"query"`
	ExpectedBehavior string          `json:"expected_behavior,omitempty"`
	ExpectedTools    []string        `json:"expected_tools,omitempty"`
	ExpectedError    string          `json:"expected_error,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
}

// TestResult is the graded outcome of running one TestCase.
type TestResult struct {
	TestCaseID      string        `json:"test_case_id"`
	RunID           string        `json:"run_id"`
	Passed          bool          `json:"passed"`
	FailureReasons  []string      `json:"failure_reasons,omitempty"`
	ActualTools     []string      `json:"actual_tools_used"`
	ActualErrorKind ErrorKind `json:"actual_error_kind,omitempty"`
	DurationMs      float64   `json:"duration_ms"`
}

// Summary aggregates a batch of test results.
type Summary struct {
	Total              int            `json:"total"`
	Passed             int            `json:"passed"`
	Failed             int            `json:"failed"`
	PassRate           float64        `json:"pass_rate"`
	FailuresByCategory map[string]int `json:"failures_by_category,omitempty"`
}
