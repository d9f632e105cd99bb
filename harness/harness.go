// Package harness batch-drives declarative test cases through traced agent
// runs and grades each against its expectations.
package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cellsight/cellsight/agent"
	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/tracer"
)

// ErrDuplicateTestCase is returned when a test case id is registered twice.
var ErrDuplicateTestCase = errors.New("duplicate test case")

// Harness runs test cases against an agent capability. Each case goes through
// exactly one traced run per invocation; a failure in one case never prevents
// subsequent cases from running.
type Harness struct {
	tracer     *tracer.Tracer
	capability agent.Capability

	mu      sync.Mutex
	cases   []domain.TestCase
	ids     map[string]struct{}
	results []domain.TestResult
}

// New creates a harness over the given tracer and capability.
func New(t *tracer.Tracer, capability agent.Capability) *Harness {
	return &Harness{
		tracer:     t,
		capability: capability,
		ids:        make(map[string]struct{}),
	}
}

// Add registers a test case.
func (h *Harness) Add(tc domain.TestCase) error {
	if tc.ID == "" {
		return fmt.Errorf("test case id is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.ids[tc.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTestCase, tc.ID)
	}
	h.ids[tc.ID] = struct{}{}
	h.cases = append(h.cases, tc)
	return nil
}

// LoadFile registers test cases from a JSON file holding an array of cases.
func (h *Harness) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read test cases: %w", err)
	}
	var cases []domain.TestCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return fmt.Errorf("failed to parse test cases: %w", err)
	}
	for _, tc := range cases {
		if err := h.Add(tc); err != nil {
			return err
		}
	}
	return nil
}

// Cases returns the registered cases in registration order.
func (h *Harness) Cases() []domain.TestCase {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.TestCase, len(h.cases))
	copy(out, h.cases)
	return out
}

// RunCase drives one test case through a traced run and grades the outcome.
// A panic in the agent capability is contained here and graded as an uncaught
// execution error.
func (h *Harness) RunCase(ctx context.Context, tc domain.TestCase) (result domain.TestResult) {
	started := time.Now()
	result = domain.TestResult{TestCaseID: tc.ID}

	handle, err := h.tracer.StartRun(ctx, tc.Query)
	if err != nil {
		result.FailureReasons = append(result.FailureReasons, fmt.Sprintf("failed to start traced run: %v", err))
		result.DurationMs = float64(time.Since(started)) / float64(time.Millisecond)
		return result
	}
	result.RunID = handle.RunID()

	defer func() {
		if r := recover(); r != nil {
			kind := handle.RecordError(ctx, fmt.Errorf("uncaught execution error: %v", r))
			if err := handle.FinishFailure(ctx, kind); err != nil {
				log.Printf("ERROR: failed to finalize run %s: %v", handle.RunID(), err)
			}
			result.Passed = false
			result.ActualErrorKind = kind
			result.FailureReasons = append(result.FailureReasons, "uncaught execution error")
			result.DurationMs = float64(time.Since(started)) / float64(time.Millisecond)
		}
	}()

	output, execErr := h.capability.Execute(ctx, tc.Query, handle)
	if execErr != nil {
		kind := handle.RecordError(ctx, execErr)
		if err := handle.FinishFailure(ctx, kind); err != nil {
			log.Printf("ERROR: failed to finalize run %s: %v", handle.RunID(), err)
		}
	} else {
		if err := handle.FinishSuccess(ctx, output); err != nil {
			log.Printf("ERROR: failed to finalize run %s: %v", handle.RunID(), err)
		}
	}

	h.grade(ctx, tc, &result)
	result.DurationMs = float64(time.Since(started)) / float64(time.Millisecond)
	return result
}

// grade fills in the observed run data and the pass/fail verdict.
func (h *Harness) grade(ctx context.Context, tc domain.TestCase, result *domain.TestResult) {
	run, err := h.tracer.Run(ctx, result.RunID)
	if err != nil {
		result.FailureReasons = append(result.FailureReasons, fmt.Sprintf("failed to read run: %v", err))
		return
	}
	steps, err := h.tracer.Steps(ctx, result.RunID)
	if err != nil {
		result.FailureReasons = append(result.FailureReasons, fmt.Sprintf("failed to read steps: %v", err))
		return
	}

	result.ActualTools = toolsUsed(steps)
	if run.Status == domain.RunStatusFailed {
		result.ActualErrorKind = run.ErrorKind
	}

	if tc.ExpectedError != "" {
		if run.Status != domain.RunStatusFailed {
			result.FailureReasons = append(result.FailureReasons,
				fmt.Sprintf("expected error %q, got success", tc.ExpectedError))
		} else if !errorMatches(tc.ExpectedError, run.ErrorKind, lastErrorMessage(steps)) {
			result.FailureReasons = append(result.FailureReasons,
				fmt.Sprintf("expected error %q, got error %q (%s)", tc.ExpectedError, lastErrorMessage(steps), run.ErrorKind))
		}
		result.Passed = len(result.FailureReasons) == 0
		return
	}

	if run.Status != domain.RunStatusSuccess {
		result.FailureReasons = append(result.FailureReasons,
			fmt.Sprintf("expected success, got error %q (%s)", lastErrorMessage(steps), run.ErrorKind))
	}
	// Expected tools are a lower bound: extra tool use is permitted.
	used := make(map[string]struct{}, len(result.ActualTools))
	for _, name := range result.ActualTools {
		used[name] = struct{}{}
	}
	for _, want := range tc.ExpectedTools {
		if _, ok := used[want]; !ok {
			result.FailureReasons = append(result.FailureReasons,
				fmt.Sprintf("expected tool %s was not used", want))
		}
	}
	result.Passed = len(result.FailureReasons) == 0
}

// RunAll executes every registered case in registration order and replaces the
// harness result history.
func (h *Harness) RunAll(ctx context.Context) []domain.TestResult {
	cases := h.Cases()
	results := make([]domain.TestResult, 0, len(cases))
	for _, tc := range cases {
		results = append(results, h.RunCase(ctx, tc))
	}
	h.mu.Lock()
	h.results = results
	h.mu.Unlock()
	return results
}

// ReplayFailed re-runs only the cases that failed in the last batch and
// returns fresh results without touching the stored history.
func (h *Harness) ReplayFailed(ctx context.Context) []domain.TestResult {
	h.mu.Lock()
	failed := make(map[string]struct{})
	for _, r := range h.results {
		if !r.Passed {
			failed[r.TestCaseID] = struct{}{}
		}
	}
	var toRun []domain.TestCase
	for _, tc := range h.cases {
		if _, ok := failed[tc.ID]; ok {
			toRun = append(toRun, tc)
		}
	}
	h.mu.Unlock()

	results := make([]domain.TestResult, 0, len(toRun))
	for _, tc := range toRun {
		results = append(results, h.RunCase(ctx, tc))
	}
	return results
}

// Results returns the result history of the last RunAll.
func (h *Harness) Results() []domain.TestResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.TestResult, len(h.results))
	copy(out, h.results)
	return out
}

// Summary aggregates the result history. Safe on an empty history.
func (h *Harness) Summary() domain.Summary {
	results := h.Results()
	summary := domain.Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			summary.Passed++
			continue
		}
		summary.Failed++
		if summary.FailuresByCategory == nil {
			summary.FailuresByCategory = make(map[string]int)
		}
		category := "assertion"
		if r.ActualErrorKind != "" {
			category = string(r.ActualErrorKind)
		}
		summary.FailuresByCategory[category]++
	}
	if summary.Total > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.Total)
	}
	return summary
}

// SaveResults writes the registered cases, the result history of the last
// RunAll, and its summary to a JSON file.
func (h *Harness) SaveResults(path string) error {
	report := struct {
		Summary domain.Summary      `json:"summary"`
		Cases   []domain.TestCase   `json:"cases"`
		Results []domain.TestResult `json:"results"`
	}{
		Summary: h.Summary(),
		Cases:   h.Cases(),
		Results: h.Results(),
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func toolsUsed(steps []domain.Step) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, step := range steps {
		if step.Type != domain.StepTypeToolCall {
			continue
		}
		var payload domain.ToolCallPayload
		if err := json.Unmarshal(step.Payload, &payload); err != nil || payload.Tool == "" {
			continue
		}
		if _, ok := seen[payload.Tool]; ok {
			continue
		}
		seen[payload.Tool] = struct{}{}
		names = append(names, payload.Tool)
	}
	return names
}

func lastErrorMessage(steps []domain.Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Type != domain.StepTypeError {
			continue
		}
		var payload domain.ErrorPayload
		if err := json.Unmarshal(steps[i].Payload, &payload); err != nil {
			continue
		}
		return payload.Message
	}
	return ""
}

// errorMatches prefers kind equality when the expectation names an ErrorKind,
// falling back to a case-insensitive substring match on the recorded message.
func errorMatches(expected string, kind domain.ErrorKind, message string) bool {
	if domain.ErrorKind(expected).Valid() {
		return domain.ErrorKind(expected) == kind
	}
	return strings.Contains(strings.ToLower(message), strings.ToLower(expected))
}
