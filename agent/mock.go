package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/tools"
	"github.com/cellsight/cellsight/tracer"
)

// Mock is a deterministic agent that dispatches on query keywords instead of
// calling a model. It exists so the harness can be exercised without any
// external dependency; its tool usage is still fully traced.
type Mock struct {
	registry *tools.Registry
}

// NewMock creates a mock agent over the given tool registry.
func NewMock(registry *tools.Registry) *Mock {
	return &Mock{registry: registry}
}

var _ Capability = (*Mock)(nil)

var (
	customerIDPattern = regexp.MustCompile(`customer\s+(\S+)`)
	expressionPattern = regexp.MustCompile(`-?[0-9][0-9 .+\-*/]*`)
)

// Execute inspects the query, invokes every matching tool in a fixed order,
// and composes a final answer from the results. The first tool failure aborts
// the run with that failure.
func (m *Mock) Execute(ctx context.Context, query string, handle *tracer.RunHandle) (string, error) {
	lower := strings.ToLower(query)
	normalized := normalizeArithmetic(lower)

	type intent struct {
		tool string
		args interface{}
	}
	var intents []intent

	if strings.Contains(lower, "weather") {
		intents = append(intents, intent{"get_weather", tools.WeatherArgs{Location: extractLocation(query)}})
	}
	if strings.Contains(lower, "customer") {
		intents = append(intents, intent{"get_customer", tools.CustomerArgs{CustomerID: extractCustomerID(query)}})
	}
	if strings.Contains(normalized, "calculat") || strings.Contains(normalized, "divide") ||
		strings.ContainsAny(normalized, "+*/") {
		if expr := expressionPattern.FindString(normalized); strings.TrimSpace(expr) != "" {
			intents = append(intents, intent{"calculate", tools.CalculateArgs{Expression: strings.TrimSpace(expr)}})
		}
	}
	if strings.Contains(lower, "summarize") || strings.Contains(lower, "summary") {
		text := strings.TrimSpace(stripSummarizePrefix(query))
		intents = append(intents, intent{"summarize_text", tools.SummarizeArgs{Text: text}})
	}

	if len(intents) == 0 {
		if _, err := handle.RecordStep(ctx, domain.StepTypeReasoning, domain.ReasoningPayload{
			Text: "no tool matches the query, answering directly",
		}); err != nil {
			return "", err
		}
		answer := "I understand your query, but I'm not sure which tool to use. Please be more specific."
		if _, err := handle.RecordStep(ctx, domain.StepTypeFinalAnswer, domain.FinalAnswerPayload{Output: answer}); err != nil {
			return "", err
		}
		return answer, nil
	}

	var parts []string
	for _, in := range intents {
		if _, err := handle.RecordStep(ctx, domain.StepTypeReasoning, domain.ReasoningPayload{
			Text: "selecting tool " + in.tool,
		}); err != nil {
			return "", err
		}

		args, err := json.Marshal(in.args)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s arguments: %w", in.tool, err)
		}
		if _, err := handle.RecordStep(ctx, domain.StepTypeToolCall, domain.ToolCallPayload{
			Tool: in.tool,
			Args: args,
		}); err != nil {
			return "", err
		}

		started := time.Now()
		result, execErr := m.registry.Execute(ctx, in.tool, args)
		if execErr != nil {
			return "", execErr
		}
		if _, err := handle.RecordStep(ctx, domain.StepTypeToolResult, domain.ToolResultPayload{
			Tool:       in.tool,
			Result:     result,
			DurationMs: float64(time.Since(started)) / float64(time.Millisecond),
		}); err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s: %s", in.tool, string(result)))
	}

	answer := strings.Join(parts, "; ")
	if _, err := handle.RecordStep(ctx, domain.StepTypeFinalAnswer, domain.FinalAnswerPayload{Output: answer}); err != nil {
		return "", err
	}
	return answer, nil
}

// extractLocation pulls the location following "in", stopping at a
// conjunction. Defaults to London like the reference data set.
func extractLocation(query string) string {
	lower := strings.ToLower(query)
	idx := strings.LastIndex(lower, " in ")
	if idx < 0 {
		return "London"
	}
	rest := query[idx+len(" in "):]
	if cut := strings.Index(strings.ToLower(rest), " and "); cut >= 0 {
		rest = rest[:cut]
	}
	rest = strings.Trim(rest, " ?.!,")
	if rest == "" {
		return "London"
	}
	return rest
}

func extractCustomerID(query string) string {
	match := customerIDPattern.FindStringSubmatch(strings.ToLower(query))
	if len(match) < 2 {
		return "12345"
	}
	return strings.Trim(match[1], "?.!,")
}

func stripSummarizePrefix(query string) string {
	for _, prefix := range []string{"summarize:", "summarize"} {
		lower := strings.ToLower(query)
		if idx := strings.Index(lower, prefix); idx >= 0 {
			return query[idx+len(prefix):]
		}
	}
	return query
}

// normalizeArithmetic rewrites spelled-out operators so the expression
// extractor can see them.
func normalizeArithmetic(lower string) string {
	replacer := strings.NewReplacer(
		"divided by", "/",
		"divide by", "/",
		"multiplied by", "*",
		"times", "*",
		"plus", "+",
		"minus", "-",
	)
	return replacer.Replace(lower)
}
