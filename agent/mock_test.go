package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellsight/cellsight/classify"
	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/tests/helpers"
	"github.com/cellsight/cellsight/tools"
	"github.com/cellsight/cellsight/tracer"
)

func newMockFixture(t *testing.T) (*tracer.Tracer, *Mock) {
	t.Helper()
	registry := tools.NewRegistry(nil)
	tools.RegisterBuiltins(registry, tools.BuiltinConfig{})
	return tracer.New(helpers.NewTestStore(t)), NewMock(registry)
}

func toolCalls(t *testing.T, tr *tracer.Tracer, runID string) []string {
	t.Helper()
	steps, err := tr.Steps(context.Background(), runID)
	require.NoError(t, err)
	var calls []string
	for _, step := range steps {
		if step.Type != domain.StepTypeToolCall {
			continue
		}
		var payload domain.ToolCallPayload
		require.NoError(t, json.Unmarshal(step.Payload, &payload))
		calls = append(calls, payload.Tool)
	}
	return calls
}

func TestMockWeatherQuery(t *testing.T) {
	ctx := context.Background()
	tr, mock := newMockFixture(t)

	runID, output, err := Run(ctx, tr, mock, "What's the weather in London?")
	require.NoError(t, err)
	assert.Contains(t, output, "London")
	assert.Equal(t, []string{"get_weather"}, toolCalls(t, tr, runID))

	run, err := tr.Run(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
}

func TestMockDivisionByZeroQuery(t *testing.T) {
	ctx := context.Background()
	tr, mock := newMockFixture(t)

	runID, _, err := Run(ctx, tr, mock, "What is 100 divided by 0?")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindDivisionByZero, classify.Classify(err))

	run, getErr := tr.Run(ctx, runID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, domain.ErrorKindDivisionByZero, run.ErrorKind)

	// The trace shows the tool call followed by a classified error step.
	steps, getErr := tr.Steps(ctx, runID)
	require.NoError(t, getErr)
	last := steps[len(steps)-1]
	assert.Equal(t, domain.StepTypeError, last.Type)
	var payload domain.ErrorPayload
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, domain.ErrorKindDivisionByZero, payload.Kind)
}

func TestMockMultiIntentQuery(t *testing.T) {
	ctx := context.Background()
	tr, mock := newMockFixture(t)

	runID, output, err := Run(ctx, tr, mock, "Get the weather in Tokyo and calculate 50*3")
	require.NoError(t, err)
	assert.Equal(t, []string{"get_weather", "calculate"}, toolCalls(t, tr, runID))
	assert.Contains(t, output, "Tokyo")
	assert.Contains(t, output, "150")
}

func TestMockCustomerNotFound(t *testing.T) {
	ctx := context.Background()
	tr, mock := newMockFixture(t)

	runID, _, err := Run(ctx, tr, mock, "Get customer 999x details")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindNotFound, classify.Classify(err))

	run, getErr := tr.Run(ctx, runID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ErrorKindNotFound, run.ErrorKind)
}

func TestMockSummarizeTooShort(t *testing.T) {
	ctx := context.Background()
	tr, mock := newMockFixture(t)

	_, _, err := Run(ctx, tr, mock, "Summarize: hi")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindValidation, classify.Classify(err))
}

func TestMockNoMatchingTool(t *testing.T) {
	ctx := context.Background()
	tr, mock := newMockFixture(t)

	runID, output, err := Run(ctx, tr, mock, "Tell me a joke")
	require.NoError(t, err)
	assert.Contains(t, output, "not sure which tool")
	assert.Empty(t, toolCalls(t, tr, runID))

	// Still a well-formed trace: reasoning then final answer.
	steps, getErr := tr.Steps(ctx, runID)
	require.NoError(t, getErr)
	require.Len(t, steps, 2)
	assert.Equal(t, domain.StepTypeReasoning, steps[0].Type)
	assert.Equal(t, domain.StepTypeFinalAnswer, steps[1].Type)
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"What's the weather in London?", "London"},
		{"weather in Tokyo and calculate 50*3", "Tokyo"},
		{"how is the weather", "London"},
		{"weather in New York please", "New York please"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractLocation(tt.query), "query %q", tt.query)
	}
}

func TestExtractCustomerID(t *testing.T) {
	assert.Equal(t, "12345", extractCustomerID("Get customer 12345 details"))
	assert.Equal(t, "999", extractCustomerID("look up customer 999?"))
	assert.Equal(t, "12345", extractCustomerID("look up my customer"))
}

func TestNormalizeArithmetic(t *testing.T) {
	assert.Equal(t, "what is 100 / 0?", normalizeArithmetic("what is 100 divided by 0?"))
	assert.Equal(t, "3 * 4", normalizeArithmetic("3 times 4"))
}
