package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input map[string]interface{}
		want  string
	}{
		{
			name:  "ordinary tool allowed",
			input: map[string]interface{}{"tool_name": "get_weather", "args": map[string]interface{}{"location": "Paris"}},
			want:  DecisionAllow,
		},
		{
			name:  "dangerous tool blocked",
			input: map[string]interface{}{"tool_name": "dangerous_command", "args": map[string]interface{}{}},
			want:  DecisionBlock,
		},
		{
			name:  "destructive args blocked",
			input: map[string]interface{}{"tool_name": "cleanup", "args": map[string]interface{}{"destructive": true}},
			want:  DecisionBlock,
		},
		{
			name:  "non-destructive args allowed",
			input: map[string]interface{}{"tool_name": "cleanup", "args": map[string]interface{}{"destructive": false}},
			want:  DecisionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision)
		})
	}
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "this is not rego")
	assert.Error(t, err)
}
