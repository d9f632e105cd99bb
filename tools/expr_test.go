package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"addition", "2 + 3", 5},
		{"subtraction", "10 - 4", 6},
		{"multiplication", "50 * 3", 150},
		{"division", "100 / 4", 25},
		{"precedence", "2 + 3 * 4", 14},
		{"left to right", "10 - 2 - 3", 5},
		{"mixed", "15 * 23 + 7", 352},
		{"decimal", "1.5 * 2", 3},
		{"unary minus", "-4 + 10", 6},
		{"no spaces", "100/5", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalExpression(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalExpressionDivisionByZero(t *testing.T) {
	_, err := evalExpression("100 / 0")
	require.Error(t, err)
	assert.Equal(t, "division by zero", err.Error())
}

func TestEvalExpressionMalformed(t *testing.T) {
	for _, expr := range []string{"", "2 +", "+ 2", "2 2", "hello"} {
		_, err := evalExpression(expr)
		assert.Error(t, err, "expression %q", expr)
	}
}
