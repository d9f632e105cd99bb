package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// evalExpression evaluates a small infix arithmetic expression with the four
// basic operators and the usual precedence. Division by zero is an error so
// the classifier can label it.
func evalExpression(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty expression")
	}
	if len(tokens)%2 == 0 {
		return 0, fmt.Errorf("malformed expression: %s", expr)
	}

	// First pass: fold * and /.
	var values []float64
	var ops []string
	first, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed expression: %s", expr)
	}
	values = append(values, first)
	for i := 1; i < len(tokens); i += 2 {
		op := tokens[i]
		right, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return 0, fmt.Errorf("malformed expression: %s", expr)
		}
		switch op {
		case "*":
			values[len(values)-1] *= right
		case "/":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			values[len(values)-1] /= right
		case "+", "-":
			ops = append(ops, op)
			values = append(values, right)
		default:
			return 0, fmt.Errorf("unsupported operator %q", op)
		}
	}

	// Second pass: fold + and - left to right.
	result := values[0]
	for i, op := range ops {
		if op == "+" {
			result += values[i+1]
		} else {
			result -= values[i+1]
		}
	}
	return result, nil
}

func tokenize(expr string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case r >= '0' && r <= '9', r == '.':
			current.WriteRune(r)
		case r == '+', r == '*', r == '/':
			flush()
			tokens = append(tokens, string(r))
		case r == '-':
			// Unary minus binds to the following number.
			if current.Len() == 0 && (len(tokens) == 0 || isOperator(tokens[len(tokens)-1])) {
				current.WriteRune(r)
			} else {
				flush()
				tokens = append(tokens, string(r))
			}
		case r == ' ', r == '\t':
			flush()
		default:
			return nil, fmt.Errorf("invalid character %q in expression", r)
		}
	}
	flush()
	return tokens, nil
}

func isOperator(tok string) bool {
	switch tok {
	case "+", "-", "*", "/":
		return true
	}
	return false
}
