// Package policy gates tool execution through an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the tool policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine is a prepared rego query over the tool policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy for one invocation. Input carries tool_name
// and args. An empty result set falls back to allow; the default policy
// defines its own default.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy allows every harness tool except those flagged as destructive
// in their arguments.
const DefaultPolicy = `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "dangerous_command"
}

decision = "block" {
	input.args.destructive == true
}
`
