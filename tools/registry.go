// Package tools provides the tool executor registry and the builtin harness
// tools driven by the mock agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cellsight/cellsight/classify"
	"github.com/cellsight/cellsight/domain"
	"github.com/cellsight/cellsight/policy"
)

// ExecutorFunc defines a tool executor.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Registry stores tool executors keyed by tool name. If a policy engine is
// attached, every execution is gated by it first.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]ExecutorFunc
	policy    *policy.Engine
}

// NewRegistry creates an empty tool executor registry.
func NewRegistry(policyEngine *policy.Engine) *Registry {
	return &Registry{
		executors: make(map[string]ExecutorFunc),
		policy:    policyEngine,
	}
}

// Register adds a new executor for a tool name.
func (r *Registry) Register(toolName string, exec ExecutorFunc) error {
	if toolName == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[toolName]; exists {
		return fmt.Errorf("executor already registered for %s", toolName)
	}
	r.executors[toolName] = exec
	return nil
}

// MustRegister adds an executor or panics.
func (r *Registry) MustRegister(toolName string, exec ExecutorFunc) {
	if err := r.Register(toolName, exec); err != nil {
		panic(err)
	}
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	return names
}

// Execute runs the executor for the tool name after the policy gate. A policy
// block surfaces as a pre-classified validation error so the trace records it
// like any other tool failure.
func (r *Registry) Execute(ctx context.Context, toolName string, args json.RawMessage) (json.RawMessage, error) {
	if toolName == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	r.mu.RLock()
	exec := r.executors[toolName]
	r.mu.RUnlock()
	if exec == nil {
		return nil, fmt.Errorf("no executor registered for %s", toolName)
	}

	if r.policy != nil {
		input := map[string]interface{}{"tool_name": toolName}
		var argsMap map[string]interface{}
		if len(args) > 0 && json.Unmarshal(args, &argsMap) == nil {
			input["args"] = argsMap
		} else {
			input["args"] = map[string]interface{}{}
		}
		decision, err := r.policy.Evaluate(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision == policy.DecisionBlock {
			return nil, classify.NewError(domain.ErrorKindValidation,
				fmt.Sprintf("tool %s blocked by policy", toolName))
		}
	}

	return exec(ctx, args)
}
