// Package policy gates external tool invocations with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// ToolInput is the policy input for one tool invocation.
type ToolInput struct {
	ToolName  string         `json:"tool_name"`
	SessionID string         `json:"session_id"`
	Args      map[string]any `json:"args"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
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

// Evaluate checks the tool policy and returns the decision string.
func (e *Engine) Evaluate(ctx context.Context, input ToolInput) (string, error) {
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

// Allow is a convenience wrapper that treats evaluation errors as blocks.
func (e *Engine) Allow(ctx context.Context, input ToolInput) bool {
	decision, err := e.Evaluate(ctx, input)
	if err != nil {
		return false
	}
	return decision == DecisionAllow
}

// DefaultPolicy bounds the external lookups: fare searches must carry a sane
// traveler count, annotation calls a bounded image payload.
const DefaultPolicy = `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "fare.search"
	input.args.adults < 1
}

decision = "block" {
	input.tool_name == "fare.search"
	input.args.adults > 9
}

decision = "block" {
	input.tool_name == "vision.annotate"
	input.args.image_bytes > 4194304
}
`
