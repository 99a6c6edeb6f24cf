package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.marketplace_policy.decision"),
		rego.Module("marketplace_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision for a viewer performing an action.
// Anything other than a string result is treated as deny.
func (e *Engine) Evaluate(ctx context.Context, viewer domain.Viewer, action domain.Action) (string, error) {
	input := map[string]any{
		"action":    string(action),
		"role":      string(viewer.Role),
		"viewer_id": viewer.ID,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionDeny, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionDeny, nil
}

// Allowed reports whether the decision is allow.
func (e *Engine) Allowed(ctx context.Context, viewer domain.Viewer, action domain.Action) (bool, error) {
	decision, err := e.Evaluate(ctx, viewer, action)
	if err != nil {
		return false, err
	}
	return decision == DecisionAllow, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package marketplace_policy

default decision = "deny"

roles := {"client", "freelancer"}

shared_actions := {
	"conversation.list",
	"conversation.get",
	"message.send",
	"message.auto_reply",
	"roles.predict",
	"roles.drain",
	"account.delete",
}

# Only clients open conversations with freelancers.
decision = "allow" {
	input.action == "conversation.start"
	input.role == "client"
}

decision = "allow" {
	shared_actions[input.action]
	roles[input.role]
}
`
