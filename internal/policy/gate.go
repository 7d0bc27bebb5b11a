// Package policy answers the runtime admission question "may this
// invocation publish?" with an embedded rego policy. Lint checks the
// configuration's internal consistency ahead of time; the gate checks
// the configuration against the build that is actually running.
package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/lifio/readlif/internal/buildinfo"
	"github.com/lifio/readlif/internal/pipeline"
)

//go:embed release.rego
var policyContent string

// Gate evaluates the release policy. Queries are prepared once and
// reused across evaluations.
type Gate struct {
	allow      rego.PreparedEvalQuery
	violations rego.PreparedEvalQuery
}

// Decision is the gate's verdict. A denial is a normal outcome, not an
// error; Violations carries the human-readable reasons.
type Decision struct {
	Allowed    bool     `json:"allowed"`
	Violations []string `json:"violations,omitempty"`
}

func NewGate() (*Gate, error) {
	ctx := context.Background()

	allow, err := rego.New(
		rego.Query("data.release.allow"),
		rego.Module("release.rego", policyContent),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare policy query: %w", err)
	}

	violations, err := rego.New(
		rego.Query("data.release.violations"),
		rego.Module("release.rego", policyContent),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare violations query: %w", err)
	}

	return &Gate{
		allow:      allow,
		violations: violations,
	}, nil
}

// Evaluate decides whether the current build may publish under the
// declared deploys.
func (g *Gate) Evaluate(ctx context.Context, deploys pipeline.DeployList, bctx buildinfo.Context) (*Decision, error) {
	input, err := gateInput(deploys, bctx)
	if err != nil {
		return nil, err
	}

	results, err := g.allow.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 {
		return &Decision{
			Allowed:    false,
			Violations: []string{"policy evaluation returned no results"},
		}, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return &Decision{
			Allowed:    false,
			Violations: []string{"policy evaluation returned non-boolean result"},
		}, nil
	}

	decision := &Decision{Allowed: allowed}
	if !allowed {
		violations, err := g.getViolations(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to get violations: %w", err)
		}
		decision.Violations = violations
	}

	return decision, nil
}

func (g *Gate) getViolations(ctx context.Context, input map[string]any) ([]string, error) {
	results, err := g.violations.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate violations: %w", err)
	}

	if len(results) == 0 {
		return []string{"unknown policy violation"}, nil
	}

	var violations []string
	switch value := results[0].Expressions[0].Value.(type) {
	case []any:
		for _, violation := range value {
			if str, ok := violation.(string); ok {
				violations = append(violations, str)
			}
		}
	case map[string]any:
		for violation := range value {
			violations = append(violations, violation)
		}
	}

	if len(violations) == 0 {
		return []string{"policy denied the release but reported no violations"}, nil
	}

	return violations, nil
}

// gateInput shapes the policy input. Only the condition variable's own
// value crosses into the policy, never the whole environment.
func gateInput(deploys pipeline.DeployList, bctx buildinfo.Context) (map[string]any, error) {
	input := map[string]any{
		"deploy_count": len(deploys),
		"on": map[string]any{
			"tags": false,
		},
		"condition": map[string]any{
			"var":    "",
			"value":  "",
			"actual": "",
		},
		"build": map[string]any{
			"tagged": bctx.IsTagged(),
			"tag":    bctx.Tag,
		},
	}

	if len(deploys) == 0 {
		return input, nil
	}

	deploy := deploys[0]
	input["on"] = map[string]any{
		"tags": deploy.On.Tags,
	}

	cond, err := pipeline.ParseCondition(deploy.On.Condition)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deploy condition: %w", err)
	}
	if !cond.IsZero() {
		input["condition"] = map[string]any{
			"var":    cond.Var,
			"value":  cond.Value,
			"actual": bctx.Flag(cond.Var),
		}
	}

	return input, nil
}
