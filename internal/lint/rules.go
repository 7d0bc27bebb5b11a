package lint

import (
	"fmt"
	"maps"
	"slices"

	"github.com/lifio/readlif/internal/dist"
	"github.com/lifio/readlif/internal/pipeline"
	"github.com/lifio/readlif/internal/secrets"
)

// The release flag convention: a cell opting into publication sets
// RELEASE=yes in its env, and the deploy condition references the same
// flag.
const (
	releaseFlagName  = "RELEASE"
	releaseFlagValue = "yes"
)

func defaultRules() []Rule {
	return []Rule{
		matrixExpandsRule{},
		singleDeployRule{},
		releaseGateRule{},
		testEnvRule{},
		conflictingCellsRule{},
		deployProviderRule{},
		deployConditionRule{},
		distributionsRule{},
		tokenRule{},
		axesRule{},
	}
}

type matrixExpandsRule struct{}

func (matrixExpandsRule) Name() string { return "matrix-expands" }
func (matrixExpandsRule) Description() string {
	return "The build matrix must expand to at least one cell."
}

func (r matrixExpandsRule) Check(tgt *Target) []Issue {
	if tgt.ExpandErr == nil {
		return nil
	}
	return []Issue{{Rule: r.Name(), Severity: SeverityError, Message: tgt.ExpandErr.Error()}}
}

type singleDeployRule struct{}

func (singleDeployRule) Name() string { return "single-deploy" }
func (singleDeployRule) Description() string {
	return "Exactly one deploy block must be declared."
}

func (r singleDeployRule) Check(tgt *Target) []Issue {
	switch n := len(tgt.Pipeline.Deploys); n {
	case 1:
		return nil
	case 0:
		return []Issue{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  "no deploy declared: releases would never publish",
		}}
	default:
		return []Issue{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  fmt.Sprintf("%d deploy blocks declared, exactly one is allowed", n),
		}}
	}
}

type releaseGateRule struct{}

func (releaseGateRule) Name() string { return "release-gate-satisfiable" }
func (releaseGateRule) Description() string {
	return "Cells that set the release flag must satisfy the deploy condition, and some cell must be able to trigger the deploy."
}

func (r releaseGateRule) Check(tgt *Target) []Issue {
	if len(tgt.Pipeline.Deploys) != 1 || tgt.Cells == nil {
		return nil
	}
	deploy := tgt.Pipeline.Deploys[0]

	cond, err := pipeline.ParseCondition(deploy.On.Condition)
	if err != nil {
		// deploy-condition reports the parse failure.
		return nil
	}

	var issues []Issue
	if !deploy.On.Tags {
		issues = append(issues, Issue{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  "deploy is not tag-triggered: set on.tags to true",
		})
	}

	reachable := false
	for _, cell := range tgt.Cells {
		env := cell.Env.Map()
		if cond.Holds(env) {
			reachable = true
		}
		if env[releaseFlagName] != releaseFlagValue {
			continue
		}
		if !cond.Holds(env) {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Cell:     cell.Name,
				Message: fmt.Sprintf("cell sets %s=%s but its env cannot satisfy the deploy condition %q",
					releaseFlagName, releaseFlagValue, cond.String()),
			})
		}
	}

	if !reachable && !cond.IsZero() {
		issues = append(issues, Issue{
			Rule:     r.Name(),
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("deploy step is unreachable: no expanded cell satisfies the deploy condition %q", cond.String()),
		})
	}
	return issues
}

type testEnvRule struct{}

func (testEnvRule) Name() string { return "testenv-resolves" }
func (testEnvRule) Description() string {
	return "Every expanded cell must carry a TESTENV assignment naming a declared test environment."
}

func (r testEnvRule) Check(tgt *Target) []Issue {
	if tgt.Cells == nil {
		return nil
	}
	var issues []Issue
	for _, cell := range tgt.Cells {
		name := cell.TestEnvName()
		if name == "" {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Cell:     cell.Name,
				Message:  "no TESTENV assignment: the cell would not select a test environment",
			})
			continue
		}
		if _, ok := tgt.Pipeline.TestEnv(name); !ok {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Cell:     cell.Name,
				Message:  fmt.Sprintf("TESTENV=%s does not name a declared test environment", name),
			})
		}
	}
	return issues
}

type conflictingCellsRule struct{}

func (conflictingCellsRule) Name() string { return "no-conflicting-cells" }
func (conflictingCellsRule) Description() string {
	return "No two cells may share a display name while declaring different selectors."
}

func (r conflictingCellsRule) Check(tgt *Target) []Issue {
	if tgt.Cells == nil {
		return nil
	}
	seen := map[string]pipeline.Cell{}
	var issues []Issue
	for _, cell := range tgt.Cells {
		prev, ok := seen[cell.Name]
		if !ok {
			seen[cell.Name] = cell
			continue
		}
		if prev.Go == cell.Go && prev.OS == cell.OS && prev.Dist == cell.Dist && prev.Arch == cell.Arch {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Cell:     cell.Name,
				Message:  "duplicate cell: an identical cell is already declared",
			})
			continue
		}
		issues = append(issues, Issue{
			Rule:     r.Name(),
			Severity: SeverityError,
			Cell:     cell.Name,
			Message: fmt.Sprintf("conflicting cells: %q is also declared with go=%s os=%s dist=%s",
				cell.Name, prev.Go, prev.OS, prev.Dist),
		})
	}
	return issues
}

type deployProviderRule struct{}

func (deployProviderRule) Name() string { return "deploy-provider" }
func (deployProviderRule) Description() string {
	return "The deploy must name a known registry provider."
}

func (r deployProviderRule) Check(tgt *Target) []Issue {
	var issues []Issue
	for _, deploy := range tgt.Pipeline.Deploys {
		switch deploy.Provider {
		case "":
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  "deploy declares no provider",
			})
		case pipeline.ProviderS3, pipeline.ProviderLocal:
		default:
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  fmt.Sprintf("unknown deploy provider %q (known: local, s3)", deploy.Provider),
			})
		}
	}
	return issues
}

type deployConditionRule struct{}

func (deployConditionRule) Name() string { return "deploy-condition" }
func (deployConditionRule) Description() string {
	return "The deploy condition must be a parseable env-flag equation."
}

func (r deployConditionRule) Check(tgt *Target) []Issue {
	var issues []Issue
	for _, deploy := range tgt.Pipeline.Deploys {
		if _, err := pipeline.ParseCondition(deploy.On.Condition); err != nil {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  err.Error(),
			})
		}
	}
	return issues
}

type distributionsRule struct{}

func (distributionsRule) Name() string { return "deploy-distributions" }
func (distributionsRule) Description() string {
	return "Declared distributions must be known artifact kinds."
}

func (r distributionsRule) Check(tgt *Target) []Issue {
	var issues []Issue
	for _, deploy := range tgt.Pipeline.Deploys {
		if len(deploy.Distributions) == 0 {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityWarning,
				Message:  "no distributions declared: the deploy would publish nothing",
			})
			continue
		}
		for _, kind := range deploy.Distributions {
			switch kind {
			case dist.KindSource, dist.KindBinary:
			default:
				issues = append(issues, Issue{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("unknown distribution kind %q (known: binary, source)", kind),
				})
			}
		}
	}
	return issues
}

type tokenRule struct{}

func (tokenRule) Name() string { return "deploy-token" }
func (tokenRule) Description() string {
	return "The deploy token must be a well-formed credential reference."
}

func (r tokenRule) Check(tgt *Target) []Issue {
	var issues []Issue
	for _, deploy := range tgt.Pipeline.Deploys {
		if deploy.Token == "" {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityWarning,
				Message:  "no token reference declared: publication would run unauthenticated",
			})
			continue
		}
		if _, err := secrets.ParseRef(deploy.Token); err != nil {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  err.Error(),
			})
		}
	}
	return issues
}

type axesRule struct{}

func (axesRule) Name() string { return "matrix-axes" }
func (axesRule) Description() string {
	return "Every declared matrix axis must carry at least one non-empty value."
}

func (r axesRule) Check(tgt *Target) []Issue {
	var issues []Issue
	for _, axis := range slices.Sorted(maps.Keys(tgt.Pipeline.Matrix.Axes)) {
		values := tgt.Pipeline.Matrix.Axes[axis]
		if len(values) == 0 {
			issues = append(issues, Issue{
				Rule:     r.Name(),
				Severity: SeverityError,
				Message:  fmt.Sprintf("axis %q declares no values", axis),
			})
			continue
		}
		for _, v := range values {
			if v == "" {
				issues = append(issues, Issue{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("axis %q declares an empty value", axis),
				})
			}
		}
	}
	return issues
}
