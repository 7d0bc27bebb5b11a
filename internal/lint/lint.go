// Package lint validates a release pipeline configuration against the
// project's self-consistency rules: the release gate must be reachable
// and satisfiable, exactly one deploy may be declared, every cell must
// resolve a test environment, and no two cells may conflict. Rules
// accumulate findings per cell; one cell's findings never suppress
// another's.
package lint

import (
	"encoding/json"
	"fmt"

	"github.com/lifio/readlif/internal/pipeline"
)

// Severity is the importance of a finding.
type Severity int

const (
	// SeverityError marks a finding that fails the lint run.
	SeverityError Severity = iota
	// SeverityWarning marks a finding that should be addressed but does
	// not fail the run.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Issue is a single finding.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Cell     string   `json:"cell,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Cell != "" {
		return fmt.Sprintf("%s [%s] cell %q: %s", i.Severity, i.Rule, i.Cell, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s", i.Severity, i.Rule, i.Message)
}

// Target is what rules examine: the parsed configuration and its
// expansion. Cells is nil when expansion failed; rules that need the
// expansion skip themselves in that case and the expansion error
// surfaces as its own finding.
type Target struct {
	Pipeline  *pipeline.Pipeline
	Cells     []pipeline.Cell
	ExpandErr error
}

// Rule checks one property of the configuration.
type Rule interface {
	Name() string
	Description() string
	Check(tgt *Target) []Issue
}

// Linter runs every rule over a configuration.
type Linter struct {
	rules []Rule
}

// New returns a linter with the standard rule set plus any extras.
func New(extra ...Rule) *Linter {
	return &Linter{rules: append(defaultRules(), extra...)}
}

// Rules returns the linter's rule set.
func (l *Linter) Rules() []Rule {
	return l.rules
}

// Run expands the configuration and applies every rule. All rules run;
// findings accumulate.
func (l *Linter) Run(p *pipeline.Pipeline) []Issue {
	tgt := &Target{Pipeline: p}

	cells, err := pipeline.Expand(p)
	if err != nil {
		tgt.ExpandErr = err
	} else {
		tgt.Cells = cells
	}

	var issues []Issue
	for _, rule := range l.rules {
		issues = append(issues, rule.Check(tgt)...)
	}
	return issues
}

// HasErrors reports whether any finding carries severity error.
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
