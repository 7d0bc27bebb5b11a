package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition is a parsed env-flag equation such as "$RELEASE = yes": the
// deploy runs only when the named variable equals the value.
type Condition struct {
	Var   string `json:"var"`
	Value string `json:"value"`
}

// IsZero reports an absent condition.
func (c Condition) IsZero() bool {
	return c.Var == ""
}

// Holds evaluates the equation against an environment.
func (c Condition) Holds(env EnvMap) bool {
	if c.IsZero() {
		return true
	}
	return env[c.Var] == c.Value
}

func (c Condition) String() string {
	if c.IsZero() {
		return ""
	}
	return fmt.Sprintf("$%s = %s", c.Var, c.Value)
}

// ParseCondition parses an env-flag equation. The accepted forms are
// "$NAME = value" and "$NAME == value"; the value may be quoted. An
// empty string parses to the zero Condition, which always holds.
func ParseCondition(s string) (Condition, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Condition{}, nil
	}

	lhs, rhs, ok := strings.Cut(trimmed, "=")
	if !ok {
		return Condition{}, fmt.Errorf("invalid condition %q: expected $NAME = value", s)
	}
	rhs = strings.TrimPrefix(rhs, "=")

	name := strings.TrimSpace(lhs)
	if !strings.HasPrefix(name, "$") {
		return Condition{}, fmt.Errorf("invalid condition %q: left side must reference a variable like $RELEASE", s)
	}
	name = strings.TrimPrefix(name, "$")
	if !envName.MatchString(name) {
		return Condition{}, fmt.Errorf("invalid condition %q: %q is not a variable name", s, name)
	}

	value := strings.TrimSpace(rhs)
	value = strings.Trim(value, `"'`)
	if value == "" {
		return Condition{}, fmt.Errorf("invalid condition %q: missing value", s)
	}

	return Condition{Var: name, Value: value}, nil
}
