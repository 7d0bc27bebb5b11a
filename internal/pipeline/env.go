package pipeline

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar is one NAME=value assignment.
type EnvVar struct {
	Name  string
	Value string
}

func (v EnvVar) String() string {
	return v.Name + "=" + v.Value
}

// EnvList is an ordered list of assignments. It unmarshals from either a
// sequence of "NAME=value" strings or a mapping; order is preserved so
// later assignments can win during resolution.
type EnvList []EnvVar

func (l *EnvList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var raw []string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		out := make(EnvList, 0, len(raw))
		for _, s := range raw {
			name, val, ok := strings.Cut(s, "=")
			if !ok || strings.TrimSpace(name) == "" {
				return fmt.Errorf("invalid env assignment %q: expected NAME=value", s)
			}
			out = append(out, EnvVar{Name: strings.TrimSpace(name), Value: val})
		}
		*l = out
		return nil

	case yaml.MappingNode:
		out := make(EnvList, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i+1].Kind != yaml.ScalarNode {
				return fmt.Errorf("env value for %q must be a scalar", value.Content[i].Value)
			}
			out = append(out, EnvVar{Name: value.Content[i].Value, Value: value.Content[i+1].Value})
		}
		*l = out
		return nil

	default:
		return fmt.Errorf("env must be a sequence of NAME=value strings or a mapping")
	}
}

// MarshalJSON renders the list as "NAME=value" strings.
func (l EnvList) MarshalJSON() ([]byte, error) {
	out := make([]string, 0, len(l))
	for _, v := range l {
		out = append(out, v.String())
	}
	return json.Marshal(out)
}

// Map collapses the list into a lookup map; a repeated name keeps the
// last assignment.
func (l EnvList) Map() EnvMap {
	m := make(EnvMap, len(l))
	for _, v := range l {
		m[v.Name] = v.Value
	}
	return m
}

// EnvMap is a resolved set of environment assignments.
type EnvMap map[string]string

// MergeEnv merges environment maps with later maps taking precedence.
func MergeEnv(mm ...EnvMap) EnvMap {
	merged := EnvMap{}
	for _, m := range mm {
		maps.Copy(merged, m)
	}
	return merged
}

// Sorted returns the assignments ordered by name.
func (m EnvMap) Sorted() []EnvVar {
	var results []EnvVar
	for _, k := range slices.Sorted(maps.Keys(m)) {
		results = append(results, EnvVar{Name: k, Value: m[k]})
	}
	return results
}
