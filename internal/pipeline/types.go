// Package pipeline models the release pipeline configuration: the build
// matrix, declared test environments and the deploy descriptor. The
// configuration describes what an external CI system would run; nothing
// in this package executes a cell.
package pipeline

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lifio/readlif/internal/errors"
)

// Pipeline is the top-level release configuration, read once per
// invocation and never mutated afterwards.
type Pipeline struct {
	Version  int    `yaml:"version" json:"version"`
	Language string `yaml:"language,omitempty" json:"language,omitempty"`

	// Global carries defaults every expanded cell inherits.
	Global Global `yaml:"global,omitempty" json:"global"`

	Matrix Matrix `yaml:"matrix,omitempty" json:"matrix"`

	// TestEnvs declares the named test environments cells select through
	// their TESTENV assignment.
	TestEnvs []TestEnv `yaml:"testenvs,omitempty" json:"testenvs,omitempty"`

	// Deploys holds the declared deploy descriptors. The configuration
	// accepts a single mapping or a sequence; exactly one entry is valid,
	// which Deploy enforces.
	Deploys DeployList `yaml:"deploy,omitempty" json:"deploy,omitempty"`

	// Notifications is carried opaquely for round-trip fidelity; nothing
	// interprets it.
	Notifications yaml.Node `yaml:"notifications,omitempty" json:"-"`
}

// Deploy returns the single declared deploy descriptor.
func (p *Pipeline) Deploy() (Deploy, error) {
	switch len(p.Deploys) {
	case 0:
		return Deploy{}, errors.ErrDeployNotDeclared
	case 1:
		return p.Deploys[0], nil
	default:
		return Deploy{}, fmt.Errorf("%w: found %d", errors.ErrMultipleDeploy, len(p.Deploys))
	}
}

// TestEnv looks up a declared test environment by name.
func (p *Pipeline) TestEnv(name string) (TestEnv, bool) {
	for _, te := range p.TestEnvs {
		if te.Name == name {
			return te, true
		}
	}
	return TestEnv{}, false
}

// Global holds pipeline-wide defaults. A cell field left at its zero
// value inherits the global during expansion; cell env is appended after
// global env so the cell wins on conflict.
type Global struct {
	Go            string     `yaml:"go,omitempty" json:"go,omitempty"`
	OS            string     `yaml:"os,omitempty" json:"os,omitempty"`
	Dist          string     `yaml:"dist,omitempty" json:"dist,omitempty"`
	Arch          string     `yaml:"arch,omitempty" json:"arch,omitempty"`
	Env           EnvList    `yaml:"env,omitempty" json:"env,omitempty"`
	BeforeInstall StringList `yaml:"before_install,omitempty" json:"before_install,omitempty"`
	Install       StringList `yaml:"install,omitempty" json:"install,omitempty"`
	Script        StringList `yaml:"script,omitempty" json:"script,omitempty"`
}

// Cell is one build-matrix cell: the toolchain/os/dist/arch selectors,
// its environment and its shell steps. Commands are carried verbatim and
// never interpreted here.
type Cell struct {
	Name          string     `yaml:"name,omitempty" json:"name"`
	Go            string     `yaml:"go,omitempty" json:"go,omitempty"`
	OS            string     `yaml:"os,omitempty" json:"os,omitempty"`
	Dist          string     `yaml:"dist,omitempty" json:"dist,omitempty"`
	Arch          string     `yaml:"arch,omitempty" json:"arch,omitempty"`
	Env           EnvList    `yaml:"env,omitempty" json:"env,omitempty"`
	BeforeInstall StringList `yaml:"before_install,omitempty" json:"before_install,omitempty"`
	Install       StringList `yaml:"install,omitempty" json:"install,omitempty"`
	Script        StringList `yaml:"script,omitempty" json:"script,omitempty"`
}

// TestEnvName returns the TESTENV assignment from the cell's env, ""
// when absent.
func (c Cell) TestEnvName() string {
	return c.Env.Map()["TESTENV"]
}

// Matrix declares the build axes plus explicit include cells and
// exclusions. Any mapping key other than include/exclude is an axis.
type Matrix struct {
	Axes    map[string][]string `json:"axes,omitempty"`
	Include []Cell              `json:"include,omitempty"`
	Exclude []CellSelector      `json:"exclude,omitempty"`
}

func (m *Matrix) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("matrix must be a mapping")
	}
	m.Axes = map[string][]string{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		node := value.Content[i+1]
		switch key {
		case "include":
			if err := node.Decode(&m.Include); err != nil {
				return fmt.Errorf("failed to parse matrix include: %w", err)
			}
		case "exclude":
			if err := node.Decode(&m.Exclude); err != nil {
				return fmt.Errorf("failed to parse matrix exclude: %w", err)
			}
		default:
			var vals []string
			if node.Kind == yaml.ScalarNode {
				vals = []string{node.Value}
			} else if err := node.Decode(&vals); err != nil {
				return fmt.Errorf("failed to parse matrix axis %q: %w", key, err)
			}
			m.Axes[key] = vals
		}
	}
	return nil
}

// CellSelector matches cells by their axis values. Populated fields must
// all match; an empty selector matches nothing.
type CellSelector struct {
	Go   string `yaml:"go,omitempty" json:"go,omitempty"`
	OS   string `yaml:"os,omitempty" json:"os,omitempty"`
	Dist string `yaml:"dist,omitempty" json:"dist,omitempty"`
	Arch string `yaml:"arch,omitempty" json:"arch,omitempty"`
}

// Matches reports whether every populated selector field equals the
// cell's value.
func (s CellSelector) Matches(c Cell) bool {
	if s == (CellSelector{}) {
		return false
	}
	if s.Go != "" && s.Go != c.Go {
		return false
	}
	if s.OS != "" && s.OS != c.OS {
		return false
	}
	if s.Dist != "" && s.Dist != c.Dist {
		return false
	}
	if s.Arch != "" && s.Arch != c.Arch {
		return false
	}
	return true
}

// TestEnv is one declared test environment, the target of a cell's
// TESTENV assignment.
type TestEnv struct {
	Name     string     `yaml:"name" json:"name"`
	Commands StringList `yaml:"commands,omitempty" json:"commands,omitempty"`
}

// Registry providers a deploy may name.
const (
	ProviderS3    = "s3"
	ProviderLocal = "local"
)

// Deploy describes where release artifacts go. Token is always a
// reference (env:NAME, secretsmanager:ID, ssm:PATH), never a literal
// credential.
type Deploy struct {
	Provider      string          `yaml:"provider" json:"provider"`
	Bucket        string          `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Prefix        string          `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Endpoint      string          `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Dir           string          `yaml:"dir,omitempty" json:"dir,omitempty"`
	Token         string          `yaml:"token,omitempty" json:"-"`
	Distributions StringList      `yaml:"distributions,omitempty" json:"distributions,omitempty"`
	SkipExisting  bool            `yaml:"skip_existing,omitempty" json:"skip_existing"`
	On            DeployCondition `yaml:"on,omitempty" json:"on"`
}

// DeployCondition gates publication: Tags requires a tagged commit and
// Condition is an env-flag equation, both of which must hold.
type DeployCondition struct {
	Tags      bool   `yaml:"tags" json:"tags"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// DeployList accepts either a single deploy mapping or a sequence of
// them, normalized to a slice so the exactly-one invariant stays
// checkable.
type DeployList []Deploy

func (d *DeployList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		if err := checkDeployKeys(value); err != nil {
			return err
		}
		var one Deploy
		if err := value.Decode(&one); err != nil {
			return fmt.Errorf("failed to parse deploy: %w", err)
		}
		*d = DeployList{one}
		return nil

	case yaml.SequenceNode:
		for _, item := range value.Content {
			if err := checkDeployKeys(item); err != nil {
				return err
			}
		}
		var many []Deploy
		if err := value.Decode(&many); err != nil {
			return fmt.Errorf("failed to parse deploy list: %w", err)
		}
		*d = many
		return nil

	default:
		return fmt.Errorf("deploy must be a mapping or a sequence of mappings")
	}
}

var deployKeys = map[string]struct{}{
	"provider":      {},
	"bucket":        {},
	"prefix":        {},
	"endpoint":      {},
	"dir":           {},
	"token":         {},
	"distributions": {},
	"skip_existing": {},
	"on":            {},
}

// checkDeployKeys rejects unknown deploy keys, which the node decoder
// would otherwise silently drop.
func checkDeployKeys(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, ok := deployKeys[key]; !ok {
			return fmt.Errorf("unknown key %q in deploy", key)
		}
	}
	return nil
}

// StringList accepts either a single scalar or a sequence of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*s = raw
		return nil
	default:
		return fmt.Errorf("expected a string or a sequence of strings")
	}
}
