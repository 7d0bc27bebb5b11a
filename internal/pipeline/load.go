package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the release configuration lives unless a
// flag overrides it.
const DefaultConfigPath = "release.yml"

// Load reads and parses the pipeline configuration at path.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline configuration: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes one pipeline configuration document. Decoding is strict:
// unknown keys are errors, and an empty document is an error.
func Parse(data []byte) (*Pipeline, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Pipeline
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("pipeline configuration is empty")
		}
		return nil, fmt.Errorf("failed to parse pipeline configuration: %w", err)
	}

	if p.Version > 1 {
		return nil, fmt.Errorf("unsupported configuration version %d", p.Version)
	}
	return &p, nil
}
