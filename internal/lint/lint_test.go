package lint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifio/readlif/internal/lint"
	"github.com/lifio/readlif/internal/pipeline"
)

const cleanConfig = `
version: 1
language: go
global:
  dist: jammy
  env:
    - TESTENV=go122
matrix:
  go: ["1.21", "1.22"]
  os: [linux]
  include:
    - name: release
      go: "1.22"
      os: linux
      env:
        - RELEASE=yes
testenvs:
  - name: go122
    commands:
      - go test ./...
deploy:
  provider: s3
  bucket: releases
  prefix: readlif
  token: env:RELEASE_TOKEN
  distributions:
    - source
    - binary
  skip_existing: true
  on:
    tags: true
    condition: $RELEASE = yes
`

func runLint(t *testing.T, src string) []lint.Issue {
	t.Helper()
	p, err := pipeline.Parse([]byte(src))
	require.NoError(t, err)
	return lint.New().Run(p)
}

func byRule(issues []lint.Issue, rule string) []lint.Issue {
	var out []lint.Issue
	for _, issue := range issues {
		if issue.Rule == rule {
			out = append(out, issue)
		}
	}
	return out
}

func TestLintCleanConfig(t *testing.T) {
	issues := runLint(t, cleanConfig)
	assert.Empty(t, issues)
	assert.False(t, lint.HasErrors(issues))
}

func TestLintNoDeploy(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  go: ["1.21"]
`)
	found := byRule(issues, "single-deploy")
	require.Len(t, found, 1)
	assert.Equal(t, lint.SeverityError, found[0].Severity)
	assert.Contains(t, found[0].Message, "no deploy declared")
	assert.True(t, lint.HasErrors(issues))
}

func TestLintMultipleDeploys(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  go: ["1.21"]
deploy:
  - provider: s3
    bucket: releases
    token: env:A
    distributions: [source]
  - provider: local
    dir: /srv/releases
    token: env:B
    distributions: [source]
`)
	found := byRule(issues, "single-deploy")
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "2 deploy blocks declared")
}

func TestLintGateNotTagTriggered(t *testing.T) {
	issues := runLint(t, `
version: 1
global:
  env: [TESTENV=go122]
matrix:
  go: ["1.22"]
  include:
    - name: release
      go: "1.22"
      env: [RELEASE=yes]
testenvs:
  - name: go122
deploy:
  provider: s3
  bucket: releases
  token: env:RELEASE_TOKEN
  distributions: [source]
  on:
    condition: $RELEASE = yes
`)
	found := byRule(issues, "release-gate-satisfiable")
	require.Len(t, found, 1)
	assert.Equal(t, lint.SeverityError, found[0].Severity)
	assert.Contains(t, found[0].Message, "not tag-triggered")
}

func TestLintGateFlagMismatch(t *testing.T) {
	issues := runLint(t, `
version: 1
global:
  env: [TESTENV=go122]
matrix:
  go: ["1.22"]
  include:
    - name: release
      go: "1.22"
      env: [RELEASE=yes]
testenvs:
  - name: go122
deploy:
  provider: s3
  bucket: releases
  token: env:RELEASE_TOKEN
  distributions: [source]
  on:
    tags: true
    condition: $RELEASE = true
`)
	found := byRule(issues, "release-gate-satisfiable")
	require.Len(t, found, 2)

	var mismatch, unreachable *lint.Issue
	for i := range found {
		switch found[i].Severity {
		case lint.SeverityError:
			mismatch = &found[i]
		case lint.SeverityWarning:
			unreachable = &found[i]
		}
	}
	require.NotNil(t, mismatch)
	assert.Equal(t, "release", mismatch.Cell)
	assert.Contains(t, mismatch.Message, "cannot satisfy the deploy condition")

	require.NotNil(t, unreachable)
	assert.Contains(t, unreachable.Message, "deploy step is unreachable")
}

func TestLintGateUnreachable(t *testing.T) {
	issues := runLint(t, `
version: 1
global:
  env: [TESTENV=go122]
matrix:
  go: ["1.22"]
testenvs:
  - name: go122
deploy:
  provider: s3
  bucket: releases
  token: env:RELEASE_TOKEN
  distributions: [source]
  on:
    tags: true
    condition: $RELEASE = yes
`)
	found := byRule(issues, "release-gate-satisfiable")
	require.Len(t, found, 1)
	assert.Equal(t, lint.SeverityWarning, found[0].Severity)
	assert.Contains(t, found[0].Message, "deploy step is unreachable")
	assert.False(t, lint.HasErrors(issues))
}

func TestLintTestEnvMissing(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  go: ["1.21", "1.22"]
testenvs:
  - name: go122
`)
	found := byRule(issues, "testenv-resolves")
	require.Len(t, found, 2)
	for _, issue := range found {
		assert.Contains(t, issue.Message, "no TESTENV assignment")
	}
}

func TestLintTestEnvUndeclared(t *testing.T) {
	issues := runLint(t, `
version: 1
global:
  env: [TESTENV=go999]
matrix:
  go: ["1.21"]
testenvs:
  - name: go122
`)
	found := byRule(issues, "testenv-resolves")
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "TESTENV=go999 does not name a declared test environment")
}

func TestLintConflictingCells(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  include:
    - name: ci
      go: "1.21"
      os: linux
    - name: ci
      go: "1.22"
      os: linux
`)
	found := byRule(issues, "no-conflicting-cells")
	require.Len(t, found, 1)
	assert.Equal(t, "ci", found[0].Cell)
	assert.Contains(t, found[0].Message, "conflicting cells")
	assert.Contains(t, found[0].Message, "go=1.21")
}

func TestLintDuplicateCells(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  include:
    - name: ci
      go: "1.21"
      os: linux
    - name: ci
      go: "1.21"
      os: linux
`)
	found := byRule(issues, "no-conflicting-cells")
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, "duplicate cell")
}

func TestLintExpandFailure(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  python: ["3.9"]
`)
	found := byRule(issues, "matrix-expands")
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, `unknown matrix axis "python"`)

	// Cell rules skip when expansion failed.
	assert.Empty(t, byRule(issues, "testenv-resolves"))
	assert.Empty(t, byRule(issues, "no-conflicting-cells"))
}

func TestLintEmptyAxis(t *testing.T) {
	issues := runLint(t, `
version: 1
matrix:
  go: []
`)
	found := byRule(issues, "matrix-axes")
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, `axis "go" declares no values`)
}

func TestLintDeployDescriptor(t *testing.T) {
	tests := []struct {
		name         string
		deploy       string
		rule         string
		wantSeverity lint.Severity
		wantContains string
	}{
		{
			name: "unknown provider",
			deploy: `
  provider: ftp
  token: env:T
  distributions: [source]
  on: {tags: true}`,
			rule:         "deploy-provider",
			wantSeverity: lint.SeverityError,
			wantContains: `unknown deploy provider "ftp"`,
		},
		{
			name: "missing provider",
			deploy: `
  bucket: releases
  token: env:T
  distributions: [source]
  on: {tags: true}`,
			rule:         "deploy-provider",
			wantSeverity: lint.SeverityError,
			wantContains: "deploy declares no provider",
		},
		{
			name: "unknown distribution kind",
			deploy: `
  provider: s3
  bucket: releases
  token: env:T
  distributions: [wheel]
  on: {tags: true}`,
			rule:         "deploy-distributions",
			wantSeverity: lint.SeverityError,
			wantContains: `unknown distribution kind "wheel"`,
		},
		{
			name: "no distributions",
			deploy: `
  provider: s3
  bucket: releases
  token: env:T
  on: {tags: true}`,
			rule:         "deploy-distributions",
			wantSeverity: lint.SeverityWarning,
			wantContains: "would publish nothing",
		},
		{
			name: "malformed token reference",
			deploy: `
  provider: s3
  bucket: releases
  token: RELEASE_TOKEN
  distributions: [source]
  on: {tags: true}`,
			rule:         "deploy-token",
			wantSeverity: lint.SeverityError,
			wantContains: "expected scheme:name",
		},
		{
			name: "missing token",
			deploy: `
  provider: s3
  bucket: releases
  distributions: [source]
  on: {tags: true}`,
			rule:         "deploy-token",
			wantSeverity: lint.SeverityWarning,
			wantContains: "unauthenticated",
		},
		{
			name: "malformed condition",
			deploy: `
  provider: s3
  bucket: releases
  token: env:T
  distributions: [source]
  on:
    tags: true
    condition: RELEASE = yes`,
			rule:         "deploy-condition",
			wantSeverity: lint.SeverityError,
			wantContains: "must reference a variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := runLint(t, `
version: 1
matrix:
  go: ["1.21"]
deploy:`+tt.deploy+"\n")
			found := byRule(issues, tt.rule)
			require.Len(t, found, 1)
			assert.Equal(t, tt.wantSeverity, found[0].Severity)
			assert.Contains(t, found[0].Message, tt.wantContains)
		})
	}
}

func TestLintRuleMetadata(t *testing.T) {
	for _, rule := range lint.New().Rules() {
		assert.NotEmpty(t, rule.Name())
		assert.NotEmpty(t, rule.Description())
	}
}
