package lint_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifio/readlif/internal/lint"
)

func TestReporterText(t *testing.T) {
	issues := []lint.Issue{
		{Rule: "deploy-token", Severity: lint.SeverityWarning, Message: "no token reference declared: publication would run unauthenticated"},
		{Rule: "testenv-resolves", Severity: lint.SeverityError, Cell: "go1.21/linux", Message: "no TESTENV assignment: the cell would not select a test environment"},
		{Rule: "single-deploy", Severity: lint.SeverityError, Message: "no deploy declared: releases would never publish"},
	}

	var buf bytes.Buffer
	require.NoError(t, lint.NewReporter(&buf, lint.FormatText).Report(issues))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// Errors sort before warnings, rules alphabetically within.
	assert.Equal(t, "error [single-deploy] no deploy declared: releases would never publish", lines[0])
	assert.Equal(t, `error [testenv-resolves] cell "go1.21/linux": no TESTENV assignment: the cell would not select a test environment`, lines[1])
	assert.Equal(t, "warning [deploy-token] no token reference declared: publication would run unauthenticated", lines[2])
}

func TestReporterJSON(t *testing.T) {
	issues := []lint.Issue{
		{Rule: "deploy-token", Severity: lint.SeverityWarning, Message: "no token reference declared"},
		{Rule: "single-deploy", Severity: lint.SeverityError, Message: "no deploy declared"},
	}

	var buf bytes.Buffer
	require.NoError(t, lint.NewReporter(&buf, lint.FormatJSON).Report(issues))

	var got struct {
		Issues []struct {
			Rule     string `json:"rule"`
			Severity string `json:"severity"`
			Cell     string `json:"cell"`
			Message  string `json:"message"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Issues, 2)
	assert.Equal(t, "single-deploy", got.Issues[0].Rule)
	assert.Equal(t, "error", got.Issues[0].Severity)
	assert.Equal(t, "warning", got.Issues[1].Severity)
}

func TestReporterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, lint.NewReporter(&buf, lint.FormatText).Report(nil))
	assert.Zero(t, buf.Len())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    lint.Format
		wantErr bool
	}{
		{name: "", want: lint.FormatText},
		{name: "text", want: lint.FormatText},
		{name: "json", want: lint.FormatJSON},
		{name: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := lint.ParseFormat(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
