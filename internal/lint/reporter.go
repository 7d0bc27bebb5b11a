package lint

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// Format selects the reporter output format.
type Format int

const (
	// FormatText outputs one human-readable line per issue.
	FormatText Format = iota
	// FormatJSON outputs issues as a JSON document.
	FormatJSON
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat maps a format name to its Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unsupported lint output format %q", name)
	}
}

// Reporter formats and writes linting issues.
type Reporter struct {
	writer io.Writer
	format Format
}

// NewReporter creates a Reporter with the given output writer and format.
func NewReporter(writer io.Writer, format Format) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Report writes the issues to the output writer. Issues are sorted by
// severity, rule, cell and message so output is stable across runs.
func (r *Reporter) Report(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}

	sorted := make([]Issue, len(issues))
	copy(sorted, issues)
	slices.SortFunc(sorted, compareIssues)

	switch r.format {
	case FormatText:
		return r.reportText(sorted)
	case FormatJSON:
		return r.reportJSON(sorted)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) reportText(issues []Issue) error {
	for _, issue := range issues {
		if _, err := fmt.Fprintln(r.writer, issue.String()); err != nil {
			return fmt.Errorf("failed to write text output: %w", err)
		}
	}
	return nil
}

func (r *Reporter) reportJSON(issues []Issue) error {
	output := struct {
		Issues []Issue `json:"issues"`
	}{
		Issues: issues,
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// compareIssues orders errors before warnings, then groups by rule, cell
// and message.
func compareIssues(a, b Issue) int {
	return cmp.Or(
		cmp.Compare(a.Severity, b.Severity),
		cmp.Compare(a.Rule, b.Rule),
		cmp.Compare(a.Cell, b.Cell),
		cmp.Compare(a.Message, b.Message),
	)
}
