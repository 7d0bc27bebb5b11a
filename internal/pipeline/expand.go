package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/savaki/gox/slicex"
)

// knownAxes are the matrix axes expansion understands, keyed to Cell
// fields.
var knownAxes = map[string]struct{}{
	"go":   {},
	"os":   {},
	"dist": {},
	"arch": {},
}

// Expand materializes the cell list an external CI runner would execute:
// the cartesian product of the declared axes, minus exclusions, plus
// explicit include cells, every cell resolved against the globals. It
// describes only; no ordering or execution policy is implied.
func Expand(p *Pipeline) ([]Cell, error) {
	m := p.Matrix

	for axis := range m.Axes {
		if _, ok := knownAxes[axis]; !ok {
			return nil, fmt.Errorf("unknown matrix axis %q", axis)
		}
	}
	if len(m.Axes) == 0 && len(m.Include) == 0 {
		return nil, fmt.Errorf("matrix declares no axes and no include cells: the pipeline tests nothing")
	}

	var cells []Cell
	if len(m.Axes) > 0 {
		for _, combo := range cartesian(m.Axes) {
			cell := Cell{
				Go:   combo["go"],
				OS:   combo["os"],
				Dist: combo["dist"],
				Arch: combo["arch"],
			}
			if excluded(m.Exclude, cell) {
				continue
			}
			cells = append(cells, cell)
		}
	}
	cells = append(cells, m.Include...)

	if len(cells) == 0 {
		return nil, fmt.Errorf("matrix expansion yields no cells: every combination is excluded")
	}

	resolved := slicex.Map(cells, func(c Cell) Cell {
		return resolveCell(p.Global, c)
	})
	return resolved, nil
}

// cartesian walks the axes in sorted key order, values in declared
// order, so expansion is deterministic.
func cartesian(axes map[string][]string) []map[string]string {
	combos := []map[string]string{{}}
	for _, axis := range slices.Sorted(maps.Keys(axes)) {
		var next []map[string]string
		for _, combo := range combos {
			for _, value := range axes[axis] {
				c := maps.Clone(combo)
				c[axis] = value
				next = append(next, c)
			}
		}
		combos = next
	}
	return combos
}

func excluded(selectors []CellSelector, c Cell) bool {
	for _, s := range selectors {
		if s.Matches(c) {
			return true
		}
	}
	return false
}

// resolveCell fills a cell's zero-value fields from the globals. Global
// env comes first so cell assignments win on conflict; a cell with no
// authored name gets a synthesized display name.
func resolveCell(g Global, c Cell) Cell {
	if c.Go == "" {
		c.Go = g.Go
	}
	if c.OS == "" {
		c.OS = g.OS
	}
	if c.Dist == "" {
		c.Dist = g.Dist
	}
	if c.Arch == "" {
		c.Arch = g.Arch
	}
	if len(c.BeforeInstall) == 0 {
		c.BeforeInstall = g.BeforeInstall
	}
	if len(c.Install) == 0 {
		c.Install = g.Install
	}
	if len(c.Script) == 0 {
		c.Script = g.Script
	}

	merged := make(EnvList, 0, len(g.Env)+len(c.Env))
	merged = append(merged, g.Env...)
	merged = append(merged, c.Env...)
	c.Env = merged

	if c.Name == "" {
		c.Name = displayName(c)
	}
	return c
}

// displayName synthesizes names like "go1.22/linux/jammy" from the
// populated selectors.
func displayName(c Cell) string {
	var parts []string
	if c.Go != "" {
		parts = append(parts, "go"+c.Go)
	}
	if c.OS != "" {
		parts = append(parts, c.OS)
	}
	if c.Dist != "" {
		parts = append(parts, c.Dist)
	}
	if c.Arch != "" {
		parts = append(parts, c.Arch)
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, "/")
}
