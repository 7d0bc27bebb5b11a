// Package registry publishes release artifacts to an artifact store
// keyed by coordinate. Two stores are provided: S3 (and S3-compatible
// endpoints) and a local directory. The publisher on top implements the
// skip-existing contract: re-publishing an already-present coordinate
// is an error unless the deploy opts into skipping it.
package registry

import (
	"context"
	"fmt"
	"strings"
)

// Coord represents an artifact coordinate in format {name}/{version}/{file}
// Example: readlif/1.2.3/readlif-1.2.3.src.tar.gz
type Coord string

// NewCoord creates a coordinate from its components.
func NewCoord(name, version, file string) Coord {
	return Coord(fmt.Sprintf("%s/%s/%s", name, version, file))
}

// ParseCoord parses a coordinate into its components.
func ParseCoord(c Coord) (name, version, file string, err error) {
	parts := strings.Split(string(c), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid coordinate format: %s, expected {name}/{version}/{file}", c)
	}
	return parts[0], parts[1], parts[2], nil
}

// String returns the string representation of the coordinate.
func (c Coord) String() string {
	return string(c)
}

// Registry is an artifact store addressed by coordinate.
type Registry interface {
	// Exists reports whether the coordinate is already published.
	Exists(ctx context.Context, coord Coord) (bool, error)

	// Put uploads the file at path to the coordinate.
	Put(ctx context.Context, coord Coord, path string) error

	// Location renders where the coordinate lives, for reports and logs.
	Location(coord Coord) string
}
