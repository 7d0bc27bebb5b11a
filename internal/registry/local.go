package registry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// LocalRegistry stores artifacts in a directory tree mirroring the
// coordinate layout. It backs air-gapped runs and tests.
type LocalRegistry struct {
	dir string
}

func NewLocalRegistry(dir string) *LocalRegistry {
	return &LocalRegistry{dir: dir}
}

func (r *LocalRegistry) path(coord Coord) string {
	return filepath.Join(r.dir, filepath.FromSlash(string(coord)))
}

func (r *LocalRegistry) Exists(_ context.Context, coord Coord) (bool, error) {
	_, err := os.Stat(r.path(coord))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s: %w", r.Location(coord), err)
}

func (r *LocalRegistry) Put(_ context.Context, coord Coord, filePath string) error {
	src, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer src.Close()

	dest := r.path(coord)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	pending, err := renameio.NewPendingFile(dest)
	if err != nil {
		return fmt.Errorf("failed to create pending file for %s: %w", coord, err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, src); err != nil {
		return fmt.Errorf("failed to copy %s: %w", coord, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to store %s: %w", coord, err)
	}
	return nil
}

func (r *LocalRegistry) Location(coord Coord) string {
	return r.path(coord)
}
