package dist

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/google/renameio/v2"
)

// Builder produces distribution tarballs into StagingDir. The zero
// values of OS and Arch fall back to the runtime platform.
type Builder struct {
	// ProjectName prefixes every artifact file name.
	ProjectName string

	// RootDir is the module tree packed into source distributions.
	RootDir string

	// BinaryPath is the built executable packed into binary
	// distributions.
	BinaryPath string

	StagingDir string

	OS   string
	Arch string
}

// Build produces one distribution of the given kind.
func (b *Builder) Build(ctx context.Context, kind, version string) (Artifact, error) {
	switch kind {
	case KindSource:
		return b.buildSource(ctx, version)
	case KindBinary:
		return b.buildBinary(ctx, version)
	default:
		return Artifact{}, fmt.Errorf("unknown distribution kind %q", kind)
	}
}

// BuildAll produces every requested kind and writes the SHA256SUMS
// manifest next to the artifacts.
func (b *Builder) BuildAll(ctx context.Context, kinds []string, version string) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(kinds))
	for _, kind := range kinds {
		artifact, err := b.Build(ctx, kind, version)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	if _, err := WriteSums(b.StagingDir, artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (b *Builder) buildSource(ctx context.Context, version string) (Artifact, error) {
	name := fmt.Sprintf("%s-%s.src.tar.gz", b.ProjectName, version)
	prefix := fmt.Sprintf("%s-%s/", b.ProjectName, version)

	return b.writeTarball(name, KindSource, version, func(tw *tar.Writer) error {
		return b.tarTree(ctx, tw, prefix)
	})
}

func (b *Builder) buildBinary(ctx context.Context, version string) (Artifact, error) {
	osName := b.OS
	if osName == "" {
		osName = runtime.GOOS
	}
	arch := b.Arch
	if arch == "" {
		arch = runtime.GOARCH
	}

	name := fmt.Sprintf("%s-%s.%s-%s.tar.gz", b.ProjectName, version, osName, arch)
	prefix := fmt.Sprintf("%s-%s/", b.ProjectName, version)

	return b.writeTarball(name, KindBinary, version, func(tw *tar.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return b.tarFile(tw, b.BinaryPath, prefix+"bin/"+b.ProjectName)
	})
}

// writeTarball streams a gzip tarball to a pending file and renames it
// into place only after the archive is complete, hashing as it writes.
func (b *Builder) writeTarball(name, kind, version string, fill func(*tar.Writer) error) (Artifact, error) {
	if err := os.MkdirAll(b.StagingDir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create staging dir: %w", err)
	}

	path := filepath.Join(b.StagingDir, name)
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create pending artifact %s: %w", name, err)
	}
	defer pending.Cleanup()

	digest := sha256.New()
	counter := &countingWriter{}
	gz := gzip.NewWriter(io.MultiWriter(pending, digest, counter))
	tw := tar.NewWriter(gz)

	if err := fill(tw); err != nil {
		return Artifact{}, err
	}
	if err := tw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to finish archive %s: %w", name, err)
	}
	if err := gz.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to finish archive %s: %w", name, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return Artifact{}, fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	return Artifact{
		Kind:    kind,
		Name:    name,
		Path:    path,
		Version: version,
		SHA256:  hex.EncodeToString(digest.Sum(nil)),
		Size:    counter.n,
	}, nil
}

// tarTree packs the module tree, skipping VCS metadata and the staging
// directory.
func (b *Builder) tarTree(ctx context.Context, tw *tar.Writer, prefix string) error {
	staging, err := filepath.Abs(b.StagingDir)
	if err != nil {
		return fmt.Errorf("failed to resolve staging dir: %w", err)
	}

	return filepath.WalkDir(b.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if d.Name() == ".git" || abs == staging {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(b.RootDir, path)
		if err != nil {
			return err
		}
		return b.tarFile(tw, path, prefix+filepath.ToSlash(rel))
	})
}

func (b *Builder) tarFile(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to describe %s: %w", path, err)
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	return nil
}

// WriteSums writes a SHA256SUMS manifest for the artifacts, sorted by
// file name, and returns its path.
func WriteSums(dir string, artifacts []Artifact) (string, error) {
	sorted := make([]Artifact, len(artifacts))
	copy(sorted, artifacts)
	slices.SortFunc(sorted, func(a, b Artifact) int {
		return strings.Compare(a.Name, b.Name)
	})

	var sb strings.Builder
	for _, artifact := range sorted {
		fmt.Fprintf(&sb, "%s  %s\n", artifact.SHA256, artifact.Name)
	}

	path := filepath.Join(dir, "SHA256SUMS")
	if err := renameio.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write checksum manifest: %w", err)
	}
	return path, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
