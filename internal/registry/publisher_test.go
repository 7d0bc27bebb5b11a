package registry_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifio/readlif/internal/buildinfo"
	"github.com/lifio/readlif/internal/dist"
	apperrors "github.com/lifio/readlif/internal/errors"
	"github.com/lifio/readlif/internal/pipeline"
	"github.com/lifio/readlif/internal/policy"
	"github.com/lifio/readlif/internal/registry"
	"github.com/lifio/readlif/internal/secrets"
)

func writeArtifacts(t *testing.T) []dist.Artifact {
	t.Helper()

	dir := t.TempDir()
	specs := []struct {
		kind string
		name string
	}{
		{kind: dist.KindSource, name: "readlif-1.2.3.src.tar.gz"},
		{kind: dist.KindBinary, name: "readlif-1.2.3.linux-amd64.tar.gz"},
	}

	var artifacts []dist.Artifact
	for _, spec := range specs {
		path := filepath.Join(dir, spec.name)
		content := []byte("contents of " + spec.name)
		require.NoError(t, os.WriteFile(path, content, 0o644))

		sum := sha256.Sum256(content)
		artifacts = append(artifacts, dist.Artifact{
			Kind:    spec.kind,
			Name:    spec.name,
			Path:    path,
			Version: "1.2.3",
			SHA256:  hex.EncodeToString(sum[:]),
			Size:    int64(len(content)),
		})
	}
	return artifacts
}

func taggedBuild() buildinfo.Context {
	return buildinfo.Context{
		Repo:   "lifio/readlif",
		Tag:    "v1.2.3",
		Commit: "0123456789abcdef",
	}
}

func newPublisher(reg registry.Registry, dryRun bool) *registry.Publisher {
	resolver := secrets.NewResolver(map[string]secrets.Source{
		secrets.SchemeEnv: secrets.EnvSource{},
	})
	return registry.NewPublisher(reg, resolver, zerolog.Nop(), dryRun)
}

func TestPublishUploads(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)
	artifacts := writeArtifacts(t)

	report, err := newPublisher(reg, false).Publish(ctx, registry.PublishInput{
		Project:   "readlif",
		Deploy:    pipeline.Deploy{Provider: pipeline.ProviderLocal, Dir: dir},
		Decision:  &policy.Decision{Allowed: true},
		Artifacts: artifacts,
		Build:     taggedBuild(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "1.2.3", report.Version)
	assert.False(t, report.DryRun)
	require.Len(t, report.Results, 2)

	for i, result := range report.Results {
		assert.Equal(t, registry.OutcomeUploaded, result.Outcome)
		assert.Equal(t, registry.NewCoord("readlif", "1.2.3", artifacts[i].Name), result.Coord)

		stored, err := os.ReadFile(filepath.Join(dir, "readlif", "1.2.3", artifacts[i].Name))
		require.NoError(t, err)
		original, err := os.ReadFile(artifacts[i].Path)
		require.NoError(t, err)
		assert.Equal(t, original, stored)
	}
}

func TestPublishDeniedGate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)
	pub := newPublisher(reg, false)

	denied := &policy.Decision{Allowed: false, Violations: []string{"not a tagged commit"}}
	report, err := pub.Publish(ctx, registry.PublishInput{
		Project:   "readlif",
		Deploy:    pipeline.Deploy{Provider: pipeline.ProviderLocal, Dir: dir},
		Decision:  denied,
		Artifacts: writeArtifacts(t),
		Build:     taggedBuild(),
	})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, denied, report.Decision)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPublishSkipExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)
	artifacts := writeArtifacts(t)

	coord := registry.NewCoord("readlif", "1.2.3", artifacts[0].Name)
	require.NoError(t, reg.Put(ctx, coord, artifacts[0].Path))

	report, err := newPublisher(reg, false).Publish(ctx, registry.PublishInput{
		Project: "readlif",
		Deploy: pipeline.Deploy{
			Provider:     pipeline.ProviderLocal,
			Dir:          dir,
			SkipExisting: true,
		},
		Decision:  &policy.Decision{Allowed: true},
		Artifacts: artifacts,
		Build:     taggedBuild(),
	})
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, registry.OutcomeSkipped, report.Results[0].Outcome)
	assert.Equal(t, registry.OutcomeUploaded, report.Results[1].Outcome)
}

func TestPublishExistingConflict(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)
	artifacts := writeArtifacts(t)

	coord := registry.NewCoord("readlif", "1.2.3", artifacts[0].Name)
	require.NoError(t, reg.Put(ctx, coord, artifacts[0].Path))

	_, err := newPublisher(reg, false).Publish(ctx, registry.PublishInput{
		Project:   "readlif",
		Deploy:    pipeline.Deploy{Provider: pipeline.ProviderLocal, Dir: dir},
		Decision:  &policy.Decision{Allowed: true},
		Artifacts: artifacts,
		Build:     taggedBuild(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrArtifactExists)
	assert.Contains(t, err.Error(), coord.String())
}

func TestPublishDryRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)

	report, err := newPublisher(reg, true).Publish(ctx, registry.PublishInput{
		Project:   "readlif",
		Deploy:    pipeline.Deploy{Provider: pipeline.ProviderLocal, Dir: dir},
		Decision:  &policy.Decision{Allowed: true},
		Artifacts: writeArtifacts(t),
		Build:     taggedBuild(),
	})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	require.Len(t, report.Results, 2)
	for _, result := range report.Results {
		assert.Equal(t, registry.OutcomePlanned, result.Outcome)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPublishTokenMissing(t *testing.T) {
	t.Setenv("READLIF_RELEASE_TOKEN", "")

	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)

	_, err := newPublisher(reg, false).Publish(ctx, registry.PublishInput{
		Project: "readlif",
		Deploy: pipeline.Deploy{
			Provider: pipeline.ProviderLocal,
			Dir:      dir,
			Token:    "env:READLIF_RELEASE_TOKEN",
		},
		Decision:  &policy.Decision{Allowed: true},
		Artifacts: writeArtifacts(t),
		Build:     taggedBuild(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTokenMissing)
	assert.Contains(t, err.Error(), "env:READLIF_RELEASE_TOKEN")
}

func TestPublishTokenResolved(t *testing.T) {
	t.Setenv("READLIF_RELEASE_TOKEN", "tkn-123")

	ctx := context.Background()
	dir := t.TempDir()
	reg := registry.NewLocalRegistry(dir)

	report, err := newPublisher(reg, false).Publish(ctx, registry.PublishInput{
		Project: "readlif",
		Deploy: pipeline.Deploy{
			Provider: pipeline.ProviderLocal,
			Dir:      dir,
			Token:    "env:READLIF_RELEASE_TOKEN",
		},
		Decision:  &policy.Decision{Allowed: true},
		Artifacts: writeArtifacts(t),
		Build:     taggedBuild(),
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, registry.OutcomeUploaded, report.Results[0].Outcome)
}
