package registry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/savaki/gox/slicex"
	"github.com/segmentio/ksuid"

	"github.com/lifio/readlif/internal/buildinfo"
	"github.com/lifio/readlif/internal/dist"
	"github.com/lifio/readlif/internal/errors"
	"github.com/lifio/readlif/internal/pipeline"
	"github.com/lifio/readlif/internal/policy"
	"github.com/lifio/readlif/internal/secrets"
)

// Per-artifact outcomes.
const (
	OutcomeUploaded = "uploaded"
	OutcomeSkipped  = "skipped"
	OutcomePlanned  = "planned"
)

// PublishInput carries everything one publish run needs.
type PublishInput struct {
	// Project names the coordinate namespace artifacts publish under.
	Project string

	Deploy    pipeline.Deploy
	Decision  *policy.Decision
	Artifacts []dist.Artifact
	Build     buildinfo.Context
}

// ArtifactResult records what happened to one artifact.
type ArtifactResult struct {
	Artifact dist.Artifact `json:"artifact"`
	Coord    Coord         `json:"coord"`
	Location string        `json:"location"`
	Outcome  string        `json:"outcome"`
}

// PublishReport is the per-run record. A report with a denying decision
// and no results is a successful no-op run.
type PublishReport struct {
	RunID    string           `json:"run_id"`
	Version  string           `json:"version"`
	DryRun   bool             `json:"dry_run"`
	Decision *policy.Decision `json:"decision,omitempty"`
	Results  []ArtifactResult `json:"results,omitempty"`
}

// Publisher uploads built artifacts to a registry under the deploy's
// skip-existing contract. In dry-run mode it resolves the same
// decisions but uploads nothing.
type Publisher struct {
	registry Registry
	resolver *secrets.Resolver
	logger   zerolog.Logger
	dryRun   bool
}

func NewPublisher(registry Registry, resolver *secrets.Resolver, logger zerolog.Logger, dryRun bool) *Publisher {
	return &Publisher{
		registry: registry,
		resolver: resolver,
		logger:   logger.With().Str("service", "publisher").Logger(),
		dryRun:   dryRun,
	}
}

// Publish runs one publication pass. A denied gate decision returns a
// report with no results and no error; publishing over an existing
// coordinate without skip_existing fails with ErrArtifactExists.
func (p *Publisher) Publish(ctx context.Context, in PublishInput) (*PublishReport, error) {
	report := &PublishReport{
		RunID:    ksuid.New().String(),
		Version:  in.Build.Version(),
		DryRun:   p.dryRun,
		Decision: in.Decision,
	}
	logger := p.logger.With().
		Str("run_id", report.RunID).
		Str("version", report.Version).
		Logger()

	if in.Decision == nil || !in.Decision.Allowed {
		logger.Info().Msg("release gate denied publication")
		return report, nil
	}

	if in.Deploy.Token != "" {
		// Only the resolved token's presence matters here; the value
		// stays out of the report and the logs.
		if _, err := p.resolver.Token(ctx, in.Deploy.Token); err != nil {
			return nil, fmt.Errorf("failed to resolve deploy token %s: %w", in.Deploy.Token, err)
		}
		logger.Debug().Str("token_ref", in.Deploy.Token).Msg("resolved deploy token")
	}

	coords := slicex.Map(in.Artifacts, func(a dist.Artifact) Coord {
		return NewCoord(in.Project, a.Version, a.Name)
	})

	// Check all coordinates concurrently before moving any bytes.
	callback := func(ctx context.Context, coord Coord) (bool, error) {
		return p.registry.Exists(ctx, coord)
	}
	existing, err := slicex.MapConcurrent(callback).
		Concurrency(8).
		CollectErrors().
		DoValues(ctx, coords...)
	if err != nil {
		return nil, fmt.Errorf("failed to check artifact existence: %w", err)
	}

	for i, artifact := range in.Artifacts {
		coord := coords[i]
		location := p.registry.Location(coord)

		if existing[i] {
			if !in.Deploy.SkipExisting {
				return nil, fmt.Errorf("%w: %s already published at %s", errors.ErrArtifactExists, coord, location)
			}
			logger.Info().
				Str("coord", coord.String()).
				Msg("artifact already published, skipping")
			report.Results = append(report.Results, ArtifactResult{
				Artifact: artifact,
				Coord:    coord,
				Location: location,
				Outcome:  OutcomeSkipped,
			})
			continue
		}

		if p.dryRun {
			logger.Info().
				Str("coord", coord.String()).
				Str("location", location).
				Msg("dry-run: would upload artifact")
			report.Results = append(report.Results, ArtifactResult{
				Artifact: artifact,
				Coord:    coord,
				Location: location,
				Outcome:  OutcomePlanned,
			})
			continue
		}

		if err := p.registry.Put(ctx, coord, artifact.Path); err != nil {
			return nil, err
		}
		logger.Info().
			Str("coord", coord.String()).
			Str("location", location).
			Int64("size", artifact.Size).
			Msg("uploaded artifact")
		report.Results = append(report.Results, ArtifactResult{
			Artifact: artifact,
			Coord:    coord,
			Location: location,
			Outcome:  OutcomeUploaded,
		})
	}

	return report, nil
}
