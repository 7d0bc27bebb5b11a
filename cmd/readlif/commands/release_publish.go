package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/lifio/readlif/internal/buildinfo"
	"github.com/lifio/readlif/internal/di"
	"github.com/lifio/readlif/internal/dist"
	"github.com/lifio/readlif/internal/errors"
	"github.com/lifio/readlif/internal/pipeline"
	"github.com/lifio/readlif/internal/policy"
	"github.com/lifio/readlif/internal/registry"
)

func releasePublishCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Build distributions and publish them through the release gate",
		Description: `Evaluates the release gate against the current build context, builds
the declared distributions, and publishes them to the configured
registry with skip-existing semantics.

The default is a dry run: artifacts are built and every decision is
made, but nothing is uploaded. Use --execute to upload.

A denied gate is not an error. It is the normal outcome on non-tag
builds, and the run exits 0 without publishing, the same way the CI
deploy step simply does not run. Use --strict to exit 1 on denial.

Examples:
  # Dry run - show what would be published (default)
  readlif release publish

  # Publish for real
  readlif release publish --execute

  # Publish without the confirmation prompt (CI)
  readlif release publish --execute --force

  # Fail the build when the gate denies
  readlif release publish --execute --force --strict`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project name artifacts publish under (default: working directory name)",
				EnvVars: []string{"READLIF_PROJECT"},
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Directory distributions are staged in (default: ./dist)",
			},
			&cli.BoolFlag{
				Name:    "execute",
				Aliases: []string{"x"},
				Usage:   "Actually upload artifacts (default is dry-run)",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Skip confirmation prompt",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Exit 1 when the release gate denies publication",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit the publish report as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return releasePublishAction(c, logger)
		},
	}
}

func releasePublishAction(c *cli.Context, logger *zerolog.Logger) error {
	execute := c.Bool("execute")

	container, err := di.New(
		di.WithConfigPath(c.String("config")),
		di.WithStagingDir(c.String("dir")),
		di.WithProject(c.String("project")),
		di.WithDryRun(!execute),
	)
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}

	ctx := logger.WithContext(c.Context)

	// The gate is checked before any AWS client or registry is built, so
	// a denial on an untagged build touches nothing.
	var (
		p    *pipeline.Pipeline
		gate *policy.Gate
		bctx buildinfo.Context
	)
	if err := container.Invoke(func(gotPipeline *pipeline.Pipeline, gotGate *policy.Gate, gotBuild buildinfo.Context) {
		p, gate, bctx = gotPipeline, gotGate, gotBuild
	}); err != nil {
		return err
	}

	deploy, err := p.Deploy()
	if err != nil {
		return err
	}

	decision, err := gate.Evaluate(ctx, p.Deploys, bctx)
	if err != nil {
		return err
	}

	if !decision.Allowed {
		if c.Bool("json") {
			out, err := json.MarshalIndent(decision, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode decision: %w", err)
			}
			fmt.Println(string(out))
		} else {
			fmt.Println("Release gate denied publication:")
			for _, violation := range decision.Violations {
				fmt.Printf("  - %s\n", violation)
			}
		}
		if c.Bool("strict") {
			return fmt.Errorf("%w: %s", errors.ErrGateDenied, strings.Join(decision.Violations, "; "))
		}
		return nil
	}

	var (
		builder   *dist.Builder
		publisher *registry.Publisher
	)
	if err := container.Invoke(func(gotBuilder *dist.Builder, gotPublisher *registry.Publisher) {
		builder, publisher = gotBuilder, gotPublisher
	}); err != nil {
		return err
	}

	version := bctx.Version()
	artifacts, err := builder.BuildAll(ctx, deploy.Distributions, version)
	if err != nil {
		return err
	}
	for _, artifact := range artifacts {
		logger.Info().
			Str("artifact", artifact.Name).
			Int64("size", artifact.Size).
			Msg("built distribution")
	}

	// Confirmation prompt
	if execute && !c.Bool("force") {
		fmt.Printf("About to publish %d artifact(s) to %s.\n", len(artifacts), deployLocation(deploy))
		fmt.Print("Are you sure? (yes/no): ")
		var response string
		fmt.Scanln(&response)
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "yes" && response != "y" {
			fmt.Println("Publication cancelled")
			return nil
		}
	}

	report, err := publisher.Publish(ctx, registry.PublishInput{
		Project:   builder.ProjectName,
		Deploy:    deploy,
		Decision:  decision,
		Artifacts: artifacts,
		Build:     bctx,
	})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Publish run %s (version %s)\n", report.RunID, report.Version)
	for _, result := range report.Results {
		fmt.Printf("  %-8s %s\n", result.Outcome, result.Location)
	}
	if report.DryRun {
		fmt.Println()
		fmt.Println("DRY RUN: Nothing was uploaded. Use --execute to publish.")
	}
	return nil
}
