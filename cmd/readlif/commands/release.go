package commands

import (
	"path"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/lifio/readlif/internal/pipeline"
)

// ReleaseCommand returns the release command group for the CI pipeline
func ReleaseCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Lint, plan and publish releases from the pipeline configuration",
		Description: `Works the release pipeline described by release.yml: lint the
configuration, preview what CI would run, and publish built
distributions to the configured registry.

Publication is guarded twice. The deploy descriptor must be satisfied
by the current build context (tag plus release flag), and re-publishing
an existing artifact coordinate fails unless skip_existing is set.`,
		Subcommands: []*cli.Command{
			releaseLintCommand(logger),
			releasePlanCommand(logger),
			releasePublishCommand(logger),
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the release configuration",
		Value:   pipeline.DefaultConfigPath,
		EnvVars: []string{"READLIF_CONFIG"},
	}
}

// deployLocation renders where a deploy descriptor points, for display.
func deployLocation(d pipeline.Deploy) string {
	switch d.Provider {
	case pipeline.ProviderS3:
		return "s3://" + path.Join(d.Bucket, d.Prefix)
	case pipeline.ProviderLocal:
		return d.Dir
	default:
		return d.Provider
	}
}
