package main

import (
	"context"
	"os"

	"github.com/lifio/readlif/cmd/readlif/commands"
	"github.com/lifio/readlif/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "readlif",
		Usage: "Leica LIF microscopy toolkit",
		Description: `Reads Leica Image File (LIF) containers and drives the project's
release pipeline.

This tool provides commands for:
  - Inspecting the image inventory of a LIF file
  - Extracting image planes as PNG files
  - Linting, planning and publishing releases from release.yml`,
		Commands: []*cli.Command{
			commands.InfoCommand(&logger),
			commands.ExtractCommand(&logger),
			commands.ReleaseCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
