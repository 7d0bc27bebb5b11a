package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/lifio/readlif/internal/lint"
	"github.com/lifio/readlif/internal/pipeline"
)

func releaseLintCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "Check the release configuration for broken publish plumbing",
		Description: `Runs every lint rule against the configuration: matrix expansion,
deploy declaration, gate reachability, test environment references,
distribution kinds and token references.

Exits 1 when any error-severity issue is found. Warnings alone exit 0.

Examples:
  readlif release lint
  readlif release lint --config ci/release.yml --json`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit issues as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return releaseLintAction(c, logger)
		},
	}
}

func releaseLintAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := pipeline.Load(c.String("config"))
	if err != nil {
		return err
	}

	issues := lint.New().Run(p)
	logger.Debug().Int("issues", len(issues)).Msg("lint finished")

	format := lint.FormatText
	if c.Bool("json") {
		format = lint.FormatJSON
	}
	if err := lint.NewReporter(c.App.Writer, format).Report(issues); err != nil {
		return err
	}

	if lint.HasErrors(issues) {
		errs := 0
		for _, issue := range issues {
			if issue.Severity == lint.SeverityError {
				errs++
			}
		}
		return cli.Exit(fmt.Sprintf("%d lint error(s)", errs), 1)
	}

	if len(issues) == 0 && !c.Bool("json") {
		fmt.Println("Configuration is clean")
	}
	return nil
}
