package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/lifio/readlif/internal/buildinfo"
	"github.com/lifio/readlif/internal/pipeline"
	"github.com/lifio/readlif/internal/policy"
)

func releasePlanCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Preview what CI would run for the current build context",
		Description: `Expands the build matrix and renders the per-cell plan: toolchain,
os image, environment and the commands of the selected test
environment. The release gate is then evaluated against the current
build context (CI environment variables) to preview whether a publish
would be admitted.

Examples:
  readlif release plan
  readlif release plan --config ci/release.yml --json`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit the plan as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			return releasePlanAction(c, logger)
		},
	}
}

type cellPlan struct {
	Name     string   `json:"name"`
	Go       string   `json:"go,omitempty"`
	OS       string   `json:"os,omitempty"`
	Dist     string   `json:"dist,omitempty"`
	Arch     string   `json:"arch,omitempty"`
	Env      []string `json:"env,omitempty"`
	TestEnv  string   `json:"testenv,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

type deployPlan struct {
	Provider      string   `json:"provider"`
	Location      string   `json:"location"`
	Distributions []string `json:"distributions,omitempty"`
	SkipExisting  bool     `json:"skip_existing"`
}

type releasePlan struct {
	Version  string           `json:"version"`
	Cells    []cellPlan       `json:"cells"`
	Deploy   *deployPlan      `json:"deploy,omitempty"`
	Decision *policy.Decision `json:"decision,omitempty"`
}

func releasePlanAction(c *cli.Context, logger *zerolog.Logger) error {
	p, err := pipeline.Load(c.String("config"))
	if err != nil {
		return err
	}

	cells, err := pipeline.Expand(p)
	if err != nil {
		return err
	}
	logger.Debug().Int("cells", len(cells)).Msg("expanded build matrix")

	bctx := buildinfo.FromEnv()
	plan := releasePlan{Version: bctx.Version()}
	for _, cell := range cells {
		cp := cellPlan{
			Name:    cell.Name,
			Go:      cell.Go,
			OS:      cell.OS,
			Dist:    cell.Dist,
			Arch:    cell.Arch,
			TestEnv: cell.TestEnvName(),
		}
		for _, v := range cell.Env {
			cp.Env = append(cp.Env, v.String())
		}
		if env, ok := p.TestEnv(cp.TestEnv); ok {
			cp.Commands = []string(env.Commands)
		}
		plan.Cells = append(plan.Cells, cp)
	}

	if len(p.Deploys) > 0 {
		gate, err := policy.NewGate()
		if err != nil {
			return err
		}
		decision, err := gate.Evaluate(c.Context, p.Deploys, bctx)
		if err != nil {
			return err
		}

		deploy := p.Deploys[0]
		plan.Deploy = &deployPlan{
			Provider:      deploy.Provider,
			Location:      deployLocation(deploy),
			Distributions: []string(deploy.Distributions),
			SkipExisting:  deploy.SkipExisting,
		}
		plan.Decision = decision
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Build matrix: %d cell(s)\n", len(plan.Cells))
	fmt.Println(strings.Repeat("=", 60))
	for i, cell := range plan.Cells {
		fmt.Println()
		fmt.Printf("[%d] %s\n", i+1, cell.Name)
		if cell.Go != "" {
			fmt.Printf("    go:      %s\n", cell.Go)
		}
		if cell.OS != "" || cell.Dist != "" {
			fmt.Printf("    os:      %s\n", strings.TrimSpace(cell.OS+" "+cell.Dist))
		}
		if cell.Arch != "" {
			fmt.Printf("    arch:    %s\n", cell.Arch)
		}
		if len(cell.Env) > 0 {
			fmt.Printf("    env:     %s\n", strings.Join(cell.Env, " "))
		}
		if cell.TestEnv != "" {
			fmt.Printf("    testenv: %s\n", cell.TestEnv)
		}
		for _, cmd := range cell.Commands {
			fmt.Printf("      $ %s\n", cmd)
		}
	}

	fmt.Println()
	if plan.Deploy == nil {
		fmt.Println("Deploy: none declared")
		return nil
	}

	fmt.Printf("Deploy: %s (%s)\n", plan.Deploy.Location, strings.Join(plan.Deploy.Distributions, ", "))
	if plan.Deploy.SkipExisting {
		fmt.Println("        existing coordinates are skipped")
	}
	if plan.Decision.Allowed {
		fmt.Printf("Gate:   would publish version %s\n", plan.Version)
	} else {
		fmt.Println("Gate:   would skip publication:")
		for _, violation := range plan.Decision.Violations {
			fmt.Printf("  - %s\n", violation)
		}
	}
	return nil
}
