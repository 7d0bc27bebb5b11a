package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/lifio/readlif"
	"github.com/lifio/readlif/internal/export"
)

// ExtractCommand returns the extract command for exporting image planes
func ExtractCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Aliases:   []string{"x"},
		Usage:     "Export image planes from a LIF file as PNG",
		ArgsUsage: "<file.lif>",
		Description: `Exports planes of one image as grayscale PNG files, 8 or 16 bit
depending on the channel resolution.

Each axis is selected independently: a fixed index (--z 3) or every
index (--all-z). Unselected axes stay at index 0. Output names combine
the slugified image name, a short content hash and the plane address,
so exports of equally named series never collide.

Examples:
  # First plane of the first image
  readlif extract experiment.lif

  # Every z slice of image 2, channel 1
  readlif extract --image 2 --all-z --c 1 experiment.lif

  # Full hyperstack of one image into ./planes
  readlif extract --image 0 --all-z --all-t --all-c --out planes experiment.lif`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Index of the image to export",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   ".",
			},
			&cli.IntFlag{Name: "z", Usage: "z slice to export"},
			&cli.IntFlag{Name: "t", Usage: "Timepoint to export"},
			&cli.IntFlag{Name: "c", Usage: "Channel to export"},
			&cli.IntFlag{Name: "m", Usage: "Mosaic tile to export"},
			&cli.BoolFlag{Name: "all-z", Usage: "Export every z slice"},
			&cli.BoolFlag{Name: "all-t", Usage: "Export every timepoint"},
			&cli.BoolFlag{Name: "all-c", Usage: "Export every channel"},
			&cli.BoolFlag{Name: "all-m", Usage: "Export every mosaic tile"},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Max concurrent plane writes",
				Value: export.DefaultConcurrency,
			},
		},
		Action: func(c *cli.Context) error {
			return extractAction(c, logger)
		},
	}
}

func extractAction(c *cli.Context, logger *zerolog.Logger) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one LIF file argument")
	}
	path := c.Args().First()

	f, err := readlif.Open(path)
	if err != nil {
		return err
	}
	img, err := f.Image(c.Int("image"))
	if err != nil {
		return err
	}

	req := export.Request{
		OutDir:      c.String("out"),
		Z:           axisSel(c, "z"),
		T:           axisSel(c, "t"),
		C:           axisSel(c, "c"),
		M:           axisSel(c, "m"),
		Concurrency: c.Int("concurrency"),
	}

	ctx := logger.WithContext(c.Context)
	paths, err := export.New(*logger).Export(ctx, img, req)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d plane(s) to %s\n", len(paths), req.OutDir)
	return nil
}

func axisSel(c *cli.Context, axis string) export.AxisSel {
	if c.Bool("all-" + axis) {
		return export.AxisSel{All: true}
	}
	return export.AxisSel{Index: c.Int(axis)}
}
