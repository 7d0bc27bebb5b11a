// Package export writes image planes to disk as PNG files, in parallel
// across planes with bounded concurrency. File names derive from the
// image name via slugify plus a short path hash, so two images with the
// same name in different folders never collide.
package export

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lifio/readlif"
	"github.com/lifio/readlif/internal/slug"
)

// DefaultConcurrency bounds parallel plane writes when the request does
// not say otherwise.
const DefaultConcurrency = 4

// AxisSel selects either a single index or every index along one axis.
type AxisSel struct {
	All   bool
	Index int
}

func (s AxisSel) indices(n int) []int {
	if !s.All {
		return []int{s.Index}
	}
	out := make([]int, n)
	for i := range n {
		out[i] = i
	}
	return out
}

// Request describes one export run over a single image.
type Request struct {
	OutDir      string
	Z, T, C, M  AxisSel
	Concurrency int
}

// Exporter writes planes as PNGs.
type Exporter struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export writes every selected plane and returns the written paths in
// plane order (m, then t, then c, then z varying fastest).
func (e *Exporter) Export(ctx context.Context, img *readlif.Image, req Request) ([]string, error) {
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	base := slug.WithHash(img.Name, img.Path)
	planes := e.plan(img, req, base)

	concurrency := req.Concurrency
	if concurrency < 1 || concurrency > 16 {
		concurrency = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	paths := make([]string, len(planes))
	for i, p := range planes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := e.writePlane(img, p, req.OutDir)
			if err != nil {
				return err
			}
			paths[i] = path

			e.logger.Debug().
				Str("image", img.Name).
				Str("path", path).
				Msg("wrote plane")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

type planeAddr struct {
	z, t, c, m int
	name       string
}

func (e *Exporter) plan(img *readlif.Image, req Request, base string) []planeAddr {
	var planes []planeAddr
	for _, m := range req.M.indices(img.Dims.M) {
		for _, t := range req.T.indices(img.Dims.T) {
			for _, c := range req.C.indices(img.Dims.C) {
				for _, z := range req.Z.indices(img.Dims.Z) {
					name := fmt.Sprintf("%s_z%03d_t%03d_c%02d", base, z, t, c)
					if img.Dims.M > 1 {
						name = fmt.Sprintf("%s_m%03d", name, m)
					}
					planes = append(planes, planeAddr{
						z: z, t: t, c: c, m: m,
						name: name + ".png",
					})
				}
			}
		}
	}
	return planes
}

// writePlane renders one plane to a pending file and renames it into
// place, so readers never observe a partial PNG.
func (e *Exporter) writePlane(img *readlif.Image, p planeAddr, outDir string) (string, error) {
	plane, err := img.Frame(p.z, p.t, p.c, p.m)
	if err != nil {
		return "", err
	}

	path := filepath.Join(outDir, p.name)
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to create pending file %s: %w", p.name, err)
	}
	defer pending.Cleanup()

	if err := png.Encode(pending, plane.GrayImage()); err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", p.name, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p.name, err)
	}
	return path, nil
}
