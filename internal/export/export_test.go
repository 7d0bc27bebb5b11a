package export_test

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lifio/readlif"
	"github.com/lifio/readlif/internal/export"
	"github.com/lifio/readlif/liftest"
)

func stackElement(name string) string {
	return `<Element Name="` + name + `"><Data><Image><ImageDescription><Dimensions>` +
		`<DimensionDescription DimID="1" NumberOfElements="2" BytesInc="1" Length="1e-06"/>` +
		`<DimensionDescription DimID="2" NumberOfElements="2" BytesInc="2" Length="1e-06"/>` +
		`<DimensionDescription DimID="3" NumberOfElements="2" BytesInc="8" Length="2e-06"/>` +
		`<DimensionDescription DimID="4" NumberOfElements="2" BytesInc="16" Length="2"/>` +
		`</Dimensions><Channels>` +
		`<ChannelDescription BytesInc="0" Resolution="8"/>` +
		`<ChannelDescription BytesInc="4" Resolution="8"/>` +
		`</Channels></ImageDescription></Image></Data></Element>`
}

func openStack(t *testing.T) *readlif.Image {
	t.Helper()

	// Eight planes of four bytes each, plane k filled with the byte k.
	data := make([]byte, 32)
	for k := 0; k < 8; k++ {
		for j := 0; j < 4; j++ {
			data[k*4+j] = byte(k)
		}
	}
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(stackElement("Stack 1")),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: data}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	return f.Images()[0]
}

func decodeGray(t *testing.T, path string) *image.Gray {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := png.Decode(f)
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray)
	require.True(t, ok, "expected 8-bit grayscale PNG")
	return gray
}

func TestExportSinglePlane(t *testing.T) {
	data := make([]byte, 12)
	for i := range data {
		data[i] = byte(i)
	}
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(liftest.GrayElement("Series 1", 4, 3)),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: data}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	img := f.Images()[0]

	outDir := t.TempDir()
	paths, err := export.New(zerolog.Nop()).Export(context.Background(), img, export.Request{
		OutDir: outDir,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)

	name := filepath.Base(paths[0])
	assert.True(t, strings.HasPrefix(name, "series-1-"), name)
	assert.True(t, strings.HasSuffix(name, "_z000_t000_c00.png"), name)

	gray := decodeGray(t, paths[0])
	assert.Equal(t, 4, gray.Bounds().Dx())
	assert.Equal(t, 3, gray.Bounds().Dy())
	assert.Equal(t, uint8(5), gray.GrayAt(1, 1).Y)
}

func TestExportAllZ(t *testing.T) {
	img := openStack(t)

	outDir := t.TempDir()
	paths, err := export.New(zerolog.Nop()).Export(context.Background(), img, export.Request{
		OutDir: outDir,
		Z:      export.AxisSel{All: true},
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Contains(t, filepath.Base(paths[0]), "_z000_t000_c00")
	assert.Contains(t, filepath.Base(paths[1]), "_z001_t000_c00")

	assert.Equal(t, uint8(0), decodeGray(t, paths[0]).GrayAt(0, 0).Y)
	assert.Equal(t, uint8(1), decodeGray(t, paths[1]).GrayAt(0, 0).Y)
}

func TestExportEveryPlane(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	img := openStack(t)

	outDir := t.TempDir()
	paths, err := export.New(zerolog.Nop()).Export(context.Background(), img, export.Request{
		OutDir:      outDir,
		Z:           export.AxisSel{All: true},
		T:           export.AxisSel{All: true},
		C:           export.AxisSel{All: true},
		Concurrency: 8,
	})
	require.NoError(t, err)
	require.Len(t, paths, 8)

	// Plane k is filled with byte k; spot-check the last one (t1, c1, z1).
	assert.Equal(t, uint8(7), decodeGray(t, paths[7]).GrayAt(1, 1).Y)

	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestExportOutOfRange(t *testing.T) {
	img := openStack(t)

	_, err := export.New(zerolog.Nop()).Export(context.Background(), img, export.Request{
		OutDir: t.TempDir(),
		Z:      export.AxisSel{Index: 5},
	})
	assert.ErrorIs(t, err, readlif.ErrFrameOutOfRange)
}
