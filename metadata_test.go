package readlif_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifio/readlif"
	"github.com/lifio/readlif/liftest"
)

func TestMetadataMosaic(t *testing.T) {
	element := `<Element Name="mosaic"><Data><Image><ImageDescription><Dimensions>` +
		`<DimensionDescription DimID="1" NumberOfElements="2" BytesInc="1" Length="1e-06"/>` +
		`<DimensionDescription DimID="2" NumberOfElements="2" BytesInc="2" Length="1e-06"/>` +
		`<DimensionDescription DimID="10" NumberOfElements="2" BytesInc="4" Length="1"/>` +
		`</Dimensions><Channels><ChannelDescription BytesInc="0" Resolution="8"/></Channels>` +
		`</ImageDescription>` +
		`<Attachment Name="TileScanInfo">` +
		`<Tile PosX="0.0001" PosY="0.0002"/><Tile PosX="0.0003" PosY="0.0004"/>` +
		`</Attachment>` +
		`</Image></Data></Element>`
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(element),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: []byte{1, 1, 1, 1, 2, 2, 2, 2}}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	img := f.Images()[0]

	assert.Equal(t, readlif.Dims{C: 1, Z: 1, T: 1, M: 2, Y: 2, X: 2}, img.Dims)
	assert.Equal(t, uint64(4), img.Strides[3])
	require.Len(t, img.TilePositions, 2)
	assert.InDelta(t, 100.0, img.TilePositions[0].X, 1e-9)
	assert.InDelta(t, 200.0, img.TilePositions[0].Y, 1e-9)
	assert.InDelta(t, 300.0, img.TilePositions[1].X, 1e-9)
	assert.InDelta(t, 400.0, img.TilePositions[1].Y, 1e-9)

	plane, err := img.Frame(0, 0, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 2, 2}, plane.Data)
}

func TestMetadataDefaults(t *testing.T) {
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(liftest.GrayElement("flat", 4, 2)),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: make([]byte, 8)}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	img := f.Images()[0]

	assert.Equal(t, readlif.Dims{C: 1, Z: 1, T: 1, M: 1, Y: 2, X: 4}, img.Dims)
	assert.Equal(t, [6]uint64{0, 0, 0, 0, 4, 1}, img.Strides)
	assert.InDelta(t, 1.0, img.Scale.T, 1e-9)
	require.Len(t, img.Channels, 1)
	assert.Equal(t, 8, img.Channels[0].Resolution)
	assert.Empty(t, img.TilePositions)
}

func TestMetadataScale(t *testing.T) {
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(multiDimElement("stack")),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: make([]byte, 32)}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	s := f.Images()[0].Scale

	assert.InDelta(t, 1.0, s.X, 1e-9)
	assert.InDelta(t, 1.0, s.Y, 1e-9)
	assert.InDelta(t, 1.0, s.Z, 1e-9)
	assert.InDelta(t, 1.0, s.T, 1e-9)
}

func TestMetadataZeroLength(t *testing.T) {
	element := `<Element Name="still"><Data><Image><ImageDescription><Dimensions>` +
		`<DimensionDescription DimID="1" NumberOfElements="2" BytesInc="1" Length="1e-06"/>` +
		`<DimensionDescription DimID="2" NumberOfElements="2" BytesInc="2" Length="1e-06"/>` +
		`<DimensionDescription DimID="4" NumberOfElements="2" BytesInc="8" Length="0"/>` +
		`</Dimensions><Channels><ChannelDescription BytesInc="0" Resolution="8"/></Channels>` +
		`</ImageDescription></Image></Data></Element>`
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(element),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: make([]byte, 8)}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)

	// A zero recorded length cannot yield a frame rate.
	assert.Zero(t, f.Images()[0].Scale.T)
}

func TestMetadataMissingChannels(t *testing.T) {
	element := `<Element Name="nochan"><Data><Image><ImageDescription><Dimensions>` +
		`<DimensionDescription DimID="1" NumberOfElements="2" BytesInc="1" Length="1e-06"/>` +
		`<DimensionDescription DimID="2" NumberOfElements="1" BytesInc="2" Length="1e-06"/>` +
		`</Dimensions></ImageDescription></Image></Data></Element>`
	path := liftest.Write(t, liftest.File{
		XML:    liftest.Header(element),
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: []byte{7, 9}}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	img := f.Images()[0]

	assert.Equal(t, 1, img.Dims.C)
	assert.Equal(t, 8, img.BitDepth)
	require.Len(t, img.Channels, 1)

	plane, err := img.Frame(0, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 9}, plane.Data)
}

func TestMetadataNestedFolders(t *testing.T) {
	xml := liftest.Header(
		`<Element Name="Proj"><Children><Element Name="Day1"><Children>` +
			liftest.GrayElement("img", 2, 2) +
			`</Children></Element></Children></Element>`)
	path := liftest.Write(t, liftest.File{
		XML:    xml,
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: make([]byte, 4)}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	require.Len(t, f.Images(), 1)
	assert.Equal(t, "img", f.Images()[0].Name)
	assert.Equal(t, "fixture.lif/Proj/Day1/", f.Images()[0].Path)
}

func TestMetadataRootImage(t *testing.T) {
	xml := `<LMSDataContainerHeader Version="2">` + liftest.GrayElement("solo", 2, 2) + `</LMSDataContainerHeader>`
	path := liftest.Write(t, liftest.File{
		XML:    xml,
		Blocks: []liftest.Block{{ID: "MemBlock_1", Data: make([]byte, 4)}},
	})

	f, err := readlif.Open(path)
	require.NoError(t, err)
	require.Len(t, f.Images(), 1)
	assert.Equal(t, "solo", f.Images()[0].Name)
	assert.Equal(t, "/", f.Images()[0].Path)
}
