package readlif

import (
	"fmt"
	"os"
)

// Dims is the size of each image dimension. Mosaic images store one tile
// per M position.
type Dims struct {
	C int // channels
	Z int // z slices
	T int // timepoints
	M int // mosaic tiles
	Y int // rows
	X int // columns
}

// Channel is one acquisition channel of an image.
type Channel struct {
	// BytesInc is the byte distance from the first channel's samples to
	// this channel's samples within one frame set.
	BytesInc uint64

	// Resolution is the bit depth of one sample.
	Resolution int
}

// Scale converts pixel coordinates to physical units: px/µm along X, Y
// and Z, frames per second along T. An axis the file does not measure
// reports 0.
type Scale struct {
	X float64
	Y float64
	Z float64
	T float64
}

// TilePosition is the stage position of one mosaic tile in µm.
type TilePosition struct {
	X float64
	Y float64
}

// Image is one image inside a LIF container. Metadata comes from the XML
// header; pixel data is read on demand from the image's memory block.
type Image struct {
	// Name is the image's own name from the XML header.
	Name string

	// Path is the folder path of the image inside the container, with a
	// trailing slash. A root-level image has path "/".
	Path string

	Dims     Dims
	Channels []Channel
	Scale    Scale

	// TilePositions holds one entry per mosaic tile, empty for
	// non-mosaic images.
	TilePositions []TilePosition

	// BitDepth is the sample resolution of the first channel.
	BitDepth int

	// Strides holds the byte increments of the C, Z, T, M, Y and X axes
	// as recorded in the header. Axes the image does not use report 0.
	Strides [6]uint64

	block memBlock
	file  string
}

// Frame reads the plane at z slice z, timepoint t, channel c and tile m.
// Planes of a truncated image that lost its pixel data come back zero
// filled.
func (img *Image) Frame(z, t, c, m int) (*Plane, error) {
	d := img.Dims
	switch {
	case z < 0 || z >= d.Z:
		return nil, fmt.Errorf("%w: z=%d, image has %d z slices", ErrFrameOutOfRange, z, d.Z)
	case t < 0 || t >= d.T:
		return nil, fmt.Errorf("%w: t=%d, image has %d timepoints", ErrFrameOutOfRange, t, d.T)
	case c < 0 || c >= d.C:
		return nil, fmt.Errorf("%w: c=%d, image has %d channels", ErrFrameOutOfRange, c, d.C)
	case m < 0 || m >= d.M:
		return nil, fmt.Errorf("%w: m=%d, image has %d tiles", ErrFrameOutOfRange, m, d.M)
	}
	item := ((m*d.T+t)*d.C+c)*d.Z + z
	return img.readItem(item)
}

// Stack reads every plane of tile m: z varies fastest, then channel,
// then timepoint.
func (img *Image) Stack(m int) ([]*Plane, error) {
	if m < 0 || m >= img.Dims.M {
		return nil, fmt.Errorf("%w: m=%d, image has %d tiles", ErrFrameOutOfRange, m, img.Dims.M)
	}
	per := img.Dims.C * img.Dims.Z * img.Dims.T
	planes := make([]*Plane, 0, per)
	for i := 0; i < per; i++ {
		p, err := img.readItem(m*per + i)
		if err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, nil
}

// FramesZ reads the planes along the z axis at timepoint t, channel c
// and tile m.
func (img *Image) FramesZ(t, c, m int) ([]*Plane, error) {
	planes := make([]*Plane, 0, img.Dims.Z)
	for z := 0; z < img.Dims.Z; z++ {
		p, err := img.Frame(z, t, c, m)
		if err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, nil
}

// FramesT reads the planes along the time axis at z slice z, channel c
// and tile m.
func (img *Image) FramesT(z, c, m int) ([]*Plane, error) {
	planes := make([]*Plane, 0, img.Dims.T)
	for t := 0; t < img.Dims.T; t++ {
		p, err := img.Frame(z, t, c, m)
		if err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, nil
}

// FramesC reads one plane per channel at z slice z, timepoint t and
// tile m.
func (img *Image) FramesC(z, t, m int) ([]*Plane, error) {
	planes := make([]*Plane, 0, img.Dims.C)
	for c := 0; c < img.Dims.C; c++ {
		p, err := img.Frame(z, t, c, m)
		if err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, nil
}

// FramesM reads one plane per mosaic tile at z slice z, timepoint t and
// channel c.
func (img *Image) FramesM(z, t, c int) ([]*Plane, error) {
	planes := make([]*Plane, 0, img.Dims.M)
	for m := 0; m < img.Dims.M; m++ {
		p, err := img.Frame(z, t, c, m)
		if err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, nil
}

// numItems is the number of planes stored in the image's memory block.
func (img *Image) numItems() int {
	return img.Dims.C * img.Dims.Z * img.Dims.T * img.Dims.M
}

func (img *Image) bytesPerSample() int {
	return (img.BitDepth + 7) / 8
}

// planeBytes is the length of one plane. Blocks that survived on disk
// divide evenly by the item count; blocks lost to truncation derive the
// length from the metadata instead.
func (img *Image) planeBytes() int64 {
	if img.block.size > 0 {
		return img.block.size / int64(img.numItems())
	}
	return int64(img.Dims.Y) * int64(img.Dims.X) * int64(img.bytesPerSample())
}

func (img *Image) readItem(n int) (*Plane, error) {
	if n < 0 || n >= img.numItems() {
		return nil, fmt.Errorf("%w: item %d, image holds %d planes", ErrFrameOutOfRange, n, img.numItems())
	}

	size := img.planeBytes()
	data := make([]byte, size)
	if img.block.size > 0 {
		f, err := os.Open(img.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open LIF file: %w", err)
		}
		defer f.Close()

		off := img.block.off + size*int64(n)
		if _, err := f.ReadAt(data, off); err != nil {
			return nil, fmt.Errorf("%w: plane %d ends past the end of %s", ErrTruncated, n, img.file)
		}
	}

	return &Plane{
		Width:  img.Dims.X,
		Height: img.Dims.Y,
		Bits:   img.BitDepth,
		Data:   data,
	}, nil
}
