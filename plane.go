package readlif

import (
	"encoding/binary"
	"image"
)

// Plane is one 2D frame: raw little-endian samples in row-major order,
// one or two bytes per sample depending on the channel resolution.
type Plane struct {
	Width  int
	Height int
	Bits   int
	Data   []byte
}

func (p *Plane) bytesPerSample() int {
	return (p.Bits + 7) / 8
}

// Sample returns the raw sample at column x, row y, or 0 outside the
// plane bounds. Values keep their stored range, so 12-bit data occupies
// the low bits of the result.
func (p *Plane) Sample(x, y int) uint16 {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return 0
	}
	i := (y*p.Width + x) * p.bytesPerSample()
	if i+p.bytesPerSample() > len(p.Data) {
		return 0
	}
	if p.bytesPerSample() == 2 {
		return binary.LittleEndian.Uint16(p.Data[i:])
	}
	return uint16(p.Data[i])
}

// GrayImage converts the plane to a grayscale image: Gray for 8-bit
// samples, Gray16 for wider ones. Gray16 stores pixels big-endian, so
// the sample bytes swap during conversion.
func (p *Plane) GrayImage() image.Image {
	r := image.Rect(0, 0, p.Width, p.Height)
	if p.bytesPerSample() == 1 {
		g := image.NewGray(r)
		copy(g.Pix, p.Data)
		return g
	}
	g := image.NewGray16(r)
	n := len(p.Data)
	if len(g.Pix) < n {
		n = len(g.Pix)
	}
	for i := 0; i+1 < n; i += 2 {
		g.Pix[i] = p.Data[i+1]
		g.Pix[i+1] = p.Data[i]
	}
	return g
}
