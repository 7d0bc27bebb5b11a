// Package readlif reads LIF (Leica Image File) microscopy containers: the
// UTF-16 XML metadata header, the memory-block table, and the raw image
// planes addressed by z slice, timepoint, channel and tile.
//
// The container layout follows the LIF reader in the openmicroscopy
// bioformats project: every chunk starts with the magic bytes 0x70 0x00
// 0x00 0x00 and carries a 0x2A memory marker before each length field.
package readlif

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
)

const (
	lifMagic  = 0x70 // little-endian uint32 at the start of every chunk
	memMarker = 0x2a
)

// truncationProbe is the number of trailing zero bytes that identify a
// truncated file. Shorter zero runs are treated as corruption instead.
const truncationProbe = 100

// memBlock locates one image's pixel data inside the container.
type memBlock struct {
	off  int64 // absolute offset of the pixel data
	size int64 // length in bytes, zero for images with no data on disk
}

// File is an open LIF container.
type File struct {
	// XMLHeader is the decoded XML metadata header.
	XMLHeader string

	// Truncated reports whether the file ends in a zero run where further
	// memory blocks were expected. Images without backing data serve blank
	// frames instead of failing.
	Truncated bool

	images []*Image
}

// Open reads the LIF container at path. It validates the magic bytes,
// decodes the UTF-16 XML header, scans the memory-block table and pairs
// every image in the header with its block. Pixel data is read lazily by
// Image.Frame.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open LIF file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat LIF file: %w", err)
	}

	c := &cursor{r: f, size: st.Size()}

	if !c.checkMagic() {
		return nil, fmt.Errorf("%w: expected magic bytes at start of %s", ErrNotLIF, path)
	}
	c.pos = 8
	if !c.checkMem() {
		return nil, fmt.Errorf("%w: expected memory marker at offset 8 of %s", ErrNotLIF, path)
	}

	headerChars, ok := c.readUint32()
	if !ok {
		return nil, fmt.Errorf("%w: short read in header of %s", ErrNotLIF, path)
	}
	headerLen := int64(headerChars) * 2
	if headerLen > c.size-c.pos {
		return nil, fmt.Errorf("%w: header length %d exceeds file size %d", ErrNotLIF, headerLen, c.size)
	}
	raw := c.readBytes(int(headerLen))
	if int64(len(raw)) != headerLen {
		return nil, fmt.Errorf("%w: short read in header of %s", ErrNotLIF, path)
	}

	xmlHeader, err := decodeUTF16(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode XML header: %w", err)
	}

	blocks, truncAt, truncated, err := scanBlocks(c)
	if err != nil {
		return nil, err
	}

	hdr, err := parseHeader([]byte(xmlHeader))
	if err != nil {
		return nil, err
	}
	images := collectImages(hdr)

	// A truncated file is missing the trailing memory blocks entirely, so
	// the magic bytes cannot guide their location. Pad with zero-length
	// blocks anchored where the zero run begins.
	if truncated {
		for len(blocks) < len(images) {
			blocks = append(blocks, memBlock{off: truncAt, size: 0})
		}
	}
	if !truncated && len(images) != len(blocks) {
		return nil, fmt.Errorf("%d images described but %d memory blocks found in %s", len(images), len(blocks), path)
	}

	for i, img := range images {
		img.block = blocks[i]
		img.file = path
	}

	return &File{
		XMLHeader: xmlHeader,
		Truncated: truncated,
		images:    images,
	}, nil
}

// Images returns the images described by the XML header, in file order.
func (f *File) Images() []*Image {
	return f.images
}

// Image returns the image at index i.
func (f *File) Image(i int) (*Image, error) {
	if i < 0 || i >= len(f.images) {
		return nil, fmt.Errorf("%w: index %d, file holds %d images", ErrNoSuchImage, i, len(f.images))
	}
	return f.images[i], nil
}

// cursor tracks an absolute read position over the container. Reads use
// ReadAt so a short read near the end of the file surfaces as short data
// rather than an error, matching the truncation handling below.
type cursor struct {
	r    io.ReaderAt
	pos  int64
	size int64
}

func (c *cursor) readBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	m, _ := c.r.ReadAt(buf, c.pos)
	c.pos += int64(m)
	return buf[:m]
}

func (c *cursor) readUint32() (uint32, bool) {
	b := c.readBytes(4)
	if len(b) != 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (c *cursor) readUint64() (uint64, bool) {
	b := c.readBytes(8)
	if len(b) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (c *cursor) checkMagic() bool {
	v, ok := c.readUint32()
	return ok && v == lifMagic
}

func (c *cursor) checkMem() bool {
	b := c.readBytes(1)
	return len(b) == 1 && b[0] == memMarker
}

// truncatedHere probes the bytes starting 4 before the current position.
// A run of truncationProbe zero bytes marks the spot where the file was
// cut short; anything else is corruption.
func (c *cursor) truncatedHere() (int64, bool) {
	start := c.pos - 4
	if start < 0 {
		return 0, false
	}
	buf := make([]byte, truncationProbe)
	m, _ := c.r.ReadAt(buf, start)
	if m != truncationProbe {
		return 0, false
	}
	for _, b := range buf {
		if b != 0 {
			return 0, false
		}
	}
	return start, true
}

// readBlockHeader parses one memory-block header at the cursor. The block
// length is a uint32 unless the marker after it is missing, in which case
// the 8-byte variant written by some acquisition versions applies.
func readBlockHeader(c *cursor) (memBlock, bool) {
	if !c.checkMagic() {
		return memBlock{}, false
	}
	c.pos += 4
	if !c.checkMem() {
		return memBlock{}, false
	}

	size32, ok := c.readUint32()
	if !ok {
		return memBlock{}, false
	}
	size := int64(size32)
	if !c.checkMem() {
		c.pos -= 5
		size64, ok := c.readUint64()
		if !ok {
			return memBlock{}, false
		}
		size = int64(size64)
		if !c.checkMem() {
			return memBlock{}, false
		}
	}

	descChars, ok := c.readUint32()
	if !ok {
		return memBlock{}, false
	}

	return memBlock{off: c.pos + int64(descChars)*2, size: size}, true
}

// scanBlocks walks the memory blocks after the header until the end of the
// file. When a block header fails to parse, the zero-run probe decides
// between a truncated file and a corrupt one.
func scanBlocks(c *cursor) (blocks []memBlock, truncAt int64, truncated bool, err error) {
	for c.pos < c.size {
		block, ok := readBlockHeader(c)
		if !ok {
			if at, isTrunc := c.truncatedHere(); isTrunc {
				return blocks, at, true, nil
			}
			return nil, 0, false, fmt.Errorf("malformed memory block near offset %d", c.pos)
		}
		if block.size > 0 {
			blocks = append(blocks, block)
		}
		c.pos = block.off + block.size
	}
	return blocks, 0, false, nil
}

// decodeUTF16 decodes the XML header bytes. Headers are little-endian
// UTF-16; a byte-order mark, when present, takes precedence.
func decodeUTF16(raw []byte) (string, error) {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// parseHeader decodes the XML metadata header. Entity expansion is
// disabled and decoding is strict: the header is machine-written and any
// deviation is corruption.
func parseHeader(data []byte) (*lifHeader, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = make(map[string]string)

	var hdr lifHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("failed to decode XML header: %w", err)
	}
	return &hdr, nil
}
