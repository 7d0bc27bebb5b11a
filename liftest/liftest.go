// Package liftest assembles LIF containers in memory so tests can
// exercise the binary layout without checked-in microscope files.
package liftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

const (
	magic  = 0x70
	marker = 0x2a
)

// Block is one memory block: an id string and the raw pixel payload.
type Block struct {
	ID   string
	Data []byte

	// Wide writes the block length as a uint64, the variant newer
	// acquisition software emits for blocks past 4 GiB.
	Wide bool
}

// File describes a container to assemble.
type File struct {
	XML    string
	Blocks []Block

	// ZeroTail appends a run of zero bytes after the last block, the
	// shape of a file cut short mid-write.
	ZeroTail int
}

// Bytes assembles the container.
func (f File) Bytes() []byte {
	var buf bytes.Buffer
	xmlBytes := encodeUTF16(f.XML)

	u32(&buf, magic)
	u32(&buf, uint32(len(xmlBytes)+5))
	buf.WriteByte(marker)
	u32(&buf, uint32(len(xmlBytes)/2))
	buf.Write(xmlBytes)

	for _, b := range f.Blocks {
		desc := encodeUTF16(b.ID)
		u32(&buf, magic)
		u32(&buf, 0)
		buf.WriteByte(marker)
		if b.Wide {
			u64(&buf, uint64(len(b.Data)))
		} else {
			u32(&buf, uint32(len(b.Data)))
		}
		buf.WriteByte(marker)
		u32(&buf, uint32(len(desc)/2))
		buf.Write(desc)
		buf.Write(b.Data)
	}

	buf.Write(make([]byte, f.ZeroTail))
	return buf.Bytes()
}

// Write assembles the container into a temp file and returns its path.
func Write(t *testing.T, f File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.lif")
	if err := os.WriteFile(path, f.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// Header wraps image elements in the standard container XML: a root
// element named after the file, with the given elements as children.
func Header(elements ...string) string {
	return `<LMSDataContainerHeader Version="2"><Element Name="fixture.lif"><Children>` +
		strings.Join(elements, "") +
		`</Children></Element></LMSDataContainerHeader>`
}

// GrayElement returns an image element for a single-channel 8-bit image
// of x columns and y rows, with lengths chosen so both axes scale to
// 1 px/µm.
func GrayElement(name string, x, y int) string {
	return fmt.Sprintf(
		`<Element Name="%s"><Data><Image><ImageDescription><Dimensions>`+
			`<DimensionDescription DimID="1" NumberOfElements="%d" BytesInc="1" Length="%g"/>`+
			`<DimensionDescription DimID="2" NumberOfElements="%d" BytesInc="%d" Length="%g"/>`+
			`</Dimensions><Channels><ChannelDescription BytesInc="0" Resolution="8"/></Channels>`+
			`</ImageDescription></Image></Data></Element>`,
		name,
		x, float64(x-1)*1e-6,
		y, x, float64(y-1)*1e-6,
	)
}

func u32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func u64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func encodeUTF16(s string) []byte {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		panic(err)
	}
	return out
}
