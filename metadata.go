package readlif

import "strconv"

// The XML header is a tree of Element nodes. Folders carry further
// elements under Children; images carry a Data/Image subtree with the
// dimension and channel descriptions.
type lifHeader struct {
	Version  string       `xml:"Version,attr"`
	Children []lifElement `xml:"Children>Element"`
	Elements []lifElement `xml:"Element"`
}

type lifElement struct {
	Name     string       `xml:"Name,attr"`
	Children []lifElement `xml:"Children>Element"`
	Data     lifData      `xml:"Data"`
}

type lifData struct {
	Image *lifImage `xml:"Image"`
}

type lifImage struct {
	Description lifImageDescription `xml:"ImageDescription"`
	Attachments []lifAttachment     `xml:"Attachment"`
}

type lifImageDescription struct {
	Dimensions *lifDimensions          `xml:"Dimensions"`
	Channels   []lifChannelDescription `xml:"Channels>ChannelDescription"`
}

type lifDimensions struct {
	Descriptions []lifDimensionDescription `xml:"DimensionDescription"`
}

type lifChannelDescription struct {
	BytesInc   uint64 `xml:"BytesInc,attr"`
	Resolution int    `xml:"Resolution,attr"`
}

type lifDimensionDescription struct {
	DimID            int    `xml:"DimID,attr"`
	NumberOfElements int    `xml:"NumberOfElements,attr"`
	BytesInc         uint64 `xml:"BytesInc,attr"`
	Length           string `xml:"Length,attr"`
}

type lifAttachment struct {
	Name  string    `xml:"Name,attr"`
	Tiles []lifTile `xml:"Tile"`
}

type lifTile struct {
	PosX float64 `xml:"PosX,attr"`
	PosY float64 `xml:"PosY,attr"`
}

// Leica dimension identifiers, in the order they extend the dims vector
// after the channel count: Z, T, M (tile), Y, X.
var dimOrder = [5]int{3, 4, 10, 2, 1}

func (el lifElement) isImage() bool {
	return el.Data.Image != nil && el.Data.Image.Description.Dimensions != nil
}

// collectImages walks the header tree and returns the image metadata in
// document order.
func collectImages(hdr *lifHeader) []*Image {
	roots := hdr.Children
	if len(roots) == 0 {
		roots = hdr.Elements
	}
	var out []*Image
	walkElements(roots, "", &out)
	return out
}

// walkElements recurses through folders, accumulating the path. An element
// with children is a folder even when it also carries image data.
func walkElements(elems []lifElement, path string, out *[]*Image) {
	for _, el := range elems {
		joined := el.Name
		if path != "" {
			joined = path + "/" + el.Name
		}
		switch {
		case len(el.Children) > 0:
			walkElements(el.Children, joined, out)
		case el.isImage():
			*out = append(*out, imageFromElement(el, path))
		}
	}
}

// imageFromElement extracts the metadata of one image element: channel
// descriptions, dimension sizes and byte increments in CZTMYX order, the
// derived unit scales and the tile positions.
func imageFromElement(el lifElement, folder string) *Image {
	desc := el.Data.Image.Description

	channels := make([]Channel, 0, len(desc.Channels))
	for _, ch := range desc.Channels {
		channels = append(channels, Channel{BytesInc: ch.BytesInc, Resolution: ch.Resolution})
	}
	if len(channels) == 0 {
		// Dimension data without channel descriptions: treat as a single
		// 8-bit channel rather than failing the whole file.
		channels = append(channels, Channel{Resolution: 8})
	}
	nc := len(channels)

	dims := [6]int{nc, 1, 1, 1, 1, 1}
	strides := [6]uint64{}
	lengths := [6]float64{float64(nc - 1), 1, 1, 1, 1, 1}
	if nc >= 2 {
		strides[0] = channels[1].BytesInc
	}

	for i, id := range dimOrder {
		dd, ok := findDimension(desc.Dimensions, id)
		if !ok {
			continue
		}
		n := dd.NumberOfElements
		if n < 1 {
			n = 1
		}
		dims[i+1] = n
		strides[i+1] = dd.BytesInc
		lengths[i+1] = parseFloatDefault(dd.Length, 1)
	}

	scale := Scale{
		Z: safeDiv(float64(dims[1]), lengths[1]*1e6),
		T: safeDiv(float64(dims[2]), lengths[2]),
		Y: safeDiv(float64(dims[4]-1), lengths[4]*1e6),
		X: safeDiv(float64(dims[5]-1), lengths[5]*1e6),
	}

	var tiles []TilePosition
	for _, att := range el.Data.Image.Attachments {
		for _, tile := range att.Tiles {
			tiles = append(tiles, TilePosition{X: tile.PosX * 1e6, Y: tile.PosY * 1e6})
		}
	}

	return &Image{
		Name:          el.Name,
		Path:          folder + "/",
		Dims:          Dims{C: dims[0], Z: dims[1], T: dims[2], M: dims[3], Y: dims[4], X: dims[5]},
		Channels:      channels,
		Scale:         scale,
		TilePositions: tiles,
		BitDepth:      channels[0].Resolution,
		Strides:       strides,
	}
}

func findDimension(dims *lifDimensions, id int) (lifDimensionDescription, bool) {
	if dims == nil {
		return lifDimensionDescription{}, false
	}
	for _, dd := range dims.Descriptions {
		if dd.DimID == id {
			return dd, true
		}
	}
	return lifDimensionDescription{}, false
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
