package readlif

import "errors"

var (
	// ErrNotLIF indicates the file does not carry the LIF magic bytes.
	ErrNotLIF = errors.New("not a LIF file")

	// ErrNoSuchImage indicates an image index outside the file's image list.
	ErrNoSuchImage = errors.New("no such image")

	// ErrFrameOutOfRange indicates a frame selector outside the image dimensions.
	ErrFrameOutOfRange = errors.New("frame out of range")

	// ErrTruncated indicates pixel data that should be present is missing
	// because the file was cut short.
	ErrTruncated = errors.New("LIF file is truncated")
)
