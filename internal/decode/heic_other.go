//go:build !linux

package decode

import (
	"errors"
	"image"
	"io"
)

func decodeHEIC(r io.Reader) (image.Image, error) {
	return nil, errors.New("HEIC decoding not supported on this platform")
}

// heicSupported returns whether HEIC decoding is available on this platform
func heicSupported() bool {
	return false
}
