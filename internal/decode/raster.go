package decode

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/justyntemme/triage/internal/debug"
)

// scaledDecoder decodes formats with orientation metadata, applying it, and
// shrinks the result to the target.
type scaledDecoder struct{}

func (scaledDecoder) Stage() Stage { return StageScaled }

func (scaledDecoder) Accepts(ext string) bool {
	if isHEIC(ext) {
		return heicSupported()
	}
	return orientedExtensions.Has(ext)
}

func (scaledDecoder) Decode(ctx context.Context, path string, target Size) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	if isHEIC(extOf(path)) {
		img, err = openHEIC(path)
	} else {
		img, err = imaging.Open(path, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, err
	}
	if target.Valid() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img = imaging.Fit(img, target.Width, target.Height, imaging.Lanczos)
	}
	return img, nil
}

func openHEIC(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeHEIC(f)
}

// genericDecoder runs every registered codec over the whole file.
type genericDecoder struct {
	raw ExtSet
}

func (genericDecoder) Stage() Stage { return StageGeneric }

// Accepts rejects RAW files: TIFF-based RAW containers would otherwise
// decode to their tiny IFD0 thumbnail.
func (d genericDecoder) Accepts(ext string) bool {
	return !d.raw.Has(ext)
}

func (genericDecoder) Decode(ctx context.Context, path string, target Size) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("generic decode: %w", err)
	}
	debug.Log(debug.DECODE, "generic: %s decoded as %s", path, format)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Fit(img, target), nil
}
