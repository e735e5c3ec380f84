package decode

import (
	"image"
	"image/color"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

const placeholderSide = 100

var placeholderColor = color.NRGBA{R: 0xd3, G: 0xd3, B: 0xd3, A: 0xff}

// Placeholder returns a new fixed-size light gray image.
func Placeholder() image.Image {
	return imaging.New(placeholderSide, placeholderSide, placeholderColor)
}

// Fit scales img down to fit within target, preserving aspect ratio.
// Images already inside the box, and invalid targets, are returned as is.
func Fit(img image.Image, target Size) image.Image {
	if img == nil || !target.Valid() {
		return img
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= target.Width && height <= target.Height {
		return img
	}

	scale := min(float64(target.Width)/float64(width), float64(target.Height)/float64(height))
	newWidth := max(1, int(float64(width)*scale+0.5))
	newHeight := max(1, int(float64(height)*scale+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

func extOf(path string) string {
	return normalizeExt(filepath.Ext(path))
}
