package ui

import "image/color"

// Palette colors; applyPalette swaps them for dark mode.
var (
	colBackground = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	colCanvas     = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	colText       = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	colMuted      = color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	colSelected   = color.NRGBA{R: 66, G: 133, B: 244, A: 255}
	colStrip      = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	colKeep       = color.NRGBA{R: 40, G: 167, B: 69, A: 255}
	colDiscard    = color.NRGBA{R: 220, G: 53, B: 69, A: 255}
	colNeutralBtn = color.NRGBA{R: 96, G: 125, B: 139, A: 255}
	colDanger     = color.NRGBA{R: 220, G: 53, B: 69, A: 255}
)

func applyPalette(dark bool) {
	if dark {
		colBackground = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
		colCanvas = color.NRGBA{R: 18, G: 18, B: 18, A: 255}
		colText = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
		colMuted = color.NRGBA{R: 160, G: 160, B: 160, A: 255}
		colStrip = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
		return
	}
	colBackground = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	colCanvas = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	colText = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	colMuted = color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	colStrip = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
}
