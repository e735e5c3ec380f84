// Package decode turns image files into bitmaps through a prioritized list
// of backends, falling back stage by stage until something displayable is
// produced.
package decode

import (
	"fmt"
	"image"
)

// Size is a requested bounding box. The zero Size means "native resolution".
type Size struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Stage identifies which step of the fallback chain produced an image.
type Stage int

const (
	StageScaled Stage = iota
	StageGeneric
	StageRawPreview
	StageRawDemosaic
	StagePlaceholder
)

func (s Stage) String() string {
	switch s {
	case StageScaled:
		return "scaled"
	case StageGeneric:
		return "generic"
	case StageRawPreview:
		return "raw-preview"
	case StageRawDemosaic:
		return "raw-demosaic"
	case StagePlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Capability tags a backend with the family of files it handles.
type Capability int

const (
	Raster Capability = iota
	Raw
)

func (c Capability) String() string {
	if c == Raw {
		return "raw"
	}
	return "raster"
}

// Result is the outcome of a decode. Image is never nil.
type Result struct {
	Image   image.Image
	Stage   Stage
	Backend Capability
}
