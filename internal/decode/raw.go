package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"github.com/justyntemme/triage/internal/debug"
)

// maxPreviewCandidates bounds how many SOI markers are probed per file.
const maxPreviewCandidates = 64

var errNoPreview = errors.New("no embedded preview")

// previewDecoder extracts the largest embedded JPEG from a RAW file.
type previewDecoder struct {
	raw ExtSet
}

func (previewDecoder) Stage() Stage { return StageRawPreview }

func (d previewDecoder) Accepts(ext string) bool { return d.raw.Has(ext) }

func (previewDecoder) Decode(ctx context.Context, path string, target Size) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	start, size := largestEmbeddedJPEG(ctx, data)
	if start < 0 {
		return nil, errNoPreview
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(data[start:]))
	if err != nil {
		return nil, fmt.Errorf("embedded preview: %w", err)
	}
	debug.Log(debug.DECODE, "raw-preview: %s preview %dx%d at offset %d", path, size.X, size.Y, start)

	img = applyOrientation(img, tiffOrientation(data))
	return Fit(img, target), nil
}

// largestEmbeddedJPEG probes every JPEG start-of-image marker and returns
// the offset of the candidate with the most pixels, or -1.
func largestEmbeddedJPEG(ctx context.Context, data []byte) (int, image.Point) {
	soi := []byte{0xFF, 0xD8, 0xFF}
	best, bestArea := -1, 0
	var bestSize image.Point

	offset, probes := 0, 0
	for probes < maxPreviewCandidates {
		i := bytes.Index(data[offset:], soi)
		if i < 0 {
			break
		}
		pos := offset + i
		offset = pos + len(soi)
		probes++

		if ctx.Err() != nil {
			break
		}
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data[pos:]))
		if err != nil {
			continue
		}
		if area := cfg.Width * cfg.Height; area > bestArea {
			best, bestArea = pos, area
			bestSize = image.Pt(cfg.Width, cfg.Height)
		}
	}
	return best, bestSize
}

// tiffOrientation reads the Orientation tag (0x0112) from IFD0 of a
// TIFF-structured file. Anything unreadable yields 1 (normal).
func tiffOrientation(data []byte) int {
	if len(data) < 8 {
		return 1
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return 1
	}

	ifd := int(order.Uint32(data[4:8]))
	if ifd <= 0 || ifd+2 > len(data) {
		return 1
	}
	count := int(order.Uint16(data[ifd : ifd+2]))
	for i := 0; i < count; i++ {
		entry := ifd + 2 + i*12
		if entry+12 > len(data) {
			return 1
		}
		if order.Uint16(data[entry:entry+2]) != 0x0112 {
			continue
		}
		v := int(order.Uint16(data[entry+8 : entry+10]))
		if v < 1 || v > 8 {
			return 1
		}
		return v
	}
	return 1
}

// applyOrientation maps an EXIF/TIFF orientation value onto the image.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// demosaicDecoder runs an external dcraw at half size and decodes its TIFF
// output. dcraw applies the camera orientation itself.
type demosaicDecoder struct {
	raw     ExtSet
	command string
}

func (demosaicDecoder) Stage() Stage { return StageRawDemosaic }

func (d demosaicDecoder) Accepts(ext string) bool { return d.raw.Has(ext) }

func (d demosaicDecoder) Decode(ctx context.Context, path string, target Size) (image.Image, error) {
	cmd := exec.CommandContext(ctx, d.command, "-c", "-h", "-w", "-T", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("dcraw %s: %w: %s", path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	img, err := tiff.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("dcraw output: %w", err)
	}
	return Fit(img, target), nil
}
