package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeRaw builds a little-endian TIFF header whose IFD0 carries only an
// orientation tag, followed by junk and the given embedded JPEGs.
func fakeRaw(orientation uint16, previews ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(8))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(0x0112))
	binary.Write(&buf, binary.LittleEndian, uint16(3))
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	binary.Write(&buf, binary.LittleEndian, orientation)
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	for _, p := range previews {
		buf.Write(bytes.Repeat([]byte{0x11, 0xFF, 0x00}, 50))
		buf.Write(p)
	}
	buf.Write(bytes.Repeat([]byte{0x42}, 128))
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	testCases := []struct {
		name   string
		w, h   int
		target Size
		want   image.Point
	}{
		{"landscape", 400, 200, Size{100, 100}, image.Pt(100, 50)},
		{"portrait", 200, 400, Size{100, 100}, image.Pt(50, 100)},
		{"already fits", 50, 20, Size{100, 100}, image.Pt(50, 20)},
		{"invalid target", 400, 200, Size{0, 100}, image.Pt(400, 200)},
		{"tiny result clamps to one pixel", 1000, 1, Size{10, 10}, image.Pt(10, 1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fit(solid(tc.w, tc.h), tc.target).Bounds().Size()
			if got != tc.want {
				t.Errorf("Fit(%dx%d, %v) = %v, expected %v", tc.w, tc.h, tc.target, got, tc.want)
			}
		})
	}
}

func TestStrategyStages(t *testing.T) {
	dir := t.TempDir()

	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, solid(30, 10), nil); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name      string
		file      string
		data      []byte
		target    Size
		wantStage Stage
		wantSize  image.Point
	}{
		{"png scaled", "a.png", encodePNG(t, 300, 150), Size{60, 60}, StageScaled, image.Pt(60, 30)},
		{"jpeg native", "b.JPG", encodeJPEG(t, 32, 16), Size{}, StageScaled, image.Pt(32, 16)},
		{"gif generic", "c.gif", gifBuf.Bytes(), Size{15, 15}, StageGeneric, image.Pt(15, 5)},
		{"corrupt falls to placeholder", "d.jpg", []byte("not an image"), Size{}, StagePlaceholder, image.Pt(100, 100)},
		{"raw without backend", "e.nef", fakeRaw(1, encodeJPEG(t, 40, 20)), Size{}, StagePlaceholder, image.Pt(100, 100)},
	}

	s := New(Options{})
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(dir, tc.file), tc.data)
			res, err := s.Decode(context.Background(), path, tc.target)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if res.Stage != tc.wantStage {
				t.Errorf("stage = %v, expected %v", res.Stage, tc.wantStage)
			}
			if got := res.Image.Bounds().Size(); got != tc.wantSize {
				t.Errorf("size = %v, expected %v", got, tc.wantSize)
			}
		})
	}
}

func TestRawPreviewPicksLargestAndOrients(t *testing.T) {
	dir := t.TempDir()
	data := fakeRaw(6, encodeJPEG(t, 16, 8), encodeJPEG(t, 64, 32))
	path := writeFile(t, filepath.Join(dir, "DSC_0001.NEF"), data)

	s := New(Options{Raw: true})
	res, err := s.Decode(context.Background(), path, Size{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Stage != StageRawPreview || res.Backend != Raw {
		t.Fatalf("got stage %v backend %v", res.Stage, res.Backend)
	}
	// orientation 6 rotates the 64x32 preview to portrait
	if got := res.Image.Bounds().Size(); got != image.Pt(32, 64) {
		t.Errorf("size = %v, expected 32x64", got)
	}
}

func TestRawWithoutPreviewFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "x.cr2"), fakeRaw(1))

	s := New(Options{Raw: true, Demosaic: true, DcrawCommand: "triage-no-such-dcraw"})
	res, err := s.Decode(context.Background(), path, Size{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Stage != StagePlaceholder {
		t.Errorf("stage = %v, expected placeholder", res.Stage)
	}
	for _, b := range s.Backends() {
		if b.Name == "raw-demosaic" && b.Available {
			t.Error("missing dcraw reported as available")
		}
	}
}

func TestDecodeCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "a.png"), encodePNG(t, 10, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Decode(ctx, path, Size{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTiffOrientation(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want int
	}{
		{"tagged", fakeRaw(8), 8},
		{"out of range", fakeRaw(12), 1},
		{"not tiff", []byte("FUJIFILMCCD-RAW 0201"), 1},
		{"truncated", []byte("II*\x00\xff\xff\x00\x00"), 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tiffOrientation(tc.data); got != tc.want {
				t.Errorf("tiffOrientation = %d, expected %d", got, tc.want)
			}
		})
	}
}

func TestExtSet(t *testing.T) {
	s := NewExtSet([]string{".NEF", "dng", " "})
	if !s.Has("nef") || !s.Has(".DNG") || s.Has("jpg") || s.Has("") {
		t.Errorf("unexpected membership: %v", s)
	}
}

type stubDecoder struct {
	stage Stage
	err   error
	calls *[]Stage
}

func (d stubDecoder) Stage() Stage { return d.stage }
func (d stubDecoder) Accepts(ext string) bool { return ext == "xyz" }
func (d stubDecoder) Decode(ctx context.Context, path string, target Size) (image.Image, error) {
	*d.calls = append(*d.calls, d.stage)
	if d.err != nil {
		return nil, d.err
	}
	return solid(4, 4), nil
}

func TestStrategyFallbackOrder(t *testing.T) {
	var calls []Stage
	s := NewWithBackends(
		Backend{Capability: Raster, Decoders: []Decoder{
			stubDecoder{stage: StageScaled, err: errors.New("bad header"), calls: &calls},
		}},
		Backend{Capability: Raw, Decoders: []Decoder{
			stubDecoder{stage: StageRawPreview, calls: &calls},
			stubDecoder{stage: StageRawDemosaic, calls: &calls},
		}},
	)

	res, err := s.Decode(context.Background(), "/x/a.XYZ", Size{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stage != StageRawPreview || res.Backend != Raw {
		t.Errorf("got stage %v backend %v", res.Stage, res.Backend)
	}
	if len(calls) != 2 || calls[0] != StageScaled || calls[1] != StageRawPreview {
		t.Errorf("calls = %v", calls)
	}

	if got := len(s.Backends()); got != 2 {
		t.Errorf("Backends() = %d entries", got)
	}

	res, err = s.Decode(context.Background(), "/x/a.png", Size{})
	if err != nil || res.Stage != StagePlaceholder {
		t.Errorf("unaccepted extension: stage %v err %v", res.Stage, err)
	}
}
