package decode

import (
	"context"
	"image"
	"os/exec"

	"github.com/justyntemme/triage/internal/debug"
)

// Decoder is one stage of a backend.
type Decoder interface {
	Stage() Stage
	// Accepts reports whether the stage applies to a lowercased extension
	// without the leading dot.
	Accepts(ext string) bool
	Decode(ctx context.Context, path string, target Size) (image.Image, error)
}

// Backend is a capability-tagged, ordered group of decoders.
type Backend struct {
	Capability Capability
	Decoders   []Decoder
}

// Options selects which backends a Strategy carries.
type Options struct {
	Raw           bool
	Demosaic      bool
	DcrawCommand  string
	RawExtensions []string
}

// BackendInfo describes a backend that was detected at startup.
type BackendInfo struct {
	Capability Capability
	Name       string
	Command    string // external command, if any
	Available  bool
}

// Strategy tries each backend's decoders in order and falls back to a
// placeholder. It holds no mutable state and is safe for concurrent use.
type Strategy struct {
	backends    []Backend
	info        []BackendInfo
	placeholder image.Image
}

// New builds a Strategy from options. The RAW backend is present only when
// enabled; its demosaic stage only when the command is found on PATH.
func New(opts Options) *Strategy {
	rawExts := opts.RawExtensions
	if len(rawExts) == 0 {
		rawExts = DefaultRawExtensions
	}
	raw := NewExtSet(rawExts)

	s := &Strategy{placeholder: Placeholder()}
	s.backends = append(s.backends, Backend{
		Capability: Raster,
		Decoders:   []Decoder{scaledDecoder{}, genericDecoder{raw: raw}},
	})
	s.info = append(s.info, BackendInfo{Capability: Raster, Name: "raster", Available: true})

	if opts.Raw {
		rawBackend := Backend{Capability: Raw, Decoders: []Decoder{previewDecoder{raw: raw}}}
		s.info = append(s.info, BackendInfo{Capability: Raw, Name: "raw-preview", Available: true})

		if opts.Demosaic {
			path, ok := Detect(opts.DcrawCommand)
			if ok {
				rawBackend.Decoders = append(rawBackend.Decoders, demosaicDecoder{raw: raw, command: path})
			}
			s.info = append(s.info, BackendInfo{Capability: Raw, Name: "raw-demosaic", Command: opts.DcrawCommand, Available: ok})
		}
		s.backends = append(s.backends, rawBackend)
	}
	return s
}

// NewWithBackends builds a Strategy from explicit backends, mostly for tests
// and custom decoders.
func NewWithBackends(backends ...Backend) *Strategy {
	s := &Strategy{backends: backends, placeholder: Placeholder()}
	for _, b := range backends {
		s.info = append(s.info, BackendInfo{Capability: b.Capability, Name: b.Capability.String(), Available: true})
	}
	return s
}

// Detect looks up an external decoder command on PATH.
func Detect(command string) (string, bool) {
	if command == "" {
		return "", false
	}
	path, err := exec.LookPath(command)
	if err != nil {
		debug.Log(debug.DECODE, "detect: %s not found: %v", command, err)
		return "", false
	}
	return path, true
}

// Backends reports what was configured and detected.
func (s *Strategy) Backends() []BackendInfo {
	out := make([]BackendInfo, len(s.info))
	copy(out, s.info)
	return out
}

// Decode produces an image for path, scaled to fit target when target is
// valid. Cancellation is checked before every stage; the only error returned
// is the context's. Otherwise the result always carries an image, possibly
// the placeholder.
func (s *Strategy) Decode(ctx context.Context, path string, target Size) (Result, error) {
	ext := extOf(path)
	for _, b := range s.backends {
		for _, d := range b.Decoders {
			if !d.Accepts(ext) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			img, err := d.Decode(ctx, path, target)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Result{}, ctxErr
				}
				debug.Log(debug.DECODE, "%s: %s failed: %v", d.Stage(), path, err)
				continue
			}
			if img == nil || img.Bounds().Empty() {
				continue
			}
			return Result{Image: img, Stage: d.Stage(), Backend: b.Capability}, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	debug.Log(debug.DECODE, "placeholder: %s", path)
	return Result{Image: s.placeholder, Stage: StagePlaceholder, Backend: Raster}, nil
}
