package decode

import "strings"

// DefaultRasterExtensions are the formats handled by the raster backend.
var DefaultRasterExtensions = []string{
	"jpg", "jpeg", "png", "bmp", "gif", "tif", "tiff", "webp", "heic", "heif", "avif",
}

// DefaultRawExtensions are camera RAW formats handled by the RAW backend.
var DefaultRawExtensions = []string{
	"3fr", "arw", "cr2", "cr3", "crw", "dcr", "dng", "erf", "kdc", "mef", "mos",
	"mrw", "nef", "nrw", "orf", "pef", "raf", "raw", "rw2", "rwl", "sr2", "srf",
	"srw", "x3f",
}

// orientedExtensions carry orientation metadata and go through the scaled stage.
var orientedExtensions = NewExtSet([]string{"jpg", "jpeg", "png", "tif", "tiff", "webp", "heic", "heif"})

// ExtSet is a case-insensitive set of file extensions.
type ExtSet map[string]bool

// NewExtSet builds a set from extensions with or without a leading dot.
func NewExtSet(exts []string) ExtSet {
	s := make(ExtSet, len(exts))
	for _, e := range exts {
		e = normalizeExt(e)
		if e != "" {
			s[e] = true
		}
	}
	return s
}

// Has reports whether ext (".NEF", "nef", ...) is in the set.
func (s ExtSet) Has(ext string) bool {
	return s[normalizeExt(ext)]
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func isHEIC(ext string) bool {
	ext = normalizeExt(ext)
	return ext == "heic" || ext == "heif"
}
