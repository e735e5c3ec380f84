package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/justyntemme/triage/internal/debug"
)

type OpType int

const (
	ScanDir OpType = iota
)

type Request struct {
	Op         OpType
	Path       string
	Gen        int64    // Generation counter to track stale requests
	Extensions []string // Accepted extensions, case-insensitive, no dot
}

type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

type Response struct {
	Op      OpType
	Path    string
	Entries []Entry
	Err     error
	Gen     int64 // Generation counter from request
}

// System scans directories on its own goroutine. Send requests on
// RequestChan and read results from ResponseChan.
type System struct {
	RequestChan  chan Request
	ResponseChan chan Response

	closeOnce sync.Once
}

func NewSystem() *System {
	return &System{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
	}
}

// Start serves requests until Close is called.
func (s *System) Start() {
	for req := range s.RequestChan {
		debug.Log(debug.FS, "Request: op=%d path=%q gen=%d", req.Op, req.Path, req.Gen)

		switch req.Op {
		case ScanDir:
			resp := s.scanDir(req.Path, req.Extensions)
			resp.Gen = req.Gen
			debug.Log(debug.FS, "ScanDir response: path=%q entries=%d gen=%d err=%v",
				resp.Path, len(resp.Entries), resp.Gen, resp.Err)
			s.ResponseChan <- resp
		}
	}
}

// Close stops Start once pending requests are served.
func (s *System) Close() {
	s.closeOnce.Do(func() { close(s.RequestChan) })
}

// Scan lists the image files directly inside dir whose extension is in
// exts. Subdirectories are never entered.
func Scan(dir string, exts []string) ([]Entry, error) {
	resp := (&System{}).scanDir(dir, exts)
	return resp.Entries, resp.Err
}

func extensionFilter(exts []string) map[string]bool {
	accept := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			accept[e] = true
		}
	}
	return accept
}

func (s *System) scanDir(path string, exts []string) Response {
	debug.Log(debug.FS, "scanDir: reading %q", path)

	accept := extensionFilter(exts)
	var result []Entry
	var mu sync.Mutex

	conf := &fastwalk.Config{
		Follow: true, // Follow symlinks to get target info
	}

	pathLen := len(path)

	err := fastwalk.Walk(conf, path, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			debug.Log(debug.FS_ENTRY, "scanDir: walk error at %q: %v", fullPath, err)
			return nil
		}
		if fullPath == path {
			return nil
		}

		// keep/discard folders live under the scanned directory; never descend
		if d.IsDir() {
			return fastwalk.SkipDir
		}

		relStart := pathLen
		if relStart < len(fullPath) && (fullPath[relStart] == '/' || fullPath[relStart] == '\\') {
			relStart++
		}
		if strings.ContainsAny(fullPath[relStart:], "/\\") {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		if !accept[ext] {
			debug.Log(debug.FS_ENTRY, "scanDir: skipping %q: extension %q", d.Name(), ext)
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			debug.Log(debug.FS_ENTRY, "scanDir: skipping %q: stat error: %v", d.Name(), err)
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		mu.Lock()
		result = append(result, Entry{
			Name:    d.Name(),
			Path:    fullPath,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		mu.Unlock()
		return nil
	})

	if err != nil {
		debug.Log(debug.FS, "scanDir: walk error: %v", err)
		return Response{Op: ScanDir, Path: path, Err: err}
	}

	debug.Log(debug.FS, "scanDir: returning %d entries", len(result))
	return Response{Op: ScanDir, Path: path, Entries: result}
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
