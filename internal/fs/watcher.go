package fs

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/triage/internal/debug"
)

// Change lists the entries of a watched directory that were created,
// removed or renamed during one debounce period.
type Change struct {
	Dir   string
	Paths []string
}

// DirectoryWatcher reports debounced changes to watched directories.
type DirectoryWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	watching map[string]bool
	notify   chan Change
	done     chan struct{}
	debounce time.Duration
}

// NewDirectoryWatcher starts a watcher. debounceMs <= 0 selects 200ms.
func NewDirectoryWatcher(debounceMs int) (*DirectoryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounceMs <= 0 {
		debounceMs = 200
	}

	dw := &DirectoryWatcher{
		watcher:  w,
		watching: make(map[string]bool),
		notify:   make(chan Change, 10),
		done:     make(chan struct{}),
		debounce: time.Duration(debounceMs) * time.Millisecond,
	}
	go dw.run()
	return dw, nil
}

type pendingChange struct {
	last  time.Time
	paths map[string]bool
}

func (dw *DirectoryWatcher) run() {
	pending := make(map[string]*pendingChange)
	ticker := time.NewTicker(dw.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			// content writes do not change membership
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			dir := filepath.Dir(event.Name)

			dw.mu.Lock()
			watched := dw.watching[dir]
			dw.mu.Unlock()
			if !watched {
				continue
			}

			p := pending[dir]
			if p == nil {
				p = &pendingChange{paths: make(map[string]bool)}
				pending[dir] = p
			}
			p.last = time.Now()
			p.paths[event.Name] = true
			debug.Log(debug.FS, "FSNotify event: %s on %s", event.Op, event.Name)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.FS, "FSNotify error: %v", err)

		case <-ticker.C:
			now := time.Now()
			for dir, p := range pending {
				if now.Sub(p.last) < dw.debounce {
					continue
				}
				change := Change{Dir: dir}
				for path := range p.paths {
					change.Paths = append(change.Paths, path)
				}
				sort.Strings(change.Paths)
				select {
				case dw.notify <- change:
					debug.Log(debug.FS, "Directory change notification: %s (%d paths)", dir, len(change.Paths))
				default:
					debug.Log(debug.FS, "Directory change dropped, consumer busy: %s", dir)
				}
				delete(pending, dir)
			}
		}
	}
}

// Watch adds a directory to the watch list.
func (dw *DirectoryWatcher) Watch(path string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.watching[path] {
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return err
	}
	dw.watching[path] = true
	debug.Log(debug.FS, "Now watching directory: %s", path)
	return nil
}

// UnwatchAll removes all directories from the watch list.
func (dw *DirectoryWatcher) UnwatchAll() {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	for path := range dw.watching {
		if err := dw.watcher.Remove(path); err != nil {
			debug.Log(debug.FS, "Error unwatching %s: %v", path, err)
		}
	}
	dw.watching = make(map[string]bool)
}

// Notify returns the channel that receives change notifications.
func (dw *DirectoryWatcher) Notify() <-chan Change {
	return dw.notify
}

// Close shuts down the watcher.
func (dw *DirectoryWatcher) Close() error {
	close(dw.done)
	return dw.watcher.Close()
}
