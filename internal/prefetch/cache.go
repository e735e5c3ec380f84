// Package prefetch keeps decoded full-view images resident in a sliding
// window around the cursor.
package prefetch

import (
	"image"

	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/decode"
)

// Lister is the ordered list the window is computed over. *catalog.Set
// implements it.
type Lister interface {
	Len() int
	Path(i int) string
	IndexOf(path string) int
}

// Submitter runs decode requests. *decode.Pool implements it.
type Submitter interface {
	Submit(decode.Request) *decode.Handle
	Cancel(*decode.Handle)
}

type flight struct {
	id        uint64
	handle    *decode.Handle
	cancelled bool
}

// Cache is a path-keyed window cache. It is owned by a single goroutine and
// does no locking; completions must be handed to OnDecodeCompleted on that
// goroutine.
type Cache struct {
	list     Lister
	sub      Submitter
	forward  int
	backward int
	target   decode.Size
	cursor   int

	store    map[string]image.Image
	inflight map[string]*flight
	nextID   uint64
}

// New creates a cache with forward depth F and backward depth B.
func New(list Lister, sub Submitter, forward, backward int, target decode.Size) *Cache {
	return &Cache{
		list:     list,
		sub:      sub,
		forward:  max(0, forward),
		backward: max(0, backward),
		target:   target,
		store:    make(map[string]image.Image),
		inflight: make(map[string]*flight),
	}
}

// Cursor returns the last cursor passed to OnCursorMoved.
func (c *Cache) Cursor() int { return c.cursor }

// Window returns the inclusive index range that may stay cached.
func (c *Cache) Window() (lo, hi int) {
	return c.cursor - c.backward, c.cursor + c.forward
}

func (c *Cache) inWindow(path string) bool {
	idx := c.list.IndexOf(path)
	if idx < 0 {
		return false
	}
	lo, hi := c.Window()
	return idx >= lo && idx <= hi
}

// OnCursorMoved evicts everything outside [cursor-B, cursor+F], cancels
// in-flight requests that left the window and requests the missing
// neighbours, forward first.
func (c *Cache) OnCursorMoved(cursor int) {
	c.cursor = cursor

	for path := range c.store {
		if !c.inWindow(path) {
			delete(c.store, path)
			debug.Log(debug.CACHE, "evict %s", path)
		}
	}
	for path, f := range c.inflight {
		if !f.cancelled && !c.inWindow(path) {
			f.cancelled = true
			c.sub.Cancel(f.handle)
			debug.Log(debug.CACHE, "cancel #%d %s", f.id, path)
		}
	}

	for i := cursor + 1; i <= cursor+c.forward; i++ {
		c.request(i)
	}
	for i := cursor - 1; i >= cursor-c.backward; i-- {
		c.request(i)
	}
}

func (c *Cache) request(i int) {
	if i < 0 || i >= c.list.Len() {
		return
	}
	path := c.list.Path(i)
	if _, ok := c.store[path]; ok {
		return
	}
	if _, ok := c.inflight[path]; ok {
		return
	}
	c.nextID++
	f := &flight{id: c.nextID}
	c.inflight[path] = f
	f.handle = c.sub.Submit(decode.Request{
		ID:      f.id,
		Path:    path,
		Target:  c.target,
		Purpose: decode.PurposeView,
	})
	debug.Log(debug.CACHE, "request #%d [%d] %s", f.id, i, path)
}

// OnDecodeCompleted clears the in-flight marker, stores the image and
// recomputes the window. Results that fell out of the window are accepted
// and then evicted by the recompute. Results of dropped or superseded
// requests are discarded.
func (c *Cache) OnDecodeCompleted(comp decode.Completion) {
	f, ok := c.inflight[comp.Path]
	current := ok && f.id == comp.ID
	if current {
		delete(c.inflight, comp.Path)
	}
	if current && !comp.Abandoned && comp.Result.Image != nil {
		c.store[comp.Path] = comp.Result.Image
	} else if !current {
		debug.Log(debug.CACHE, "stale result #%d %s", comp.ID, comp.Path)
	}
	c.OnCursorMoved(c.cursor)
}

// Get returns the cached image for path.
func (c *Cache) Get(path string) (image.Image, bool) {
	img, ok := c.store[path]
	return img, ok
}

// Store inserts an image decoded outside the pool, e.g. the synchronous
// fallback for the current entry. Any request for the path is cancelled.
func (c *Cache) Store(path string, img image.Image) {
	if img == nil {
		return
	}
	c.forget(path)
	c.store[path] = img
}

// Drop removes path from the store and forgets any request for it.
func (c *Cache) Drop(path string) {
	delete(c.store, path)
	c.forget(path)
}

func (c *Cache) forget(path string) {
	if f, ok := c.inflight[path]; ok {
		if !f.cancelled {
			c.sub.Cancel(f.handle)
		}
		delete(c.inflight, path)
	}
}

// Reset switches to a new list, dropping everything.
func (c *Cache) Reset(list Lister) {
	c.clear()
	c.list = list
	c.cursor = 0
}

// SetTarget changes the decode size. Cached images at the old size are
// discarded and the window is refilled.
func (c *Cache) SetTarget(target decode.Size) {
	if target == c.target {
		return
	}
	c.target = target
	c.clear()
	c.OnCursorMoved(c.cursor)
}

// Target returns the current decode size.
func (c *Cache) Target() decode.Size { return c.target }

func (c *Cache) clear() {
	for path, f := range c.inflight {
		if !f.cancelled {
			c.sub.Cancel(f.handle)
		}
		delete(c.inflight, path)
	}
	c.store = make(map[string]image.Image)
}

// Len returns the number of stored images.
func (c *Cache) Len() int { return len(c.store) }

// InFlight returns the number of outstanding requests.
func (c *Cache) InFlight() int { return len(c.inflight) }

// IsInFlight reports whether a request for path is outstanding.
func (c *Cache) IsInFlight(path string) bool {
	_, ok := c.inflight[path]
	return ok
}

// Paths returns the stored paths in no particular order.
func (c *Cache) Paths() []string {
	out := make([]string, 0, len(c.store))
	for p := range c.store {
		out = append(out, p)
	}
	return out
}
