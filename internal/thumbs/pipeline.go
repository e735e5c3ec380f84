// Package thumbs fills small previews for every entry in the list with a
// fixed ceiling on concurrent decodes.
package thumbs

import (
	"image"

	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/decode"
)

// Lister is the list thumbnails are produced for.
type Lister interface {
	Len() int
	Path(i int) string
	IndexOf(path string) int
}

// Submitter runs decode requests.
type Submitter interface {
	Submit(decode.Request) *decode.Handle
	Cancel(*decode.Handle)
}

// Notifier is told when a row's thumbnail becomes available.
type Notifier interface {
	ThumbnailUpdated(path string, row int, img image.Image)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(path string, row int, img image.Image)

func (f NotifierFunc) ThumbnailUpdated(path string, row int, img image.Image) { f(path, row, img) }

type flight struct {
	id     uint64
	handle *decode.Handle
}

// Pipeline is owned by one goroutine and does no locking.
type Pipeline struct {
	list   Lister
	sub    Submitter
	notify Notifier
	size   decode.Size
	limit  int

	pending  []int
	inflight map[string]flight
	cache    map[string]image.Image
	nextID   uint64
}

// New creates a pipeline producing side x side thumbnails with at most
// limit decodes outstanding.
func New(list Lister, sub Submitter, side, limit int, notify Notifier) *Pipeline {
	return &Pipeline{
		list:     list,
		sub:      sub,
		notify:   notify,
		size:     decode.Size{Width: side, Height: side},
		limit:    max(1, limit),
		inflight: make(map[string]flight),
		cache:    make(map[string]image.Image),
	}
}

// RefreshPending queues every row that has no thumbnail and no request.
func (p *Pipeline) RefreshPending() {
	p.pending = p.pending[:0]
	for i := 0; i < p.list.Len(); i++ {
		path := p.list.Path(i)
		if p.has(path) {
			continue
		}
		p.pending = append(p.pending, i)
	}
	debug.Log(debug.THUMB, "pending: %d rows", len(p.pending))
}

func (p *Pipeline) has(path string) bool {
	if _, ok := p.cache[path]; ok {
		return true
	}
	_, ok := p.inflight[path]
	return ok
}

// AdmitNext submits pending rows until the ceiling is reached. Rows that
// went out of range, or got a thumbnail or a request since they were
// queued, are skipped.
func (p *Pipeline) AdmitNext() {
	for len(p.inflight) < p.limit && len(p.pending) > 0 {
		row := p.pending[0]
		p.pending = p.pending[1:]
		if row < 0 || row >= p.list.Len() {
			continue
		}
		path := p.list.Path(row)
		if p.has(path) {
			continue
		}
		p.nextID++
		id := p.nextID
		h := p.sub.Submit(decode.Request{
			ID:      id,
			Path:    path,
			Target:  p.size,
			Purpose: decode.PurposeThumbnail,
		})
		p.inflight[path] = flight{id: id, handle: h}
		debug.Log(debug.THUMB, "admit #%d row %d %s", id, row, path)
	}
}

// OnThumbnailCompleted caches the result if the request is still the
// current one for a listed path and reports its row, then keeps the
// pipeline saturated.
func (p *Pipeline) OnThumbnailCompleted(comp decode.Completion) {
	f, ok := p.inflight[comp.Path]
	current := ok && f.id == comp.ID
	if current {
		delete(p.inflight, comp.Path)
	} else {
		debug.Log(debug.THUMB, "stale result #%d %s", comp.ID, comp.Path)
	}
	if current && !comp.Abandoned && comp.Result.Image != nil {
		row := p.list.IndexOf(comp.Path)
		if row >= 0 {
			p.cache[comp.Path] = comp.Result.Image
			if p.notify != nil {
				p.notify.ThumbnailUpdated(comp.Path, row, comp.Result.Image)
			}
		} else {
			debug.Log(debug.THUMB, "drop %s: no longer listed", comp.Path)
		}
	}
	p.AdmitNext()
}

// Get returns the thumbnail for path.
func (p *Pipeline) Get(path string) (image.Image, bool) {
	img, ok := p.cache[path]
	return img, ok
}

// Drop forgets the thumbnail for path and cancels any request for it.
func (p *Pipeline) Drop(path string) {
	delete(p.cache, path)
	if f, ok := p.inflight[path]; ok {
		p.sub.Cancel(f.handle)
		delete(p.inflight, path)
	}
}

// Reset switches to a new list, cancelling outstanding requests.
func (p *Pipeline) Reset(list Lister) {
	for path, f := range p.inflight {
		p.sub.Cancel(f.handle)
		delete(p.inflight, path)
	}
	p.cache = make(map[string]image.Image)
	p.pending = nil
	p.list = list
}

// Len returns the number of cached thumbnails.
func (p *Pipeline) Len() int { return len(p.cache) }

// InFlight returns the number of outstanding requests.
func (p *Pipeline) InFlight() int { return len(p.inflight) }

// Pending returns the number of queued rows.
func (p *Pipeline) Pending() int { return len(p.pending) }
