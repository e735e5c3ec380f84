package decode

import (
	"context"
	"sync"

	"github.com/justyntemme/triage/internal/debug"
)

// Purpose tells the consumer which cache a completion belongs to.
type Purpose int

const (
	PurposeView Purpose = iota
	PurposeThumbnail
)

// Request asks for one decode.
type Request struct {
	ID      uint64
	Path    string
	Target  Size
	Purpose Purpose
}

// Completion is delivered exactly once per submitted request. Abandoned
// completions carry no image.
type Completion struct {
	ID        uint64
	Path      string
	Purpose   Purpose
	Result    Result
	Abandoned bool
}

// Sink receives completions from pool workers. Deliver is called from
// worker goroutines and must not block for long.
type Sink interface {
	Deliver(Completion)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Completion)

func (f SinkFunc) Deliver(c Completion) { f(c) }

// ImageDecoder is what the pool runs. *Strategy implements it.
type ImageDecoder interface {
	Decode(ctx context.Context, path string, target Size) (Result, error)
}

// Handle identifies a submitted request for cancellation.
type Handle struct {
	req    Request
	ctx    context.Context
	cancel context.CancelFunc
}

// ID returns the request id.
func (h *Handle) ID() uint64 { return h.req.ID }

// Path returns the requested path.
func (h *Handle) Path() string { return h.req.Path }

// Pool runs decodes on a fixed number of workers in submission order.
// Completions arrive at the sink in completion order.
type Pool struct {
	name    string
	decoder ImageDecoder
	sink    Sink

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Handle
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines (at least one).
func NewPool(name string, workers int, decoder ImageDecoder, sink Sink) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:    name,
		decoder: decoder,
		sink:    sink,
		ctx:     ctx,
		cancel:  cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues a request. After Close the returned handle is already
// cancelled and nothing is delivered for it.
func (p *Pool) Submit(req Request) *Handle {
	ctx, cancel := context.WithCancel(p.ctx)
	h := &Handle{req: req, ctx: ctx, cancel: cancel}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		cancel()
		return h
	}
	p.queue = append(p.queue, h)
	p.cond.Signal()
	return h
}

// Cancel asks for cooperative abandonment and returns immediately. A decode
// that already passed its last cancellation check still delivers its image.
func (p *Pool) Cancel(h *Handle) {
	if h != nil {
		h.cancel()
	}
}

// Pending returns the number of queued, not yet started requests.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close cancels all outstanding work and waits for the workers to exit.
// Queued requests are delivered as abandoned.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cancel()
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	debug.Log(debug.DECODE, "pool %s: closed", p.name)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.closed && len(p.queue) == 0 {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		h := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.run(h)
	}
}

func (p *Pool) run(h *Handle) {
	defer h.cancel()
	comp := Completion{ID: h.req.ID, Path: h.req.Path, Purpose: h.req.Purpose}

	if h.ctx.Err() != nil {
		comp.Abandoned = true
		p.sink.Deliver(comp)
		return
	}
	res, err := p.decoder.Decode(h.ctx, h.req.Path, h.req.Target)
	if err != nil {
		debug.Log(debug.DECODE, "pool %s: abandoned #%d %s", p.name, h.req.ID, h.req.Path)
		comp.Abandoned = true
	} else {
		comp.Result = res
	}
	p.sink.Deliver(comp)
}
