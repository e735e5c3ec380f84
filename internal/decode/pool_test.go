package decode

import (
	"context"
	"sync"
	"testing"
	"time"
)

// gatedDecoder blocks each decode until its path is released.
type gatedDecoder struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	started chan string
}

func newGatedDecoder() *gatedDecoder {
	return &gatedDecoder{gates: make(map[string]chan struct{}), started: make(chan string, 16)}
}

func (g *gatedDecoder) gate(path string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[path]
	if !ok {
		ch = make(chan struct{})
		g.gates[path] = ch
	}
	return ch
}

func (g *gatedDecoder) release(path string) { close(g.gate(path)) }

func (g *gatedDecoder) Decode(ctx context.Context, path string, target Size) (Result, error) {
	g.started <- path
	select {
	case <-g.gate(path):
		return Result{Image: solid(2, 2), Stage: StageGeneric}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func collect(t *testing.T, ch <-chan Completion, n int) []Completion {
	t.Helper()
	var out []Completion
	for len(out) < n {
		select {
		case c := <-ch:
			out = append(out, c)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d completions", len(out), n)
		}
	}
	return out
}

func waitStarted(t *testing.T, g *gatedDecoder, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		if got != want {
			t.Fatalf("started %q, expected %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("decode of %q never started", want)
	}
}

func TestPoolDeliversInCompletionOrder(t *testing.T) {
	g := newGatedDecoder()
	out := make(chan Completion, 8)
	p := NewPool("test", 3, g, SinkFunc(func(c Completion) { out <- c }))
	defer p.Close()

	for i, path := range []string{"3", "1", "2"} {
		p.Submit(Request{ID: uint64(i + 1), Path: path})
	}
	for i := 0; i < 3; i++ {
		<-g.started
	}
	for _, path := range []string{"2", "3", "1"} {
		g.release(path)
		c := collect(t, out, 1)[0]
		if c.Path != path || c.Abandoned || c.Result.Image == nil {
			t.Fatalf("expected completion for %s, got %+v", path, c)
		}
	}
}

func TestPoolCancelQueued(t *testing.T) {
	g := newGatedDecoder()
	out := make(chan Completion, 8)
	p := NewPool("test", 1, g, SinkFunc(func(c Completion) { out <- c }))
	defer p.Close()

	p.Submit(Request{ID: 1, Path: "a"})
	waitStarted(t, g, "a")
	queued := p.Submit(Request{ID: 2, Path: "b"})
	p.Cancel(queued)
	g.release("a")

	got := collect(t, out, 2)
	if got[0].Path != "a" || got[0].Abandoned {
		t.Errorf("first completion: %+v", got[0])
	}
	if got[1].Path != "b" || !got[1].Abandoned || got[1].Result.Image != nil {
		t.Errorf("cancelled request should be delivered abandoned: %+v", got[1])
	}
}

func TestPoolCancelRunning(t *testing.T) {
	g := newGatedDecoder()
	out := make(chan Completion, 8)
	p := NewPool("test", 1, g, SinkFunc(func(c Completion) { out <- c }))
	defer p.Close()

	h := p.Submit(Request{ID: 7, Path: "slow"})
	waitStarted(t, g, "slow")
	p.Cancel(h)

	c := collect(t, out, 1)[0]
	if c.ID != 7 || !c.Abandoned {
		t.Errorf("expected abandoned completion for #7, got %+v", c)
	}
}

func TestPoolCloseAbandonsQueued(t *testing.T) {
	g := newGatedDecoder()
	var mu sync.Mutex
	var got []Completion
	p := NewPool("test", 1, g, SinkFunc(func(c Completion) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	}))

	p.Submit(Request{ID: 1, Path: "a"})
	waitStarted(t, g, "a")
	p.Submit(Request{ID: 2, Path: "b"})
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(got))
	}
	for _, c := range got {
		if !c.Abandoned {
			t.Errorf("expected abandoned after close: %+v", c)
		}
	}

	if h := p.Submit(Request{ID: 3, Path: "c"}); h.ctx.Err() == nil {
		t.Error("submit after close should return a cancelled handle")
	}
}
