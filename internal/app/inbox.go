package app

import (
	"sync"

	"github.com/justyntemme/triage/internal/decode"
)

// Inbox collects messages from background goroutines for the UI goroutine.
// Post never blocks; Ready fires at least once after any number of posts.
type Inbox struct {
	mu   sync.Mutex
	msgs []any
	wake chan struct{}
}

func NewInbox() *Inbox {
	return &Inbox{wake: make(chan struct{}, 1)}
}

// Post appends msg and wakes the consumer.
func (in *Inbox) Post(msg any) {
	in.mu.Lock()
	in.msgs = append(in.msgs, msg)
	in.mu.Unlock()

	select {
	case in.wake <- struct{}{}:
	default:
	}
}

// Deliver lets the inbox act as a decode pool sink.
func (in *Inbox) Deliver(c decode.Completion) { in.Post(c) }

// Drain returns and clears everything posted so far, oldest first.
func (in *Inbox) Drain() []any {
	in.mu.Lock()
	defer in.mu.Unlock()
	msgs := in.msgs
	in.msgs = nil
	return msgs
}

// Ready is signalled when messages are waiting.
func (in *Inbox) Ready() <-chan struct{} { return in.wake }

// Len reports how many messages are waiting.
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.msgs)
}
