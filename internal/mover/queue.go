// Package mover executes file moves on a single background worker in the
// order they were requested. Moves still waiting in the queue can be
// withdrawn by source path.
package mover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/fs"
	"github.com/justyntemme/triage/internal/logging"
)

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("move queue stopped")

// ErrDestinationExists is reported when a move would overwrite a file.
var ErrDestinationExists = errors.New("destination already exists")

// FileTask is one requested move. Its identity for cancellation is Source.
type FileTask struct {
	Source      string
	Destination string
}

// Observer is told about every executed task. It is called on the worker
// goroutine.
type Observer interface {
	MoveFinished(task FileTask, err error)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(task FileTask, err error)

func (f ObserverFunc) MoveFinished(task FileTask, err error) { f(task, err) }

// Option configures a Queue.
type Option func(*Queue)

// WithRename replaces the rename primitive.
func WithRename(rename func(src, dst string) error) Option {
	return func(q *Queue) { q.rename = rename }
}

// WithObserver sets the observer.
func WithObserver(o Observer) Option {
	return func(q *Queue) { q.observer = o }
}

// Queue is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []FileTask
	current *FileTask
	running bool
	done    chan struct{}

	rename   func(src, dst string) error
	observer Observer
}

// New starts the worker.
func New(opts ...Option) *Queue {
	q := &Queue{
		running: true,
		done:    make(chan struct{}),
		rename:  fs.Rename,
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	go q.worker()
	return q
}

// Enqueue appends a task and wakes the worker.
func (q *Queue) Enqueue(task FileTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return ErrStopped
	}
	q.queue = append(q.queue, task)
	q.cond.Signal()
	debug.Log(debug.MOVE, "enqueue %s -> %s (queued %d)", task.Source, task.Destination, len(q.queue))
	return nil
}

// Cancel removes the first queued task whose source is source. It returns
// false if none is queued, e.g. because it already ran.
func (q *Queue) Cancel(source string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.queue {
		if t.Source == source {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			debug.Log(debug.MOVE, "cancel %s", source)
			return true
		}
	}
	return false
}

// Stop lets the worker exit once the queue is empty. Queued tasks still run.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.running = false
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Wait blocks until the worker has exited.
func (q *Queue) Wait() {
	<-q.done
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Pending returns a copy of the waiting tasks in execution order.
func (q *Queue) Pending() []FileTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]FileTask, len(q.queue))
	copy(out, q.queue)
	return out
}

// Owns reports whether a queued or running task moves source.
func (q *Queue) Owns(source string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != nil && q.current.Source == source {
		return true
	}
	for _, t := range q.queue {
		if t.Source == source {
			return true
		}
	}
	return false
}

// Reserved reports whether a queued or running task targets dst.
func (q *Queue) Reserved(dst string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != nil && q.current.Destination == dst {
		return true
	}
	for _, t := range q.queue {
		if t.Destination == dst {
			return true
		}
	}
	return false
}

func (q *Queue) worker() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for q.running && len(q.queue) == 0 {
			q.cond.Wait()
		}
		if len(q.queue) == 0 {
			q.mu.Unlock()
			debug.Log(debug.MOVE, "worker exit")
			return
		}
		task := q.queue[0]
		q.queue = q.queue[1:]
		q.current = &task
		q.mu.Unlock()

		err := q.execute(task)

		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()

		if err != nil {
			logging.Default().Error().Err(err).
				Str("src", task.Source).
				Str("dst", task.Destination).
				Msg("move failed")
		}
		if q.observer != nil {
			q.observer.MoveFinished(task, err)
		}
	}
}

func (q *Queue) execute(task FileTask) error {
	if err := os.MkdirAll(filepath.Dir(task.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination folder: %w", err)
	}
	if fs.PathExists(task.Destination) {
		return fmt.Errorf("move %s: %w: %s", task.Source, ErrDestinationExists, task.Destination)
	}
	if err := q.rename(task.Source, task.Destination); err != nil {
		return fmt.Errorf("move %s: %w", task.Source, err)
	}
	debug.Log(debug.MOVE, "moved %s -> %s", task.Source, task.Destination)
	return nil
}
