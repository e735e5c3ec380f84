package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/justyntemme/triage/internal/catalog"
	"github.com/justyntemme/triage/internal/config"
	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/decode"
	"github.com/justyntemme/triage/internal/fs"
	"github.com/justyntemme/triage/internal/logging"
	"github.com/justyntemme/triage/internal/mover"
	"github.com/justyntemme/triage/internal/prefetch"
	"github.com/justyntemme/triage/internal/store"
	"github.com/justyntemme/triage/internal/thumbs"
	"github.com/justyntemme/triage/internal/undo"
)

// ErrInvalidDirectory is returned by Open for paths that are not readable
// directories.
var ErrInvalidDirectory = errors.New("not a readable directory")

// ErrMoveInProgress is returned by Keep and Discard while an earlier move of
// the same file is still running.
var ErrMoveInProgress = errors.New("move still in progress")

// Listener is told about asynchronous outcomes. All calls happen on the
// goroutine that pumps the session.
type Listener interface {
	DecodeCompleted(id uint64, path string, img image.Image)
	MoveEnqueued(task mover.FileTask)
	MoveCancelled(path string, removed bool)
	ThumbnailUpdated(path string, img image.Image)
	MoveFailed(task mover.FileTask, err error)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) DecodeCompleted(uint64, string, image.Image) {}
func (NopListener) MoveEnqueued(mover.FileTask)                 {}
func (NopListener) MoveCancelled(string, bool)                  {}
func (NopListener) ThumbnailUpdated(string, image.Image)        {}
func (NopListener) MoveFailed(mover.FileTask, error)            {}

// Options sizes the session's caches and workers.
type Options struct {
	KeepFolder    string
	DiscardFolder string

	Forward  int
	Backward int
	Workers  int
	Display  decode.Size

	ThumbSize        int
	ThumbConcurrency int

	UndoDepth  int
	Extensions []string

	Watch      bool
	DebounceMs int
}

// OptionsFromConfig maps a normalized configuration onto session options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		KeepFolder:       cfg.Folders.Keep,
		DiscardFolder:    cfg.Folders.Discard,
		Forward:          cfg.Prefetch.Forward,
		Backward:         cfg.Prefetch.Backward,
		Workers:          cfg.Prefetch.Workers,
		Display:          decode.Size{Width: cfg.Prefetch.MaxWidth, Height: cfg.Prefetch.MaxHeight},
		ThumbSize:        cfg.Thumbnails.Size,
		ThumbConcurrency: cfg.Thumbnails.Concurrency,
		UndoDepth:        cfg.Undo.Depth,
		Extensions:       cfg.ScanExtensions(),
		Watch:            cfg.Watch.Enabled,
		DebounceMs:       cfg.Watch.DebounceMs,
	}
}

// moveFinished is posted by the move queue observer.
type moveFinished struct {
	task mover.FileTask
	err  error
}

// Status is a snapshot for the status bar.
type Status struct {
	Dir   string
	Index int
	Total int
	Name  string
	Err   error
}

// Session owns the image set, the undo ledger and both caches. It is not
// safe for concurrent use: every method, including Pump, must be called
// from the same goroutine. Background work reports back through the Inbox.
type Session struct {
	opts     Options
	inbox    *Inbox
	listener Listener
	decoder  decode.ImageDecoder
	journal  *store.DB

	fsys    *fs.System
	watcher *fs.DirectoryWatcher
	queue   *mover.Queue

	viewPool  *decode.Pool
	thumbPool *decode.Pool
	cache     *prefetch.Cache
	thumbs    *thumbs.Pipeline

	set    *catalog.Set
	ledger *undo.Ledger
	dir    string
	cursor int

	scanGen int64
	lastErr error
	done    chan struct{}
	closed  bool
}

// NewSession starts the session's workers. journal and listener may be nil.
func NewSession(opts Options, dec decode.ImageDecoder, journal *store.DB, listener Listener) *Session {
	return newSession(opts, dec, journal, listener)
}

func newSession(opts Options, dec decode.ImageDecoder, journal *store.DB, listener Listener, qopts ...mover.Option) *Session {
	if listener == nil {
		listener = NopListener{}
	}
	if opts.KeepFolder == "" {
		opts.KeepFolder = "keep"
	}
	if opts.DiscardFolder == "" {
		opts.DiscardFolder = "discard"
	}

	s := &Session{
		opts:     opts,
		inbox:    NewInbox(),
		listener: listener,
		decoder:  dec,
		journal:  journal,
		fsys:     fs.NewSystem(),
		set:      catalog.New(nil),
		ledger:   undo.NewLedger(opts.UndoDepth),
		done:     make(chan struct{}),
	}

	qopts = append(qopts, mover.WithObserver(mover.ObserverFunc(func(task mover.FileTask, err error) {
		s.inbox.Post(moveFinished{task: task, err: err})
	})))
	s.queue = mover.New(qopts...)

	s.viewPool = decode.NewPool("view", max(1, opts.Workers), dec, s.inbox)
	s.thumbPool = decode.NewPool("thumb", max(1, opts.ThumbConcurrency), dec, s.inbox)
	s.cache = prefetch.New(s.set, s.viewPool, opts.Forward, opts.Backward, opts.Display)
	s.thumbs = thumbs.New(s.set, s.thumbPool, opts.ThumbSize, opts.ThumbConcurrency,
		thumbs.NotifierFunc(func(path string, _ int, img image.Image) {
			s.listener.ThumbnailUpdated(path, img)
		}))

	go func() {
		s.fsys.Start()
		close(s.fsys.ResponseChan)
	}()
	go func() {
		for resp := range s.fsys.ResponseChan {
			s.inbox.Post(resp)
		}
	}()

	if opts.Watch {
		w, err := fs.NewDirectoryWatcher(opts.DebounceMs)
		if err != nil {
			logging.Default().Warn().Err(err).Msg("directory watcher unavailable")
		} else {
			s.watcher = w
			go s.forwardChanges()
		}
	}
	return s
}

func (s *Session) forwardChanges() {
	for {
		select {
		case ch := <-s.watcher.Notify():
			s.inbox.Post(ch)
		case <-s.done:
			return
		}
	}
}

// Inbox returns the queue background work reports into.
func (s *Session) Inbox() *Inbox { return s.inbox }

// Open validates dir and requests a scan. The result is installed by Pump.
// An invalid directory is reported in Status and otherwise leaves the
// session untouched.
func (s *Session) Open(dir string) error {
	if s.closed {
		return mover.ErrStopped
	}
	abs, err := filepath.Abs(dir)
	if err != nil || !fs.IsDir(abs) {
		s.lastErr = fmt.Errorf("%w: %s", ErrInvalidDirectory, dir)
		return s.lastErr
	}
	if _, err := os.ReadDir(abs); err != nil {
		s.lastErr = fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, dir, err)
		return s.lastErr
	}
	s.scanGen++
	debug.Log(debug.APP, "open %s gen=%d", abs, s.scanGen)
	s.fsys.RequestChan <- fs.Request{Op: fs.ScanDir, Path: abs, Gen: s.scanGen, Extensions: s.opts.Extensions}
	return nil
}

// Load installs a scanned directory: creates the destination folders and
// resets the ledger, caches and cursor.
func (s *Session) Load(dir string, paths []string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDirectory, dir)
	}
	for _, name := range []string{s.opts.KeepFolder, s.opts.DiscardFolder} {
		if err := os.MkdirAll(filepath.Join(abs, name), 0o755); err != nil {
			return fmt.Errorf("create %s folder: %w", name, err)
		}
	}

	s.dir = abs
	s.set = catalog.New(paths)
	s.ledger.Clear()
	s.cursor = 0
	s.lastErr = nil
	s.cache.Reset(s.set)
	s.thumbs.Reset(s.set)
	s.refresh()

	if s.watcher != nil {
		s.watcher.UnwatchAll()
		if err := s.watcher.Watch(abs); err != nil {
			logging.Default().Warn().Err(err).Str("dir", abs).Msg("cannot watch directory")
		}
	}
	logging.Default().Info().Str("dir", abs).Int("images", s.set.Len()).Msg("directory loaded")
	return nil
}

// refresh re-runs the window step and queues missing thumbnails.
func (s *Session) refresh() {
	s.cache.OnCursorMoved(s.cursor)
	s.thumbs.RefreshPending()
	s.thumbs.AdmitNext()
}

// Keep moves the current image to the keep folder.
func (s *Session) Keep() error {
	return s.move(s.opts.KeepFolder, store.ActionKeep)
}

// Discard moves the current image to the discard folder.
func (s *Session) Discard() error {
	return s.move(s.opts.DiscardFolder, store.ActionDiscard)
}

func (s *Session) move(folder string, action store.Action) error {
	e, ok := s.set.At(s.cursor)
	if !ok {
		return nil
	}
	// an undo raced this file's running move; the late revert has not landed
	if s.queue.Owns(e.Path) {
		s.lastErr = fmt.Errorf("%w: %s", ErrMoveInProgress, e.Name)
		return s.lastErr
	}
	dst := fs.UniqueDestination(filepath.Join(s.dir, folder), e.Name, s.queue.Reserved)
	task := mover.FileTask{Source: e.Path, Destination: dst}
	if err := s.queue.Enqueue(task); err != nil {
		s.lastErr = err
		return err
	}

	index := s.cursor
	s.set.RemoveAt(index)
	s.ledger.Push(undo.MoveRecord{OriginalPath: e.Path, DestinationPath: dst, OriginalIndex: index})
	s.cache.Drop(e.Path)
	s.thumbs.Drop(e.Path)
	s.clampCursor()
	s.refresh()

	debug.Log(debug.APP, "%s %s -> %s", action, e.Path, dst)
	s.record(task, action, store.StatusQueued, nil)
	s.listener.MoveEnqueued(task)
	return nil
}

// Undo reverts the most recent move. It reports false when there is
// nothing to undo. A failed inverse move returns *undo.RevertError and the
// record is consumed.
func (s *Session) Undo() (bool, error) {
	r, ok := s.ledger.Pop()
	if !ok {
		return false, nil
	}
	task := mover.FileTask{Source: r.OriginalPath, Destination: r.DestinationPath}

	out, err := undo.Revert(r, s.queue)
	if err != nil {
		s.lastErr = err
		s.record(task, store.ActionUndo, store.StatusFailed, err)
		logging.Default().Error().Err(err).Str("src", r.OriginalPath).Msg("undo failed")
		return true, err
	}

	idx := s.set.Insert(r.OriginalIndex, catalog.NewEntry(r.OriginalPath))
	if idx < 0 {
		idx = s.set.IndexOf(r.OriginalPath)
	}
	s.cache.Drop(r.OriginalPath)
	s.thumbs.Drop(r.OriginalPath)
	s.cursor = max(0, idx)
	s.refresh()

	switch out.Action {
	case undo.Cancelled:
		if out.Removed {
			s.record(task, store.ActionUndo, store.StatusCancelled, nil)
		}
		s.listener.MoveCancelled(r.OriginalPath, out.Removed)
	case undo.Reverted:
		s.record(task, store.ActionUndo, store.StatusReverted, nil)
	}
	debug.Log(debug.UNDO, "undo %s: %s", r.OriginalPath, out.Action)
	return true, nil
}

func (s *Session) clampCursor() {
	if s.cursor >= s.set.Len() {
		s.cursor = s.set.Len() - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// Next advances the cursor. It reports whether the cursor moved.
func (s *Session) Next() bool { return s.Select(s.cursor + 1) }

// Previous moves the cursor back. It reports whether the cursor moved.
func (s *Session) Previous() bool { return s.Select(s.cursor - 1) }

// Select moves the cursor to i if it is a valid index.
func (s *Session) Select(i int) bool {
	if i < 0 || i >= s.set.Len() || i == s.cursor {
		return false
	}
	s.cursor = i
	s.cache.OnCursorMoved(i)
	return true
}

// Cursor returns the current index.
func (s *Session) Cursor() int { return s.cursor }

// Len returns the number of images left to triage.
func (s *Session) Len() int { return s.set.Len() }

// At returns the entry at index i.
func (s *Session) At(i int) (catalog.Entry, bool) { return s.set.At(i) }

// CanUndo reports whether the ledger holds a record.
func (s *Session) CanUndo() bool { return s.ledger.Len() > 0 }

// PendingMoves returns the number of moves waiting for the worker.
func (s *Session) PendingMoves() int { return s.queue.Len() }

// Entries returns the remaining images in display order.
func (s *Session) Entries() []catalog.Entry { return s.set.Entries() }

// Dir returns the loaded directory.
func (s *Session) Dir() string { return s.dir }

// Current returns the entry under the cursor and its image. A cache miss
// is decoded synchronously and stored.
func (s *Session) Current() (catalog.Entry, image.Image, bool) {
	e, ok := s.set.At(s.cursor)
	if !ok {
		return catalog.Entry{}, nil, false
	}
	if img, ok := s.cache.Get(e.Path); ok {
		return e, img, true
	}
	res, err := s.decoder.Decode(context.Background(), e.Path, s.cache.Target())
	if err != nil || res.Image == nil {
		return e, decode.Placeholder(), true
	}
	debug.Log(debug.CACHE, "sync decode %s stage=%s", e.Name, res.Stage)
	s.cache.Store(e.Path, res.Image)
	return e, res.Image, true
}

// Thumbnail returns the cached thumbnail for path.
func (s *Session) Thumbnail(path string) (image.Image, bool) {
	return s.thumbs.Get(path)
}

// SetDisplay changes the size full-view images are decoded to.
func (s *Session) SetDisplay(size decode.Size) {
	if size != s.cache.Target() {
		debug.Log(debug.CACHE, "display target %s", size)
		s.cache.SetTarget(size)
	}
}

// Status returns a snapshot for display.
func (s *Session) Status() Status {
	st := Status{Dir: s.dir, Index: s.cursor, Total: s.set.Len(), Err: s.lastErr}
	if e, ok := s.set.At(s.cursor); ok {
		st.Name = e.Name
	}
	return st
}

// ClearError forgets the last reported error.
func (s *Session) ClearError() { s.lastErr = nil }

// OpenExternal opens the current image in the platform viewer.
func (s *Session) OpenExternal() error {
	e, ok := s.set.At(s.cursor)
	if !ok {
		return nil
	}
	if err := platformOpen(e.Path); err != nil {
		return fmt.Errorf("open %s: %w", e.Name, err)
	}
	return nil
}

// Pump handles everything waiting in the inbox and reports how many
// messages were processed.
func (s *Session) Pump() int {
	msgs := s.inbox.Drain()
	for _, m := range msgs {
		s.Handle(m)
	}
	return len(msgs)
}

// Handle dispatches one inbox message.
func (s *Session) Handle(msg any) {
	switch m := msg.(type) {
	case decode.Completion:
		s.handleDecode(m)
	case fs.Response:
		s.handleScan(m)
	case moveFinished:
		s.handleMoveFinished(m.task, m.err)
	case fs.Change:
		s.reconcile(m)
	default:
		debug.Log(debug.APP, "unknown inbox message %T", msg)
	}
}

func (s *Session) handleDecode(c decode.Completion) {
	switch c.Purpose {
	case decode.PurposeThumbnail:
		s.thumbs.OnThumbnailCompleted(c)
	default:
		s.cache.OnDecodeCompleted(c)
		if !c.Abandoned && c.Result.Image != nil {
			s.listener.DecodeCompleted(c.ID, c.Path, c.Result.Image)
		}
	}
}

func (s *Session) handleScan(resp fs.Response) {
	if resp.Gen != s.scanGen {
		debug.Log(debug.APP, "stale scan gen=%d want %d", resp.Gen, s.scanGen)
		return
	}
	if resp.Err != nil {
		s.lastErr = fmt.Errorf("scan %s: %w", resp.Path, resp.Err)
		logging.Default().Error().Err(resp.Err).Str("dir", resp.Path).Msg("scan failed")
		return
	}
	paths := make([]string, len(resp.Entries))
	for i, e := range resp.Entries {
		paths[i] = e.Path
	}
	if err := s.Load(resp.Path, paths); err != nil {
		s.lastErr = err
		logging.Default().Error().Err(err).Str("dir", resp.Path).Msg("load failed")
	}
}

func (s *Session) handleMoveFinished(task mover.FileTask, err error) {
	action := s.actionOf(task)
	if err != nil {
		s.lastErr = err
		s.record(task, action, store.StatusFailed, err)
		s.listener.MoveFailed(task, err)
		return
	}
	s.record(task, action, store.StatusDone, nil)

	// An undo that raced the running move put the entry back before the
	// rename landed. Finish the undo now.
	if s.set.Contains(task.Source) && !fs.PathExists(task.Source) && fs.PathExists(task.Destination) {
		if err := fs.Rename(task.Destination, task.Source); err != nil {
			revErr := &undo.RevertError{
				Record: undo.MoveRecord{OriginalPath: task.Source, DestinationPath: task.Destination},
				Err:    err,
			}
			s.lastErr = revErr
			s.record(task, store.ActionUndo, store.StatusFailed, err)
			logging.Default().Error().Err(err).Str("src", task.Source).Msg("late undo failed")
			return
		}
		s.cache.Drop(task.Source)
		s.thumbs.Drop(task.Source)
		s.refresh()
		s.record(task, store.ActionUndo, store.StatusReverted, nil)
		debug.Log(debug.UNDO, "late undo %s", task.Source)
	}
}

// reconcile removes entries whose files disappeared behind our back. New
// files are ignored until the directory is reopened.
func (s *Session) reconcile(ch fs.Change) {
	if ch.Dir != s.dir {
		return
	}
	removed := 0
	for _, p := range ch.Paths {
		idx := s.set.IndexOf(p)
		if idx < 0 {
			if fs.PathExists(p) {
				debug.Log(debug.FS, "new file ignored: %s", p)
			}
			continue
		}
		if fs.PathExists(p) || s.queue.Owns(p) {
			continue
		}
		s.set.RemoveAt(idx)
		s.cache.Drop(p)
		s.thumbs.Drop(p)
		if idx < s.cursor {
			s.cursor--
		}
		removed++
	}
	if removed > 0 {
		s.clampCursor()
		s.refresh()
		logging.Default().Info().Int("removed", removed).Str("dir", s.dir).Msg("files vanished")
	}
}

func (s *Session) actionOf(task mover.FileTask) store.Action {
	if filepath.Dir(task.Destination) == filepath.Join(s.dir, s.opts.KeepFolder) {
		return store.ActionKeep
	}
	return store.ActionDiscard
}

func (s *Session) record(task mover.FileTask, action store.Action, status store.Status, err error) {
	if s.journal == nil {
		return
	}
	m := store.Move{Source: task.Source, Destination: task.Destination, Action: action, Status: status}
	if err != nil {
		m.Error = err.Error()
	}
	s.journal.Record(m)
}

// Close lets queued moves finish, stops every worker and journals the
// final move outcomes. The journal itself is left to its owner.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.fsys.Close()
	s.queue.Stop()
	s.queue.Wait()
	s.viewPool.Close()
	s.thumbPool.Close()

	for _, m := range s.inbox.Drain() {
		if mf, ok := m.(moveFinished); ok {
			s.handleMoveFinished(mf.task, mf.err)
		}
	}
	debug.Log(debug.APP, "session closed")
}
