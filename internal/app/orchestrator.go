package app

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"

	"github.com/justyntemme/triage/internal/config"
	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/decode"
	"github.com/justyntemme/triage/internal/logging"
	"github.com/justyntemme/triage/internal/mover"
	"github.com/justyntemme/triage/internal/store"
	"github.com/justyntemme/triage/internal/ui"
)

// Orchestrator runs the window. The window goroutine is the only one that
// touches the session.
type Orchestrator struct {
	window  *app.Window
	ui      *ui.Renderer
	session *Session
	cfg     config.Config
	done    chan struct{}
}

func NewOrchestrator(cfg config.Config, dec decode.ImageDecoder, journal *store.DB) *Orchestrator {
	r := ui.NewRenderer()
	r.SetHotkeys(cfg.Hotkeys)
	r.SetDarkMode(cfg.UI.Theme == "dark")
	r.ShowFileName = cfg.UI.ShowFileName

	o := &Orchestrator{
		window: new(app.Window),
		ui:     r,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
	o.session = NewSession(OptionsFromConfig(cfg), dec, journal, o)
	return o
}

// Main runs the window loop on its own goroutine and gives the main
// goroutine to gio. It does not return. A running journal is stopped
// before exit.
func Main(cfg config.Config, dec decode.ImageDecoder, journal *store.DB, startDir string) {
	go func() {
		o := NewOrchestrator(cfg, dec, journal)
		err := o.Run(startDir)
		if journal != nil {
			journal.Stop()
		}
		if err != nil {
			logging.Default().Error().Err(err).Msg("triage exited")
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}

// Run opens startDir, if given, and blocks until the window is closed. An
// unusable startDir is reported in the window.
func (o *Orchestrator) Run(startDir string) error {
	defer o.session.Close()
	defer close(o.done)

	o.window.Option(app.Title("triage"), app.Size(unit.Dp(1200), unit.Dp(820)))

	if startDir != "" {
		if err := o.session.Open(startDir); err != nil {
			logging.Default().Error().Err(err).Str("dir", startDir).Msg("cannot open directory")
			o.ui.ShowError(err.Error())
		}
	}
	go o.wakeOnInbox()

	var ops op.Ops
	for {
		switch e := o.window.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			state := o.prepareFrame(o.ui.Viewport())
			evt := o.ui.Layout(gtx, &state)
			if evt.Action != ui.ActionNone {
				o.handleUIEvent(evt)
				o.window.Invalidate()
			}
			e.Frame(gtx.Ops)
		}
	}
}

// prepareFrame installs finished background work and sizes decodes to the
// viewport of the previous frame before the current image is fetched.
func (o *Orchestrator) prepareFrame(viewport image.Point) ui.State {
	if n := o.session.Pump(); n > 0 {
		debug.Log(debug.APP, "pumped %d messages", n)
	}
	o.session.SetDisplay(displayTarget(viewport, o.session.opts.Display))
	return o.buildState()
}

// displayTarget sizes full-view decodes to the viewport, rounded up to a
// 256px step so small resizes keep the cache, and never above limit.
func displayTarget(viewport image.Point, limit decode.Size) decode.Size {
	if viewport.X <= 0 || viewport.Y <= 0 {
		return limit
	}
	round := func(v, most int) int {
		v = (v + 255) / 256 * 256
		if most > 0 && v > most {
			return most
		}
		return v
	}
	return decode.Size{Width: round(viewport.X, limit.Width), Height: round(viewport.Y, limit.Height)}
}

func (o *Orchestrator) wakeOnInbox() {
	for {
		select {
		case <-o.session.Inbox().Ready():
			o.window.Invalidate()
		case <-o.done:
			return
		}
	}
}

func (o *Orchestrator) buildState() ui.State {
	st := o.session.Status()
	state := ui.State{
		Dir:         st.Dir,
		Index:       st.Index,
		Total:       st.Total,
		Name:        st.Name,
		PendingMove: o.session.PendingMoves(),
		CanUndo:     o.session.CanUndo(),
	}
	if st.Err != nil {
		state.Error = st.Err.Error()
	}
	if e, img, ok := o.session.Current(); ok {
		state.CurrentPath = e.Path
		state.Current = img
	}

	for i := st.Index - o.cfg.UI.StripBefore; i <= st.Index+o.cfg.UI.StripAfter; i++ {
		e, ok := o.session.At(i)
		if !ok {
			continue
		}
		thumb, _ := o.session.Thumbnail(e.Path)
		state.Strip = append(state.Strip, ui.StripItem{Index: i, Path: e.Path, Name: e.Name, Thumb: thumb})
	}
	return state
}

func (o *Orchestrator) handleUIEvent(evt ui.UIEvent) {
	s := o.session
	switch evt.Action {
	case ui.ActionKeep:
		if err := s.Keep(); err != nil {
			o.ui.ShowError(err.Error())
		}
	case ui.ActionDiscard:
		if err := s.Discard(); err != nil {
			o.ui.ShowError(err.Error())
		}
	case ui.ActionUndo:
		ok, err := s.Undo()
		switch {
		case err != nil:
			o.ui.ShowError(err.Error())
		case !ok:
			o.ui.ShowToast("Nothing to undo", ui.ToastInfo)
		}
	case ui.ActionNext:
		s.Next()
	case ui.ActionPrevious:
		s.Previous()
	case ui.ActionFirst:
		s.Select(0)
	case ui.ActionLast:
		s.Select(s.Len() - 1)
	case ui.ActionSelect:
		s.Select(evt.NewIndex)
	case ui.ActionOpen:
		if err := s.OpenExternal(); err != nil {
			logging.Default().Error().Err(err).Msg("open in viewer failed")
			o.ui.ShowError(err.Error())
		}
	case ui.ActionOpenFolder:
		if err := s.Open(evt.Path); err != nil {
			logging.Default().Warn().Err(err).Str("dir", evt.Path).Msg("cannot open directory")
			o.ui.ShowError(err.Error())
		}
	case ui.ActionDismissError:
		s.ClearError()
	}
}

func (o *Orchestrator) DecodeCompleted(id uint64, path string, img image.Image) {
	debug.Log(debug.APP, "decoded #%d %s %v", id, filepath.Base(path), img.Bounds().Size())
}

func (o *Orchestrator) MoveEnqueued(task mover.FileTask) {
	debug.Log(debug.APP, "enqueued %s", task.Destination)
}

func (o *Orchestrator) MoveCancelled(path string, removed bool) {
	if removed {
		o.ui.ShowToast(fmt.Sprintf("Move of %s withdrawn", filepath.Base(path)), ui.ToastInfo)
	}
}

func (o *Orchestrator) ThumbnailUpdated(path string, img image.Image) {}

func (o *Orchestrator) MoveFailed(task mover.FileTask, err error) {
	o.ui.ShowError(fmt.Sprintf("Could not move %s: %v", filepath.Base(task.Source), err))
}
