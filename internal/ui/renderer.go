package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/justyntemme/triage/internal/config"
	"github.com/justyntemme/triage/internal/debug"
)

type Renderer struct {
	Theme        *material.Theme
	DarkMode     bool
	ShowFileName bool

	hotkeys  *config.HotkeyMatcher
	focusTag int
	focused  bool

	keepBtn    widget.Clickable
	discardBtn widget.Clickable
	undoBtn    widget.Clickable
	openBtn    widget.Clickable
	errorBtn   widget.Clickable
	pathClick  widget.Clickable

	pathEditor widget.Editor
	isEditing  bool

	strip     layout.List
	stripBtns map[string]*widget.Clickable

	images   *opCache
	toast    toast
	viewport image.Point
}

func NewRenderer() *Renderer {
	r := &Renderer{
		Theme:        material.NewTheme(),
		ShowFileName: true,
		stripBtns:    make(map[string]*widget.Clickable),
		images:       newOpCache(),
	}
	r.strip.Axis = layout.Horizontal
	r.pathEditor.SingleLine = true
	r.pathEditor.Submit = true
	return r
}

// SetHotkeys installs the keyboard shortcuts.
func (r *Renderer) SetHotkeys(cfg config.HotkeysConfig) {
	r.hotkeys = config.NewHotkeyMatcher(cfg)
}

func (r *Renderer) SetDarkMode(dark bool) {
	r.DarkMode = dark
	applyPalette(dark)
	r.Theme.Palette.Fg = colText
	r.Theme.Palette.Bg = colBackground
}

// Layout draws one frame and returns the user's action, if any.
func (r *Renderer) Layout(gtx layout.Context, state *State) UIEvent {
	defer clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, colBackground)

	keyTag := &r.focusTag
	event.Op(gtx.Ops, keyTag)
	if !r.focused {
		r.focusKeys(gtx, keyTag)
		r.focused = true
	}

	eventOut := r.processKeys(gtx, state, keyTag)
	r.images.begin()

	layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return r.layoutToolbar(gtx, state, keyTag, &eventOut)
				}),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return r.layoutImage(gtx, state)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return r.layoutStrip(gtx, state, keyTag, &eventOut)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return r.layoutStatus(gtx, state, &eventOut)
				}),
			)
		}),
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			return r.layoutToast(gtx, r.Theme)
		}),
	)

	if n := r.images.prune(); n > 0 {
		debug.Log(debug.UI, "pruned %d image ops", n)
	}
	if eventOut.Action != ActionNone {
		debug.Log(debug.UI, "action %s index=%d", eventOut.Action, eventOut.NewIndex)
	}
	return eventOut
}

func (r *Renderer) processKeys(gtx layout.Context, state *State, keyTag event.Tag) UIEvent {
	if r.hotkeys == nil || r.isEditing {
		return UIEvent{}
	}
	filters := r.hotkeys.Filters(keyTag)
	if len(filters) == 0 {
		return UIEvent{}
	}

	var out UIEvent
	for {
		e, ok := gtx.Event(filters...)
		if !ok {
			break
		}
		k, ok := e.(key.Event)
		if !ok || k.State != key.Press {
			continue
		}
		debug.Log(debug.HOTKEY, "key pressed: name=%q mods=0x%x", k.Name, k.Modifiers)
		if out.Action != ActionNone {
			continue
		}
		a := actionForKey(r.hotkeys, k)
		if a == ActionOpenFolder {
			r.startEditing(gtx, state)
			break
		}
		if a != ActionNone && enabled(a, state) {
			out = UIEvent{Action: a}
		}
	}
	return out
}

// actionForKey maps a key press to the action bound to it.
func actionForKey(m *config.HotkeyMatcher, k key.Event) UIAction {
	switch {
	case m.Keep.Matches(k):
		return ActionKeep
	case m.Discard.Matches(k):
		return ActionDiscard
	case m.Undo.Matches(k):
		return ActionUndo
	case m.Next.Matches(k):
		return ActionNext
	case m.Previous.Matches(k):
		return ActionPrevious
	case m.First.Matches(k):
		return ActionFirst
	case m.Last.Matches(k):
		return ActionLast
	case m.Open.Matches(k):
		return ActionOpen
	case m.OpenFolder.Matches(k):
		return ActionOpenFolder
	}
	return ActionNone
}

// enabled gates hotkeys and clicks. Undo always goes through so an empty
// ledger can be reported.
func enabled(a UIAction, state *State) bool {
	switch a {
	case ActionNone, ActionUndo, ActionDismissError, ActionOpenFolder:
		return true
	}
	return state.Total > 0
}

// focusKeys leaves the path editor and gives the hotkeys back their focus.
func (r *Renderer) focusKeys(gtx layout.Context, keyTag event.Tag) {
	r.isEditing = false
	gtx.Execute(key.FocusCmd{Tag: keyTag})
}

func (r *Renderer) startEditing(gtx layout.Context, state *State) {
	r.isEditing = true
	r.pathEditor.SetText(state.Dir)
	r.pathEditor.SetCaret(r.pathEditor.Len(), 0)
	gtx.Execute(key.FocusCmd{Tag: &r.pathEditor})
}

// layoutPath shows the loaded folder. Clicking it, or the open-folder
// hotkey, turns it into an editor; Enter opens the typed folder and Escape
// gives up.
func (r *Renderer) layoutPath(gtx layout.Context, state *State, keyTag event.Tag, out *UIEvent) layout.Dimensions {
	defer clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops).Pop()

	if r.isEditing {
		for {
			evt, ok := gtx.Event(key.Filter{Focus: &r.pathEditor, Name: key.NameEscape})
			if !ok {
				break
			}
			if k, ok := evt.(key.Event); ok && k.State == key.Press {
				r.focusKeys(gtx, keyTag)
			}
		}
	}
	if r.isEditing {
		for {
			evt, ok := r.pathEditor.Update(gtx)
			if !ok {
				break
			}
			if s, ok := evt.(widget.SubmitEvent); ok {
				r.focusKeys(gtx, keyTag)
				if p := strings.TrimSpace(s.Text); p != "" {
					*out = UIEvent{Action: ActionOpenFolder, Path: p}
				}
			}
		}
	}
	if r.isEditing {
		ed := material.Editor(r.Theme, &r.pathEditor, "Folder")
		ed.Color = colText
		return ed.Layout(gtx)
	}

	if r.pathClick.Clicked(gtx) {
		r.startEditing(gtx, state)
	}
	text := state.Dir
	if text == "" {
		text = r.label("Open folder", r.hotkey(func(m *config.HotkeyMatcher) config.Hotkey { return m.OpenFolder }))
	}
	return r.pathClick.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		l := material.Body2(r.Theme, text)
		l.Color = colMuted
		l.MaxLines = 1
		return l.Layout(gtx)
	})
}

func (r *Renderer) layoutToolbar(gtx layout.Context, state *State, keyTag event.Tag, out *UIEvent) layout.Dimensions {
	click := func(btn *widget.Clickable, a UIAction) {
		if btn.Clicked(gtx) {
			r.focusKeys(gtx, keyTag)
			if enabled(a, state) {
				*out = UIEvent{Action: a}
			}
		}
	}
	click(&r.keepBtn, ActionKeep)
	click(&r.discardBtn, ActionDiscard)
	click(&r.undoBtn, ActionUndo)
	click(&r.openBtn, ActionOpen)

	return layout.UniformInset(unit.Dp(8)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return r.button(gtx, &r.keepBtn, r.label("Keep", r.hotkey(func(m *config.HotkeyMatcher) config.Hotkey { return m.Keep })), colKeep, state.Total > 0)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return r.button(gtx, &r.discardBtn, r.label("Discard", r.hotkey(func(m *config.HotkeyMatcher) config.Hotkey { return m.Discard })), colDiscard, state.Total > 0)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return r.button(gtx, &r.undoBtn, r.label("Undo", r.hotkey(func(m *config.HotkeyMatcher) config.Hotkey { return m.Undo })), colNeutralBtn, state.CanUndo)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(16)}.Layout),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				return r.layoutPath(gtx, state, keyTag, out)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(16)}.Layout),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return r.button(gtx, &r.openBtn, "Open", colNeutralBtn, state.Total > 0)
			}),
		)
	})
}

func (r *Renderer) hotkey(pick func(*config.HotkeyMatcher) config.Hotkey) config.Hotkey {
	if r.hotkeys == nil {
		return config.Hotkey{}
	}
	return pick(r.hotkeys)
}

func (r *Renderer) label(text string, h config.Hotkey) string {
	if h.IsEmpty() {
		return text
	}
	return fmt.Sprintf("%s (%s)", text, h.String())
}

func (r *Renderer) button(gtx layout.Context, btn *widget.Clickable, text string, bg color.NRGBA, on bool) layout.Dimensions {
	b := material.Button(r.Theme, btn, text)
	b.Background = bg
	if !on {
		b.Background = colMuted
		gtx = gtx.Disabled()
	}
	return b.Layout(gtx)
}

func (r *Renderer) layoutImage(gtx layout.Context, state *State) layout.Dimensions {
	paint.FillShape(gtx.Ops, colCanvas, clip.Rect{Max: gtx.Constraints.Max}.Op())
	if state.Current == nil {
		msg := "No images left in this folder"
		if state.Dir == "" {
			msg = "Open a folder to start"
		}
		return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			l := material.Body1(r.Theme, msg)
			l.Color = colMuted
			return l.Layout(gtx)
		})
	}
	return layout.UniformInset(unit.Dp(8)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		gtx.Constraints.Min = gtx.Constraints.Max
		r.viewport = gtx.Constraints.Max
		img := widget.Image{
			Src:      r.images.op(state.CurrentPath, state.Current),
			Fit:      widget.Contain,
			Position: layout.Center,
		}
		return img.Layout(gtx)
	})
}

// Viewport returns the pixel size of the image area from the last frame.
func (r *Renderer) Viewport() image.Point { return r.viewport }

func (r *Renderer) stripButton(path string) *widget.Clickable {
	btn, ok := r.stripBtns[path]
	if !ok {
		btn = new(widget.Clickable)
		r.stripBtns[path] = btn
	}
	return btn
}

func (r *Renderer) layoutStrip(gtx layout.Context, state *State, keyTag event.Tag, out *UIEvent) layout.Dimensions {
	live := make(map[string]bool, len(state.Strip))
	for _, item := range state.Strip {
		live[item.Path] = true
	}
	for p := range r.stripBtns {
		if !live[p] {
			delete(r.stripBtns, p)
		}
	}

	side := gtx.Dp(unit.Dp(72))
	border := gtx.Dp(unit.Dp(3))
	return layout.Background{}.Layout(gtx,
		func(gtx layout.Context) layout.Dimensions {
			paint.FillShape(gtx.Ops, colStrip, clip.Rect{Max: gtx.Constraints.Min}.Op())
			return layout.Dimensions{Size: gtx.Constraints.Min}
		},
		func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Min.X = gtx.Constraints.Max.X
			return r.strip.Layout(gtx, len(state.Strip), func(gtx layout.Context, i int) layout.Dimensions {
				item := state.Strip[i]
				btn := r.stripButton(item.Path)
				if btn.Clicked(gtx) {
					r.focusKeys(gtx, keyTag)
					*out = UIEvent{Action: ActionSelect, NewIndex: item.Index}
				}
				return layout.UniformInset(unit.Dp(4)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return btn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						size := image.Pt(side, side)
						gtx.Constraints = layout.Exact(size)
						if item.Index == state.Index {
							paint.FillShape(gtx.Ops, colSelected, clip.Rect{Max: size}.Op())
						}
						inner := image.Rect(border, border, side-border, side-border)
						paint.FillShape(gtx.Ops, colCanvas, clip.Rect(inner).Op())
						if item.Thumb != nil {
							layout.UniformInset(unit.Dp(3)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
								gtx.Constraints.Min = gtx.Constraints.Max
								return widget.Image{
									Src:      r.images.op("thumb:"+item.Path, item.Thumb),
									Fit:      widget.Contain,
									Position: layout.Center,
								}.Layout(gtx)
							})
						}
						return layout.Dimensions{Size: size}
					})
				})
			})
		},
	)
}

func (r *Renderer) layoutStatus(gtx layout.Context, state *State, out *UIEvent) layout.Dimensions {
	if r.errorBtn.Clicked(gtx) {
		*out = UIEvent{Action: ActionDismissError}
	}
	return layout.Inset{Top: unit.Dp(6), Bottom: unit.Dp(6), Left: unit.Dp(10), Right: unit.Dp(10)}.Layout(gtx,
		func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					l := material.Body2(r.Theme, statusText(state, r.ShowFileName))
					l.Color = colText
					l.MaxLines = 1
					return l.Layout(gtx)
				}),
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					if state.Error == "" {
						return layout.Dimensions{}
					}
					return layout.E.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						return r.errorBtn.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
							l := material.Body2(r.Theme, state.Error+"  ✕")
							l.Color = colDanger
							l.MaxLines = 1
							return l.Layout(gtx)
						})
					})
				}),
			)
		})
}

// statusText renders "i/N  name" plus the number of moves still queued.
func statusText(state *State, showName bool) string {
	if state.Total == 0 {
		if state.Dir == "" {
			return "No folder"
		}
		return fmt.Sprintf("0/0  %s", state.Dir)
	}
	s := fmt.Sprintf("%d/%d", state.Index+1, state.Total)
	if showName && state.Name != "" {
		s += "  " + state.Name
	}
	if state.PendingMove > 0 {
		s += fmt.Sprintf("  (%d moving)", state.PendingMove)
	}
	return s
}
