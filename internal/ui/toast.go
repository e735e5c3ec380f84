package ui

import (
	"image"
	"image/color"
	"time"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"
)

type ToastType int

const (
	ToastInfo ToastType = iota
	ToastError
)

// toast is a transient message at the bottom of the window. It is only
// touched from the window goroutine.
type toast struct {
	message   string
	kind      ToastType
	expiresAt time.Time
}

const toastDuration = 3 * time.Second

// ShowToast displays a message that dismisses itself.
func (r *Renderer) ShowToast(message string, kind ToastType) {
	r.toast = toast{message: message, kind: kind, expiresAt: time.Now().Add(toastDuration)}
}

func (r *Renderer) ShowError(message string) { r.ShowToast(message, ToastError) }

// Toast returns the message on screen, or "" once it has expired.
func (r *Renderer) Toast() (string, ToastType) {
	if r.toast.message == "" || time.Now().After(r.toast.expiresAt) {
		return "", ToastInfo
	}
	return r.toast.message, r.toast.kind
}

func (r *Renderer) layoutToast(gtx layout.Context, th *material.Theme) layout.Dimensions {
	t := r.toast
	if t.message == "" || time.Now().After(t.expiresAt) {
		return layout.Dimensions{}
	}
	gtx.Execute(op.InvalidateCmd{At: t.expiresAt})

	bg := color.NRGBA{R: 60, G: 60, B: 60, A: 240}
	if t.kind == ToastError {
		bg = color.NRGBA{R: 200, G: 50, B: 50, A: 240}
	}

	return layout.S.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Bottom: unit.Dp(110)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Max.X = min(gtx.Constraints.Max.X, gtx.Dp(unit.Dp(500)))
			gtx.Constraints.Min = image.Point{}

			macro := op.Record(gtx.Ops)
			dims := layout.Inset{
				Top: unit.Dp(12), Bottom: unit.Dp(12), Left: unit.Dp(16), Right: unit.Dp(16),
			}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				label := material.Body1(th, t.message)
				label.Color = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
				return label.Layout(gtx)
			})
			call := macro.Stop()

			rr := gtx.Dp(unit.Dp(8))
			paint.FillShape(gtx.Ops, bg, clip.RRect{
				Rect: image.Rectangle{Max: dims.Size},
				NE:   rr, NW: rr, SE: rr, SW: rr,
			}.Op(gtx.Ops))
			call.Add(gtx.Ops)
			return dims
		})
	})
}
