package ui

import "image"

type UIAction int

const (
	ActionNone UIAction = iota
	ActionKeep
	ActionDiscard
	ActionUndo
	ActionNext
	ActionPrevious
	ActionFirst
	ActionLast
	ActionSelect
	ActionOpen
	ActionDismissError
	ActionOpenFolder
)

func (a UIAction) String() string {
	switch a {
	case ActionKeep:
		return "keep"
	case ActionDiscard:
		return "discard"
	case ActionUndo:
		return "undo"
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	case ActionFirst:
		return "first"
	case ActionLast:
		return "last"
	case ActionSelect:
		return "select"
	case ActionOpen:
		return "open"
	case ActionDismissError:
		return "dismiss-error"
	case ActionOpenFolder:
		return "open-folder"
	}
	return "none"
}

type UIEvent struct {
	Action   UIAction
	NewIndex int
	Path     string // ActionOpenFolder
}

// StripItem is one thumbnail cell. Thumb is nil until decoded.
type StripItem struct {
	Index int
	Path  string
	Name  string
	Thumb image.Image
}

// State is what the orchestrator hands the renderer each frame.
type State struct {
	Dir         string
	Index       int
	Total       int
	Name        string
	CurrentPath string
	Current     image.Image
	Strip       []StripItem
	PendingMove int
	CanUndo     bool
	Error       string
}
