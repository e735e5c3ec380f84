// Package undo records requested moves and reverses them.
package undo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/fs"
)

// MoveRecord is created when a move is requested, before it executes.
type MoveRecord struct {
	OriginalPath    string
	DestinationPath string
	OriginalIndex   int
}

// Ledger is a bounded stack of records; the oldest is dropped past the bound.
// It is not safe for concurrent use.
type Ledger struct {
	max     int
	records []MoveRecord
}

// NewLedger creates a ledger holding at most max records (at least 1).
func NewLedger(max int) *Ledger {
	if max < 1 {
		max = 1
	}
	return &Ledger{max: max}
}

// Push adds a record and reports whether the oldest one was dropped.
func (l *Ledger) Push(r MoveRecord) bool {
	l.records = append(l.records, r)
	if len(l.records) <= l.max {
		return false
	}
	debug.Log(debug.UNDO, "ledger full, dropping %s", l.records[0].OriginalPath)
	l.records[0] = MoveRecord{}
	l.records = l.records[1:]
	return true
}

// Pop removes and returns the newest record.
func (l *Ledger) Pop() (MoveRecord, bool) {
	if len(l.records) == 0 {
		return MoveRecord{}, false
	}
	r := l.records[len(l.records)-1]
	l.records = l.records[:len(l.records)-1]
	return r, true
}

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.records) }

// Max returns the bound.
func (l *Ledger) Max() int { return l.max }

// Clear drops every record.
func (l *Ledger) Clear() { l.records = nil }

// Records returns the records oldest first.
func (l *Ledger) Records() []MoveRecord {
	out := make([]MoveRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Canceller withdraws a queued move by source. *mover.Queue implements it.
type Canceller interface {
	Cancel(source string) bool
}

// Action says how a record was undone.
type Action int

const (
	// Cancelled means the file was still at its original path; the queued
	// move, if any, was withdrawn and nothing touched the disk.
	Cancelled Action = iota
	// Reverted means the inverse rename was performed.
	Reverted
)

func (a Action) String() string {
	if a == Reverted {
		return "reverted"
	}
	return "cancelled"
}

// Outcome describes a successful undo.
type Outcome struct {
	Action Action
	// Removed is the result of the cancel call for Cancelled outcomes.
	Removed bool
}

// RevertError is returned when the inverse rename fails. The record is
// consumed regardless.
type RevertError struct {
	Record MoveRecord
	Err    error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("undo %s: move back from %s failed: %v", filepath.Base(e.Record.OriginalPath), e.Record.DestinationPath, e.Err)
}

func (e *RevertError) Unwrap() error { return e.Err }

// IsRevertError reports whether err is or wraps a *RevertError.
func IsRevertError(err error) bool {
	var e *RevertError
	return errors.As(err, &e)
}

// Replaced in tests.
var renameFunc = fs.Rename

// Revert undoes r. If a file is present at the original path the move has
// not run yet and is cancelled; otherwise the file is moved back.
func Revert(r MoveRecord, c Canceller) (Outcome, error) {
	if fs.PathExists(r.OriginalPath) {
		removed := c.Cancel(r.OriginalPath)
		debug.Log(debug.UNDO, "cancel %s: removed=%v", r.OriginalPath, removed)
		return Outcome{Action: Cancelled, Removed: removed}, nil
	}

	if err := os.MkdirAll(filepath.Dir(r.OriginalPath), 0o755); err != nil {
		return Outcome{}, &RevertError{Record: r, Err: err}
	}
	if err := renameFunc(r.DestinationPath, r.OriginalPath); err != nil {
		return Outcome{}, &RevertError{Record: r, Err: err}
	}
	debug.Log(debug.UNDO, "reverted %s -> %s", r.DestinationPath, r.OriginalPath)
	return Outcome{Action: Reverted}, nil
}
