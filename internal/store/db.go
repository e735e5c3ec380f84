// Package store keeps an append-only journal of the moves made by triage
// sessions in SQLite. The journal is an audit log; it is never used to
// restore a session.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/logging"
)

type EventType int

const (
	RecordMove EventType = iota
	FetchHistory
)

// Action is what the user asked for.
type Action string

const (
	ActionKeep    Action = "keep"
	ActionDiscard Action = "discard"
	ActionUndo    Action = "undo"
)

// Status is what happened to the move.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusReverted  Status = "reverted"
)

// Move is one journal row.
type Move struct {
	ID          int64
	Session     string
	Source      string
	Destination string
	Action      Action
	Status      Status
	Error       string
	At          time.Time
}

type Request struct {
	Op    EventType
	Move  Move
	Limit int
}

type Response struct {
	Op    EventType
	Moves []Move
	Err   error
}

type DB struct {
	conn         *sql.DB
	session      string
	RequestChan  chan Request
	ResponseChan chan Response

	stopOnce sync.Once
	done     chan struct{}
}

// NewDB creates a journal handle with a fresh session id.
func NewDB() *DB {
	return &DB{
		session:      uuid.NewString(),
		RequestChan:  make(chan Request, 64),
		ResponseChan: make(chan Response, 10),
		done:         make(chan struct{}),
	}
}

// Session returns the id stamped on every row written through this handle.
func (d *DB) Session() string { return d.session }

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}

	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return err
	}

	query := `
	CREATE TABLE IF NOT EXISTS moves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		action TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS moves_at ON moves(at);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return err
	}

	d.conn = db
	return nil
}

// Start serves requests until Stop is called.
func (d *DB) Start() {
	defer close(d.done)
	for req := range d.RequestChan {
		switch req.Op {
		case RecordMove:
			if err := d.insert(req.Move); err != nil {
				logging.Default().Error().Err(err).Str("src", req.Move.Source).Msg("journal write failed")
			}
		case FetchHistory:
			moves, err := d.fetchHistory(req.Limit)
			d.ResponseChan <- Response{Op: FetchHistory, Moves: moves, Err: err}
		}
	}
}

// Record queues a row for the worker. It never blocks; rows are dropped
// when the worker falls behind.
func (d *DB) Record(m Move) {
	select {
	case d.RequestChan <- Request{Op: RecordMove, Move: m}:
	default:
		debug.Log(debug.STORE, "journal busy, dropped %s %s", m.Action, m.Source)
	}
}

// History asks the worker for the newest rows. Rows recorded before the
// call are included. Start must be running.
func (d *DB) History(limit int) ([]Move, error) {
	d.RequestChan <- Request{Op: FetchHistory, Limit: limit}
	resp := <-d.ResponseChan
	return resp.Moves, resp.Err
}

func (d *DB) insert(m Move) error {
	if m.At.IsZero() {
		m.At = time.Now()
	}
	if m.Session == "" {
		m.Session = d.session
	}
	_, err := d.conn.Exec(
		"INSERT INTO moves (session, source, destination, action, status, error, at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		m.Session, m.Source, m.Destination, string(m.Action), string(m.Status), m.Error, m.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert move: %w", err)
	}
	debug.Log(debug.STORE, "journal: %s %s %s", m.Status, m.Action, m.Source)
	return nil
}

// fetchHistory returns the newest rows first. limit <= 0 returns all.
func (d *DB) fetchHistory(limit int) ([]Move, error) {
	query := "SELECT id, session, source, destination, action, status, error, at FROM moves ORDER BY at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var moves []Move
	for rows.Next() {
		var (
			m              Move
			action, status string
			at             int64
		)
		if err := rows.Scan(&m.ID, &m.Session, &m.Source, &m.Destination, &action, &status, &m.Error, &at); err != nil {
			return moves, fmt.Errorf("scan history: %w", err)
		}
		m.Action = Action(action)
		m.Status = Status(status)
		m.At = time.UnixMilli(at)
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// Stop ends Start after queued rows are written and closes the database.
// It must only be called when Start is running.
func (d *DB) Stop() {
	d.stopOnce.Do(func() {
		close(d.RequestChan)
		<-d.done
		d.Close()
	})
}

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}
