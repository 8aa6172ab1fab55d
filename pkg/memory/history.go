// Package memory journals conversation turns to a local SQLite database.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nathfavour/flora/pkg/engine"
	_ "modernc.org/sqlite"
)

// Session groups the turns of one assistant run.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     int       `json:"turns"`
}

// Entry is a journaled turn.
type Entry struct {
	TurnID     string    `json:"turn_id"`
	SessionID  string    `json:"session_id"`
	Raw        string    `json:"raw"`
	Cleaned    string    `json:"cleaned"`
	Path       string    `json:"path"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Response   string    `json:"response"`
	Error      string    `json:"error,omitempty"`
	States     []string  `json:"states"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HistoryStore handles persistent turn history using SQLite.
type HistoryStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	title TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS turns (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	session_id TEXT NOT NULL,
	raw TEXT,
	cleaned TEXT,
	path TEXT,
	outcome TEXT,
	reason TEXT,
	response TEXT,
	error TEXT,
	states TEXT,
	started_at DATETIME,
	finished_at DATETIME,
	FOREIGN KEY(session_id) REFERENCES sessions(id)
);
CREATE INDEX IF NOT EXISTS turns_session ON turns(session_id);
`

// NewHistoryStore opens (creating if needed) the database at path.
func NewHistoryStore(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history tables: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database connection.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// StartSession creates a session and returns a journal bound to it.
func (h *HistoryStore) StartSession(ctx context.Context, title string) (*Journal, error) {
	id := uuid.New().String()
	now := time.Now()
	_, err := h.db.ExecContext(ctx,
		"INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		id, title, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &Journal{store: h, session: id}, nil
}

func (h *HistoryStore) addTurn(ctx context.Context, session string, t engine.Turn) error {
	states := make([]string, len(t.States))
	for i, s := range t.States {
		states[i] = string(s)
	}
	var errText string
	if t.Err != nil {
		errText = t.Err.Error()
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, raw, cleaned, path, outcome, reason, response, error, states, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, session, t.Raw, t.Cleaned, t.Path, t.Outcome.String(), t.Reason, t.Response, errText,
		strings.Join(states, ","), t.Started, t.Finished,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), session); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListSessions returns up to limit sessions, newest first. A limit of zero
// or less returns all of them.
func (h *HistoryStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.updated_at, COUNT(t.id)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
		GROUP BY s.seq ORDER BY s.seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.Turns); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SessionTurns returns every turn of a session in the order it happened.
func (h *HistoryStore) SessionTurns(ctx context.Context, session string) ([]Entry, error) {
	return h.queryTurns(ctx, "WHERE session_id = ? ORDER BY seq ASC", session)
}

// Recent returns the last n turns across sessions, oldest first.
func (h *HistoryStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	entries, err := h.queryTurns(ctx, "ORDER BY seq DESC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (h *HistoryStore) queryTurns(ctx context.Context, tail string, args ...interface{}) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, session_id, raw, cleaned, path, outcome, reason, response, error, states, started_at, finished_at
		FROM turns `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var states string
		if err := rows.Scan(&e.TurnID, &e.SessionID, &e.Raw, &e.Cleaned, &e.Path, &e.Outcome,
			&e.Reason, &e.Response, &e.Error, &states, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		if states != "" {
			e.States = strings.Split(states, ",")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ErrUnknownSession is returned when deleting a session that does not exist.
var ErrUnknownSession = errors.New("unknown session")

// DeleteSession removes a session and all its turns.
func (h *HistoryStore) DeleteSession(ctx context.Context, session string) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", session); err != nil {
		tx.Rollback()
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", session)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	return tx.Commit()
}

// Journal records turns into one session. It satisfies engine.Recorder.
type Journal struct {
	store   *HistoryStore
	session string
}

func (j *Journal) SessionID() string { return j.session }

// RecordTurn journals a routed turn. Filtered-out turns are skipped.
func (j *Journal) RecordTurn(ctx context.Context, t engine.Turn) error {
	if t.Outcome == engine.OutcomeIgnored && t.Reason == engine.ReasonFiltered {
		return nil
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return j.store.addTurn(ctx, j.session, t)
}

var _ engine.Recorder = (*Journal)(nil)
