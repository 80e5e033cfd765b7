package journal

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"audiochan.click/internal/channel"
)

// NewSessionID returns a fresh identifier grouping one process's journal rows
func NewSessionID() string {
	return uuid.NewString()
}

// Recorder writes every lifecycle event it observes to the journal. The first
// write failure disables it; playback never depends on the journal.
type Recorder struct {
	db        *sql.DB
	sessionID string
	observer  channel.Observer
	now       func() time.Time

	mu       sync.Mutex
	disabled bool
}

// NewRecorder creates a recorder for sessionID
func NewRecorder(db *sql.DB, sessionID string) *Recorder {
	r := &Recorder{
		db:        db,
		sessionID: sessionID,
		now:       time.Now,
	}
	r.observer = channel.ObserveFunc(r.Record)
	return r
}

// Observer returns the observer to register on a channel. The same value is
// returned every time so it can also be removed.
func (r *Recorder) Observer() channel.Observer {
	return r.observer
}

// SessionID returns the session the recorder writes under
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Disabled reports whether a write failure has switched the recorder off
func (r *Recorder) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// Record writes one event
func (r *Recorder) Record(e channel.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled || r.db == nil {
		return
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols("timestamp", "session_id", "source_id", "event", "offset_ms", "error_code", "description")
	ib.Values(
		r.now().Unix(),
		r.sessionID,
		int64(e.Source),
		e.Kind.String(),
		e.Offset.Milliseconds(),
		errorCode(e),
		nullString(e.Description),
	)

	query, args := ib.Build()
	if _, err := r.db.Exec(query, args...); err != nil {
		slog.Warn("playback journal write failed, disabling journal", "error", err, "event", e.Kind)
		r.disabled = true
		return
	}

	slog.Debug("playback event journaled",
		"session_id", r.sessionID,
		"source_id", e.Source,
		"event", e.Kind,
		"offset", e.Offset)
}

func errorCode(e channel.Event) sql.NullString {
	if e.Kind != channel.EventError {
		return sql.NullString{}
	}
	return sql.NullString{String: e.Error.String(), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
