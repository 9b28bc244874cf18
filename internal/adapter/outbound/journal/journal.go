// Package journal keeps a local, append-only record of session
// lifecycle events for back-office troubleshooting.
//
// The journal is strictly best-effort: a failed insert is logged at warn
// and never affects session semantics.
package journal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/esencia-retail/backoffice-cli/internal/event"
)

// Event names recorded in the journal.
const (
	EventLogin          = "login"
	EventLogout         = "logout"
	EventForcedLogout   = "forced_logout"
	EventSessionWarning = "session_warning"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	at       TEXT NOT NULL,
	event    TEXT NOT NULL,
	reason   TEXT NOT NULL DEFAULT '',
	user_id  TEXT NOT NULL DEFAULT '',
	token_fp TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_session_events_at ON session_events(at);
`

// Entry is one journal row.
type Entry struct {
	At      time.Time
	Event   string
	Reason  string
	UserID  string
	TokenFP string
}

// Journal is a SQLite-backed session event log.
type Journal struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens (or creates) the journal database at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &Journal{db: db, logger: logger}, nil
}

// Record appends one event. Failures are logged, never returned.
func (j *Journal) Record(name, reason, userID, tokenFP string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO session_events (at, event, reason, user_id, token_fp) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), name, reason, userID, tokenFP,
	)
	if err != nil {
		j.logger.Warn("failed to record session event", "event", name, "error", err)
	}
}

// Attach subscribes the journal to the broadcast bus, recording forced
// logouts and session warnings. Returns the unsubscribe function.
func (j *Journal) Attach(bus *event.Bus) func() {
	return bus.Subscribe(func(e event.Event) {
		switch ev := e.(type) {
		case event.LoggedOut:
			j.Record(EventForcedLogout, ev.Reason, "", "")
		case event.SessionWarning:
			j.Record(EventSessionWarning, ev.Remaining.String(), "", "")
		}
	})
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT at, event, reason, user_id, token_fp FROM session_events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&at, &e.Event, &e.Reason, &e.UserID, &e.TokenFP); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, at); parseErr == nil {
			e.At = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
