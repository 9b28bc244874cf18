// Package file persists the single session record on the local
// filesystem, the desktop analog of the browser's session storage.
//
// Reads fail closed: a record that cannot be parsed or that is missing
// required fields is deleted on detection and reported as absent, so a
// broken record can never be mistaken for an authenticated session.
// Writes are atomic (write-tmp, fsync, rename) and serialized by an
// in-process mutex plus an flock for concurrent processes. Note that
// flock only serializes writers; a logout in one process becomes visible
// to another only when its monitor next polls the file.
package file

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
)

const (
	sessionFileName = "session.json"

	// Legacy keys written by earlier clients. Deleted on login and
	// logout for hygiene, never read.
	legacyTokenFile = "token"
	legacyUserFile  = "user"
)

// persistedRecord is the on-disk shape. Timestamps are epoch
// milliseconds and expiresIn is milliseconds, matching records written
// by the original web client.
type persistedRecord struct {
	Token        string       `json:"token"`
	User         session.User `json:"user"`
	LoginTime    int64        `json:"loginTime"`
	LastActivity int64        `json:"lastActivity"`
	ExpiresIn    int64        `json:"expiresIn"`
}

// SessionStore reads and writes the session record under a state
// directory (default ~/.backoffice).
type SessionStore struct {
	dir    string
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSessionStore creates a store rooted at dir, creating the directory
// with 0700 permissions. If dir is empty, ~/.backoffice is used.
func NewSessionStore(dir string, logger *slog.Logger) (*SessionStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".backoffice")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	return &SessionStore{
		dir:    dir,
		path:   filepath.Join(dir, sessionFileName),
		logger: logger,
	}, nil
}

// Get returns the stored record, or ok=false if it is absent or
// malformed. A malformed file is deleted before returning.
func (s *SessionStore) Get() (*session.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("session file unreadable, treating as absent", "path", s.path, "error", err)
		}
		return nil, false
	}

	var raw persistedRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("session file corrupt, deleting", "path", s.path, "error", err)
		s.removeLocked()
		return nil, false
	}

	record := fromPersisted(raw)
	if !record.Valid() {
		s.logger.Warn("session record incomplete, deleting",
			"path", s.path, "token_fp", session.Fingerprint(record.Token))
		s.removeLocked()
		return nil, false
	}

	return record, true
}

// Set persists the record, reporting success. Write failures (quota,
// read-only filesystem) are logged and reported as false; they never
// propagate as errors.
func (s *SessionStore) Set(record *session.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(toPersisted(record), "", "  ")
	if err != nil {
		s.logger.Warn("failed to marshal session record", "error", err)
		return false
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		s.logger.Warn("failed to persist session record", "path", s.path, "error", err)
		return false
	}

	s.logger.Debug("session record saved",
		"path", s.path, "token_fp", session.Fingerprint(record.Token))
	return true
}

// Remove deletes the record. Idempotent, never errors.
func (s *SessionStore) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked()
}

// RemoveLegacy deletes the legacy token/user keys.
func (s *SessionStore) RemoveLegacy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{legacyTokenFile, legacyUserFile} {
		path := filepath.Join(s.dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove legacy key", "path", path, "error", err)
		}
	}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Dir returns the state directory.
func (s *SessionStore) Dir() string {
	return s.dir
}

func (s *SessionStore) removeLocked() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove session file", "path", s.path, "error", err)
	}
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it over
// the session file while holding an flock. On any error the temp file is
// cleaned up.
func (s *SessionStore) writeAtomic(data []byte) error {
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lockFile.Close() }()

	if err := flockLock(lockFile.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer flockUnlock(lockFile.Fd()) //nolint:errcheck

	tmpPath := s.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to session file: %w", err)
	}
	return nil
}

func toPersisted(r *session.Record) persistedRecord {
	return persistedRecord{
		Token:        r.Token,
		User:         r.User,
		LoginTime:    r.LoginTime.UnixMilli(),
		LastActivity: r.LastActivity.UnixMilli(),
		ExpiresIn:    r.ExpiresIn.Milliseconds(),
	}
}

func fromPersisted(raw persistedRecord) *session.Record {
	record := &session.Record{
		Token:     raw.Token,
		User:      raw.User,
		ExpiresIn: time.Duration(raw.ExpiresIn) * time.Millisecond,
	}
	if raw.LoginTime > 0 {
		record.LoginTime = time.UnixMilli(raw.LoginTime).UTC()
	}
	if raw.LastActivity > 0 {
		record.LastActivity = time.UnixMilli(raw.LastActivity).UTC()
	}
	return record
}

// Compile-time interface verification.
var _ session.Store = (*SessionStore)(nil)
