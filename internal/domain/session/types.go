// Package session defines the persisted session record and the expiry
// rules applied to it.
package session

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Default lifecycle durations. Config may override any of them; the
// defaults match the back-office server's issued token lifetime.
const (
	// DefaultMaxLifetime is the absolute session lifetime. A session ends
	// this long after login regardless of activity.
	DefaultMaxLifetime = 8 * time.Hour

	// DefaultInactivityTimeout ends a session once no activity has been
	// recorded for this long.
	DefaultInactivityTimeout = 10 * time.Minute

	// DefaultActivityThrottle is the minimum gap between persisted
	// activity timestamps.
	DefaultActivityThrottle = 30 * time.Second

	// DefaultMonitorInterval is how often the manager's background
	// monitor re-evaluates expiry.
	DefaultMonitorInterval = 60 * time.Second

	// DefaultWarningThreshold is the remaining time at which a
	// session-warning event is broadcast.
	DefaultWarningThreshold = 5 * time.Minute

	// DefaultCountdownTick is how often the watcher recomputes the
	// remaining-time snapshot.
	DefaultCountdownTick = 30 * time.Second

	// DefaultLivenessInterval is how often the watcher verifies the
	// session against the backend.
	DefaultLivenessInterval = 5 * time.Minute

	// DefaultActivityDebounce coalesces raw activity signals before one
	// session extension is attempted.
	DefaultActivityDebounce = 60 * time.Second
)

// Forced-logout reasons carried on the logout broadcast. The wording is
// part of the contract with listeners and must not change.
const (
	ReasonAbsoluteExpiry = "expired after 8 hours"
	ReasonInactivity     = "closed due to inactivity"
)

// Role is the back-office role of the authenticated principal.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleViewer Role = "viewer"
)

// User is a snapshot of the authenticated principal, taken at login and
// never refreshed until the next login.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Status   bool   `json:"status"`
}

// Record is the sole persisted session entity. At most one exists per
// state directory; it is overwritten, never appended.
type Record struct {
	// Token is the opaque bearer credential issued at login. Never
	// modified client-side.
	Token string
	// User is the principal snapshot.
	User User
	// LoginTime is set exactly once at login.
	LoginTime time.Time
	// LastActivity is monotonically non-decreasing, updated by throttled
	// activity signals. Always >= LoginTime.
	LastActivity time.Time
	// ExpiresIn is the absolute lifetime copied into the record at login
	// for self-description. It is not recomputed.
	ExpiresIn time.Duration
}

// Valid reports whether the record is structurally complete: token, user
// and login time all present. Anything less is treated as no session.
func (r *Record) Valid() bool {
	if r == nil {
		return false
	}
	return r.Token != "" && r.User.ID != "" && !r.LoginTime.IsZero()
}

// ExpiredAbsolute reports whether the absolute lifetime has elapsed.
func (r *Record) ExpiredAbsolute(now time.Time, maxLifetime time.Duration) bool {
	return now.Sub(r.LoginTime) > maxLifetime
}

// ExpiredInactive reports whether the inactivity window has elapsed.
func (r *Record) ExpiredInactive(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.LastActivity) > timeout
}

// Remaining returns the time left before absolute expiry, measured from
// the last recorded activity as the original UI countdown did.
func (r *Record) Remaining(now time.Time) time.Duration {
	return r.ExpiresIn - now.Sub(r.LastActivity)
}

// Store provides persistence for the single session record.
// Implementations never propagate errors: a failed read is an absent
// session, a failed write is reported by the boolean and logged.
type Store interface {
	// Get returns the record, or ok=false if absent or malformed.
	// Malformed records are deleted on detection.
	Get() (*Record, bool)

	// Set persists the record, reporting whether the write succeeded.
	Set(record *Record) bool

	// Remove deletes the record. Idempotent.
	Remove()

	// RemoveLegacy deletes legacy storage keys left behind by earlier
	// clients. Never read by this code.
	RemoveLegacy()
}

// Fingerprint returns a short stable fingerprint of a token, safe for
// logs and journal rows. The raw token must never be logged.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(token))
}
