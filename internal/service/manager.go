// Package service owns the session lifecycle: the Manager enforces
// expiry and throttles activity, the Watcher mirrors manager state for
// interactive consumers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/esencia-retail/backoffice-cli/internal/api"
	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
	"github.com/esencia-retail/backoffice-cli/internal/event"
	"github.com/esencia-retail/backoffice-cli/internal/telemetry"
)

// maxCredentialLen is the upper bound on trimmed email and password.
const maxCredentialLen = 255

// ErrNoActiveSession is returned by ExtendSession when there is nothing
// to extend.
var ErrNoActiveSession = errors.New("no active session")

// AuthClient is the slice of the API client the manager consumes.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*api.AuthPayload, error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) error
}

// Recorder receives journal entries. Best-effort; implementations never
// return errors.
type Recorder interface {
	Record(name, reason, userID, tokenFP string)
}

// LogoutResult is what Logout reports. Logout cannot fail from the
// caller's point of view, so there is no error.
type LogoutResult struct {
	Status  string
	Message string
}

// Config carries the manager's timing knobs. Zero values fall back to
// the session package defaults.
type Config struct {
	MaxLifetime       time.Duration
	InactivityTimeout time.Duration
	ActivityThrottle  time.Duration
	MonitorInterval   time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxLifetime == 0 {
		c.MaxLifetime = session.DefaultMaxLifetime
	}
	if c.InactivityTimeout == 0 {
		c.InactivityTimeout = session.DefaultInactivityTimeout
	}
	if c.ActivityThrottle == 0 {
		c.ActivityThrottle = session.DefaultActivityThrottle
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = session.DefaultMonitorInterval
	}
}

// Manager owns the session record's lifecycle: login, logout, expiry
// evaluation, activity throttling, forced-logout broadcast, and the
// background monitor.
//
// State machine: LOGGED_OUT --login--> ACTIVE; ACTIVE --logout |
// absolute timeout | inactivity timeout | corruption--> LOGGED_OUT.
// Every read accessor re-evaluates expiry first and performs cleanup as
// a side effect, so callers must treat any accessor as potentially
// session-terminating.
type Manager struct {
	store   session.Store
	client  AuthClient
	bus     *event.Bus
	journal Recorder
	metrics *telemetry.Metrics
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time

	// Monitor lifecycle. stopChan is recreated on every start so the
	// monitor can be restarted after logout.
	monMu      sync.Mutex
	monRunning bool
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMetrics attaches a metric bundle.
func WithMetrics(m *telemetry.Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithJournal attaches a session event recorder.
func WithJournal(r Recorder) ManagerOption {
	return func(mgr *Manager) { mgr.journal = r }
}

// WithClock overrides the time source. Tests use this to drive the
// throttle and expiry windows deterministically.
func WithClock(now func() time.Time) ManagerOption {
	return func(mgr *Manager) { mgr.now = now }
}

// NewManager creates a session manager in the LOGGED_OUT state.
func NewManager(store session.Store, client AuthClient, bus *event.Bus, logger *slog.Logger, cfg Config, opts ...ManagerOption) *Manager {
	cfg.setDefaults()
	m := &Manager{
		store:  store,
		client: client,
		bus:    bus,
		logger: logger,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login validates the credentials, authenticates against the server,
// persists the new session record, and starts the background monitor.
// The raw server payload is returned to the caller.
func (m *Manager) Login(ctx context.Context, email, password string) (*api.AuthPayload, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	// Collect every violated rule, not just the first.
	var violations []string
	if email == "" {
		violations = append(violations, "email is required")
	} else if len(email) > maxCredentialLen {
		violations = append(violations, fmt.Sprintf("email must be at most %d characters", maxCredentialLen))
	}
	if password == "" {
		violations = append(violations, "password is required")
	} else if len(password) > maxCredentialLen {
		violations = append(violations, fmt.Sprintf("password must be at most %d characters", maxCredentialLen))
	}
	if len(violations) > 0 {
		m.metrics.RecordLogin(false)
		return nil, api.NewValidationError(violations)
	}

	payload, err := m.client.Login(ctx, email, password)
	if err != nil {
		m.metrics.RecordLogin(false)
		m.logger.Warn("login failed", "error", err)
		return nil, err
	}

	now := m.now()
	record := &session.Record{
		Token:        payload.Token,
		User:         payload.User,
		LoginTime:    now,
		LastActivity: now,
		ExpiresIn:    m.cfg.MaxLifetime,
	}

	if !m.store.Set(record) {
		// Degraded: the caller is logged in for this process run, but
		// the record did not persist. Expiry still applies on next read.
		m.logger.Warn("session record not persisted, continuing degraded")
	}
	m.store.RemoveLegacy()

	m.StartInactivityMonitoring()

	m.metrics.RecordLogin(true)
	m.metrics.SetSessionActive(true)
	if m.journal != nil {
		m.journal.Record("login", "", record.User.ID, session.Fingerprint(record.Token))
	}
	m.logger.Info("logged in",
		"user_id", record.User.ID,
		"role", record.User.Role,
		"token_fp", session.Fingerprint(record.Token))

	return payload, nil
}

// Logout best-effort notifies the server, then unconditionally stops the
// monitor and deletes local session state. It always succeeds.
func (m *Manager) Logout(ctx context.Context) LogoutResult {
	if record, ok := m.store.Get(); ok {
		if err := m.client.Logout(ctx, record.Token); err != nil {
			m.logger.Warn("server logout notify failed, continuing", "error", err)
		}
		if m.journal != nil {
			m.journal.Record("logout", "", record.User.ID, session.Fingerprint(record.Token))
		}
	}

	m.StopInactivityMonitoring()
	m.store.Remove()
	m.store.RemoveLegacy()
	m.metrics.SetSessionActive(false)

	m.logger.Info("logged out")
	return LogoutResult{Status: "ok", Message: "session closed"}
}

// evaluate is the single expiry-enforcement path every accessor goes
// through. It returns the live record, or ok=false after cleaning up an
// absent, corrupt, or expired session. The absolute lifetime is checked
// before inactivity.
func (m *Manager) evaluate() (*session.Record, bool) {
	record, ok := m.store.Get()
	if !ok {
		return nil, false
	}

	now := m.now()
	if record.ExpiredAbsolute(now, m.cfg.MaxLifetime) {
		m.ForceLogout(session.ReasonAbsoluteExpiry)
		return nil, false
	}
	if record.ExpiredInactive(now, m.cfg.InactivityTimeout) {
		m.ForceLogout(session.ReasonInactivity)
		return nil, false
	}

	return record, true
}

// IsLoggedIn reports whether a live session exists. Not read-only: a
// session found expired is cleaned up before false is returned.
func (m *Manager) IsLoggedIn() bool {
	_, ok := m.evaluate()
	return ok
}

// CurrentUser returns the principal snapshot of the live session.
func (m *Manager) CurrentUser() (session.User, bool) {
	record, ok := m.evaluate()
	if !ok {
		return session.User{}, false
	}
	return record.User, true
}

// Token returns the bearer token of the live session.
func (m *Manager) Token() (string, bool) {
	record, ok := m.evaluate()
	if !ok {
		return "", false
	}
	return record.Token, true
}

// Remaining returns the time left before absolute expiry, measured from
// the last recorded activity.
func (m *Manager) Remaining() (time.Duration, bool) {
	record, ok := m.evaluate()
	if !ok {
		return 0, false
	}
	return record.Remaining(m.now()), true
}

// HasRole reports whether the current user has the given role.
func (m *Manager) HasRole(role session.Role) bool {
	user, ok := m.CurrentUser()
	return ok && user.Role == role
}

// IsAdmin reports whether the current user is an admin.
func (m *Manager) IsAdmin() bool {
	return m.HasRole(session.RoleAdmin)
}

// IsActive reports whether the current user's account is enabled.
func (m *Manager) IsActive() bool {
	user, ok := m.CurrentUser()
	return ok && user.Status
}

// UpdateActivity refreshes the persisted activity timestamp, throttled
// to one write per throttle window. No-ops silently without a valid
// record. The write is a full read-modify-write of the record, never a
// partial field update.
func (m *Manager) UpdateActivity() {
	record, ok := m.store.Get()
	if !ok {
		return
	}

	now := m.now()
	if now.Sub(record.LastActivity) < m.cfg.ActivityThrottle {
		return
	}

	record.LastActivity = now
	if m.store.Set(record) {
		m.metrics.RecordActivityWrite()
		m.logger.Debug("activity recorded", "last_activity", now)
	}
}

// ExtendSession performs one activity update, failing if no session is
// active.
func (m *Manager) ExtendSession() error {
	if !m.IsLoggedIn() {
		return ErrNoActiveSession
	}
	m.UpdateActivity()
	return nil
}

// ForceLogout ends the session without user action: it stops the
// monitor, deletes session state, and broadcasts a logout event carrying
// the reason. This broadcast is the only way the rest of the application
// learns of an involuntary session end.
func (m *Manager) ForceLogout(reason string) {
	// Signal-only stop: ForceLogout runs on the monitor goroutine when
	// the monitor itself detects expiry, so it must not wait for it.
	m.signalStopMonitoring()

	m.store.Remove()
	m.store.RemoveLegacy()

	m.metrics.RecordForcedLogout(reason)
	m.metrics.SetSessionActive(false)
	m.logger.Info("forced logout", "reason", reason)

	m.bus.Publish(event.LoggedOut{Reason: reason})
}

// StartInactivityMonitoring starts the background monitor: a ticker that
// re-validates the session every monitor interval and self-terminates
// once the session has died. This is the authoritative expiry enforcer
// even when no interactive surface is mounted. Idempotent while running.
func (m *Manager) StartInactivityMonitoring() {
	m.monMu.Lock()
	defer m.monMu.Unlock()

	if m.monRunning {
		return
	}
	m.monRunning = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.MonitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !m.IsLoggedIn() {
					// Expired or externally removed; evaluate already
					// cleaned up and signalled stop where needed.
					m.signalStopMonitoring()
					return
				}
			}
		}
	}()
}

// StopInactivityMonitoring stops the monitor and waits for it to exit.
// Safe to call when not running, and safe to call repeatedly.
func (m *Manager) StopInactivityMonitoring() {
	m.signalStopMonitoring()
	m.wg.Wait()
}

// signalStopMonitoring closes the stop channel without waiting. Safe
// from within the monitor goroutine itself.
func (m *Manager) signalStopMonitoring() {
	m.monMu.Lock()
	defer m.monMu.Unlock()

	if !m.monRunning {
		return
	}
	m.monRunning = false
	close(m.stopChan)
}

// Close releases the manager's background resources. Part of app
// teardown; the session record itself is left untouched.
func (m *Manager) Close() {
	m.StopInactivityMonitoring()
}
