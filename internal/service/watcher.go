package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
	"github.com/esencia-retail/backoffice-cli/internal/event"
	"github.com/esencia-retail/backoffice-cli/internal/telemetry"
)

// State is the watcher's reactive snapshot for interactive consumers.
type State struct {
	Authenticated bool
	User          session.User
	Loading       bool
	// Remaining is the time left before absolute expiry, recomputed on
	// every countdown tick.
	Remaining time.Duration
	// ExpiringSoon is true once Remaining drops to the warning
	// threshold.
	ExpiringSoon bool
}

// WatcherConfig carries the watcher's timing knobs. Zero values fall
// back to the session package defaults.
type WatcherConfig struct {
	// CountdownTick drives the remaining-time recomputation.
	CountdownTick time.Duration
	// WarningThreshold is the Remaining value at which one
	// SessionWarning is broadcast.
	WarningThreshold time.Duration
	// LivenessInterval drives the backend-confirmed liveness check.
	LivenessInterval time.Duration
	// ActivityDebounce coalesces raw activity signals before one
	// extension is attempted.
	ActivityDebounce time.Duration
}

func (c *WatcherConfig) setDefaults() {
	if c.CountdownTick == 0 {
		c.CountdownTick = session.DefaultCountdownTick
	}
	if c.WarningThreshold == 0 {
		c.WarningThreshold = session.DefaultWarningThreshold
	}
	if c.LivenessInterval == 0 {
		c.LivenessInterval = session.DefaultLivenessInterval
	}
	if c.ActivityDebounce == 0 {
		c.ActivityDebounce = session.DefaultActivityDebounce
	}
}

// Watcher mirrors manager state into a push-based snapshot and runs the
// interactive-layer timers: a countdown tick that recomputes remaining
// time and broadcasts the expiring-soon warning, and a slower
// backend-confirmed liveness check. It never re-implements expiry
// logic; every decision comes from the manager.
//
// The manager's monitor and the watcher's tickers are deliberately
// redundant: the former is the authoritative enforcer, the latter
// exists for countdown display and warnings. Both go through the same
// manager evaluation, so they cannot skew.
type Watcher struct {
	manager *Manager
	client  AuthClient
	bus     *event.Bus
	metrics *telemetry.Metrics
	logger  *slog.Logger
	cfg     WatcherConfig

	mu     sync.Mutex
	state  State
	warned bool
	// onChange receives every state snapshot change.
	onChange func(State)

	// Timer lifecycle. All handles live on the struct and are released
	// through the single Stop path, whatever the exit: explicit logout,
	// forced logout, or teardown.
	running       bool
	stopChan      chan struct{}
	wg            sync.WaitGroup
	debounceTimer *time.Timer
	unsubscribe   func()
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOnChange registers the state-change callback. The callback runs
// on watcher goroutines and must not block.
func WithOnChange(fn func(State)) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

// WithWatcherMetrics attaches a metric bundle.
func WithWatcherMetrics(m *telemetry.Metrics) WatcherOption {
	return func(w *Watcher) { w.metrics = m }
}

// NewWatcher creates a watcher over the manager. client is used for the
// periodic backend liveness check.
func NewWatcher(manager *Manager, client AuthClient, bus *event.Bus, logger *slog.Logger, cfg WatcherConfig, opts ...WatcherOption) *Watcher {
	cfg.setDefaults()
	w := &Watcher{
		manager: manager,
		client:  client,
		bus:     bus,
		logger:  logger,
		cfg:     cfg,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CheckAuth re-derives the snapshot from the manager and starts the
// watcher loops when authenticated. With skipBackendCheck false the
// token is also verified against the backend (fail-closed). Errors
// never escape: any failure means "not authenticated".
func (w *Watcher) CheckAuth(ctx context.Context, skipBackendCheck bool) State {
	w.setLoading(true)
	defer w.setLoading(false)

	user, ok := w.manager.CurrentUser()
	if ok && !skipBackendCheck {
		if token, tokOK := w.manager.Token(); tokOK {
			if err := w.client.Verify(ctx, token); err != nil {
				w.logger.Warn("backend rejected session during auth check", "error", err)
				ok = false
			}
		} else {
			ok = false
		}
	}

	if !ok {
		w.clearState()
		return w.CurrentState()
	}

	remaining, _ := w.manager.Remaining()
	w.updateState(func(s *State) {
		s.Authenticated = true
		s.User = user
		s.Remaining = remaining
		s.ExpiringSoon = remaining <= w.cfg.WarningThreshold
	})

	w.Start(ctx)
	return w.CurrentState()
}

// Login authenticates through the manager and refreshes the snapshot.
func (w *Watcher) Login(ctx context.Context, email, password string) error {
	w.setLoading(true)
	defer w.setLoading(false)

	if _, err := w.manager.Login(ctx, email, password); err != nil {
		w.clearState()
		return err
	}

	w.CheckAuth(ctx, true)
	return nil
}

// Logout logs out through the manager and clears the snapshot.
func (w *Watcher) Logout(ctx context.Context) {
	w.manager.Logout(ctx)
	w.Stop()
	w.clearState()
}

// Start launches the countdown and liveness tickers and subscribes to
// the broadcast bus. Idempotent while running.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.unsubscribe = w.bus.Subscribe(w.handleEvent)
	w.mu.Unlock()

	w.wg.Add(2)

	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.CountdownTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				w.tickCountdown()
			}
		}
	}()

	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.cfg.LivenessInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				w.tickLiveness(ctx)
			}
		}
	}()
}

// Stop cancels both tickers, the pending activity debounce, and the bus
// subscription, then waits for the loops to exit. This is the single
// cleanup path for every exit: explicit logout, forced logout, and
// teardown. Safe to call repeatedly.
func (w *Watcher) Stop() {
	w.signalStop()
	w.wg.Wait()
}

// signalStop releases every timer handle without waiting for the loops.
// A logout broadcast can arrive on one of the watcher's own ticker
// goroutines, so the broadcast path must not wait on itself.
func (w *Watcher) signalStop() {
	w.mu.Lock()
	if w.running {
		w.running = false
		close(w.stopChan)
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	unsub := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Activity registers one raw activity signal. Signals are debounced:
// the extension fires once, a debounce window after the last signal.
// This coarser layer sits on top of the manager's own 30-second write
// throttle, giving two levels of coalescing on purpose.
func (w *Watcher) Activity() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.cfg.ActivityDebounce, func() {
		if err := w.manager.ExtendSession(); err != nil {
			w.logger.Debug("activity extension skipped", "error", err)
		}
	})
}

// CurrentState returns the current snapshot.
func (w *Watcher) CurrentState() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// tickCountdown recomputes remaining time and fires the expiring-soon
// warning once per approach to the threshold.
func (w *Watcher) tickCountdown() {
	remaining, ok := w.manager.Remaining()
	if !ok {
		// Manager already cleaned up and broadcast; handleEvent clears
		// state. Nothing to recompute.
		return
	}

	expiring := remaining <= w.cfg.WarningThreshold
	w.updateState(func(s *State) {
		s.Remaining = remaining
		s.ExpiringSoon = expiring
	})

	w.mu.Lock()
	fire := expiring && !w.warned
	if fire {
		w.warned = true
	}
	if !expiring {
		// Hysteresis reset: an extension pushed remaining back above
		// the threshold, so the next approach warns again.
		w.warned = false
	}
	w.mu.Unlock()

	if fire {
		w.metrics.RecordSessionWarning()
		w.logger.Info("session expiring soon", "remaining", remaining)
		w.bus.Publish(event.SessionWarning{Remaining: remaining})
	}
}

// tickLiveness performs the backend-confirmed check. Fail-closed: any
// rejection or transport failure clears the interactive state.
func (w *Watcher) tickLiveness(ctx context.Context) {
	token, ok := w.manager.Token()
	if !ok {
		return
	}

	if err := w.client.Verify(ctx, token); err != nil {
		w.logger.Warn("backend liveness check failed, clearing state", "error", err)
		w.clearState()
	}
}

// handleEvent reacts to broadcasts. Only the logout event changes
// state; the auxiliary events are logged and nothing more.
func (w *Watcher) handleEvent(e event.Event) {
	switch ev := e.(type) {
	case event.LoggedOut:
		w.logger.Info("logout broadcast received", "reason", ev.Reason)
		w.signalStop()
		w.clearState()
	case event.AccessDenied:
		w.logger.Warn("access denied", "message", ev.Message)
	case event.NetworkError:
		w.logger.Warn("network error", "message", ev.Message)
	}
}

func (w *Watcher) setLoading(loading bool) {
	w.updateState(func(s *State) { s.Loading = loading })
}

func (w *Watcher) clearState() {
	w.updateState(func(s *State) {
		s.Authenticated = false
		s.User = session.User{}
		s.Remaining = 0
		s.ExpiringSoon = false
	})
}

func (w *Watcher) updateState(mutate func(*State)) {
	w.mu.Lock()
	prev := w.state
	mutate(&w.state)
	changed := w.state != prev
	next := w.state
	fn := w.onChange
	w.mu.Unlock()

	if changed && fn != nil {
		fn(next)
	}
}
