// Package telemetry provides the Prometheus metric bundle and the
// OpenTelemetry tracer setup for the CLI.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the session core.
// Pass to components that need to record metrics; a nil *Metrics
// disables recording.
type Metrics struct {
	LoginsTotal        *prometheus.CounterVec
	ForcedLogoutsTotal *prometheus.CounterVec
	ActivityWrites     prometheus.Counter
	SessionWarnings    prometheus.Counter
	SessionActive      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		LoginsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "backoffice",
				Name:      "logins_total",
				Help:      "Total login attempts",
			},
			[]string{"result"}, // result=ok/error
		),
		ForcedLogoutsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "backoffice",
				Name:      "forced_logouts_total",
				Help:      "Total forced logouts by reason",
			},
			[]string{"reason"},
		),
		ActivityWrites: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "backoffice",
				Name:      "activity_writes_total",
				Help:      "Total persisted activity timestamp updates",
			},
		),
		SessionWarnings: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "backoffice",
				Name:      "session_warnings_total",
				Help:      "Total session-expiring-soon broadcasts",
			},
		),
		SessionActive: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "backoffice",
				Name:      "session_active",
				Help:      "Whether a session is currently active (0 or 1)",
			},
		),
	}
}

// RecordLogin increments the login counter. Safe on a nil receiver.
func (m *Metrics) RecordLogin(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// RecordForcedLogout increments the forced-logout counter for a reason.
// Safe on a nil receiver.
func (m *Metrics) RecordForcedLogout(reason string) {
	if m == nil {
		return
	}
	m.ForcedLogoutsTotal.WithLabelValues(reason).Inc()
}

// RecordActivityWrite counts one persisted activity update. Safe on a
// nil receiver.
func (m *Metrics) RecordActivityWrite() {
	if m == nil {
		return
	}
	m.ActivityWrites.Inc()
}

// RecordSessionWarning counts one expiring-soon broadcast. Safe on a nil
// receiver.
func (m *Metrics) RecordSessionWarning() {
	if m == nil {
		return
	}
	m.SessionWarnings.Inc()
}

// SetSessionActive sets the active-session gauge. Safe on a nil receiver.
func (m *Metrics) SetSessionActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.SessionActive.Set(1)
		return
	}
	m.SessionActive.Set(0)
}
