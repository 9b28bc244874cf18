// Package config provides configuration loading for the back-office CLI.
package config

import (
	"time"

	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
)

// Config is the full CLI configuration, loaded from backoffice.yaml,
// environment variables and flags.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Session   SessionConfig   `mapstructure:"session"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// APIConfig configures the back-office API client.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://backoffice.example.com/api.
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// SessionConfig carries the session lifecycle timings.
type SessionConfig struct {
	// MaxLifetime is the absolute session lifetime since login.
	MaxLifetime time.Duration `mapstructure:"max_lifetime" validate:"gt=0"`
	// InactivityTimeout closes the session after this much idle time.
	InactivityTimeout time.Duration `mapstructure:"inactivity_timeout" validate:"gt=0"`
	// ActivityThrottle is the minimum spacing between persisted
	// activity updates.
	ActivityThrottle time.Duration `mapstructure:"activity_throttle" validate:"gt=0"`
	// MonitorInterval is how often the background monitor re-evaluates
	// the session.
	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"gt=0"`
}

// WatcherConfig carries the interactive-layer timings.
type WatcherConfig struct {
	CountdownTick    time.Duration `mapstructure:"countdown_tick" validate:"gt=0"`
	WarningThreshold time.Duration `mapstructure:"warning_threshold" validate:"gt=0"`
	LivenessInterval time.Duration `mapstructure:"liveness_interval" validate:"gt=0"`
	ActivityDebounce time.Duration `mapstructure:"activity_debounce" validate:"gt=0"`
}

// StorageConfig configures local session persistence.
type StorageConfig struct {
	// Dir holds the session record and lock files. Empty means
	// ~/.backoffice.
	Dir string `mapstructure:"dir"`
}

// JournalConfig configures the local auth event journal.
type JournalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path is the SQLite database file. Empty means journal.db inside
	// the storage dir.
	Path string `mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// TelemetryConfig configures metrics and tracing.
type TelemetryConfig struct {
	// MetricsAddr exposes Prometheus metrics during `watch` when
	// non-empty, e.g. "127.0.0.1:9464".
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
	// Tracing enables stdout span export (stderr, pretty-printed).
	Tracing bool `mapstructure:"tracing"`
}

// SetDefaults applies default values for unset optional fields.
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:3000/api"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.Session.MaxLifetime == 0 {
		c.Session.MaxLifetime = session.DefaultMaxLifetime
	}
	if c.Session.InactivityTimeout == 0 {
		c.Session.InactivityTimeout = session.DefaultInactivityTimeout
	}
	if c.Session.ActivityThrottle == 0 {
		c.Session.ActivityThrottle = session.DefaultActivityThrottle
	}
	if c.Session.MonitorInterval == 0 {
		c.Session.MonitorInterval = session.DefaultMonitorInterval
	}
	if c.Watcher.CountdownTick == 0 {
		c.Watcher.CountdownTick = session.DefaultCountdownTick
	}
	if c.Watcher.WarningThreshold == 0 {
		c.Watcher.WarningThreshold = session.DefaultWarningThreshold
	}
	if c.Watcher.LivenessInterval == 0 {
		c.Watcher.LivenessInterval = session.DefaultLivenessInterval
	}
	if c.Watcher.ActivityDebounce == 0 {
		c.Watcher.ActivityDebounce = session.DefaultActivityDebounce
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
