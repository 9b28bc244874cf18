package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/esencia-retail/backoffice-cli/internal/domain/session"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.API.BaseURL == "" {
		t.Error("expected default api base URL")
	}
	if cfg.Session.MaxLifetime != session.DefaultMaxLifetime {
		t.Errorf("MaxLifetime = %s, want %s", cfg.Session.MaxLifetime, session.DefaultMaxLifetime)
	}
	if cfg.Session.InactivityTimeout != session.DefaultInactivityTimeout {
		t.Errorf("InactivityTimeout = %s, want %s", cfg.Session.InactivityTimeout, session.DefaultInactivityTimeout)
	}
	if cfg.Session.ActivityThrottle != session.DefaultActivityThrottle {
		t.Errorf("ActivityThrottle = %s, want %s", cfg.Session.ActivityThrottle, session.DefaultActivityThrottle)
	}
	if cfg.Watcher.WarningThreshold != session.DefaultWarningThreshold {
		t.Errorf("WarningThreshold = %s, want %s", cfg.Watcher.WarningThreshold, session.DefaultWarningThreshold)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestSetDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Session.InactivityTimeout = 20 * time.Minute
	cfg.Log.Level = "debug"
	cfg.SetDefaults()

	if cfg.Session.InactivityTimeout != 20*time.Minute {
		t.Errorf("InactivityTimeout = %s, want 20m", cfg.Session.InactivityTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "malformed base URL",
			mutate:  func(c *Config) { c.API.BaseURL = "not a url" },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "bad metrics addr",
			mutate:  func(c *Config) { c.Telemetry.MetricsAddr = "not-an-addr" },
			wantErr: true,
		},
		{
			name:    "valid metrics addr",
			mutate:  func(c *Config) { c.Telemetry.MetricsAddr = "127.0.0.1:9464" },
			wantErr: false,
		},
		{
			name: "throttle not shorter than inactivity timeout",
			mutate: func(c *Config) {
				c.Session.ActivityThrottle = 10 * time.Minute
				c.Session.InactivityTimeout = 10 * time.Minute
			},
			wantErr: true,
		},
		{
			name: "inactivity timeout exceeds max lifetime",
			mutate: func(c *Config) {
				c.Session.InactivityTimeout = 9 * time.Hour
			},
			wantErr: true,
		},
		{
			name: "warning threshold not shorter than max lifetime",
			mutate: func(c *Config) {
				c.Watcher.WarningThreshold = 8 * time.Hour
			},
			wantErr: true,
		},
		{
			name: "debounce not shorter than inactivity timeout",
			mutate: func(c *Config) {
				c.Watcher.ActivityDebounce = 10 * time.Minute
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigFileInPaths(t *testing.T) {
	dir := t.TempDir()
	empty := t.TempDir()

	path := filepath.Join(dir, "backoffice.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := findConfigFileInPaths([]string{empty, dir}); got != path {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, path)
	}
	if got := findConfigFileInPaths([]string{empty}); got != "" {
		t.Errorf("findConfigFileInPaths = %q, want empty", got)
	}
}

func TestFindConfigFilePrefersYAMLOverYML(t *testing.T) {
	dir := t.TempDir()

	yaml := filepath.Join(dir, "backoffice.yaml")
	yml := filepath.Join(dir, "backoffice.yml")
	for _, p := range []string{yaml, yml} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if got := findConfigFileInPaths([]string{dir}); got != yaml {
		t.Errorf("findConfigFileInPaths = %q, want %q", got, yaml)
	}
}
