package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/esencia-retail/backoffice-cli/internal/adapter/outbound/file"
	"github.com/esencia-retail/backoffice-cli/internal/adapter/outbound/journal"
	"github.com/esencia-retail/backoffice-cli/internal/api"
	"github.com/esencia-retail/backoffice-cli/internal/config"
	"github.com/esencia-retail/backoffice-cli/internal/event"
	"github.com/esencia-retail/backoffice-cli/internal/service"
	"github.com/esencia-retail/backoffice-cli/internal/telemetry"
)

// app bundles the wired components every command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *file.SessionStore
	bus     *event.Bus
	client  *api.Client
	journal *journal.Journal
	manager *service.Manager
}

// newApp loads configuration and wires store, API client, journal and
// manager. metrics may be nil for one-shot commands.
func newApp(metrics *telemetry.Metrics) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Logs go to stderr; stdout is reserved for command output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	store, err := file.NewSessionStore(cfg.Storage.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	client := api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(logger),
	)

	bus := event.NewBus()

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		bus:    bus,
		client: client,
	}

	opts := []service.ManagerOption{}
	if metrics != nil {
		opts = append(opts, service.WithMetrics(metrics))
	}
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = filepath.Join(store.Dir(), "journal.db")
		}
		j, err := journal.Open(path, logger)
		if err != nil {
			logger.Warn("journal disabled, could not open", "path", path, "error", err)
		} else {
			a.journal = j
			opts = append(opts, service.WithJournal(j))
		}
	}

	a.manager = service.NewManager(store, client, bus, logger, service.Config{
		MaxLifetime:       cfg.Session.MaxLifetime,
		InactivityTimeout: cfg.Session.InactivityTimeout,
		ActivityThrottle:  cfg.Session.ActivityThrottle,
		MonitorInterval:   cfg.Session.MonitorInterval,
	}, opts...)

	return a, nil
}

// Close releases the manager and journal.
func (a *app) Close() {
	a.manager.Close()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("journal close failed", "error", err)
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func formatRemaining(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
