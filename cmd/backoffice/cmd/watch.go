package cmd

import (
	"bufio"
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/esencia-retail/backoffice-cli/internal/service"
	"github.com/esencia-retail/backoffice-cli/internal/telemetry"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session monitored in the foreground",
	Long: `Run the session monitor in the foreground until interrupted.

The monitor re-evaluates the session once a minute and closes it when
the absolute lifetime or the inactivity timeout has passed. A warning
prints when expiry approaches, and each line typed on standard input
counts as activity and extends the session.

Metrics are exposed on telemetry.metrics_addr when configured.

Examples:
  backoffice watch
  BACKOFFICE_TELEMETRY_METRICS_ADDR=127.0.0.1:9464 backoffice watch`,
	RunE: runWatch,
}

var watchMetricsAddr string

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "expose prometheus metrics on this address (overrides config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	a, err := newApp(metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdownTracing, err := telemetry.SetupTracing("backoffice-cli", a.cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if a.journal != nil {
		detach := a.journal.Attach(a.bus)
		defer detach()
	}

	addr := a.cfg.Telemetry.MetricsAddr
	if watchMetricsAddr != "" {
		addr = watchMetricsAddr
	}
	if addr != "" {
		server := &stdhttp.Server{
			Addr:              addr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("metrics listening", "addr", addr)
			if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				a.logger.Warn("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	watcher := service.NewWatcher(a.manager, a.client, a.bus, a.logger, service.WatcherConfig{
		CountdownTick:    a.cfg.Watcher.CountdownTick,
		WarningThreshold: a.cfg.Watcher.WarningThreshold,
		LivenessInterval: a.cfg.Watcher.LivenessInterval,
		ActivityDebounce: a.cfg.Watcher.ActivityDebounce,
	},
		service.WithWatcherMetrics(metrics),
		service.WithOnChange(printStateChange))
	defer watcher.Stop()

	state := watcher.CheckAuth(ctx, false)
	if !state.Authenticated {
		return fmt.Errorf("no live session, run `backoffice login` first")
	}
	a.manager.StartInactivityMonitoring()

	fmt.Printf("Watching session for %s %s. Press Enter to signal activity, Ctrl+C to quit.\n",
		state.User.Name, state.User.LastName)

	// Every line on stdin is one activity signal. The watcher debounces
	// bursts before the session is extended.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			watcher.Activity()
		}
	}()

	<-ctx.Done()
	fmt.Println("\nStopping watch.")
	return nil
}

func printStateChange(state service.State) {
	switch {
	case state.Loading:
		// Transient, not worth a line.
	case !state.Authenticated:
		fmt.Println("Session closed.")
	case state.ExpiringSoon:
		fmt.Printf("Session expiring soon: %s remaining.\n", formatRemaining(state.Remaining))
	}
}
