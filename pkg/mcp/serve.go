package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osbridge/pkgmgr-mcp/pkg/config"
	"github.com/osbridge/pkgmgr-mcp/pkg/telemetry"
	"github.com/osbridge/pkgmgr-mcp/pkg/tools"
)

// Serve runs the full server lifecycle for one binary: telemetry setup,
// transport selection, health endpoints, and graceful shutdown on SIGINT or
// SIGTERM. backendName labels telemetry; ready reports readiness for
// /readyz and may be nil when the server has no external dependency.
func Serve(cfg *config.Config, registry *tools.Registry, backendName string, ready func() bool) error {
	telemetryShutdown, err := telemetry.Init(context.Background(), cfg.ServerName, backendName)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	srv := NewServer(cfg.ServerName, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Transport == config.TransportStdio {
		err := srv.RunStdio(ctx)
		flushTelemetry(telemetryShutdown)
		return err
	}

	// Health check endpoints on a separate port
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	healthMux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "not ready: backend executable not found")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	go func() {
		healthAddr := fmt.Sprintf(":%d", cfg.Port+1)
		slog.Info("health check server listening", "addr", healthAddr)
		if err := http.ListenAndServe(healthAddr, healthMux); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("MCP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server ready", "port", cfg.Port)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	flushTelemetry(telemetryShutdown)

	slog.Info("server stopped")
	return nil
}

// flushTelemetry drains pending spans, metrics, and logs before exit.
func flushTelemetry(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}
}
