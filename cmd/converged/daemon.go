package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/converge"
)

// updateStatusInterval paces the periodic health pass between
// external triggers.
const updateStatusInterval = 5 * time.Minute

func runServe(configPath string) error {
	fc, err := converge.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	fc.Log.Setup()

	if err := converge.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		slog.Warn("metrics registration failed", "error", err)
	}

	sys, err := converge.New(fc)
	if err != nil {
		return err
	}
	defer func() { _ = sys.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sys.Reconcile(ctx, "startup")

	srv, err := sys.Serve()
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("daemon started", "instance", fc.Instance, "listen", srv.Addr)

	ticker := time.NewTicker(updateStatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sys.Reconcile(ctx, "update-status")
		case <-ctx.Done():
			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
			}
			return nil
		}
	}
}
