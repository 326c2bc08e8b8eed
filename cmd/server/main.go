// Package main is the entry point for the classroom portal gateway.
//
// main stays minimal: read configuration, build the logger, hand everything
// to internal/server. All actual logic lives in the imported packages so the
// application is testable without running main.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/classroom-portal/internal/config"
	"github.com/sakif/classroom-portal/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load refuses to return a config without a real JWT secret — the server
	// fails closed here rather than signing sessions with a known default.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
