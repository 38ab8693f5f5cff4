package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/evidence-assistant/internal/adapters/mcp"
	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/config"
	"github.com/kirillkom/evidence-assistant/internal/observability/logging"
)

const (
	serviceName = "evidence-mcp"
	version     = "0.1.0"
)

// Stdout carries the MCP protocol, so logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, logging.Options{Service: serviceName, Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	app.StartTranscriptFeed(ctx)

	server := mcpadapter.New(version, app.CaseUC, app.IngestUC, app.ChallengeUC, app.TranscriptUC, app.EvidenceUC)
	if err := server.ServeStdio(); err != nil {
		slog.Error("mcp_server_error", "error", err)
	}
}
