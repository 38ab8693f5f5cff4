package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/evidence-assistant/internal/adapters/http"
	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/config"
	"github.com/kirillkom/evidence-assistant/internal/observability/logging"
)

const serviceName = "evidence-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, logging.Options{Service: serviceName, Level: cfg.LogLevel, Format: cfg.LogFormat}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	app.StartTranscriptFeed(ctx)

	router := httpadapter.NewRouter(
		app.CaseUC,
		app.IngestUC,
		app.ChallengeUC,
		app.TranscriptUC,
		app.EvidenceUC,
		app.Metrics,
		httpadapter.Options{
			CORSOrigins:    cfg.CORSOrigins,
			AuthToken:      cfg.APIAuthToken,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
			MaxInFlight:    cfg.MaxInFlight,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Health: httpadapter.HealthStatus{
				OpenAIConfigured: app.OpenAIConfigured,
				CohereConfigured: app.CohereConfigured,
			},
			Checks: app.Checks,
		},
	).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Uploads and synthesis are slow; transcript sockets are long-lived.
		ReadTimeout:  0,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
}
