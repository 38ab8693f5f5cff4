package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/config"
	"github.com/kirillkom/evidence-assistant/internal/observability/logging"
)

const serviceName = "evidencectl"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "evidencectl",
		Short:         "Manage mediation cases, evidence and transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("format", "f", formatTable, "Output format (table, json, yaml)")

	root.AddCommand(
		newCaseCommand(),
		newSessionCommand(),
		newIngestCommand(),
		newTranscriptCommand(),
		newChallengeCommand(),
		newChunksCommand(),
	)
	return root
}

// withApp loads configuration, wires the application and runs fn. Logs go
// to stderr so command output stays machine readable.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if level == "info" {
		level = "warn"
	}
	logger := logging.New(os.Stderr, logging.Options{Service: serviceName, Level: level, Format: "text"})
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, serviceName)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()
	logger.Debug("evidencectl_ready", "command", cmd.CommandPath())
	return fn(ctx, app)
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("format")
	return format
}
