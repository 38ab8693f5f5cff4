package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/config"
	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/ports"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/queue/nats"
)

func newTranscriptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect and feed session transcripts",
	}

	add := &cobra.Command{
		Use:   "add SESSION_ID SPEAKER TEXT...",
		Short: "Append a turn through the durable transcript store",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				turns, err := app.TranscriptUC.AddTurn(ctx, args[0], args[1], strings.Join(args[2:], " "))
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), turns, func(tw *tabwriter.Writer) {
					printTurns(tw, turns)
				})
			})
		},
	}

	show := &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Print the transcript window of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				turns, err := app.TranscriptUC.Turns(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), turns, func(tw *tabwriter.Writer) {
					printTurns(tw, turns)
				})
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear SESSION_ID",
		Short: "Drop the transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.TranscriptUC.Clear(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared transcript of %s\n", args[0])
				return nil
			})
		},
	}

	// publish only needs the message bus, so it skips the full bootstrap.
	publish := &cobra.Command{
		Use:   "publish SESSION_ID SPEAKER TEXT...",
		Short: "Publish a transcript segment to the live feed",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			feed, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
			if err != nil {
				return err
			}
			defer feed.Close()

			segment := ports.TranscriptSegment{
				SessionID: args[0],
				Speaker:   args[1],
				Text:      strings.Join(args[2:], " "),
			}
			if err := feed.PublishSegment(cmd.Context(), segment); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", feed.Subject())
			return nil
		},
	}

	cmd.AddCommand(add, show, clearCmd, publish)
	return cmd
}

func printTurns(tw *tabwriter.Writer, turns []domain.Turn) {
	fmt.Fprintln(tw, "TIME\tSPEAKER\tPARTY\tTEXT")
	for _, t := range turns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Timestamp.Format("15:04:05"), t.Speaker, t.Party, preview(t.Text, 80))
	}
}
