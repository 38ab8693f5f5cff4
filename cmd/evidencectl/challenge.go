package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func newChallengeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "challenge SESSION_ID",
		Short: "Retrieve cited evidence for the recent discussion of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				resp, err := app.ChallengeUC.Run(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), resp, func(tw *tabwriter.Writer) {
					printChallenge(tw, resp)
				})
			})
		},
	}
}

func printChallenge(tw *tabwriter.Writer, resp domain.ChallengeResponse) {
	fmt.Fprintf(tw, "treatment:\t%s\n", resp.Treatment)
	fmt.Fprintf(tw, "query:\t%s\n", preview(resp.QueryUsed, 100))
	switch {
	case resp.NoEvidence:
		fmt.Fprintln(tw, "result:\tno relevant evidence")
	case resp.Merged != nil:
		fmt.Fprintf(tw, "summary:\t%s\n", resp.Merged.Summary)
		printCitations(tw, "", resp.Merged.Citations)
	case resp.SideBySide != nil:
		fmt.Fprintf(tw, "party A:\t%s\n", resp.SideBySide.PartyA.Summary)
		printCitations(tw, "A ", resp.SideBySide.PartyA.Citations)
		fmt.Fprintf(tw, "party B:\t%s\n", resp.SideBySide.PartyB.Summary)
		printCitations(tw, "B ", resp.SideBySide.PartyB.Citations)
	}
}

func printCitations(tw *tabwriter.Writer, label string, citations []domain.Citation) {
	for i, c := range citations {
		fmt.Fprintf(tw, "%s[%d]\t%s p.%d\t%s\n", label, i+1, c.DocName, c.Page, preview(c.Snippet, 60))
	}
}
