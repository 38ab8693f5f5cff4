package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Upload documents for one party of a case",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseID, _ := cmd.Flags().GetString("case")
			party, _ := cmd.Flags().GetString("party")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				docs := make([]*domain.Document, 0, len(args))
				for _, path := range args {
					doc, err := ingestFile(ctx, app, caseID, party, path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					docs = append(docs, doc)
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), docs, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tPARTY\tFILE\tPAGES")
					for _, d := range docs {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", d.ID, d.Party, d.Filename, d.PageCount)
					}
				})
			})
		},
	}
	cmd.Flags().String("case", "", "Case identifier")
	cmd.Flags().String("party", "", "Owning party (A or B)")
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("party")
	return cmd
}

func ingestFile(ctx context.Context, app *bootstrap.App, caseID, party, path string) (*domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return app.IngestUC.Upload(ctx, caseID, party, filepath.Base(path), f)
}
