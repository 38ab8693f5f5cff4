package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/evidence-assistant/internal/bootstrap"
	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

func newCaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Create and list cases",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				c, err := app.CaseUC.CreateCase(ctx, args[0], description)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), c, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "created case %s\t%s\n", c.ID, c.Name)
				})
			})
		},
	}
	create.Flags().String("description", "", "Case description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				cases, err := app.CaseUC.ListCases(ctx)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), cases, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tNAME\tCREATED")
					for _, c := range cases {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.CreatedAt.Format("2006-01-02 15:04"))
					}
				})
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create and list mediation sessions",
	}

	create := &cobra.Command{
		Use:   "create CASE_ID",
		Short: "Start a session for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			treatment, _ := cmd.Flags().GetString("treatment")
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				s, err := app.CaseUC.CreateSession(ctx, args[0], treatment)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), s, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "created session %s\t%s\n", s.ID, s.Treatment)
				})
			})
		},
	}
	create.Flags().String("treatment", string(domain.TreatmentMerged),
		fmt.Sprintf("Evidence presentation (%s or %s)", domain.TreatmentMerged, domain.TreatmentSideBySide))

	list := &cobra.Command{
		Use:   "list CASE_ID",
		Short: "List sessions of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				sessions, err := app.CaseUC.ListSessions(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), outputFormat(cmd), sessions, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tTREATMENT\tCREATED")
					for _, s := range sessions {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Treatment, s.CreatedAt.Format("2006-01-02 15:04"))
					}
				})
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}
