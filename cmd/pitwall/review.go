package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sydlexius/pitwall/internal/review"
)

func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and decide low-confidence matches",
	}
	cmd.AddCommand(
		newReviewListCmd(a),
		newReviewDecideCmd(a, "approve", review.CreateNew, "Create a new entity from the incoming record"),
		newReviewDecideCmd(a, "merge", review.MatchExisting, "Confirm the candidate and alias the incoming name to it"),
		newReviewDecideCmd(a, "reject", review.Skip, "Discard the incoming record"),
	)
	return cmd
}

func newReviewListCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending matches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			st := review.Status(status)
			if status == "all" {
				st = ""
			}
			matches, err := a.reviews.List(cmd.Context(), st)
			if err != nil {
				return err
			}
			printMatches(cmd.OutOrStdout(), matches)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(review.StatusPending), "filter by status: pending, approved, merged, rejected, or all")
	return cmd
}

func newReviewDecideCmd(a *app, use string, res review.Resolution, short string) *cobra.Command {
	var reviewer string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			m, err := p.ApplyDecision(cmd.Context(), args[0], res, reviewer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %q: %s\n", m.ID, m.EntityType, m.IncomingName, m.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "name recorded as the decision's author")
	return cmd
}

func printMatches(w io.Writer, matches []review.PendingMatch) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tINCOMING\tCANDIDATE\tSCORE\tSOURCE\tSTATUS")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f (%s)\t%s\t%s\n",
			m.ID, m.EntityType, m.IncomingName, m.CandidateName, m.Score, m.Confidence, m.Source, m.Status)
	}
	_ = tw.Flush()
}
