package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sydlexius/pitwall/internal/entity"
	"github.com/sydlexius/pitwall/internal/match"
)

func newEntitiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List canonical entities",
	}

	var year int
	rounds := &cobra.Command{
		Use:   "rounds",
		Short: "List rounds, optionally for one season",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			list, err := a.store.ListRounds(cmd.Context())
			if year != 0 {
				list, err = a.store.ListRoundsByYear(cmd.Context(), year)
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "YEAR\tROUND\tNAME\tSLUG\tDATES\tID")
			for _, r := range list {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s .. %s\t%s\n", r.Year, r.RoundNumber, r.Name, r.Slug,
					r.StartDate.Format("2006-01-02"), r.EndDate.Format("2006-01-02"), r.ID)
			}
			return tw.Flush()
		},
	}
	rounds.Flags().IntVar(&year, "year", 0, "only this season")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "drivers",
			Short: "List drivers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.open(); err != nil {
					return err
				}
				list, err := a.store.ListDrivers(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tNUMBER\tCODE\tNATIONALITY\tSLUG\tID")
				for _, d := range list {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", d.Name, d.Number, d.Abbreviation, d.Nationality, d.Slug, d.ID)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "teams",
			Short: "List teams",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.open(); err != nil {
					return err
				}
				list, err := a.store.ListTeams(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tCOLOR\tACTIVE\tSLUG\tID")
				for _, t := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.Color, seasons(t.ActiveFrom, t.ActiveUntil), t.Slug, t.ID)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "circuits",
			Short: "List circuits",
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.open(); err != nil {
					return err
				}
				list, err := a.store.ListCircuits(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tLOCATION\tCOUNTRY\tSLUG\tID")
				for _, c := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Location, c.Country, c.Slug, c.ID)
				}
				return tw.Flush()
			},
		},
		rounds,
		newDuplicatesCmd(a),
	)
	return cmd
}

func newDuplicatesCmd(a *app) *cobra.Command {
	var typ, floor string
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report stored entities that look like the same thing",
		Long: `Scores every stored entity of one type against the others with the same
signals a sync uses, and prints the pairs at or above --floor.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := entity.ParseType(typ)
			if err != nil {
				return err
			}
			threshold := match.ParseConfidence(floor)
			if threshold == match.NoMatch {
				return fmt.Errorf("invalid --floor %q (want low, medium, or high)", floor)
			}
			res, err := a.resolver()
			if err != nil {
				return err
			}
			pairs, err := res.FindDuplicates(cmd.Context(), t, threshold)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tCONFIDENCE\tFIRST\tSECOND\tFIRST ID\tSECOND ID")
			for _, p := range pairs {
				fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\t%s\n", p.Score, p.Confidence, p.First.Name, p.Second.Name, p.First.ID, p.Second.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", string(entity.TypeDriver), "entity type: driver, team, circuit, or round")
	cmd.Flags().StringVar(&floor, "floor", match.Medium.String(), "lowest confidence to report")
	return cmd
}

func seasons(from, until int) string {
	switch {
	case from == 0 && until == 0:
		return "-"
	case until == 0:
		return fmt.Sprintf("%d-", from)
	case from == 0:
		return fmt.Sprintf("-%d", until)
	default:
		return fmt.Sprintf("%d-%d", from, until)
	}
}
