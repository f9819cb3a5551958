package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/pitwall/internal/ingest"
	"github.com/sydlexius/pitwall/internal/source"
	"github.com/sydlexius/pitwall/internal/source/archive"
	"github.com/sydlexius/pitwall/internal/source/openf1"
)

func newSyncCmd(a *app) *cobra.Command {
	var (
		year       int
		sourceName string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync one season from a source into the canonical store",
		Example: `  pitwall sync --year 2024
  pitwall sync --year 1998 --source archive`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year < 1950 || year > time.Now().Year()+1 {
				return fmt.Errorf("--year %d is out of range", year)
			}
			p, err := a.pipeline()
			if err != nil {
				return err
			}
			reg, err := a.sources()
			if err != nil {
				return err
			}
			src, err := reg.Lookup(sourceName)
			if err != nil {
				return err
			}

			sum, err := p.Run(cmd.Context(), src, year)
			if sum != nil {
				printSummary(cmd.OutOrStdout(), sum)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "season to sync")
	cmd.Flags().StringVar(&sourceName, "source", string(source.NameOpenF1), "source to read: openf1 or archive")
	return cmd
}

// sources registers every configured source adapter.
func (a *app) sources() (*source.Registry, error) {
	reg := source.NewRegistry()

	limiter := source.NewRateLimiterMap()
	limiter.SetLimit(source.NameOpenF1, a.cfg.Sources.OpenF1.RequestsPerSecond)
	reg.Register(openf1.NewWithBaseURL(limiter, a.logger, a.cfg.Sources.OpenF1.BaseURL))

	if path := a.cfg.Sources.Archive.Path; path != "" {
		arch, err := archive.Open(path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		a.archive = arch
		reg.Register(arch)
	}
	return reg, nil
}

func printSummary(w io.Writer, sum *ingest.RunSummary) {
	fmt.Fprintf(w, "run %s: %s %d %s in %s, %d meetings\n",
		sum.RunID, sum.Source, sum.Year, sum.Status, sum.Duration.Round(time.Millisecond), sum.Meetings)
	keys := make([]string, 0, len(sum.Counts))
	for k := range sum.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-18s %d\n", k, sum.Counts[k])
	}
}
