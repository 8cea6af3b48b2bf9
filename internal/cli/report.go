package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"exam-paper-service/internal/config"
	"exam-paper-service/internal/domain"
	"exam-paper-service/internal/storage"
	"github.com/spf13/cobra"
)

// NewPapersCmd lists the exam years available from the question source.
func NewPapersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "papers",
		Short: "Load the question bank and list exam years by paper part",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return listPapers(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func listPapers(ctx context.Context, cfg config.Config, out io.Writer) error {
	logger := newLogger(cfg)
	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()
	if _, err := d.bank.Load(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\t1A\t1B\t2")
	for _, key := range d.bank.YearKeys() {
		g, _ := d.bank.YearGroup(key)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", key,
			len(g.Questions(domain.Part1A)), len(g.Questions(domain.Part1B)), len(g.Questions(domain.Part2)))
	}
	return tw.Flush()
}

// NewStatsCmd prints the aggregated statistics.
func NewStatsCmd(configPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-topic and per-year statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			kv, closeKV, err := openStorage(cfg, newRedisClient(cfg))
			if err != nil {
				return err
			}
			defer closeKV()
			stats, err := storage.NewStatsStore(kv, newLogger(cfg)).LoadStatistics(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeIndented(cmd.OutOrStdout(), stats)
			}
			return printStatistics(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func printStatistics(out io.Writer, stats domain.Statistics) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, section := range []struct {
		title  string
		bucket map[string]domain.StatRecord
	}{
		{"TOPIC", stats.Topics},
		{"YEAR", stats.Years},
	} {
		fmt.Fprintf(tw, "%s\tATTEMPTS\tCORRECT\tINCORRECT\n", section.title)
		keys := make([]string, 0, len(section.bucket))
		for k := range section.bucket {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec := section.bucket[k]
			label := rec.Label
			if label == "" {
				label = k
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", label, rec.Attempts, rec.Correct, rec.Incorrect)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// NewHistoryCmd prints finalized attempts.
func NewHistoryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the attempt history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			kv, closeKV, err := openStorage(cfg, newRedisClient(cfg))
			if err != nil {
				return err
			}
			defer closeKV()
			entries, err := storage.NewHistoryStore(kv, newLogger(cfg)).LoadHistory(cmd.Context())
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), entries)
		},
	}
}

func printHistory(out io.Writer, entries []domain.AttemptHistoryEntry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tYEAR\tMODE\tMC\tLONG\tTIME USED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g/%g\t%g/%g\t%ds\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.YearKey, e.Mode,
			e.MCScore, e.MCTotal, e.LQScore, e.LQTotal, e.TimeUsedSeconds)
	}
	return tw.Flush()
}

func writeIndented(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
