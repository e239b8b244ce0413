package cmd

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/phnews/internal/config"
	"github.com/matheuskafuri/phnews/internal/scraper"
)

var flagPruneOlderThan string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old products from the local cache",
	Long: `Delete cached products older than the retention period and reclaim disk space.

Uses the retention value from config (default: 7d) unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		retention := e.cfg.RetentionDuration()
		if flagPruneOlderThan != "" {
			d, err := parseSince(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := e.db.Prune(retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		out := cmd.OutOrStdout()
		if deleted == 0 {
			fmt.Fprintln(out, "Nothing to prune.")
		} else {
			fmt.Fprintf(out, "Pruned %d product(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics and the last frontpage scrape",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		dbPath := config.CachePath()
		count, size, err := e.db.Stats(dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache: %s\n", dbPath)
		fmt.Fprintf(out, "Products: %d\n", count)
		fmt.Fprintf(out, "Size: %s\n", formatBytes(size))

		var last scraper.FrontpageDebug
		found, err := e.db.GetDebug(scraper.DebugFrontpageKey, &last)
		if err != nil {
			return fmt.Errorf("reading scrape record: %w", err)
		}
		if found {
			fmt.Fprint(out, formatFrontpageDebug(last))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")
}

func formatFrontpageDebug(d scraper.FrontpageDebug) string {
	strategy := d.Strategy
	if strategy == "" {
		strategy = "none"
	}
	s := fmt.Sprintf("Last frontpage: %s via %s\n", d.TS.Local().Format(time.DateTime), strategy)
	for _, name := range slices.Sorted(maps.Keys(d.Counts)) {
		s += fmt.Sprintf("  %-22s %d\n", name, d.Counts[name])
	}
	for _, name := range slices.Sorted(maps.Keys(d.Errors)) {
		s += fmt.Sprintf("  %-22s error: %s\n", name, d.Errors[name])
	}
	return s
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
