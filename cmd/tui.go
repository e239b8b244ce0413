package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/phnews/internal/ai"
	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/tui"
	"github.com/matheuskafuri/phnews/internal/update"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Launch straight into the product browser",
	Long:  "Open phnews in browse mode, skipping the home screen.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(true)
	},
}

func runTUI(cmd *cobra.Command, args []string) error {
	return runApp(false)
}

func runApp(browse bool) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if flagRefresh || e.db.NeedsRefresh(e.cfg.RefreshDuration()) {
		fmt.Println("Fetching frontpage...")
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		products, err := e.scraper.GetFrontpageProducts(ctx)
		cancel()

		if err != nil {
			// Cached products are still worth showing.
			fmt.Fprintf(os.Stderr, "  [warn] %v\n", err)
			e.log.Warn("frontpage refresh failed", logger.Err(err))
		} else {
			if err := e.db.UpsertProducts(cache.ListFrontpage, products); err != nil {
				return fmt.Errorf("caching products: %w", err)
			}
			e.db.SetLastRefresh()
		}

		// Auto-prune old products after refresh
		e.db.Prune(e.cfg.RetentionDuration())
	}

	var since time.Time
	if flagSince != "" {
		d, err := parseSince(flagSince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		since = time.Now().Add(-d)
	}

	var summarizer ai.Summarizer
	if e.cfg.AIEnabled() {
		summarizer, err = ai.New(e.cfg.AI, e.cfg.AIKey())
		if err != nil {
			e.log.Warn("AI summaries disabled", logger.Err(err))
		}
	}

	return tui.Run(tui.RunOpts{
		Cfg:        e.cfg,
		DB:         e.db,
		Source:     e.scraper,
		Log:        e.log,
		Since:      since,
		Summarizer: summarizer,
		Updates:    update.NewChecker(""),
		Version:    version,
		BrowseMode: browse,
	})
}

func parseSince(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
