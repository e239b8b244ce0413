package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/scraper"
)

const (
	taglineWidth = 48

	// commandTimeout bounds every scrape a command makes.
	commandTimeout = 60 * time.Second
)

var (
	flagJSON bool
	flagFull bool
)

type listFunc func(ctx context.Context, s *scraper.Scraper, args []string) ([]model.Product, error)

// listingCmd builds a command that scrapes a product listing and prints it.
// A non-empty list also stores the result in the local cache.
func listingCmd(use, short, list string, args cobra.PositionalArgs, fn listFunc) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			products, err := fn(ctx, e.scraper, argv)
			if err == nil && list != "" {
				if cerr := e.db.UpsertProducts(list, products); cerr != nil {
					e.log.Warn("caching products failed", logger.Err(cerr))
				} else if list == cache.ListFrontpage {
					e.db.SetLastRefresh()
				}
			}
			return printListing(cmd.OutOrStdout(), products, err)
		},
	}
	c.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	c.Flags().BoolVar(&flagFull, "full", false, "with --json, print full product records")
	return c
}

var frontpageCmd = listingCmd("frontpage", "Scrape today's frontpage launches", cache.ListFrontpage, cobra.NoArgs,
	func(ctx context.Context, s *scraper.Scraper, _ []string) ([]model.Product, error) {
		return s.GetFrontpageProducts(ctx)
	})

var trendingCmd = listingCmd("trending", "Scrape the trending launches", cache.ListTrending, cobra.NoArgs,
	func(ctx context.Context, s *scraper.Scraper, _ []string) ([]model.Product, error) {
		return s.GetTrendingProducts(ctx)
	})

var searchCmd = listingCmd("search <query>", "Search products on the site", "", cobra.MinimumNArgs(1),
	func(ctx context.Context, s *scraper.Scraper, args []string) ([]model.Product, error) {
		return s.SearchProducts(ctx, strings.Join(args, " "))
	})

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List topics with follower and post counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		topics, err := e.scraper.GetTopics(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), topics)
		}
		renderTopics(cmd.OutOrStdout(), topics)
		return nil
	},
}

var productCmd = &cobra.Command{
	Use:   "product <slug>",
	Short: "Scrape and enrich a single product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		p, err := e.scraper.GetProductDetails(ctx, args[0])
		if err != nil {
			return err
		}
		// Keep any cached listing row in step with the details.
		if err := e.db.SaveDetails(p); err != nil {
			e.log.Warn("caching product details failed", logger.String("slug", p.Slug), logger.Err(err))
		}

		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), p)
		}
		renderProduct(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	topicsCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of a table")
	productCmd.Flags().BoolVar(&flagJSON, "json", false, "print JSON instead of text")
}

// commandContext is cmd's context bounded by commandTimeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printListing writes products, or the failure envelope for JSON callers.
// The scrape error is still returned so the exit status reflects it.
func printListing(w io.Writer, products []model.Product, err error) error {
	if flagJSON {
		if err != nil || flagFull {
			if werr := writeJSON(w, model.NewProductList(products, err)); werr != nil {
				return werr
			}
			return err
		}
		return writeJSON(w, model.Summarize(products))
	}
	if err != nil {
		return err
	}
	renderProducts(w, products)
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.SetOutputMirror(w)
	return t
}

func renderProducts(w io.Writer, products []model.Product) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Name", "Tagline", "Votes", "Comments", "Topics"})
	for i, p := range products {
		topics := p.TopicNames()
		if len(topics) > 2 {
			topics = append(topics[:2], "…")
		}
		t.AppendRow(table.Row{
			i + 1,
			p.Name,
			runewidth.Truncate(p.Tagline, taglineWidth, "..."),
			p.VotesCount,
			p.CommentsCount,
			strings.Join(topics, ", "),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d products", len(products))})
	t.Render()
}

func renderTopics(w io.Writer, topics []model.Topic) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Topic", "Slug", "Followers", "Posts"})
	for _, tp := range topics {
		t.AppendRow(table.Row{tp.Name, model.GenerateTopicSlug(tp), tp.FollowersCount, tp.PostsCount})
	}
	t.Render()
}

func renderProduct(w io.Writer, p model.Product) {
	t := newTable(w)
	t.AppendRow(table.Row{"Name", p.Name})
	t.AppendRow(table.Row{"Tagline", p.Tagline})
	t.AppendRow(table.Row{"URL", p.URL})
	t.AppendRow(table.Row{"Votes", p.VotesCount})
	t.AppendRow(table.Row{"Comments", p.CommentsCount})
	if len(p.Topics) > 0 {
		t.AppendRow(table.Row{"Topics", strings.Join(p.TopicNames(), ", ")})
	}
	if p.Hunter != nil {
		t.AppendRow(table.Row{"Hunter", p.Hunter.Name})
	}
	if len(p.Makers) > 0 {
		names := make([]string, 0, len(p.Makers))
		for _, m := range p.Makers {
			names = append(names, m.Name)
		}
		t.AppendRow(table.Row{"Makers", strings.Join(names, ", ")})
	}
	if p.DailyRank > 0 {
		t.AppendRow(table.Row{"Daily rank", p.DailyRank})
	}
	if p.WeeklyRank > 0 {
		t.AppendRow(table.Row{"Weekly rank", p.WeeklyRank})
	}
	if len(p.GalleryImages) > 0 {
		t.AppendRow(table.Row{"Gallery", fmt.Sprintf("%d images", len(p.GalleryImages))})
	}
	if p.ProductHubURL != "" {
		t.AppendRow(table.Row{"Product hub", fmt.Sprintf("%s (%d previous launches)", p.ProductHubURL, p.PreviousLaunches)})
	}
	t.Render()
	if p.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.Description)
	}
}
