package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/opengraph"
	"github.com/matheuskafuri/phnews/internal/textutil"
)

// FrontpageDebug describes how the last frontpage scrape was resolved.
type FrontpageDebug struct {
	TS       time.Time         `json:"ts"`
	URL      string            `json:"url"`
	Strategy string            `json:"strategy"`
	Counts   map[string]int    `json:"counts"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// GetFrontpageProducts returns today's featured products. Sources are tried
// in order: events homefeed, pushed homefeed, any pushed post, the page
// markup and finally the syndication feed.
func (s *Scraper) GetFrontpageProducts(ctx context.Context) ([]model.Product, error) {
	url := s.site.Host
	pg, err := s.load(ctx, url)
	if err != nil {
		s.log.Error("frontpage fetch failed", logger.URL(url), logger.Err(err))
		return nil, err
	}

	fromPosts := func(posts []apollo.Post) []model.Product { return s.toProducts(posts) }
	strategies := []strategy[model.Product]{
		{name: "apollo-events", run: func(context.Context) ([]model.Product, error) {
			events, err := pg.Events()
			if err != nil {
				return nil, err
			}
			feed, ok := events.Homefeed()
			if !ok {
				return nil, apollo.ErrSectionMissing
			}
			posts := apollo.UniquePosts(feed.Sections(s.site.FrontpageSections...))
			if len(posts) == 0 {
				posts = apollo.UniquePosts(feed.AllSections())
			}
			return fromPosts(posts), nil
		}},
		{name: "apollo-push-featured", run: func(context.Context) ([]model.Product, error) {
			return fromPosts(apollo.CollectHomefeed(pg.Push(), s.site.FrontpageSections...)), nil
		}},
		{name: "apollo-push-posts", run: func(context.Context) ([]model.Product, error) {
			return fromPosts(apollo.CollectPosts(pg.Push())), nil
		}},
		{name: "dom", run: func(context.Context) ([]model.Product, error) {
			return fromPosts(s.domPosts(pg.doc)), nil
		}},
		{name: "rss", run: s.feedProducts},
	}

	out := firstSuccess(ctx, s.log, "frontpage", strategies)
	s.recordFrontpage(url, out)

	switch out.winner {
	case "":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.log.Error("frontpage has no posts", logger.URL(url))
		return nil, ErrNoPosts
	case "dom":
		s.log.Warn("embedded state missing, used markup fallback", logger.Int("count", len(out.items)))
	case "rss":
		s.log.Warn("falling back to feed for frontpage products", logger.Int("count", len(out.items)))
	}
	return out.items, nil
}

func (s *Scraper) feedProducts(ctx context.Context) ([]model.Product, error) {
	body, err := s.fetch.FetchHTML(ctx, s.site.FeedURL())
	if err != nil {
		return nil, err
	}
	return s.feed.Parse(body, s.site.FeedLimit)
}

func (s *Scraper) recordFrontpage(url string, out outcome[model.Product]) {
	if s.debug == nil {
		return
	}
	rec := FrontpageDebug{
		TS:       s.now().UTC(),
		URL:      url,
		Strategy: out.winner,
		Counts:   out.counts,
	}
	if len(out.errs) > 0 {
		rec.Errors = make(map[string]string, len(out.errs))
		for name, err := range out.errs {
			rec.Errors[name] = err.Error()
		}
	}
	if err := s.debug.SetDebug(DebugFrontpageKey, rec); err != nil {
		s.log.Debug("storing frontpage debug record", logger.Err(err))
	}
}

// GetTrendingProducts returns the popular section of the home feed.
func (s *Scraper) GetTrendingProducts(ctx context.Context) ([]model.Product, error) {
	url := s.site.Host
	pg, err := s.load(ctx, url)
	if err != nil {
		return nil, err
	}

	strategies := []strategy[apollo.Post]{
		{name: "apollo-events", run: func(context.Context) ([]apollo.Post, error) {
			events, err := pg.Events()
			if err != nil {
				return nil, err
			}
			feed, ok := events.Homefeed()
			if !ok {
				return nil, fmt.Errorf("homefeed: %w", apollo.ErrSectionMissing)
			}
			sections := feed.Sections(s.site.TrendingSections...)
			if len(sections) == 0 {
				return nil, ErrPopularNotFound
			}
			return apollo.UniquePosts(sections[:1]), nil
		}},
		{name: "apollo-push", run: func(context.Context) ([]apollo.Post, error) {
			return apollo.CollectHomefeed(pg.Push(), s.site.TrendingSections...), nil
		}},
	}

	out := firstSuccess(ctx, s.log, "trending", strategies)
	if out.winner == "" {
		err := out.firstErr(strategies)
		if err == nil || errors.Is(err, apollo.ErrSectionMissing) {
			err = ErrPopularNotFound
		}
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return s.toProducts(out.items), nil
}

// GetTopics lists the site's topics.
func (s *Scraper) GetTopics(ctx context.Context) ([]model.Topic, error) {
	url := s.site.TopicsURL()
	events, err := s.loadEvents(ctx, url)
	if err != nil {
		return nil, err
	}
	conn, ok := events.Topics()
	if !ok {
		return nil, fmt.Errorf("%s: topics: %w", url, apollo.ErrSectionMissing)
	}
	return topicsFrom(conn), nil
}

// SearchProducts runs a site search and returns the matching posts.
func (s *Scraper) SearchProducts(ctx context.Context, query string) ([]model.Product, error) {
	url := s.site.SearchURL(query)
	events, err := s.loadEvents(ctx, url)
	if err != nil {
		return nil, err
	}
	results, ok := events.Search()
	if !ok {
		return nil, fmt.Errorf("%s: search: %w", url, apollo.ErrSectionMissing)
	}
	return s.toProducts(results.Posts()), nil
}

func (s *Scraper) loadEvents(ctx context.Context, url string) (apollo.Events, error) {
	pg, err := s.load(ctx, url)
	if err != nil {
		return nil, err
	}
	events, err := pg.Events()
	if err != nil {
		s.log.Error("embedded state extraction failed", logger.URL(url), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return events, nil
}

// GetProductDetails loads a single post by slug and enriches it. When the
// page carries embedded state without a post section, the product is built
// from the page's Open Graph metadata instead, with the readable page text
// standing in for missing tags.
func (s *Scraper) GetProductDetails(ctx context.Context, slug string) (model.Product, error) {
	url := s.site.PostURL(slug)
	pg, err := s.load(ctx, url)
	if err != nil {
		return model.Product{}, err
	}
	events, err := pg.Events()
	if err != nil {
		s.log.Error("embedded state extraction failed", logger.URL(url), logger.Err(err))
		return model.Product{}, fmt.Errorf("%s: %w", url, err)
	}

	var product model.Product
	if post, ok := events.Post(); ok {
		product = s.toProduct(*post)
	} else {
		product, err = s.productFromMetadata(pg, slug)
		if err != nil {
			return model.Product{}, err
		}
	}
	if canonical := pg.canonical(s.site); canonical != "" {
		product.URL = canonical
	}

	return s.enhance(ctx, product, pg), nil
}

func (s *Scraper) productFromMetadata(pg *page, slug string) (model.Product, error) {
	md := opengraph.Extract(pg.doc, pg.url, s.site.Selectors.OGImage).WithReadable(pg.html, pg.url)
	if md.Title == "" {
		return model.Product{}, fmt.Errorf("%s: %w", pg.url, ErrPostNotFound)
	}
	s.log.Warn("post section missing, using page metadata", logger.URL(pg.url))
	return model.Product{
		ID:          slug,
		Slug:        slug,
		Name:        textutil.CleanText(md.Title),
		Description: textutil.CleanText(md.Description),
		URL:         s.site.PostURL(slug),
		Thumbnail:   md.Image,
		CreatedAt:   s.now(),
		Topics:      []model.Topic{},
	}, nil
}
