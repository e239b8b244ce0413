// Package scraper extracts products, topics and search results from the
// site's server-rendered pages.
//
// Listing operations try the embedded Apollo state first, then cruder
// sources (markup, the syndication feed). Detail enrichment layers several
// heuristics over a product page and never fails its caller.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/feed"
	"github.com/matheuskafuri/phnews/internal/logger"
)

var (
	ErrNoPosts         = errors.New("could not find any posts in Apollo data or DOM")
	ErrPostNotFound    = errors.New("could not find post data")
	ErrPopularNotFound = errors.New("could not find popular products")
)

// DebugFrontpageKey names the record describing the last frontpage scrape.
const DebugFrontpageKey = "debug:last_frontpage"

// HTMLFetcher retrieves a page body.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// ImageInliner turns an image URL into a data URI.
type ImageInliner interface {
	DataURI(ctx context.Context, url string) (string, error)
}

// DebugSink stores diagnostic records by key.
type DebugSink interface {
	SetDebug(key string, value any) error
}

type Scraper struct {
	fetch  HTMLFetcher
	site   Site
	images ImageInliner
	debug  DebugSink
	feed   *feed.Parser
	log    logger.Logger
	now    func() time.Time
}

type Option func(*Scraper)

// WithImageInliner enables converting SVG images to data URIs.
func WithImageInliner(images ImageInliner) Option {
	return func(s *Scraper) { s.images = images }
}

func WithDebugSink(sink DebugSink) Option {
	return func(s *Scraper) { s.debug = sink }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

func New(fetch HTMLFetcher, site Site, log logger.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scraper{
		fetch: fetch,
		site:  site,
		feed:  feed.NewParser(),
		log:   log.With(logger.Component("scraper")),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scraper) Site() Site { return s.site }

// page is a fetched and parsed document. The embedded state is decoded on
// first use and shared by every reader of the page.
type page struct {
	url  string
	html string
	doc  *goquery.Document

	eventsOnce sync.Once
	events     apollo.Events
	eventsErr  error

	pushOnce sync.Once
	push     []apollo.PushPayload
}

func (s *Scraper) load(ctx context.Context, url string) (*page, error) {
	html, err := s.fetch.FetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}
	return parsePage(url, html)
}

func parsePage(url, html string) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return &page{url: url, html: html, doc: doc}, nil
}

func (p *page) Events() (apollo.Events, error) {
	p.eventsOnce.Do(func() {
		p.events, p.eventsErr = apollo.ExtractEvents(p.doc)
	})
	return p.events, p.eventsErr
}

func (p *page) Push() []apollo.PushPayload {
	p.pushOnce.Do(func() {
		p.push = apollo.ExtractPushPayloads(p.doc)
	})
	return p.push
}

// Post returns the post section of the page's events, or nil.
func (p *page) Post() *apollo.Post {
	events, err := p.Events()
	if err != nil {
		return nil
	}
	post, _ := events.Post()
	return post
}

func (p *page) canonical(site Site) string {
	href, _ := p.doc.Find(site.Selectors.Canonical).First().Attr("href")
	return strings.TrimSpace(href)
}
