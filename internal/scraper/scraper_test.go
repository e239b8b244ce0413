package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/phnews/internal/apollo"
	"github.com/matheuskafuri/phnews/internal/fetch"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// fixtureServer serves testdata files by request path. Paths missing from
// routes answer 404.
type fixtureServer struct {
	*httptest.Server

	mu      sync.Mutex
	queries []string
}

func newFixtureServer(t *testing.T, routes map[string]string) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.queries = append(fs.queries, r.URL.RequestURI())
		fs.mu.Unlock()

		name, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if strings.HasSuffix(name, ".xml") {
			w.Header().Set("Content-Type", "application/atom+xml")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fixtureServer) requests() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.queries...)
}

type debugRecorder struct {
	mu      sync.Mutex
	records map[string]any
}

func (d *debugRecorder) SetDebug(key string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.records == nil {
		d.records = make(map[string]any)
	}
	d.records[key] = value
	return nil
}

func (d *debugRecorder) get(key string) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.records[key]
}

const svgDataURI = "data:image/svg+xml;base64,PHN2Zy8+"

type stubImages struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubImages) DataURI(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	if strings.Contains(url, "broken") {
		return "", errors.New("image gone")
	}
	return svgDataURI, nil
}

func newTestScraper(t *testing.T, routes map[string]string, opts ...Option) (*Scraper, *fixtureServer) {
	t.Helper()
	srv := newFixtureServer(t, routes)
	f := fetch.New(fetch.Options{Timeout: 5 * time.Second}, logger.NewNop())
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(f, ProductHunt(srv.URL), logger.NewNop(), opts...), srv
}

func TestFrontpageFromEvents(t *testing.T) {
	debug := &debugRecorder{}
	s, srv := newTestScraper(t, map[string]string{"/": "frontpage_events.html"}, WithDebugSink(debug))

	products, err := s.GetFrontpageProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "501", p.ID)
	assert.Equal(t, "Widget & Co", p.Name)
	assert.Equal(t, "Café tools for teams", p.Tagline)
	assert.Equal(t, 412, p.VotesCount)
	assert.Equal(t, 37, p.CommentsCount)
	assert.Equal(t, srv.URL+"/posts/widget-co", p.URL)
	assert.Equal(t, "https://ph-files.imgix.net/abc-123.png", p.Thumbnail)
	assert.True(t, p.CreatedAt.Equal(time.Date(2026, 10, 16, 7, 1, 0, 0, time.UTC)))
	require.NotNil(t, p.Maker)
	assert.Equal(t, "uma", p.Maker.Username)
	assert.Equal(t, srv.URL+"/@uma", p.Maker.ProfileURL)

	require.Len(t, p.Topics, 2)
	assert.Equal(t, model.Topic{ID: "t1", Name: "Productivity", Slug: "productivity"}, p.Topics[0])
	assert.Equal(t, model.Topic{ID: "t2", Name: "AI & ML Tools", Slug: "ai-and-ml-tools"}, p.Topics[1])

	rec, ok := debug.get(DebugFrontpageKey).(FrontpageDebug)
	require.True(t, ok)
	assert.Equal(t, "apollo-events", rec.Strategy)
	assert.Equal(t, 1, rec.Counts["apollo-events"])
	assert.True(t, rec.TS.Equal(fixedNow))
}

func TestFrontpageFromPushPayload(t *testing.T) {
	debug := &debugRecorder{}
	s, _ := newTestScraper(t, map[string]string{"/": "frontpage_push.html"}, WithDebugSink(debug))

	products, err := s.GetFrontpageProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Pushed App", products[0].Name)
	assert.Equal(t, "Streams {fast}", products[0].Tagline)
	assert.Equal(t, 88, products[0].VotesCount)
	assert.Empty(t, products[0].Thumbnail)
	assert.NotNil(t, products[0].Topics)

	rec := debug.get(DebugFrontpageKey).(FrontpageDebug)
	assert.Equal(t, "apollo-push-featured", rec.Strategy)
	assert.Contains(t, rec.Errors, "apollo-events")
}

func TestFrontpageFromDOM(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/": "frontpage_dom.html"})

	products, err := s.GetFrontpageProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	one := products[0]
	assert.Equal(t, "dom-one", one.ID)
	assert.Equal(t, "Dom One", one.Name)
	assert.Equal(t, "First tagline", one.Tagline)
	assert.Equal(t, "https://ph-files.imgix.net/uuid-1.png", one.Thumbnail)
	assert.Equal(t, 1204, one.VotesCount)
	assert.Equal(t, 18, one.CommentsCount)
	assert.True(t, one.CreatedAt.Equal(fixedNow))

	two := products[1]
	assert.Equal(t, "dom-two", two.ID)
	assert.Equal(t, "Second tagline", two.Tagline)
	assert.Equal(t, 5, two.VotesCount)
	assert.Zero(t, two.CommentsCount)
}

func TestFrontpageFromFeed(t *testing.T) {
	debug := &debugRecorder{}
	s, srv := newTestScraper(t, map[string]string{
		"/":     "no_state.html",
		"/feed": "feed.xml",
	}, WithDebugSink(debug))

	products, err := s.GetFrontpageProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "feed-one", products[0].ID)
	assert.Equal(t, "Feed One", products[0].Name)
	assert.Equal(t, "From the feed", products[0].Description)
	assert.Contains(t, srv.requests(), "/feed")

	rec := debug.get(DebugFrontpageKey).(FrontpageDebug)
	assert.Equal(t, "rss", rec.Strategy)
	assert.Equal(t, 0, rec.Counts["dom"])
}

func TestFrontpageNoPosts(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/": "no_state.html"})

	_, err := s.GetFrontpageProducts(context.Background())
	assert.ErrorIs(t, err, ErrNoPosts)
}

func TestFrontpageFetchError(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{})

	_, err := s.GetFrontpageProducts(context.Background())
	var se *fetch.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "HTTP error! status: 404", err.Error())
}

func TestTrending(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/": "trending.html"})

	products, err := s.GetTrendingProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Popular App", products[0].Name)
	assert.Equal(t, 999, products[0].VotesCount)
	assert.Equal(t, "Runner Up", products[1].Name)
}

func TestTrendingFromPushPayload(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/": "frontpage_push.html"})

	products, err := s.GetTrendingProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Yesterday App", products[0].Name)
}

func TestTrendingMissingSection(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/": "frontpage_events.html"})

	_, err := s.GetTrendingProducts(context.Background())
	assert.ErrorIs(t, err, ErrPopularNotFound)

	s, _ = newTestScraper(t, map[string]string{"/": "no_state.html"})
	_, err = s.GetTrendingProducts(context.Background())
	assert.ErrorIs(t, err, apollo.ErrMarkerNotFound)
}

func TestTopics(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/topics": "topics.html"})

	topics, err := s.GetTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Developer Tools", topics[0].Name)
	assert.Equal(t, 120000, topics[0].FollowersCount)
	assert.Equal(t, 5400, topics[0].PostsCount)
	assert.Equal(t, "Café & Bars", topics[1].Name)
	assert.Equal(t, "cafe-and-bars", topics[1].Slug)
}

func TestSearch(t *testing.T) {
	s, srv := newTestScraper(t, map[string]string{"/search": "search.html"})

	products, err := s.SearchProducts(context.Background(), "notes & ai")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Notes AI", products[0].Name)
	assert.Equal(t, 77, products[0].VotesCount)
	assert.Zero(t, products[0].CommentsCount)
	assert.Equal(t, "notes-lite", products[1].Slug)
	assert.Contains(t, srv.requests(), "/search?q=notes+%26+ai")
}

func TestExtractionFailureIsHardError(t *testing.T) {
	s, srv := newTestScraper(t, map[string]string{
		"/topics":      "no_state.html",
		"/posts/ghost": "no_state.html",
	})

	_, err := s.GetTopics(context.Background())
	require.ErrorIs(t, err, apollo.ErrMarkerNotFound)
	assert.Contains(t, err.Error(), srv.URL+"/topics")

	_, err = s.GetProductDetails(context.Background(), "ghost")
	require.ErrorIs(t, err, apollo.ErrMarkerNotFound)
	assert.True(t, apollo.IsExtractionFailure(err))
	assert.Contains(t, err.Error(), srv.URL+"/posts/ghost")
}

func TestSectionMissing(t *testing.T) {
	s, _ := newTestScraper(t, map[string]string{"/topics": "search.html"})

	_, err := s.GetTopics(context.Background())
	assert.ErrorIs(t, err, apollo.ErrSectionMissing)
}

func TestFirstSuccess(t *testing.T) {
	var ran []string
	step := func(name string, items []int, err error) strategy[int] {
		return strategy[int]{name: name, run: func(context.Context) ([]int, error) {
			ran = append(ran, name)
			return items, err
		}}
	}
	boom := errors.New("boom")
	strategies := []strategy[int]{
		step("fails", nil, boom),
		step("empty", nil, nil),
		step("wins", []int{1, 2}, nil),
		step("never", []int{3}, nil),
	}

	out := firstSuccess(context.Background(), logger.NewNop(), "test", strategies)
	assert.Equal(t, []int{1, 2}, out.items)
	assert.Equal(t, "wins", out.winner)
	assert.Equal(t, []string{"fails", "empty", "wins"}, ran)
	assert.Equal(t, map[string]int{"fails": 0, "empty": 0, "wins": 2}, out.counts)
	assert.Equal(t, boom, out.firstErr(strategies))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out = firstSuccess(ctx, logger.NewNop(), "test", strategies)
	assert.Empty(t, out.winner)
	assert.ErrorIs(t, out.firstErr(strategies), context.Canceled)
}
