package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/config"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
)

type fakeSource struct {
	frontpage []model.Product
	trending  []model.Product
	err       error
	enhanced  int
}

func (f *fakeSource) GetFrontpageProducts(context.Context) ([]model.Product, error) {
	return f.frontpage, f.err
}

func (f *fakeSource) GetTrendingProducts(context.Context) ([]model.Product, error) {
	return f.trending, f.err
}

func (f *fakeSource) EnhanceProductWithMetadata(_ context.Context, p model.Product) model.Product {
	f.enhanced++
	p.Hunter = &model.User{Name: "Hana", Username: "hana"}
	p.Makers = []model.User{{Name: "Mo", Username: "mo"}}
	return p
}

func newTestApp(t *testing.T, src *fakeSource) (*App, *cache.Cache) {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "tui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	app := NewApp(RunOpts{Cfg: &config.Config{}, DB: db, Source: src, BrowseMode: true})
	return app, db
}

var products = []model.Product{
	{ID: "1", Name: "Alpha", Topics: []model.Topic{{Name: "AI", Slug: "ai"}, {Name: "Productivity"}}},
	{ID: "2", Name: "Beta", Topics: []model.Topic{{Name: "AI", Slug: "ai"}}},
}

func TestRefreshStoresProducts(t *testing.T) {
	src := &fakeSource{frontpage: products}
	app, db := newTestApp(t, src)

	msg := app.doRefresh()()
	done, ok := msg.(refreshDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	assert.Equal(t, 2, done.count)
	assert.False(t, db.NeedsRefresh(3600e9))

	loaded, ok := app.loadProductsCmd()().(productsLoadedMsg)
	require.True(t, ok)
	require.Len(t, loaded.entries, 2)

	app.Update(loaded)
	assert.Len(t, app.products, 2)
	require.Len(t, app.filterBar.topics, 2)
	assert.Equal(t, "ai", app.filterBar.topics[0].Slug)
	assert.Equal(t, "productivity", app.filterBar.topics[1].Slug)
}

func TestRefreshFailureIsReported(t *testing.T) {
	src := &fakeSource{err: errors.New("HTTP error! status: 503")}
	app, _ := newTestApp(t, src)
	app.refreshing = true

	done := app.doRefresh()().(refreshDoneMsg)
	app.Update(done)
	assert.False(t, app.refreshing)
	assert.ErrorContains(t, app.err, "status: 503")
}

func TestEnrichOncePerProduct(t *testing.T) {
	src := &fakeSource{}
	app, db := newTestApp(t, src)
	require.NoError(t, db.UpsertProducts(cache.ListFrontpage, products))
	app.products = app.loadProductsCmd()().(productsLoadedMsg).entries

	cmd := app.maybeEnrich()
	require.NotNil(t, cmd)
	assert.Nil(t, app.maybeEnrich(), "second selection does not enrich again")

	msg := cmd().(productEnrichedMsg)
	assert.Equal(t, 1, src.enhanced)

	_, persist := app.Update(msg)
	require.NotNil(t, persist)
	persist()

	require.NotNil(t, app.products[0].Product.Hunter)
	assert.Equal(t, "hana", app.products[0].Product.Hunter.Username)

	stored, err := db.Products(cache.QueryOpts{List: cache.ListFrontpage})
	require.NoError(t, err)
	require.NotNil(t, stored[0].Hunter)
	assert.Equal(t, "mo", stored[0].Makers[0].Username)
}

func TestSwitchList(t *testing.T) {
	app, _ := newTestApp(t, &fakeSource{})
	app.cursor = 4
	app.switchList()
	assert.Equal(t, cache.ListTrending, app.list)
	assert.Zero(t, app.cursor)
	app.switchList()
	assert.Equal(t, cache.ListFrontpage, app.list)
}

func TestFilterBar(t *testing.T) {
	var f filterBar
	f.setTopics([]model.Topic{{Name: "AI", Slug: "ai"}, {Name: "Design Tools", Slug: "design-tools"}})
	assert.Nil(t, f.activeSlugs())
	assert.Equal(t, "All", f.activeLabel())

	f.filterCursor = 1
	f.toggleCurrent()
	f.toggle("ai")
	assert.Equal(t, []string{"ai", "design-tools"}, f.activeSlugs())
	assert.Equal(t, "AI, Design Tools", f.activeLabel())

	f.toggle("ai")
	assert.Equal(t, []string{"design-tools"}, f.activeSlugs())
}

func TestSaveDetailsFailureIsLogged(t *testing.T) {
	app, db := newTestApp(t, &fakeSource{})
	core, logs := observer.New(zap.WarnLevel)
	app.log = logger.FromZap(zap.New(core))

	require.NoError(t, db.Close())
	assert.Nil(t, app.saveDetailsCmd(model.Product{ID: "1", Name: "Alpha"})())

	entries := logs.FilterMessage("saving product details failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].ContextMap()["product"])
}
