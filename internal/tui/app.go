package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/phnews/internal/ai"
	"github.com/matheuskafuri/phnews/internal/browser"
	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/config"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/model"
	"github.com/matheuskafuri/phnews/internal/update"
)

// ProductSource is the part of the scraper the TUI drives.
type ProductSource interface {
	GetFrontpageProducts(ctx context.Context) ([]model.Product, error)
	GetTrendingProducts(ctx context.Context) ([]model.Product, error)
	EnhanceProductWithMetadata(ctx context.Context, product model.Product) model.Product
}

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeHome mode = iota
	modeNormal
	modeSearch
	modeFilter
	modeHelp
)

type App struct {
	cfg      *config.Config
	db       *cache.Cache
	source   ProductSource
	log      logger.Logger
	list     string
	products []cache.Entry
	cursor   int
	focus    focusPane
	mode     mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model
	filterBar   filterBar

	summarizer ai.Summarizer
	updates    *update.Checker
	version    string

	refreshing    bool
	since         time.Time
	previewScroll int
	currentDate   string
	updateVersion string
	// enriched holds product ids already sent through the enricher this
	// session, whether or not it finished.
	enriched map[string]bool
	err      error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg        *config.Config
	DB         *cache.Cache
	Source     ProductSource
	Log        logger.Logger
	Since      time.Time
	Summarizer ai.Summarizer
	Updates    *update.Checker
	Version    string
	BrowseMode bool
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search products..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	startMode := modeHome
	if opts.BrowseMode {
		startMode = modeNormal
	}

	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}

	return &App{
		cfg:         opts.Cfg,
		db:          opts.DB,
		source:      opts.Source,
		log:         log.With(logger.Component("tui")),
		list:        cache.ListFrontpage,
		since:       opts.Since,
		summarizer:  opts.Summarizer,
		updates:     opts.Updates,
		version:     opts.Version,
		searchInput: ti,
		spinner:     sp,
		currentDate: time.Now().Format("Jan 2"),
		mode:        startMode,
		enriched:    make(map[string]bool),
	}
}

func (a *App) Init() tea.Cmd {
	var cmds []tea.Cmd
	if a.mode == modeNormal {
		cmds = append(cmds, a.loadProductsCmd())
	}
	if a.updates != nil {
		checker, current := a.updates, a.version
		cmds = append(cmds, func() tea.Msg {
			r := checker.Check(context.Background(), current)
			if r == nil {
				return nil
			}
			return updateAvailableMsg{version: r.LatestVersion}
		})
	}
	return tea.Batch(cmds...)
}

// loadProductsCmd captures current query state into the closure to avoid races.
func (a *App) loadProductsCmd() tea.Cmd {
	opts := cache.QueryOpts{
		List:   a.list,
		Since:  a.since,
		Topics: a.filterBar.activeSlugs(),
		Search: a.searchInput.Value(),
	}
	db := a.db
	return func() tea.Msg {
		entries, err := db.GetProducts(opts)
		if err != nil {
			return loadErrMsg{err: err}
		}
		return productsLoadedMsg{entries: entries}
	}
}

func (a *App) doRefresh() tea.Cmd {
	db, src, list, log := a.db, a.source, a.list, a.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		var (
			products []model.Product
			err      error
		)
		if list == cache.ListTrending {
			products, err = src.GetTrendingProducts(ctx)
		} else {
			products, err = src.GetFrontpageProducts(ctx)
		}
		if err != nil {
			log.Warn("refresh failed", logger.String("list", list), logger.Err(err))
			return refreshDoneMsg{list: list, err: err}
		}

		if err := db.UpsertProducts(list, products); err != nil {
			return refreshDoneMsg{list: list, err: err}
		}
		if list == cache.ListFrontpage {
			db.SetLastRefresh()
		}
		return refreshDoneMsg{list: list, count: len(products)}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		err := browser.Open(url)
		if err != nil {
			return loadErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case productsLoadedMsg:
		a.products = msg.entries
		if len(a.filterBar.active) == 0 && a.searchInput.Value() == "" {
			a.filterBar.setTopics(topTopics(msg.entries, maxFilterTopics))
		}
		if a.cursor >= len(a.products) {
			a.cursor = max(0, len(a.products)-1)
		}
		return a, a.selectCurrent()

	case loadErrMsg:
		a.err = msg.err
		return a, nil

	case refreshDoneMsg:
		a.refreshing = false
		if msg.err != nil {
			a.err = fmt.Errorf("refresh %s: %w", msg.list, msg.err)
		}
		return a, a.loadProductsCmd()

	case productEnrichedMsg:
		for i := range a.products {
			if a.products[i].Product.ID == msg.product.ID {
				a.products[i].Product = msg.product
			}
		}
		return a, a.saveDetailsCmd(msg.product)

	case summaryLoadedMsg:
		tags := strings.Join(msg.result.Tags, ", ")
		for i := range a.products {
			if a.products[i].Product.ID == msg.productID {
				a.products[i].Summary = msg.result.Summary
				a.products[i].Tags = tags
			}
		}
		// Persist to cache asynchronously
		db := a.db
		id := msg.productID
		summary := msg.result.Summary
		return a, func() tea.Msg {
			db.UpdateProductSummary(id, summary, tags)
			return nil
		}

	case updateAvailableMsg:
		a.updateVersion = msg.version
		return a, nil

	case spinner.TickMsg:
		if a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	switch a.mode {
	case modeHome:
		return a.handleHomeKey(msg)
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	// Normal mode
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.products)-1 {
			a.cursor++
			a.previewScroll = 0
			return a, a.selectCurrent()
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
			return a, a.selectCurrent()
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "o", "enter":
		if p := a.selected(); p != nil {
			return a, openBrowserCmd(p.Product.URL)
		}
		return a, nil
	case "t":
		return a, a.switchList()
	case "/":
		a.mode = modeSearch
		a.searchInput.Focus()
		return a, textinput.Blink
	case "f":
		a.mode = modeFilter
		a.filterBar.filterMode = true
		return a, nil
	case "r":
		if !a.refreshing && a.source != nil {
			a.refreshing = true
			return a, tea.Batch(a.doRefresh(), a.spinner.Tick)
		}
		return a, nil
	case "h":
		a.mode = modeHome
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) switchList() tea.Cmd {
	if a.list == cache.ListFrontpage {
		a.list = cache.ListTrending
	} else {
		a.list = cache.ListFrontpage
	}
	a.cursor = 0
	a.previewScroll = 0
	a.filterBar = filterBar{}
	return a.loadProductsCmd()
}

func (a *App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "b", "1":
		a.mode = modeNormal
		a.list = cache.ListFrontpage
		return a, a.loadProductsCmd()
	case "t", "2":
		a.mode = modeNormal
		a.list = cache.ListTrending
		cmds := []tea.Cmd{a.loadProductsCmd()}
		if a.source != nil && !a.refreshing {
			a.refreshing = true
			cmds = append(cmds, a.doRefresh(), a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		return a, a.loadProductsCmd()
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		a.cursor = 0
		return a, a.loadProductsCmd()
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.topics)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ", "enter":
		a.filterBar.toggleCurrent()
		a.cursor = 0
		return a, a.loadProductsCmd()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(a.filterBar.topics) {
			a.filterBar.toggle(a.filterBar.topics[idx].Slug)
			a.cursor = 0
			return a, a.loadProductsCmd()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) selected() *cache.Entry {
	if len(a.products) == 0 || a.cursor >= len(a.products) {
		return nil
	}
	return &a.products[a.cursor]
}

// selectCurrent starts the lazy work for the product under the cursor.
func (a *App) selectCurrent() tea.Cmd {
	return tea.Batch(a.maybeEnrich(), a.maybeFetchSummary())
}

func (a *App) maybeEnrich() tea.Cmd {
	e := a.selected()
	if e == nil || a.source == nil || a.enriched[e.Product.ID] {
		return nil
	}
	a.enriched[e.Product.ID] = true

	src := a.source
	product := e.Product
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		return productEnrichedMsg{product: src.EnhanceProductWithMetadata(ctx, product)}
	}
}

func (a *App) saveDetailsCmd(p model.Product) tea.Cmd {
	db, log := a.db, a.log
	return func() tea.Msg {
		if err := db.SaveDetails(p); err != nil {
			log.Warn("saving product details failed", logger.String("product", p.ID), logger.Err(err))
		}
		return nil
	}
}

func (a *App) maybeFetchSummary() tea.Cmd {
	if a.summarizer == nil {
		return nil
	}
	e := a.selected()
	if e == nil || e.Summary != "" {
		return nil // already cached
	}
	s := a.summarizer
	product := e.Product
	log := a.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		result, err := s.Summarize(ctx, product)
		if err != nil {
			log.Debug("summary failed", logger.String("product", product.ID), logger.Err(err))
			return nil // non-fatal
		}
		return summaryLoadedMsg{productID: product.ID, result: result}
	}
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  phnews")
	}

	if a.mode == modeHome {
		return a.withBottomBar(renderHomeScreen(a.width, a.height, a.updateVersion), "b browse  t trending  q quit")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  h home  q quit")
	}

	headerHeight := 1
	filterHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - statusHeight - 4 // borders

	listWidth := int(float64(a.width) * 0.35)
	previewWidth := a.width - listWidth - 1 // gap

	if contentHeight < 3 {
		contentHeight = 3
	}

	headerLeft := headerStyle.Render("phnews · " + a.list)
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	filter := a.filterBar.render(a.width)
	if a.mode == modeSearch {
		filter = a.searchInput.View()
	}

	innerListW := listWidth - 4 // border + padding
	listContent := renderList(a.products, a.cursor, contentHeight, innerListW)

	var listPane string
	if a.focus == focusList {
		listPane = listPaneActiveStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	} else {
		listPane = listPaneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	}

	selected := a.selected()
	loading := selected != nil && a.enriched[selected.Product.ID] && selected.Product.Hunter == nil && len(selected.Product.Makers) == 0
	innerPreviewW := previewWidth - 4
	previewContent := renderPreview(selected, loading, innerPreviewW, contentHeight, a.previewScroll)

	var previewPane string
	if a.focus == focusPreview {
		previewPane = previewPaneActiveStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	} else {
		previewPane = previewPaneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(
		len(a.products),
		a.filterBar.activeLabel(),
		a.width,
		a.mode == modeSearch,
		a.refreshing,
	)

	if a.refreshing {
		status = a.spinner.View() + " " + status
	}

	if a.err != nil {
		status = lipgloss.NewStyle().Foreground(colorAccent).Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, filter, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("phnews")
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Navigate product list\n" +
		"  tab           Switch focus between list and preview\n" +
		"  t             Switch between frontpage and trending\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open product in browser\n" +
		"  r             Refresh from the site\n" +
		"  /             Search cached products\n" +
		"  f             Toggle topic filter mode\n\n" +
		dim.Render("Filter Mode") + "\n" +
		"  ←/→, h/l     Move between topics\n" +
		"  space/enter   Toggle topic\n" +
		"  1-9           Toggle topic by number\n" +
		"  esc, f        Exit filter mode\n\n" +
		dim.Render("General") + "\n" +
		"  h             Go to home screen\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
