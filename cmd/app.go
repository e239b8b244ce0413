package cmd

import (
	"fmt"
	"slices"

	"github.com/matheuskafuri/phnews/internal/cache"
	"github.com/matheuskafuri/phnews/internal/config"
	"github.com/matheuskafuri/phnews/internal/fetch"
	"github.com/matheuskafuri/phnews/internal/imagecache"
	"github.com/matheuskafuri/phnews/internal/logger"
	"github.com/matheuskafuri/phnews/internal/scraper"
)

// env is what every command needs: config, a file logger, the local cache
// and a scraper wired to all three.
type env struct {
	cfg     *config.Config
	log     logger.Logger
	db      *cache.Cache
	scraper *scraper.Scraper
}

func setup() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := cache.Open(config.CachePath())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return &env{
		cfg:     cfg,
		log:     log,
		db:      db,
		scraper: buildScraper(cfg, log, db),
	}, nil
}

func (e *env) Close() {
	e.db.Close()
	e.log.Sync()
}

// newLogger writes to the state-dir log file; stdout belongs to the TUI and
// to command output.
func newLogger(cfg *config.Config) (logger.Logger, error) {
	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	outputs := []string{config.LogPath()}
	for _, p := range cfg.Log.OutputPaths {
		if !slices.Contains(outputs, p) {
			outputs = append(outputs, p)
		}
	}
	log, err := logger.New(logger.Config{
		Level:       level,
		Format:      cfg.Log.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

func buildScraper(cfg *config.Config, log logger.Logger, db *cache.Cache) *scraper.Scraper {
	fetcher := fetch.New(fetch.Options{
		UserAgent:         cfg.HTTP.UserAgent,
		Timeout:           cfg.HTTPTimeout(),
		RequestsPerSecond: cfg.RequestRate(),
		Burst:             cfg.HTTP.Burst,
		BypassCloudflare:  cfg.HTTP.BypassCloudflare,
	}, log)

	images := imagecache.New(cfg.ImageCacheSize(), cfg.ImageCacheTTL(), fetcher)

	return scraper.New(fetcher, scraper.ProductHunt(cfg.HostURL), log,
		scraper.WithImageInliner(images),
		scraper.WithDebugSink(db),
	)
}
