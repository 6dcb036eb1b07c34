package app

import (
	"fmt"
	"log"

	"github.com/dupelens/backend/config"
	"github.com/dupelens/backend/internal/domain"
	"github.com/dupelens/backend/internal/infrastructure/cache"
	"github.com/dupelens/backend/internal/infrastructure/catalogapi"
	"github.com/dupelens/backend/internal/infrastructure/ratelimit"
	"github.com/dupelens/backend/internal/infrastructure/store/postgres"
	"github.com/dupelens/backend/internal/infrastructure/store/sqlite"
	"github.com/dupelens/backend/internal/usecase"
)

// App holds the wired dependencies shared by the server and the CLI
type App struct {
	Config  *config.Config
	Store   domain.DuplicateRepository
	Cache   *cache.MemoryCache
	Limiter *ratelimit.SlidingWindow
	Scans   *usecase.ScanService
}

// New wires the application from cfg. Close releases what it opened.
func New(cfg *config.Config) (*App, error) {
	store, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	memoryCache := cache.NewMemoryCache(0)

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit.SourcePermits, cfg.RateLimit.SourceWindow)
	limiter.SetDebug(cfg.Source.Debug)

	scans := usecase.NewScanService(
		SourceFactory(cfg.Source),
		limiter,
		memoryCache,
		store,
		usecase.ScanServiceConfig{
			MaxItems:   cfg.Source.MaxItems,
			CatalogTTL: cfg.Cache.TTL,
			Fetcher: usecase.FetcherConfig{
				PageSize:           cfg.Source.PageSize,
				ThrottleBackoff:    cfg.Source.ThrottleBackoff,
				PageDelay:          cfg.Source.PageDelay,
				EnableDebugLogging: cfg.Source.Debug,
			},
			Aggregator: usecase.AggregatorConfig{
				TitleThreshold:     cfg.Matching.TitleThreshold,
				EnableDebugLogging: cfg.Matching.Debug,
			},
		},
	)

	log.Printf("Source: %s (limit %d per %s, max %d items)",
		cfg.Source.BaseURL, cfg.RateLimit.SourcePermits, cfg.RateLimit.SourceWindow, cfg.Source.MaxItems)
	log.Printf("Matching: title threshold=%.2f, debug=%v", cfg.Matching.TitleThreshold, cfg.Matching.Debug)

	return &App{
		Config:  cfg,
		Store:   store,
		Cache:   memoryCache,
		Limiter: limiter,
		Scans:   scans,
	}, nil
}

// OpenStore opens the configured duplicate store
func OpenStore(cfg config.StoreConfig) (domain.DuplicateRepository, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath)
	case "postgres":
		return postgres.Open(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// SourceFactory builds one GraphQL catalog client per scope
func SourceFactory(cfg config.SourceConfig) usecase.SourceFactory {
	return func(scopeID string) (domain.CatalogSource, error) {
		client := catalogapi.NewScopedClient(cfg.BaseURL, scopeID, cfg.AccessToken, cfg.RequestTimeout)
		client.SetDebug(cfg.Debug)
		return client, nil
	}
}

// Close stops the cache janitor and closes the store
func (a *App) Close() error {
	a.Cache.Close()
	return a.Store.Close()
}
