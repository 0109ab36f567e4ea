// Package app wires the application together: storage, provider adapters,
// services and HTTP handlers.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/common"
	"github.com/ternarybob/funnel/internal/fetcher"
	"github.com/ternarybob/funnel/internal/fetcher/eodhd"
	"github.com/ternarybob/funnel/internal/fetcher/yahoo"
	"github.com/ternarybob/funnel/internal/handlers"
	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/services/cache"
	"github.com/ternarybob/funnel/internal/services/refresher"
	"github.com/ternarybob/funnel/internal/services/screener"
	"github.com/ternarybob/funnel/internal/services/similarity"
	"github.com/ternarybob/funnel/internal/services/universe"
	badgerstorage "github.com/ternarybob/funnel/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Provider chain
	Fetcher interfaces.Fetcher

	// Services
	CacheService      *cache.Service
	ScreenerService   *screener.Service
	SimilarityService *similarity.Service
	UniverseService   *universe.Service
	RefresherService  *refresher.Service

	// HTTP handlers
	ScreenHandler     *handlers.ScreenHandler
	SimilarityHandler *handlers.SimilarityHandler
	SecurityHandler   *handlers.SecurityHandler
	StatusHandler     *handlers.StatusHandler
}

// New creates and wires the application
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
	}

	common.SetDefaultExchange(config.Provider.DefaultExchange)

	storageManager, err := badgerstorage.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = storageManager

	a.Fetcher, err = buildFetcher(config, logger)
	if err != nil {
		storageManager.Close()
		return nil, err
	}

	a.CacheService = cache.NewService(
		storageManager.SecurityStorage(),
		a.Fetcher,
		config.Cache,
		config.Provider.Timeout.Duration(),
		logger,
	)
	a.ScreenerService = screener.NewService(a.CacheService, config.Screener.Stage1Cap, config.Screener.DefaultSize, logger)
	a.SimilarityService = similarity.NewService(a.CacheService, config.Similarity.DefaultSize, logger)
	a.UniverseService = universe.NewService(a.CacheService, config.Universe.SeedFile, logger)
	a.RefresherService = refresher.NewService(a.CacheService, config.Refresh.Schedule, logger)

	a.ScreenHandler = handlers.NewScreenHandler(a.ScreenerService, logger)
	a.SimilarityHandler = handlers.NewSimilarityHandler(a.SimilarityService, logger)
	a.SecurityHandler = handlers.NewSecurityHandler(a.CacheService, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.CacheService, config.Provider.Kind, logger)

	logger.Info().
		Str("provider", a.Fetcher.Name()).
		Str("storage", config.Storage.Badger.Path).
		Msg("Application initialized")

	return a, nil
}

// buildFetcher assembles the provider chain: the configured primary wrapped
// with bounded retry, with Yahoo as the quote-level fallback behind EODHD.
func buildFetcher(config *common.Config, logger arbor.ILogger) (interfaces.Fetcher, error) {
	var primary interfaces.Fetcher

	switch config.Provider.Kind {
	case "eodhd", "":
		if config.Provider.APIKey == "" {
			return nil, fmt.Errorf("provider api_key is required for eodhd")
		}
		primary = eodhd.NewClient(config.Provider.APIKey,
			eodhd.WithBaseURL(config.Provider.BaseURL),
			eodhd.WithRateLimit(config.Provider.RateLimit),
			eodhd.WithTimeout(config.Provider.Timeout.Duration()),
			eodhd.WithLogger(logger),
		)
	case "yahoo":
		primary = yahoo.NewClient(logger)
	default:
		return nil, fmt.Errorf("unknown provider kind: %s", config.Provider.Kind)
	}

	retried := fetcher.NewRetryFetcher(primary, config.Provider.MaxRetries, config.Provider.RetryBackoff.Duration(), logger)

	if config.Provider.Kind == "yahoo" {
		return retried, nil
	}
	return fetcher.NewFallbackFetcher(retried, yahoo.NewClient(logger), logger), nil
}

// Start launches background services.
func (a *App) Start() error {
	if a.Config.Refresh.Enabled {
		if err := a.RefresherService.Start(); err != nil {
			return fmt.Errorf("failed to start refresher: %w", err)
		}
	}
	return nil
}

// Close shuts down background services and storage.
func (a *App) Close() error {
	if a.RefresherService != nil {
		a.RefresherService.Stop()
	}
	if a.StorageManager != nil {
		return a.StorageManager.Close()
	}
	return nil
}
