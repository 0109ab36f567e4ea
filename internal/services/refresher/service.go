// Package refresher runs the scheduled background refresh over the stored
// universe.
package refresher

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/models"
)

// Cache is the slice of the cache service the refresher depends on.
type Cache interface {
	GetUniverse(ctx context.Context, tickers []string, groups []models.GroupName) (map[string]*models.SecurityRecord, map[string]error)
	Tickers(ctx context.Context) ([]string, error)
}

// Service walks the stored tickers on a cron schedule and lets the
// read-through cache refetch whatever has expired.
type Service struct {
	cache    Cache
	schedule string
	logger   arbor.ILogger

	cron    *cron.Cron
	running atomic.Bool
}

// NewService creates a new refresher service.
func NewService(cache Cache, schedule string, logger arbor.ILogger) *Service {
	return &Service{
		cache:    cache,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the schedule and starts the cron runner.
func (s *Service) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()

	s.logger.Info().Str("schedule", s.schedule).Msg("Background refresh scheduled")
	return nil
}

// Stop stops the cron runner. A refresh already in flight finishes.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce refreshes the whole stored universe. Skips cleanly when a
// previous run is still in progress. Returns how many tickers were touched.
func (s *Service) RunOnce(ctx context.Context) int {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("Refresh already running, skipping")
		return 0
	}
	defer s.running.Store(false)

	tickers, err := s.cache.Tickers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Refresh failed to list tickers")
		return 0
	}

	// Batch read-through with all groups: fresh groups are served from the
	// store, expired ones are refetched.
	records, failures := s.cache.GetUniverse(ctx, tickers, models.AllGroups())
	for ticker, err := range failures {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Refresh fetch failed, continuing")
	}

	s.logger.Info().Int("tickers", len(tickers)).Int("touched", len(records)).Msg("Universe refresh complete")
	return len(records)
}
