// Package universe seeds the cache from a YAML file listing the tickers the
// service should track.
package universe

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/funnel/internal/common"
	"github.com/ternarybob/funnel/internal/models"
)

// seedGroups are the groups primed during seeding. The rest load lazily on
// first access.
var seedGroups = []models.GroupName{
	models.GroupFundamentals,
	models.GroupOwnership,
}

// SeedFile is the on-disk shape of the universe file.
type SeedFile struct {
	Universe []SeedEntry `yaml:"universe"`
}

// SeedEntry is one tracked security. Sector is an optional hint for
// operators reading the file; the provider's sector wins.
type SeedEntry struct {
	Ticker string `yaml:"ticker"`
	Sector string `yaml:"sector,omitempty"`
}

// Cache is the slice of the cache service the seeder depends on.
type Cache interface {
	GetUniverse(ctx context.Context, tickers []string, groups []models.GroupName) (map[string]*models.SecurityRecord, map[string]error)
}

// Service loads the seed file and primes the cache.
type Service struct {
	cache    Cache
	seedFile string
	logger   arbor.ILogger
}

// NewService creates a new universe service.
func NewService(cache Cache, seedFile string, logger arbor.ILogger) *Service {
	return &Service{
		cache:    cache,
		seedFile: seedFile,
		logger:   logger,
	}
}

// Load parses the seed file.
func (s *Service) Load() (*SeedFile, error) {
	data, err := os.ReadFile(s.seedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", s.seedFile, err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", s.seedFile, err)
	}

	return &seed, nil
}

// Seed primes the cache for every listed ticker through the batch loader.
// Per-ticker failures are logged and skipped; a seed run never aborts on one
// bad ticker. Returns how many tickers were primed.
func (s *Service) Seed(ctx context.Context) (int, error) {
	seed, err := s.Load()
	if err != nil {
		return 0, err
	}

	raw := make([]string, 0, len(seed.Universe))
	for _, entry := range seed.Universe {
		raw = append(raw, entry.Ticker)
	}

	parsed := common.ParseTickers(raw)
	if skipped := len(raw) - len(parsed); skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("Skipping unparseable seed entries")
	}
	tickers := make([]string, 0, len(parsed))
	for _, t := range parsed {
		tickers = append(tickers, t.String())
	}

	// The batch loader bounds concurrency; provider rate limiting applies
	// inside the adapter.
	records, failures := s.cache.GetUniverse(ctx, tickers, seedGroups)
	for ticker, err := range failures {
		s.logger.Warn().
			Str("ticker", ticker).
			Err(err).
			Msg("Seed fetch failed, continuing")
	}

	s.logger.Info().
		Int("listed", len(seed.Universe)).
		Int("primed", len(records)).
		Msg("Universe seed complete")

	return len(records), ctx.Err()
}
