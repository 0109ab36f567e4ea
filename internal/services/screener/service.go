// Package screener implements the two-stage screening funnel: a cheap
// threshold scan over the stored universe followed by full-record scoring of
// the survivors.
package screener

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// Cache is the slice of the cache service the screener depends on.
type Cache interface {
	Get(ctx context.Context, ticker string, groups []models.GroupName) (*models.SecurityRecord, error)
	IterateCandidates(ctx context.Context, filter models.UniverseFilter, fn func(models.Candidate) bool) error
}

// Service runs screening funnels over the cached universe.
type Service struct {
	cache       Cache
	stage1Cap   int
	defaultSize int
	validate    *validator.Validate
	logger      arbor.ILogger
}

// NewService creates a new screener service.
func NewService(cache Cache, stage1Cap, defaultSize int, logger arbor.ILogger) *Service {
	if stage1Cap <= 0 {
		stage1Cap = 75
	}
	if defaultSize <= 0 {
		defaultSize = 20
	}
	return &Service{
		cache:       cache,
		stage1Cap:   stage1Cap,
		defaultSize: defaultSize,
		validate:    validator.New(),
		logger:      logger,
	}
}

// stage1Candidate pairs a candidate with its cutoff composite.
type stage1Candidate struct {
	models.Candidate
	composite float64
}

// Screen runs the two-stage funnel. Criteria thresholds combine with AND
// semantics; per-ticker data gaps drop the candidate into diagnostics
// instead of failing the run.
func (s *Service) Screen(ctx context.Context, criteria *models.ScreenCriteria, size int) (*models.ScreenResult, error) {
	start := time.Now()
	if err := s.validateCriteria(criteria); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = s.defaultSize
	}

	runID := uuid.New().String()
	diagnostics := models.ScreenDiagnostics{RunID: runID}

	// Stage 1: cheap projection scan with the categorical filter pushed
	// into the storage iteration.
	filter := models.UniverseFilter{
		Sector:    criteria.Sector,
		MarketCap: criteria.MarketCap,
	}

	var matched []stage1Candidate
	err := s.cache.IterateCandidates(ctx, filter, func(c models.Candidate) bool {
		diagnostics.Scanned++
		if !meetsThresholds(criteria, c) {
			return true
		}
		matched = append(matched, stage1Candidate{
			Candidate: c,
			composite: compositeMargin(criteria, c),
		})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("universe scan failed: %w", err)
	}
	diagnostics.Matched = len(matched)

	// Deterministic cutoff: composite desc, then ROIC desc, ROE desc,
	// ticker asc. Two runs over the same universe keep the same survivors.
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].composite != matched[j].composite {
			return matched[i].composite > matched[j].composite
		}
		if matched[i].ROIC != matched[j].ROIC {
			return matched[i].ROIC > matched[j].ROIC
		}
		if matched[i].ROE != matched[j].ROE {
			return matched[i].ROE > matched[j].ROE
		}
		return matched[i].Ticker < matched[j].Ticker
	})
	if len(matched) > s.stage1Cap {
		diagnostics.Capped = len(matched) - s.stage1Cap
		matched = matched[:s.stage1Cap]
	}

	// Stage 2: full records for the survivors, scored.
	scored := make([]models.ScoredCandidate, 0, len(matched))
	for _, candidate := range matched {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := s.cache.Get(ctx, candidate.Ticker, models.AllGroups())
		if err != nil {
			s.logger.Warn().
				Str("run_id", runID).
				Str("ticker", candidate.Ticker).
				Err(err).
				Msg("Dropping candidate, record unavailable")
			diagnostics.Dropped = append(diagnostics.Dropped, candidate.Ticker)
			continue
		}

		score, subs := QualityScore(record)
		scored = append(scored, models.ScoredCandidate{
			Ticker:    record.Ticker,
			Name:      record.Name,
			Sector:    record.Sector,
			MarketCap: record.MarketCap,
			Score:     score,
			SubScores: subs,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Ticker < scored[j].Ticker
	})
	if len(scored) > size {
		scored = scored[:size]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}

	diagnostics.Elapsed = time.Since(start)
	s.logger.Info().
		Str("run_id", runID).
		Int("scanned", diagnostics.Scanned).
		Int("matched", diagnostics.Matched).
		Int("results", len(scored)).
		Msg("Screen complete")

	return &models.ScreenResult{
		Candidates:  scored,
		Diagnostics: diagnostics,
	}, nil
}

// validateCriteria rejects malformed criteria before any scan work.
func (s *Service) validateCriteria(criteria *models.ScreenCriteria) error {
	if criteria == nil {
		return fmt.Errorf("%w: criteria missing", interfaces.ErrInvalidCriteria)
	}
	if err := s.validate.Struct(criteria); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidCriteria, err)
	}

	any := false
	for _, threshold := range criteria.Thresholds() {
		if threshold != nil {
			any = true
			break
		}
	}
	if !any {
		return fmt.Errorf("%w: at least one numeric threshold is required", interfaces.ErrInvalidCriteria)
	}

	if band := criteria.MarketCap; band != nil && band.Max > 0 && band.Min > band.Max {
		return fmt.Errorf("%w: market cap band min exceeds max", interfaces.ErrInvalidCriteria)
	}

	return nil
}

// meetsThresholds applies every configured numeric threshold with AND
// semantics.
func meetsThresholds(criteria *models.ScreenCriteria, c models.Candidate) bool {
	if criteria.MinROIC != nil && c.ROIC < *criteria.MinROIC {
		return false
	}
	if criteria.MinROE != nil && c.ROE < *criteria.MinROE {
		return false
	}
	if criteria.MinNetMargin != nil && c.NetMargin < *criteria.MinNetMargin {
		return false
	}
	if criteria.MaxDebtToEquity != nil && c.DebtToEquity > *criteria.MaxDebtToEquity {
		return false
	}
	if criteria.MinInsiderPct != nil && c.InsiderPct < *criteria.MinInsiderPct {
		return false
	}
	return true
}

// compositeMargin is the stage-1 cutoff key: the mean normalized margin by
// which a candidate clears its configured thresholds.
func compositeMargin(criteria *models.ScreenCriteria, c models.Candidate) float64 {
	const epsilon = 1e-9
	var sum float64
	var n int

	margin := func(value, threshold float64, minimum bool) float64 {
		denom := math.Max(math.Abs(threshold), epsilon)
		if minimum {
			return (value - threshold) / denom
		}
		return (threshold - value) / denom
	}

	if criteria.MinROIC != nil {
		sum += margin(c.ROIC, *criteria.MinROIC, true)
		n++
	}
	if criteria.MinROE != nil {
		sum += margin(c.ROE, *criteria.MinROE, true)
		n++
	}
	if criteria.MinNetMargin != nil {
		sum += margin(c.NetMargin, *criteria.MinNetMargin, true)
		n++
	}
	if criteria.MaxDebtToEquity != nil {
		sum += margin(c.DebtToEquity, *criteria.MaxDebtToEquity, false)
		n++
	}
	if criteria.MinInsiderPct != nil {
		sum += margin(c.InsiderPct, *criteria.MinInsiderPct, true)
		n++
	}

	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
