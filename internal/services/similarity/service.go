// Package similarity finds peers of a reference security: same sector,
// comparable market cap, scored on how closely the business metrics match.
package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/models"
)

// Market-cap band around the reference: candidates outside
// [0.3x, 3.0x] of the reference cap are excluded, boundaries inclusive.
const (
	capRatioMin = 0.3
	capRatioMax = 3.0
)

// Sub-score weights. The raw total is 105; aggregates are scaled to 0-100.
const (
	weightSector   = 50.0
	weightIndustry = 20.0
	weightCap      = 10.0
	weightMargin   = 10.0
	weightGrowth   = 10.0
	weightROE      = 5.0
	weightTotal    = weightSector + weightIndustry + weightCap + weightMargin + weightGrowth + weightROE
)

// Cache is the slice of the cache service the scorer depends on.
type Cache interface {
	Get(ctx context.Context, ticker string, groups []models.GroupName) (*models.SecurityRecord, error)
	IterateCandidates(ctx context.Context, filter models.UniverseFilter, fn func(models.Candidate) bool) error
}

// Service answers similarity queries over the cached universe.
type Service struct {
	cache       Cache
	defaultSize int
	logger      arbor.ILogger
}

// NewService creates a new similarity service.
func NewService(cache Cache, defaultSize int, logger arbor.ILogger) *Service {
	if defaultSize <= 0 {
		defaultSize = 10
	}
	return &Service{
		cache:       cache,
		defaultSize: defaultSize,
		logger:      logger,
	}
}

// Similar returns the top peers of the reference ticker. The reference
// record is required; candidate pooling and scoring degrade softly.
func (s *Service) Similar(ctx context.Context, ticker string, size int) (*models.SimilarityResult, error) {
	if size <= 0 {
		size = s.defaultSize
	}

	reference, err := s.cache.Get(ctx, ticker, models.AllGroups())
	if err != nil {
		return nil, fmt.Errorf("reference record unavailable: %w", err)
	}

	// Pool: same sector, excluding the reference itself. The cap band is
	// relative to the reference so it is applied here, not in the scan.
	filter := models.UniverseFilter{
		Sector:        reference.Sector,
		ExcludeTicker: reference.Ticker,
	}

	var pool []models.Candidate
	err = s.cache.IterateCandidates(ctx, filter, func(c models.Candidate) bool {
		if !withinCapBand(reference.MarketCap, c.MarketCap) {
			return true
		}
		pool = append(pool, c)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("universe scan failed: %w", err)
	}

	refMetrics := metricsOf(reference)
	matches := make([]models.ScoredCandidate, 0, len(pool))
	for _, candidate := range pool {
		score, subs := scoreCandidate(reference, refMetrics, candidate)
		matches = append(matches, models.ScoredCandidate{
			Ticker:    candidate.Ticker,
			Sector:    candidate.Sector,
			MarketCap: candidate.MarketCap,
			Score:     score,
			SubScores: subs,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Ticker < matches[j].Ticker
	})
	pooled := len(matches)
	if len(matches) > size {
		matches = matches[:size]
	}
	for i := range matches {
		matches[i].Rank = i + 1
	}

	s.logger.Debug().
		Str("ticker", reference.Ticker).
		Int("pooled", pooled).
		Int("matches", len(matches)).
		Msg("Similarity query complete")

	return &models.SimilarityResult{
		Reference: reference.Ticker,
		Sector:    reference.Sector,
		MarketCap: reference.MarketCap,
		Matches:   matches,
		Pooled:    pooled,
	}, nil
}

// withinCapBand applies the [0.3x, 3.0x] band, boundaries inclusive. A
// missing cap on either side excludes the candidate.
func withinCapBand(refCap, cap float64) bool {
	if refCap <= 0 || cap <= 0 {
		return false
	}
	ratio := cap / refCap
	return ratio >= capRatioMin && ratio <= capRatioMax
}

// refMetrics carries the reference-side comparison values.
type refMetrics struct {
	industry  string
	netMargin float64
	growth    float64
	roe       float64
}

func metricsOf(record *models.SecurityRecord) refMetrics {
	m := refMetrics{industry: record.Industry}
	if record.Fundamentals != nil {
		m.netMargin = record.Fundamentals.NetMargin
		m.growth = record.Fundamentals.RevenueGrowth
		m.roe = record.Fundamentals.ROE
	}
	return m
}

// scoreCandidate computes the weighted similarity of one candidate against
// the reference, scaled to 0-100.
func scoreCandidate(reference *models.SecurityRecord, ref refMetrics, c models.Candidate) (float64, map[string]float64) {
	subs := map[string]float64{
		"sector":   0.0,
		"industry": 0.0,
		"cap":      capProximity(reference.MarketCap, c.MarketCap),
		"margin":   metricSimilarity(ref.netMargin, c.NetMargin),
		"growth":   metricSimilarity(ref.growth, c.RevenueGrowth),
		"roe":      metricSimilarity(ref.roe, c.ROE),
	}
	// The pool is sector-filtered when the reference carries a sector, but
	// the match is still computed so a reference with no classification
	// does not hand every candidate the full sector weight.
	if reference.Sector != "" && c.Sector == reference.Sector {
		subs["sector"] = 1.0
	}
	if ref.industry != "" && c.Industry == ref.industry {
		subs["industry"] = 1.0
	}

	raw := subs["sector"]*weightSector +
		subs["industry"]*weightIndustry +
		subs["cap"]*weightCap +
		subs["margin"]*weightMargin +
		subs["growth"]*weightGrowth +
		subs["roe"]*weightROE

	return raw / weightTotal * 100, subs
}

// capProximity maps the cap ratio onto [0,1]: 1 at parity, 0 at the band
// edges (ratio 0.3 or 3.0).
func capProximity(refCap, cap float64) float64 {
	if refCap <= 0 || cap <= 0 {
		return 0
	}
	distance := math.Abs(math.Log10(cap/refCap)) / math.Log10(capRatioMax)
	if distance > 1 {
		return 0
	}
	return 1 - distance
}

// metricSimilarity maps two metric values onto [0,1]: 1 when equal, 0 when
// they differ by the larger magnitude or more.
func metricSimilarity(a, b float64) float64 {
	const epsilon = 1e-9
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), epsilon)
	diff := math.Abs(a-b) / denom
	if diff > 1 {
		diff = 1
	}
	return 1 - diff
}
