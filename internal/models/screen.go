package models

import (
	"time"
)

// MarketCapBand restricts candidates to a market-capitalization range.
// Zero Max means unbounded above.
type MarketCapBand struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gte=0"`
}

// Contains reports whether cap lies inside the band (boundary inclusive).
func (b MarketCapBand) Contains(cap float64) bool {
	if cap < b.Min {
		return false
	}
	if b.Max > 0 && cap > b.Max {
		return false
	}
	return true
}

// ScreenCriteria is the immutable set of thresholds for one screening run.
// Numeric thresholds combine with AND semantics: a candidate failing any
// configured threshold is excluded. A nil pointer means "not constrained".
type ScreenCriteria struct {
	MinROIC         *float64       `json:"min_roic,omitempty" validate:"omitempty,gte=0"`
	MinROE          *float64       `json:"min_roe,omitempty" validate:"omitempty,gte=0"`
	MinNetMargin    *float64       `json:"min_net_margin,omitempty" validate:"omitempty,gte=0"`
	MaxDebtToEquity *float64       `json:"max_debt_to_equity,omitempty" validate:"omitempty,gte=0"`
	MinInsiderPct   *float64       `json:"min_insider_pct,omitempty" validate:"omitempty,gte=0,lte=1"`
	Sector          string         `json:"sector,omitempty"`
	MarketCap       *MarketCapBand `json:"market_cap,omitempty"`
}

// Thresholds returns the configured numeric thresholds in a stable order.
// Used for validation (at least one must be set).
func (c *ScreenCriteria) Thresholds() []*float64 {
	return []*float64{c.MinROIC, c.MinROE, c.MinNetMargin, c.MaxDebtToEquity, c.MinInsiderPct}
}

// UniverseFilter is the cheap categorical filter applied during universe
// scans, before any numeric thresholds.
type UniverseFilter struct {
	Sector    string
	MarketCap *MarketCapBand
	// ExcludeTicker removes one identifier from the scan (the similarity
	// reference excludes itself).
	ExcludeTicker string
}

// Candidate is the lightweight stage-1 projection of a security: only the
// fields the threshold scan needs, never the full record.
type Candidate struct {
	Ticker        string  `json:"ticker"`
	Sector        string  `json:"sector,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	MarketCap     float64 `json:"market_cap"`
	ROIC          float64 `json:"roic"`
	ROE           float64 `json:"roe"`
	NetMargin     float64 `json:"net_margin"`
	RevenueGrowth float64 `json:"revenue_growth"`
	DebtToEquity  float64 `json:"debt_to_equity"`
	InsiderPct    float64 `json:"insider_pct"`
}

// ScoredCandidate is one ranked entry in a screening or similarity result.
// Score is 0-100; SubScores carries the per-dimension contributions.
type ScoredCandidate struct {
	Ticker    string             `json:"ticker"`
	Name      string             `json:"name,omitempty"`
	Sector    string             `json:"sector,omitempty"`
	MarketCap float64            `json:"market_cap,omitempty"`
	Score     float64            `json:"score"`
	Rank      int                `json:"rank"`
	SubScores map[string]float64 `json:"sub_scores,omitempty"`
}

// ScreenDiagnostics reports what happened during a screening run without
// failing it: per-ticker fetch failures are absorbed here.
type ScreenDiagnostics struct {
	RunID   string        `json:"run_id"`
	Scanned int           `json:"scanned"`
	Matched int           `json:"matched"`
	Capped  int           `json:"capped"`
	Dropped []string      `json:"dropped,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// ScreenResult is the output of a screening run: the ranked shortlist plus
// diagnostics.
type ScreenResult struct {
	Candidates  []ScoredCandidate `json:"candidates"`
	Diagnostics ScreenDiagnostics `json:"diagnostics"`
}

// SimilarityResult is the output of a similarity query against a reference
// security.
type SimilarityResult struct {
	Reference string            `json:"reference"`
	Sector    string            `json:"sector,omitempty"`
	MarketCap float64           `json:"market_cap"`
	Matches   []ScoredCandidate `json:"matches"`
	// Pooled is how many candidates survived the market-cap band filter.
	Pooled int `json:"pooled"`
}
