package screener

import (
	"math"

	"github.com/ternarybob/funnel/internal/models"
)

// Quality score dimension weights. Fixed so that two runs over the same
// records always rank identically; the sum is 100.
const (
	weightFinancial      = 25.0
	weightCapitalAlloc   = 15.0
	weightOwnership      = 10.0
	weightValuation      = 15.0
	weightBusiness       = 10.0
	weightManagement     = 5.0
	weightMarketPosition = 10.0
	weightTechnical      = 10.0
)

// neutralScore is used for dimensions whose backing group is absent from
// the record, so partial records rank mid-pack rather than at the bottom.
const neutralScore = 0.5

// QualityScore computes the 0-100 quality score of a security record as a
// weighted sum over eight dimensions. Pure function: same record, same
// score. The returned sub-scores carry each dimension's 0-1 value.
func QualityScore(record *models.SecurityRecord) (float64, map[string]float64) {
	subs := map[string]float64{
		"financial":       scoreFinancial(record.Fundamentals),
		"capital_alloc":   scoreCapitalAllocation(record.ShareData, record.Fundamentals),
		"ownership":       scoreOwnership(record.Ownership),
		"valuation":       scoreValuation(record.Valuation),
		"business":        scoreBusiness(record.Fundamentals),
		"management":      scoreManagement(record.Fundamentals),
		"market_position": scoreMarketPosition(record),
		"technical":       scoreTechnical(record.Technicals),
	}

	total := subs["financial"]*weightFinancial +
		subs["capital_alloc"]*weightCapitalAlloc +
		subs["ownership"]*weightOwnership +
		subs["valuation"]*weightValuation +
		subs["business"]*weightBusiness +
		subs["management"]*weightManagement +
		subs["market_position"]*weightMarketPosition +
		subs["technical"]*weightTechnical

	return total, subs
}

// clamp01 maps value/scale onto [0,1].
func clamp01(value, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	v := value / scale
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scoreFinancial rewards high returns on capital, healthy margins and
// positive free cash flow. ROIC saturates at 25%, ROE at 30%.
func scoreFinancial(f *models.Fundamentals) float64 {
	if f == nil {
		return neutralScore
	}
	score := clamp01(f.ROIC, 0.25)*0.35 +
		clamp01(f.ROE, 0.30)*0.25 +
		clamp01(f.NetMargin, 0.20)*0.25
	if f.FreeCashFlow > 0 {
		score += 0.15
	}
	return score
}

// scoreCapitalAllocation rewards shrinking share counts, buyback spend and
// conservative leverage.
func scoreCapitalAllocation(s *models.ShareData, f *models.Fundamentals) float64 {
	if s == nil && f == nil {
		return neutralScore
	}

	var score float64
	if s != nil {
		if s.BuybackTTM > 0 {
			score += 0.35
		}
		if delta := shareCountDelta(s); delta < 0 {
			score += 0.35
		} else if delta == 0 {
			score += 0.15
		}
	} else {
		score += neutralScore * 0.7
	}

	if f != nil {
		// Debt/equity of 0 scores full marks, 2+ scores nothing.
		score += (1 - clamp01(f.DebtToEquity, 2.0)) * 0.30
	} else {
		score += neutralScore * 0.3
	}

	return score
}

// shareCountDelta returns the newest-minus-oldest share count over the
// stored history, or 0 when there is no usable history.
func shareCountDelta(s *models.ShareData) float64 {
	if len(s.SharesHistory) < 2 {
		return 0
	}
	newest := s.SharesHistory[0].Shares
	oldest := s.SharesHistory[len(s.SharesHistory)-1].Shares
	return newest - oldest
}

// scoreOwnership rewards meaningful insider skin-in-the-game and recent net
// insider buying. Insider ownership saturates at 15%.
func scoreOwnership(o *models.Ownership) float64 {
	if o == nil {
		return neutralScore
	}
	score := clamp01(o.InsiderPct, 0.15)*0.50 +
		clamp01(o.InstitutionalPct, 0.70)*0.25
	if o.NetInsiderBuys3M > 0 {
		score += 0.25
	}
	return score
}

// scoreValuation rewards cheap multiples. A trailing P/E of 10 or below
// scores full marks, 50 or above scores zero; EV/EBITDA scales similarly.
func scoreValuation(v *models.Valuation) float64 {
	if v == nil {
		return neutralScore
	}

	var score float64
	if v.TrailingPE > 0 {
		score += (1 - clamp01(v.TrailingPE-10, 40)) * 0.40
	}
	if v.EVToEBITDA > 0 {
		score += (1 - clamp01(v.EVToEBITDA-6, 24)) * 0.35
	}
	if v.PEGRatio > 0 {
		score += (1 - clamp01(v.PEGRatio-0.5, 2.5)) * 0.25
	}
	return score
}

// scoreBusiness rewards structural margin strength. Gross margin saturates
// at 60%, operating margin at 25%.
func scoreBusiness(f *models.Fundamentals) float64 {
	if f == nil {
		return neutralScore
	}
	return clamp01(f.GrossMargin, 0.60)*0.55 +
		clamp01(f.OperatingMargin, 0.25)*0.45
}

// scoreManagement rewards earnings execution: growing earnings and cash
// conversion (free cash flow backing operating cash flow).
func scoreManagement(f *models.Fundamentals) float64 {
	if f == nil {
		return neutralScore
	}
	score := clamp01(f.EarningsGrowth, 0.25) * 0.55
	if f.OperatingCF > 0 {
		score += clamp01(f.FreeCashFlow/f.OperatingCF, 1.0) * 0.45
	}
	return score
}

// scoreMarketPosition uses size and gross margin as a rough moat proxy:
// log-scaled market cap between 1B and 1T plus margin durability.
func scoreMarketPosition(record *models.SecurityRecord) float64 {
	var score float64
	if record.MarketCap >= 1e9 {
		// log10(cap/1e9) spans 0..3 over 1B..1T.
		score += clamp01(math.Log10(record.MarketCap/1e9), 3.0) * 0.50
	}
	if record.Fundamentals != nil {
		score += clamp01(record.Fundamentals.GrossMargin, 0.60) * 0.50
	} else {
		score += neutralScore * 0.50
	}
	return score
}

// trendScores maps trend buckets onto 0-1.
var trendScores = map[models.Trend]float64{
	models.TrendStrongUp:   1.0,
	models.TrendUp:         0.75,
	models.TrendNeutral:    0.5,
	models.TrendDown:       0.25,
	models.TrendStrongDown: 0.0,
}

// scoreTechnical rewards uptrends and a non-overbought RSI.
func scoreTechnical(t *models.Technicals) float64 {
	if t == nil {
		return neutralScore
	}
	score := trendScores[t.Trend] * 0.70
	// RSI between 40 and 65 is the sweet spot; extremes score nothing.
	if t.RSI14 >= 40 && t.RSI14 <= 65 {
		score += 0.30
	} else if t.RSI14 > 30 && t.RSI14 < 75 {
		score += 0.15
	}
	return score
}
