// Package models defines the data structures shared across the funnel
// application: security records, metric groups, screening criteria and
// screening/similarity results.
package models

import (
	"time"
)

// GroupName identifies an independently-refreshable metric group within a
// security's record. Groups refresh on different cadences (technicals daily,
// fundamentals quarterly), so freshness is tracked per group rather than per
// record.
type GroupName string

const (
	GroupFundamentals GroupName = "fundamentals"
	GroupOwnership    GroupName = "ownership"
	GroupShareData    GroupName = "sharedata"
	GroupValuation    GroupName = "valuation"
	GroupTechnicals   GroupName = "technicals"
)

// AllGroups returns every metric group in a stable order.
func AllGroups() []GroupName {
	return []GroupName{
		GroupFundamentals,
		GroupOwnership,
		GroupShareData,
		GroupValuation,
		GroupTechnicals,
	}
}

// IsValid reports whether g names a known metric group.
func (g GroupName) IsValid() bool {
	switch g {
	case GroupFundamentals, GroupOwnership, GroupShareData, GroupValuation, GroupTechnicals:
		return true
	}
	return false
}

// GroupMeta carries the freshness bookkeeping attached to every metric group.
type GroupMeta struct {
	// AsOf is the point in time the provider's data describes (e.g. the
	// fiscal period end for fundamentals, the trading day for technicals).
	AsOf time.Time `json:"as_of"`
	// FetchedAt is when the group was last retrieved from the provider.
	FetchedAt time.Time `json:"fetched_at"`
	// Stale is set when a refresh attempt failed and the cached value was
	// served anyway (availability over freshness).
	Stale bool `json:"stale,omitempty"`
}

// Fundamentals holds profitability, balance-sheet and growth metrics.
// Ratios are decimals (0.15 = 15%).
type Fundamentals struct {
	GroupMeta
	ROIC            float64 `json:"roic"`
	ROE             float64 `json:"roe"`
	GrossMargin     float64 `json:"gross_margin"`
	NetMargin       float64 `json:"net_margin"`
	OperatingMargin float64 `json:"operating_margin"`
	FreeCashFlow    float64 `json:"free_cash_flow"`
	OperatingCF     float64 `json:"operating_cash_flow"`
	DebtToEquity    float64 `json:"debt_to_equity"`
	RevenueGrowth   float64 `json:"revenue_growth"`
	EarningsGrowth  float64 `json:"earnings_growth"`
}

// Ownership holds insider and institutional ownership metrics.
type Ownership struct {
	GroupMeta
	InsiderPct       float64 `json:"insider_pct"`
	InstitutionalPct float64 `json:"institutional_pct"`
	// NetInsiderBuys3M is the net share delta of insider transactions over
	// the trailing three months (positive = net buying).
	NetInsiderBuys3M float64 `json:"net_insider_buys_3m"`
	SharesShort      float64 `json:"shares_short"`
}

// SharePoint is one historical share-count observation.
type SharePoint struct {
	Date   time.Time `json:"date"`
	Shares float64   `json:"shares"`
}

// ShareData holds share count history and buyback activity.
type ShareData struct {
	GroupMeta
	SharesOutstanding float64      `json:"shares_outstanding"`
	SharesHistory     []SharePoint `json:"shares_history,omitempty"`
	// BuybackTTM is trailing-twelve-month repurchase spend (positive =
	// shares bought back).
	BuybackTTM float64 `json:"buyback_ttm"`
}

// Valuation holds pricing multiples.
type Valuation struct {
	GroupMeta
	TrailingPE   float64 `json:"trailing_pe"`
	ForwardPE    float64 `json:"forward_pe"`
	PriceToBook  float64 `json:"price_to_book"`
	PriceToSales float64 `json:"price_to_sales"`
	EVToEBITDA   float64 `json:"ev_to_ebitda"`
	PEGRatio     float64 `json:"peg_ratio"`
}

// Trend classifies the price trend from moving-average positioning.
type Trend string

const (
	TrendStrongUp   Trend = "strong_uptrend"
	TrendUp         Trend = "uptrend"
	TrendNeutral    Trend = "neutral"
	TrendDown       Trend = "downtrend"
	TrendStrongDown Trend = "strong_downtrend"
)

// Technicals holds price-derived indicators.
type Technicals struct {
	GroupMeta
	Trend      Trend   `json:"trend"`
	RSI14      float64 `json:"rsi_14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	SMA50      float64 `json:"sma_50"`
	SMA200     float64 `json:"sma_200"`
	Price      float64 `json:"price"`
}

// SecurityRecord is the full per-security record assembled from cached
// metric groups. Group pointers are nil when the group was not requested or
// has never been fetched.
type SecurityRecord struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name,omitempty"`
	Sector    string  `json:"sector,omitempty"`
	Industry  string  `json:"industry,omitempty"`
	MarketCap float64 `json:"market_cap,omitempty"`

	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
	Ownership    *Ownership    `json:"ownership,omitempty"`
	ShareData    *ShareData    `json:"sharedata,omitempty"`
	Valuation    *Valuation    `json:"valuation,omitempty"`
	Technicals   *Technicals   `json:"technicals,omitempty"`
}

// Group returns the named group's freshness meta, or nil when the group is
// not present on the record.
func (r *SecurityRecord) Group(name GroupName) *GroupMeta {
	switch name {
	case GroupFundamentals:
		if r.Fundamentals != nil {
			return &r.Fundamentals.GroupMeta
		}
	case GroupOwnership:
		if r.Ownership != nil {
			return &r.Ownership.GroupMeta
		}
	case GroupShareData:
		if r.ShareData != nil {
			return &r.ShareData.GroupMeta
		}
	case GroupValuation:
		if r.Valuation != nil {
			return &r.Valuation.GroupMeta
		}
	case GroupTechnicals:
		if r.Technicals != nil {
			return &r.Technicals.GroupMeta
		}
	}
	return nil
}

// GroupData is a provider's answer for one (ticker, group) fetch. Identity
// fields (name, sector, industry, market cap) ride along with whichever
// group the provider returned them on.
type GroupData struct {
	Ticker    string    `json:"ticker"`
	Group     GroupName `json:"group"`
	Name      string    `json:"name,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	Industry  string    `json:"industry,omitempty"`
	MarketCap float64   `json:"market_cap,omitempty"`
	AsOf      time.Time `json:"as_of"`
	// FetchedAt is when the data was retrieved. Zero means "now" when the
	// data is written to the cache, so identical writes stay idempotent.
	FetchedAt time.Time `json:"fetched_at"`

	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
	Ownership    *Ownership    `json:"ownership,omitempty"`
	ShareData    *ShareData    `json:"sharedata,omitempty"`
	Valuation    *Valuation    `json:"valuation,omitempty"`
	Technicals   *Technicals   `json:"technicals,omitempty"`
}
