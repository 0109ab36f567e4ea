// Package yahoo provides a Yahoo Finance provider adapter built on
// piquette/finance-go. It serves as a secondary source for the quote-derived
// groups only; fundamentals depth stays with the primary provider.
package yahoo

import (
	"context"
	"time"

	"github.com/piquette/finance-go/equity"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/common"
	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// Client is the Yahoo Finance provider adapter.
type Client struct {
	logger arbor.ILogger
}

// NewClient creates a Yahoo Finance adapter.
func NewClient(logger arbor.ILogger) *Client {
	return &Client{logger: logger}
}

// Name identifies the provider.
func (c *Client) Name() string {
	return "yahoo"
}

// Supports reports group capability. Yahoo quotes only carry valuation and
// price data, so the deeper groups are not served here.
func (c *Client) Supports(group models.GroupName) bool {
	return group == models.GroupValuation || group == models.GroupTechnicals
}

// FetchGroup retrieves one metric group for a ticker.
func (c *Client) FetchGroup(ctx context.Context, ticker string, group models.GroupName) (*models.GroupData, error) {
	if !c.Supports(group) {
		return nil, interfaces.ErrDataUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	symbol := common.ParseTicker(ticker).YahooSymbol()
	if symbol == "" {
		return nil, interfaces.ErrDataUnavailable
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Str("symbol", symbol).
			Str("group", string(group)).
			Msg("Yahoo quote request")
	}

	// The equity endpoint carries the valuation fields (forward PE, price
	// to book, trailing EPS) that plain quotes lack.
	q, err := equity.Get(symbol)
	if err != nil {
		return nil, &interfaces.ProviderError{
			Provider:  c.Name(),
			Endpoint:  "equity/" + symbol,
			Temporary: true,
			Err:       err,
		}
	}
	if q == nil {
		return nil, interfaces.ErrDataUnavailable
	}

	data := &models.GroupData{
		Ticker:    ticker,
		Group:     group,
		Name:      q.ShortName,
		MarketCap: float64(q.MarketCap),
		AsOf:      time.Now().UTC(),
	}

	switch group {
	case models.GroupValuation:
		v := &models.Valuation{
			ForwardPE:   q.ForwardPE,
			PriceToBook: q.PriceToBook,
		}
		if q.EpsTrailingTwelveMonths > 0 {
			v.TrailingPE = q.RegularMarketPrice / q.EpsTrailingTwelveMonths
		}
		data.Valuation = v

	case models.GroupTechnicals:
		t := &models.Technicals{
			Price:  q.RegularMarketPrice,
			SMA50:  q.FiftyDayAverage,
			SMA200: q.TwoHundredDayAverage,
		}
		t.Trend = classifyTrend(t.Price, t.SMA50, t.SMA200)
		data.Technicals = t
	}

	return data, nil
}

// classifyTrend mirrors the primary adapter's moving-average buckets for the
// averages Yahoo reports directly.
func classifyTrend(price, sma50, sma200 float64) models.Trend {
	if sma50 == 0 || sma200 == 0 {
		return models.TrendNeutral
	}
	switch {
	case price > sma50 && sma50 > sma200:
		return models.TrendStrongUp
	case price > sma200:
		return models.TrendUp
	case price < sma50 && sma50 < sma200:
		return models.TrendStrongDown
	case price < sma200:
		return models.TrendDown
	default:
		return models.TrendNeutral
	}
}

var _ interfaces.Fetcher = (*Client)(nil)
