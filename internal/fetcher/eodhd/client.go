package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/funnel/internal/common"
	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// groupFilters selects the fundamentals-payload sections each metric group
// needs, keeping responses small.
var groupFilters = map[models.GroupName]string{
	models.GroupFundamentals: "General,Highlights,Financials",
	models.GroupOwnership:    "General,SharesStats,InsiderTransactions",
	models.GroupShareData:    "General,SharesStats,outstandingShares,Financials",
	models.GroupValuation:    "General,Highlights,Valuation",
}

// Client is an EODHD API provider adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout. Timeouts are mandatory; zero values
// keep the default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new EODHD provider adapter.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies the provider.
func (c *Client) Name() string {
	return "eodhd"
}

// Supports reports group capability. EODHD serves all five metric groups.
func (c *Client) Supports(group models.GroupName) bool {
	return group.IsValid()
}

// FetchGroup retrieves one metric group for a ticker.
func (c *Client) FetchGroup(ctx context.Context, ticker string, group models.GroupName) (*models.GroupData, error) {
	symbol := common.ParseTicker(ticker).EODHDSymbol()
	if symbol == "" {
		return nil, interfaces.ErrDataUnavailable
	}

	if group == models.GroupTechnicals {
		return c.fetchTechnicals(ctx, ticker, symbol)
	}

	filter, ok := groupFilters[group]
	if !ok {
		return nil, interfaces.ErrDataUnavailable
	}

	params := url.Values{}
	params.Set("filter", filter)

	var payload fundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+symbol, params, &payload); err != nil {
		return nil, err
	}
	if payload.General.Code == "" && payload.General.Name == "" {
		// Empty document: the provider has nothing for this symbol.
		return nil, interfaces.ErrDataUnavailable
	}

	return c.mapGroup(ticker, group, &payload)
}

// fetchTechnicals builds the technicals group from a year of EOD bars.
func (c *Client) fetchTechnicals(ctx context.Context, ticker, symbol string) (*models.GroupData, error) {
	params := url.Values{}
	params.Set("from", time.Now().AddDate(-1, 0, 0).Format("2006-01-02"))
	params.Set("period", "d")
	params.Set("order", "a")

	var bars []eodBar
	if err := c.get(ctx, "/eod/"+symbol, params, &bars); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, interfaces.ErrDataUnavailable
	}

	for i := range bars {
		if t, err := time.Parse("2006-01-02", bars[i].DateStr); err == nil {
			bars[i].Date = t
		}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	tech := &models.Technicals{
		Price:  closes[len(closes)-1],
		SMA50:  SMA(closes, 50),
		SMA200: SMA(closes, 200),
		RSI14:  RSI(closes, 14),
	}
	tech.MACD, tech.MACDSignal = MACD(closes)
	tech.Trend = ClassifyTrend(tech.Price, tech.SMA50, tech.SMA200)
	tech.AsOf = bars[len(bars)-1].Date

	return &models.GroupData{
		Ticker:     ticker,
		Group:      models.GroupTechnicals,
		AsOf:       tech.AsOf,
		Technicals: tech,
	}, nil
}

// mapGroup projects the fundamentals payload onto one metric group.
func (c *Client) mapGroup(ticker string, group models.GroupName, payload *fundamentalsResponse) (*models.GroupData, error) {
	data := &models.GroupData{
		Ticker:    ticker,
		Group:     group,
		Name:      payload.General.Name,
		Sector:    payload.General.Sector,
		Industry:  payload.General.Industry,
		MarketCap: payload.Highlights.MarketCapitalization,
		AsOf:      time.Now().UTC(),
	}
	if t, err := time.Parse("2006-01-02", payload.General.UpdatedAt); err == nil {
		data.AsOf = t
	}

	switch group {
	case models.GroupFundamentals:
		f := &models.Fundamentals{
			ROE:             payload.Highlights.ReturnOnEquityTTM,
			NetMargin:       payload.Highlights.ProfitMargin,
			OperatingMargin: payload.Highlights.OperatingMarginTTM,
			RevenueGrowth:   payload.Highlights.QuarterlyRevenueGrowthYOY,
			EarningsGrowth:  payload.Highlights.QuarterlyEarningsGrowthYOY,
		}
		if payload.Highlights.RevenueTTM > 0 {
			f.GrossMargin = payload.Highlights.GrossProfitTTM / payload.Highlights.RevenueTTM
		}
		c.applyFinancials(f, payload)
		data.Fundamentals = f

	case models.GroupOwnership:
		o := &models.Ownership{
			// EODHD reports ownership percentages as 0-100.
			InsiderPct:       payload.SharesStats.PercentInsiders / 100,
			InstitutionalPct: payload.SharesStats.PercentInstitutions / 100,
			SharesShort:      payload.SharesStats.SharesShort,
		}
		o.NetInsiderBuys3M = netInsiderBuys(payload, 90*24*time.Hour)
		data.Ownership = o

	case models.GroupShareData:
		s := &models.ShareData{
			SharesOutstanding: payload.SharesStats.SharesOutstanding,
		}
		s.SharesHistory = sharesHistory(payload)
		s.BuybackTTM = buybackTTM(payload)
		data.ShareData = s

	case models.GroupValuation:
		data.Valuation = &models.Valuation{
			TrailingPE:   payload.Valuation.TrailingPE,
			ForwardPE:    payload.Valuation.ForwardPE,
			PriceToBook:  payload.Valuation.PriceBookMRQ,
			PriceToSales: payload.Valuation.PriceSalesTTM,
			EVToEBITDA:   payload.Valuation.EnterpriseValueEbitda,
			PEGRatio:     payload.Highlights.PEGRatio,
		}

	default:
		return nil, interfaces.ErrDataUnavailable
	}

	return data, nil
}

// applyFinancials derives ROIC, debt/equity and cash-flow metrics from the
// latest annual statements. ROIC = NOPAT / invested capital with a 21%
// assumed tax rate when statements are present.
func (c *Client) applyFinancials(f *models.Fundamentals, payload *fundamentalsResponse) {
	bsDate, bs := latestYearly(payload.Financials.BalanceSheet.Yearly)
	isDate, is := latestYearly(payload.Financials.IncomeStatement.Yearly)
	cfDate, cf := latestYearly(payload.Financials.CashFlow.Yearly)

	if bsDate != "" && isDate != "" {
		operatingIncome := parseAmount(is.OperatingIncome)
		totalAssets := parseAmount(bs.TotalAssets)
		currentLiabilities := parseAmount(bs.TotalCurrentLiabilities)
		investedCapital := totalAssets - currentLiabilities
		if operatingIncome != 0 && investedCapital > 0 {
			const taxRate = 0.21
			f.ROIC = operatingIncome * (1 - taxRate) / investedCapital
		}

		equity := parseAmount(bs.TotalStockholderEquity)
		debt := parseAmount(bs.ShortLongTermDebtTotal)
		if equity > 0 {
			f.DebtToEquity = debt / equity
		}
	}

	if cfDate != "" {
		f.FreeCashFlow = parseAmount(cf.FreeCashFlow)
		f.OperatingCF = parseAmount(cf.TotalCashFromOps)
	}
}

// get performs a GET request to the API and maps HTTP failures onto the
// provider error taxonomy.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &interfaces.ProviderError{Provider: c.Name(), Endpoint: path, Temporary: true, Err: err}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &interfaces.ProviderError{Provider: c.Name(), Endpoint: path, Err: err}
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("EODHD API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport errors are transient by policy.
		return &interfaces.ProviderError{Provider: c.Name(), Endpoint: path, Temporary: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return interfaces.ErrDataUnavailable
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		body, _ := io.ReadAll(resp.Body)
		return &interfaces.ProviderError{
			Provider:  c.Name(),
			Endpoint:  path,
			Temporary: true,
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	default:
		body, _ := io.ReadAll(resp.Body)
		return &interfaces.ProviderError{
			Provider: c.Name(),
			Endpoint: path,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &interfaces.ProviderError{Provider: c.Name(), Endpoint: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// latestYearly returns the most recent entry of a yearly statement map,
// keyed by date string.
func latestYearly[T any](yearly map[string]T) (string, T) {
	var zero T
	if len(yearly) == 0 {
		return "", zero
	}
	dates := make([]string, 0, len(yearly))
	for d := range yearly {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	latest := dates[len(dates)-1]
	return latest, yearly[latest]
}

// parseAmount parses EODHD's string-encoded statement amounts.
func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// netInsiderBuys sums insider transaction amounts within the window:
// purchases positive, sales negative.
func netInsiderBuys(payload *fundamentalsResponse, window time.Duration) float64 {
	cutoff := time.Now().Add(-window)
	var net float64
	for _, txn := range payload.InsiderTransactions {
		t, err := time.Parse("2006-01-02", txn.Date)
		if err != nil || t.Before(cutoff) {
			continue
		}
		switch txn.TransactionCode {
		case "P": // open-market purchase
			net += txn.Amount
		case "S": // sale
			net -= txn.Amount
		}
	}
	return net
}

// sharesHistory extracts the quarterly share-count series, newest first.
func sharesHistory(payload *fundamentalsResponse) []models.SharePoint {
	points := make([]models.SharePoint, 0, len(payload.OutstandingShares.Quarterly))
	for _, q := range payload.OutstandingShares.Quarterly {
		t, err := time.Parse("2006-01-02", q.DateFormatted)
		if err != nil {
			continue
		}
		points = append(points, models.SharePoint{Date: t, Shares: q.Shares})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.After(points[j].Date) })
	const maxQuarters = 20
	if len(points) > maxQuarters {
		points = points[:maxQuarters]
	}
	return points
}

// buybackTTM reads the latest annual repurchase spend. EODHD reports
// salePurchaseOfStock negative for net repurchases; flip the sign so
// buybacks come out positive.
func buybackTTM(payload *fundamentalsResponse) float64 {
	_, cf := latestYearly(payload.Financials.CashFlow.Yearly)
	v := parseAmount(cf.SalePurchaseOfStock)
	if v < 0 {
		return -v
	}
	return 0
}

var _ interfaces.Fetcher = (*Client)(nil)
