// Package eodhd provides the EODHD (End of Day Historical Data) provider
// adapter. It maps the EODHD fundamentals and EOD-price endpoints onto the
// funnel's metric groups.
package eodhd

import (
	"time"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// fundamentalsResponse models the sections of the EODHD fundamentals
// payload this adapter consumes. Sections are selected server-side with the
// filter parameter, so unrequested sections stay zero.
type fundamentalsResponse struct {
	General struct {
		Code        string `json:"Code"`
		Name        string `json:"Name"`
		Sector      string `json:"Sector"`
		Industry    string `json:"Industry"`
		UpdatedAt   string `json:"UpdatedAt"`
		CountryName string `json:"CountryName"`
	} `json:"General"`

	Highlights struct {
		MarketCapitalization       float64 `json:"MarketCapitalization"`
		ReturnOnEquityTTM          float64 `json:"ReturnOnEquityTTM"`
		ReturnOnAssetsTTM          float64 `json:"ReturnOnAssetsTTM"`
		ProfitMargin               float64 `json:"ProfitMargin"`
		OperatingMarginTTM         float64 `json:"OperatingMarginTTM"`
		GrossProfitTTM             float64 `json:"GrossProfitTTM"`
		RevenueTTM                 float64 `json:"RevenueTTM"`
		QuarterlyRevenueGrowthYOY  float64 `json:"QuarterlyRevenueGrowthYOY"`
		QuarterlyEarningsGrowthYOY float64 `json:"QuarterlyEarningsGrowthYOY"`
		PERatio                    float64 `json:"PERatio"`
		PEGRatio                   float64 `json:"PEGRatio"`
	} `json:"Highlights"`

	Valuation struct {
		TrailingPE             float64 `json:"TrailingPE"`
		ForwardPE              float64 `json:"ForwardPE"`
		PriceBookMRQ           float64 `json:"PriceBookMRQ"`
		PriceSalesTTM          float64 `json:"PriceSalesTTM"`
		EnterpriseValueEbitda  float64 `json:"EnterpriseValueEbitda"`
		EnterpriseValueRevenue float64 `json:"EnterpriseValueRevenue"`
	} `json:"Valuation"`

	SharesStats struct {
		SharesOutstanding   float64 `json:"SharesOutstanding"`
		SharesFloat         float64 `json:"SharesFloat"`
		PercentInsiders     float64 `json:"PercentInsiders"`
		PercentInstitutions float64 `json:"PercentInstitutions"`
		SharesShort         float64 `json:"SharesShort"`
	} `json:"SharesStats"`

	InsiderTransactions map[string]struct {
		Date            string  `json:"date"`
		TransactionCode string  `json:"transactionCode"`
		Amount          float64 `json:"transactionAmount"`
	} `json:"InsiderTransactions"`

	OutstandingShares struct {
		Quarterly map[string]struct {
			DateFormatted string  `json:"dateFormatted"`
			Shares        float64 `json:"shares"`
		} `json:"quarterly"`
	} `json:"outstandingShares"`

	Financials struct {
		BalanceSheet struct {
			Yearly map[string]struct {
				Date                    string `json:"date"`
				TotalAssets             string `json:"totalAssets"`
				TotalCurrentLiabilities string `json:"totalCurrentLiabilities"`
				TotalStockholderEquity  string `json:"totalStockholderEquity"`
				ShortLongTermDebtTotal  string `json:"shortLongTermDebtTotal"`
			} `json:"yearly"`
		} `json:"Balance_Sheet"`
		IncomeStatement struct {
			Yearly map[string]struct {
				Date            string `json:"date"`
				OperatingIncome string `json:"operatingIncome"`
				GrossProfit     string `json:"grossProfit"`
				TotalRevenue    string `json:"totalRevenue"`
			} `json:"yearly"`
		} `json:"Income_Statement"`
		CashFlow struct {
			Yearly map[string]struct {
				Date                 string `json:"date"`
				FreeCashFlow         string `json:"freeCashFlow"`
				TotalCashFromOps     string `json:"totalCashFromOperatingActivities"`
				SalePurchaseOfStock  string `json:"salePurchaseOfStock"`
			} `json:"yearly"`
		} `json:"Cash_Flow"`
	} `json:"Financials"`
}

// eodBar is one end-of-day price record.
type eodBar struct {
	DateStr  string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjusted_close"`
	Volume   int64   `json:"volume"`

	Date time.Time `json:"-"`
}
