package eodhd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

const fundamentalsFixture = `{
	"General": {
		"Code": "AAPL",
		"Name": "Apple Inc",
		"Sector": "Technology",
		"Industry": "Consumer Electronics",
		"UpdatedAt": "2026-08-20"
	},
	"Highlights": {
		"MarketCapitalization": 3000000000000,
		"ReturnOnEquityTTM": 1.5,
		"ProfitMargin": 0.25,
		"OperatingMarginTTM": 0.30,
		"GrossProfitTTM": 170000000000,
		"RevenueTTM": 400000000000,
		"QuarterlyRevenueGrowthYOY": 0.08,
		"QuarterlyEarningsGrowthYOY": 0.11
	},
	"Financials": {
		"Balance_Sheet": {
			"yearly": {
				"2025-09-30": {
					"date": "2025-09-30",
					"totalAssets": "350000000000",
					"totalCurrentLiabilities": "150000000000",
					"totalStockholderEquity": "60000000000",
					"shortLongTermDebtTotal": "110000000000"
				},
				"2024-09-30": {
					"date": "2024-09-30",
					"totalAssets": "330000000000",
					"totalCurrentLiabilities": "140000000000",
					"totalStockholderEquity": "62000000000",
					"shortLongTermDebtTotal": "100000000000"
				}
			}
		},
		"Income_Statement": {
			"yearly": {
				"2025-09-30": {
					"date": "2025-09-30",
					"operatingIncome": "120000000000"
				}
			}
		},
		"Cash_Flow": {
			"yearly": {
				"2025-09-30": {
					"date": "2025-09-30",
					"freeCashFlow": "100000000000",
					"totalCashFromOperatingActivities": "110000000000",
					"salePurchaseOfStock": "-85000000000"
				}
			}
		}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-token", WithBaseURL(server.URL), WithRateLimit(1000))
}

func TestFetchGroup_Fundamentals(t *testing.T) {
	var gotPath, gotFilter, gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("filter")
		gotToken = r.URL.Query().Get("api_token")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, fundamentalsFixture)
	})

	data, err := client.FetchGroup(context.Background(), "NASDAQ:AAPL", models.GroupFundamentals)
	require.NoError(t, err)

	assert.Equal(t, "/fundamentals/AAPL.US", gotPath)
	assert.Equal(t, "General,Highlights,Financials", gotFilter)
	assert.Equal(t, "test-token", gotToken)

	assert.Equal(t, "Apple Inc", data.Name)
	assert.Equal(t, "Technology", data.Sector)
	assert.Equal(t, "Consumer Electronics", data.Industry)
	assert.InDelta(t, 3e12, data.MarketCap, 1)

	require.NotNil(t, data.Fundamentals)
	f := data.Fundamentals
	assert.InDelta(t, 1.5, f.ROE, 1e-9)
	assert.InDelta(t, 0.25, f.NetMargin, 1e-9)
	assert.InDelta(t, 170.0/400.0, f.GrossMargin, 1e-9)
	assert.InDelta(t, 0.08, f.RevenueGrowth, 1e-9)

	// ROIC from the latest annual statements:
	// 120e9 * (1 - 0.21) / (350e9 - 150e9) = 0.474
	assert.InDelta(t, 0.474, f.ROIC, 1e-9)
	// Debt/equity from the same balance sheet: 110/60.
	assert.InDelta(t, 110.0/60.0, f.DebtToEquity, 1e-9)
	assert.InDelta(t, 100e9, f.FreeCashFlow, 1)
	assert.InDelta(t, 110e9, f.OperatingCF, 1)
}

func TestFetchGroup_ShareDataBuybacks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"General": {"Code": "AAPL", "Name": "Apple Inc"},
			"SharesStats": {"SharesOutstanding": 15000000000},
			"outstandingShares": {
				"quarterly": {
					"0": {"dateFormatted": "2026-06-30", "shares": 15000000000},
					"1": {"dateFormatted": "2026-03-31", "shares": 15100000000}
				}
			},
			"Financials": {
				"Cash_Flow": {
					"yearly": {
						"2025-09-30": {"date": "2025-09-30", "salePurchaseOfStock": "-85000000000"}
					}
				}
			}
		}`)
	})

	data, err := client.FetchGroup(context.Background(), "NASDAQ:AAPL", models.GroupShareData)
	require.NoError(t, err)
	require.NotNil(t, data.ShareData)

	s := data.ShareData
	assert.InDelta(t, 15e9, s.SharesOutstanding, 1)
	assert.InDelta(t, 85e9, s.BuybackTTM, 1, "net repurchases reported negative must flip positive")

	require.Len(t, s.SharesHistory, 2)
	assert.True(t, s.SharesHistory[0].Date.After(s.SharesHistory[1].Date), "history newest first")
}

func TestFetchGroup_TechnicalsFromPriceHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod/AAPL.US", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		// 220 rising daily bars.
		fmt.Fprint(w, "[")
		start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 220; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"date": %q, "close": %d}`, start.AddDate(0, 0, i).Format("2006-01-02"), 100+i)
		}
		fmt.Fprint(w, "]")
	})

	data, err := client.FetchGroup(context.Background(), "NASDAQ:AAPL", models.GroupTechnicals)
	require.NoError(t, err)
	require.NotNil(t, data.Technicals)

	tech := data.Technicals
	assert.InDelta(t, 319, tech.Price, 1e-9)
	assert.Greater(t, tech.SMA50, tech.SMA200, "rising series")
	assert.Equal(t, models.TrendStrongUp, tech.Trend)
	assert.Greater(t, tech.RSI14, 70.0, "persistent gains push RSI high")
}

func TestFetchGroup_ErrorMapping(t *testing.T) {
	t.Run("404 is data-unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := client.FetchGroup(context.Background(), "NYSE:NOPE", models.GroupFundamentals)
		assert.ErrorIs(t, err, interfaces.ErrDataUnavailable)
	})

	t.Run("500 is a temporary provider error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.FetchGroup(context.Background(), "NYSE:AAPL", models.GroupFundamentals)
		assert.True(t, interfaces.IsTemporary(err), "got %v", err)
	})

	t.Run("429 is a temporary provider error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		_, err := client.FetchGroup(context.Background(), "NYSE:AAPL", models.GroupFundamentals)
		assert.True(t, interfaces.IsTemporary(err), "got %v", err)
	})

	t.Run("401 is a permanent provider error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := client.FetchGroup(context.Background(), "NYSE:AAPL", models.GroupFundamentals)
		var pe *interfaces.ProviderError
		require.True(t, errors.As(err, &pe))
		assert.False(t, pe.Temporary)
	})

	t.Run("empty document is data-unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		})
		_, err := client.FetchGroup(context.Background(), "NYSE:GHOST", models.GroupFundamentals)
		assert.ErrorIs(t, err, interfaces.ErrDataUnavailable)
	})
}

func TestSupports(t *testing.T) {
	client := NewClient("test-token")
	for _, group := range models.AllGroups() {
		assert.True(t, client.Supports(group), "group %s", group)
	}
	assert.False(t, client.Supports(models.GroupName("bogus")))
}
