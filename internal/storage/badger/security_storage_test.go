package badger

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

func newTestStorage(t *testing.T) interfaces.SecurityStorage {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewSecurityStorage(db, arbor.NewLogger())
}

func mustPayload(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func seedTicker(t *testing.T, storage interfaces.SecurityStorage, ticker, sector string, marketCap float64, f models.Fundamentals, o *models.Ownership) {
	t.Helper()
	ctx := context.Background()

	err := storage.PutGroup(ctx, &interfaces.GroupRow{
		Ticker:    ticker,
		Group:     models.GroupFundamentals,
		Sector:    sector,
		MarketCap: marketCap,
		Payload:   mustPayload(t, f),
		FetchedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to put fundamentals for %s: %v", ticker, err)
	}

	if o != nil {
		err := storage.PutGroup(ctx, &interfaces.GroupRow{
			Ticker:    ticker,
			Group:     models.GroupOwnership,
			Sector:    sector,
			MarketCap: marketCap,
			Payload:   mustPayload(t, o),
			FetchedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Failed to put ownership for %s: %v", ticker, err)
		}
	}
}

func TestPutAndGetGroups(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	fetched := time.Now().Truncate(time.Second)
	row := &interfaces.GroupRow{
		Ticker:    "NYSE:AAPL",
		Group:     models.GroupFundamentals,
		Name:      "Apple Inc",
		Sector:    "Technology",
		MarketCap: 3e12,
		Payload:   mustPayload(t, models.Fundamentals{ROIC: 0.3, ROE: 1.5}),
		FetchedAt: fetched,
	}
	if err := storage.PutGroup(ctx, row); err != nil {
		t.Fatalf("PutGroup() error = %v", err)
	}

	got, err := storage.GetGroups(ctx, "NYSE:AAPL", models.AllGroups())
	if err != nil {
		t.Fatalf("GetGroups() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("GetGroups() returned %d rows, want 1", len(got))
	}

	stored := got[models.GroupFundamentals]
	if stored == nil {
		t.Fatal("fundamentals row missing from result")
	}
	if stored.Name != "Apple Inc" || stored.Sector != "Technology" {
		t.Errorf("identity fields = (%q, %q), want (Apple Inc, Technology)", stored.Name, stored.Sector)
	}
	if !stored.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", stored.FetchedAt, fetched)
	}
}

func TestPutGroupIsIdempotent(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	row := &interfaces.GroupRow{
		Ticker:  "NYSE:AAPL",
		Group:   models.GroupValuation,
		Payload: mustPayload(t, models.Valuation{TrailingPE: 30}),
	}
	if err := storage.PutGroup(ctx, row); err != nil {
		t.Fatalf("first PutGroup() error = %v", err)
	}
	if err := storage.PutGroup(ctx, row); err != nil {
		t.Fatalf("second PutGroup() error = %v", err)
	}

	count, err := storage.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after repeated upsert", count)
	}
}

func TestIterateCandidates(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	seedTicker(t, storage, "NYSE:AAA", "Technology", 100e9,
		models.Fundamentals{ROIC: 0.25, ROE: 0.30, NetMargin: 0.20, DebtToEquity: 0.5},
		&models.Ownership{InsiderPct: 0.12})
	seedTicker(t, storage, "NYSE:BBB", "Technology", 50e9,
		models.Fundamentals{ROIC: 0.10, ROE: 0.15, NetMargin: 0.08, DebtToEquity: 1.2}, nil)
	seedTicker(t, storage, "NYSE:CCC", "Healthcare", 80e9,
		models.Fundamentals{ROIC: 0.18, ROE: 0.22, NetMargin: 0.15, DebtToEquity: 0.3},
		&models.Ownership{InsiderPct: 0.05})

	t.Run("full scan joins ownership", func(t *testing.T) {
		byTicker := map[string]models.Candidate{}
		err := storage.IterateCandidates(ctx, models.UniverseFilter{}, func(c models.Candidate) bool {
			byTicker[c.Ticker] = c
			return true
		})
		if err != nil {
			t.Fatalf("IterateCandidates() error = %v", err)
		}
		if len(byTicker) != 3 {
			t.Fatalf("scanned %d candidates, want 3", len(byTicker))
		}
		if got := byTicker["NYSE:AAA"].InsiderPct; got != 0.12 {
			t.Errorf("AAA InsiderPct = %v, want 0.12", got)
		}
		if got := byTicker["NYSE:BBB"].InsiderPct; got != 0 {
			t.Errorf("BBB InsiderPct = %v, want 0 (no ownership row)", got)
		}
		if got := byTicker["NYSE:AAA"].ROIC; got != 0.25 {
			t.Errorf("AAA ROIC = %v, want 0.25", got)
		}
	})

	t.Run("sector filter", func(t *testing.T) {
		var tickers []string
		err := storage.IterateCandidates(ctx, models.UniverseFilter{Sector: "Healthcare"}, func(c models.Candidate) bool {
			tickers = append(tickers, c.Ticker)
			return true
		})
		if err != nil {
			t.Fatalf("IterateCandidates() error = %v", err)
		}
		if len(tickers) != 1 || tickers[0] != "NYSE:CCC" {
			t.Errorf("tickers = %v, want [NYSE:CCC]", tickers)
		}
	})

	t.Run("market cap band filter", func(t *testing.T) {
		var count int
		filter := models.UniverseFilter{MarketCap: &models.MarketCapBand{Min: 60e9, Max: 90e9}}
		err := storage.IterateCandidates(ctx, filter, func(c models.Candidate) bool {
			count++
			return true
		})
		if err != nil {
			t.Fatalf("IterateCandidates() error = %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1 (only CCC at 80e9)", count)
		}
	})

	t.Run("exclude ticker", func(t *testing.T) {
		var count int
		filter := models.UniverseFilter{ExcludeTicker: "NYSE:AAA"}
		err := storage.IterateCandidates(ctx, filter, func(c models.Candidate) bool {
			if c.Ticker == "NYSE:AAA" {
				t.Error("excluded ticker appeared in scan")
			}
			count++
			return true
		})
		if err != nil {
			t.Fatalf("IterateCandidates() error = %v", err)
		}
		if count != 2 {
			t.Errorf("count = %d, want 2", count)
		}
	})

	t.Run("callback can stop the scan", func(t *testing.T) {
		var count int
		err := storage.IterateCandidates(ctx, models.UniverseFilter{}, func(c models.Candidate) bool {
			count++
			return false
		})
		if err != nil {
			t.Fatalf("IterateCandidates() error = %v", err)
		}
		if count != 1 {
			t.Errorf("count = %d, want 1 after early stop", count)
		}
	})
}

func TestTickersAndDelete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	seedTicker(t, storage, "NYSE:AAA", "Technology", 100e9, models.Fundamentals{}, &models.Ownership{})
	seedTicker(t, storage, "NYSE:BBB", "Technology", 50e9, models.Fundamentals{}, nil)

	tickers, err := storage.Tickers(ctx)
	if err != nil {
		t.Fatalf("Tickers() error = %v", err)
	}
	if len(tickers) != 2 || tickers[0] != "NYSE:AAA" || tickers[1] != "NYSE:BBB" {
		t.Fatalf("Tickers() = %v, want sorted [NYSE:AAA NYSE:BBB]", tickers)
	}

	if err := storage.DeleteTicker(ctx, "NYSE:AAA"); err != nil {
		t.Fatalf("DeleteTicker() error = %v", err)
	}

	tickers, err = storage.Tickers(ctx)
	if err != nil {
		t.Fatalf("Tickers() error = %v", err)
	}
	if len(tickers) != 1 || tickers[0] != "NYSE:BBB" {
		t.Errorf("Tickers() = %v, want [NYSE:BBB]", tickers)
	}
}
