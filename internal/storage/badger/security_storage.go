package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// SecurityStorage implements the SecurityStorage interface for Badger.
// One row per (ticker, metric group); the candidate projection joins the
// fundamentals and ownership rows of each ticker.
type SecurityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSecurityStorage creates a new SecurityStorage instance
func NewSecurityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SecurityStorage {
	return &SecurityStorage{
		db:     db,
		logger: logger,
	}
}

// PutGroup inserts or updates one (ticker, group) row
func (s *SecurityStorage) PutGroup(ctx context.Context, row *interfaces.GroupRow) error {
	if row.Key == "" {
		row.Key = interfaces.RowKey(row.Ticker, row.Group)
	}

	if err := s.db.Store().Upsert(row.Key, row); err != nil {
		return fmt.Errorf("failed to upsert group row: %w", err)
	}

	return nil
}

// GetGroups retrieves the stored rows for the requested groups. Missing
// groups are absent from the result map.
func (s *SecurityStorage) GetGroups(ctx context.Context, ticker string, groups []models.GroupName) (map[models.GroupName]*interfaces.GroupRow, error) {
	result := make(map[models.GroupName]*interfaces.GroupRow, len(groups))

	for _, group := range groups {
		var row interfaces.GroupRow
		err := s.db.Store().Get(interfaces.RowKey(ticker, group), &row)
		if err == badgerhold.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get group row: %w", err)
		}
		rowCopy := row
		result[group] = &rowCopy
	}

	return result, nil
}

// IterateCandidates scans the stored universe, building the stage-1
// candidate projection from each ticker's fundamentals row joined with its
// ownership row. The categorical filter is applied during the scan.
// errStopScan aborts a ForEach iteration once the caller has seen enough.
var errStopScan = errors.New("stop scan")

func (s *SecurityStorage) IterateCandidates(ctx context.Context, filter models.UniverseFilter, fn func(models.Candidate) bool) error {
	query := badgerhold.Where("Group").Eq(models.GroupFundamentals).Index("Group")

	err := s.db.Store().ForEach(query, func(row *interfaces.GroupRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if filter.ExcludeTicker != "" && row.Ticker == filter.ExcludeTicker {
			return nil
		}
		if filter.Sector != "" && row.Sector != filter.Sector {
			return nil
		}
		if filter.MarketCap != nil && !filter.MarketCap.Contains(row.MarketCap) {
			return nil
		}

		candidate, err := s.buildCandidate(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("ticker", row.Ticker).Msg("Skipping unreadable candidate row")
			return nil
		}

		if !fn(*candidate) {
			return errStopScan
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return fmt.Errorf("failed to scan candidates: %w", err)
	}

	return nil
}

// buildCandidate projects one fundamentals row (plus the ticker's ownership
// row, when present) onto the stage-1 candidate shape.
func (s *SecurityStorage) buildCandidate(row *interfaces.GroupRow) (*models.Candidate, error) {
	var fundamentals models.Fundamentals
	if err := json.Unmarshal(row.Payload, &fundamentals); err != nil {
		return nil, fmt.Errorf("failed to decode fundamentals payload: %w", err)
	}

	candidate := &models.Candidate{
		Ticker:        row.Ticker,
		Sector:        row.Sector,
		Industry:      row.Industry,
		MarketCap:     row.MarketCap,
		ROIC:          fundamentals.ROIC,
		ROE:           fundamentals.ROE,
		NetMargin:     fundamentals.NetMargin,
		RevenueGrowth: fundamentals.RevenueGrowth,
		DebtToEquity:  fundamentals.DebtToEquity,
	}

	var ownershipRow interfaces.GroupRow
	err := s.db.Store().Get(interfaces.RowKey(row.Ticker, models.GroupOwnership), &ownershipRow)
	if err == nil {
		var ownership models.Ownership
		if err := json.Unmarshal(ownershipRow.Payload, &ownership); err == nil {
			candidate.InsiderPct = ownership.InsiderPct
		}
	} else if err != badgerhold.ErrNotFound {
		return nil, fmt.Errorf("failed to get ownership row: %w", err)
	}

	return candidate, nil
}

// Tickers returns all distinct tickers present in the store, sorted.
func (s *SecurityStorage) Tickers(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})

	err := s.db.Store().ForEach(nil, func(row *interfaces.GroupRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[row.Ticker] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}

	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	return tickers, nil
}

// DeleteTicker removes every group row for a ticker
func (s *SecurityStorage) DeleteTicker(ctx context.Context, ticker string) error {
	for _, group := range models.AllGroups() {
		err := s.db.Store().Delete(interfaces.RowKey(ticker, group), &interfaces.GroupRow{})
		if err != nil && err != badgerhold.ErrNotFound {
			return fmt.Errorf("failed to delete group row: %w", err)
		}
	}
	return nil
}

// Count returns the number of stored group rows
func (s *SecurityStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&interfaces.GroupRow{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return int(count), nil
}
