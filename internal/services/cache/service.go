// Package cache provides the read-through market-data cache. It serves
// metric groups from durable storage while fresh, coalesces concurrent
// misses into single provider fetches, and degrades to flagged stale data
// when the provider is down.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/ternarybob/funnel/internal/common"
	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

// universeWorkers bounds concurrent per-ticker loads during batch gets.
const universeWorkers = 8

// Service is the read-through cache over SecurityStorage and a Fetcher.
type Service struct {
	storage interfaces.SecurityStorage
	fetcher interfaces.Fetcher
	ttls    common.CacheConfig
	// fillTimeout bounds each detached provider fill independently of the
	// caller's context.
	fillTimeout time.Duration
	logger      arbor.ILogger

	// fills coalesces concurrent misses per (ticker, group) key.
	fills singleflight.Group

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewService creates a new cache service.
func NewService(storage interfaces.SecurityStorage, fetcher interfaces.Fetcher, ttls common.CacheConfig, fillTimeout time.Duration, logger arbor.ILogger) *Service {
	if fillTimeout <= 0 {
		fillTimeout = 30 * time.Second
	}
	return &Service{
		storage:     storage,
		fetcher:     fetcher,
		ttls:        ttls,
		fillTimeout: fillTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// fillResult is what one coalesced fill hands to every waiting caller.
type fillResult struct {
	row *interfaces.GroupRow
	// stale marks a row served after a failed refresh attempt.
	stale bool
}

// Get returns the requested metric groups for a ticker, fetching any that
// are missing or expired. Groups whose refresh fails fall back to their
// stored value flagged stale; ErrDataUnavailable is returned only when no
// requested group could be served at all.
func (s *Service) Get(ctx context.Context, ticker string, groups []models.GroupName) (*models.SecurityRecord, error) {
	ticker = common.ParseTicker(ticker).String()
	if ticker == "" {
		return nil, interfaces.ErrDataUnavailable
	}
	if len(groups) == 0 {
		groups = models.AllGroups()
	}

	stored, err := s.storage.GetGroups(ctx, ticker, groups)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached groups: %w", err)
	}

	record := &models.SecurityRecord{Ticker: ticker}
	var needed []models.GroupName
	for _, group := range groups {
		row, ok := stored[group]
		if ok && s.isFresh(row) {
			if err := s.applyRow(record, row, false); err != nil {
				return nil, err
			}
			continue
		}
		needed = append(needed, group)
	}

	if len(needed) > 0 {
		var wg sync.WaitGroup
		var mu sync.Mutex
		results := make(map[models.GroupName]fillResult, len(needed))

		for _, group := range needed {
			wg.Add(1)
			go func(group models.GroupName) {
				defer wg.Done()
				res, err := s.fill(ctx, ticker, group, stored[group])
				if err != nil {
					s.logger.Debug().
						Str("ticker", ticker).
						Str("group", string(group)).
						Err(err).
						Msg("Group unavailable")
					return
				}
				mu.Lock()
				results[group] = res
				mu.Unlock()
			}(group)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, group := range needed {
			res, ok := results[group]
			if !ok {
				continue
			}
			if err := s.applyRow(record, res.row, res.stale); err != nil {
				return nil, err
			}
		}
	}

	if recordEmpty(record, groups) {
		return nil, interfaces.ErrDataUnavailable
	}

	return record, nil
}

// GetUniverse batch-loads full records for a set of tickers with bounded
// concurrency. Tickers that cannot be served are reported in the failure
// map, never as a batch error.
func (s *Service) GetUniverse(ctx context.Context, tickers []string, groups []models.GroupName) (map[string]*models.SecurityRecord, map[string]error) {
	records := make(map[string]*models.SecurityRecord, len(tickers))
	failures := make(map[string]error)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, universeWorkers)

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			record, err := s.Get(ctx, ticker, groups)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[ticker] = err
				return
			}
			records[record.Ticker] = record
		}(ticker)
	}
	wg.Wait()

	return records, failures
}

// Refresh force-fetches the given groups for a ticker, bypassing TTL
// checks. Used by the admin endpoint and the background refresh job.
func (s *Service) Refresh(ctx context.Context, ticker string, groups []models.GroupName) error {
	ticker = common.ParseTicker(ticker).String()
	if ticker == "" {
		return interfaces.ErrDataUnavailable
	}
	if len(groups) == 0 {
		groups = models.AllGroups()
	}

	var lastErr error
	refreshed := 0
	for _, group := range groups {
		if !s.fetcher.Supports(group) {
			continue
		}
		if _, err := s.fetchAndStore(ctx, ticker, group); err != nil {
			lastErr = err
			continue
		}
		refreshed++
	}

	if refreshed == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// Put writes one provider answer directly into the cache. Idempotent.
func (s *Service) Put(ctx context.Context, data *models.GroupData) error {
	row, err := s.rowFromData(data)
	if err != nil {
		return err
	}
	return s.storage.PutGroup(ctx, row)
}

// Tickers lists all tickers present in the cache.
func (s *Service) Tickers(ctx context.Context) ([]string, error) {
	return s.storage.Tickers(ctx)
}

// Count returns the number of cached group rows.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.Count(ctx)
}

// IterateCandidates exposes the storage scan to the screening services.
func (s *Service) IterateCandidates(ctx context.Context, filter models.UniverseFilter, fn func(models.Candidate) bool) error {
	return s.storage.IterateCandidates(ctx, filter, fn)
}

// isFresh applies the per-group TTL to a stored row.
func (s *Service) isFresh(row *interfaces.GroupRow) bool {
	ttl := s.ttls.TTL(string(row.Group))
	if ttl <= 0 {
		return false
	}
	return s.now().Sub(row.FetchedAt) < ttl
}

// fill fetches one (ticker, group), coalescing concurrent requests for the
// same key into a single provider call. The fetch runs detached from the
// caller's context so one caller's cancellation cannot abort a fill other
// callers are waiting on; the caller stops waiting when its context ends.
func (s *Service) fill(ctx context.Context, ticker string, group models.GroupName, prior *interfaces.GroupRow) (fillResult, error) {
	key := interfaces.RowKey(ticker, group)

	ch := s.fills.DoChan(key, func() (interface{}, error) {
		fillCtx, cancel := context.WithTimeout(context.Background(), s.fillTimeout)
		defer cancel()

		row, err := s.fetchAndStore(fillCtx, ticker, group)
		if err != nil {
			return nil, err
		}
		return row, nil
	})

	select {
	case <-ctx.Done():
		return fillResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// Availability over freshness: a failed refresh falls back to
			// whatever was stored, flagged stale.
			if prior != nil {
				s.logger.Warn().
					Str("ticker", ticker).
					Str("group", string(group)).
					Err(res.Err).
					Msg("Refresh failed, serving stale data")
				return fillResult{row: prior, stale: true}, nil
			}
			return fillResult{}, res.Err
		}
		return fillResult{row: res.Val.(*interfaces.GroupRow)}, nil
	}
}

// fetchAndStore performs one provider fetch and persists the result.
func (s *Service) fetchAndStore(ctx context.Context, ticker string, group models.GroupName) (*interfaces.GroupRow, error) {
	if !s.fetcher.Supports(group) {
		return nil, interfaces.ErrDataUnavailable
	}

	data, err := s.fetcher.FetchGroup(ctx, ticker, group)
	if err != nil {
		return nil, err
	}

	row, err := s.rowFromData(data)
	if err != nil {
		return nil, err
	}

	if err := s.storage.PutGroup(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store group: %w", err)
	}

	return row, nil
}

// rowFromData serializes a provider answer into its storage row.
func (s *Service) rowFromData(data *models.GroupData) (*interfaces.GroupRow, error) {
	var payload interface{}
	switch data.Group {
	case models.GroupFundamentals:
		payload = data.Fundamentals
	case models.GroupOwnership:
		payload = data.Ownership
	case models.GroupShareData:
		payload = data.ShareData
	case models.GroupValuation:
		payload = data.Valuation
	case models.GroupTechnicals:
		payload = data.Technicals
	default:
		return nil, interfaces.ErrDataUnavailable
	}
	if payload == nil || isNilPointer(payload) {
		return nil, interfaces.ErrDataUnavailable
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode group payload: %w", err)
	}

	// An explicit FetchedAt is preserved so replaying the same data leaves
	// the stored row, and the TTL clock, untouched.
	fetchedAt := data.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = s.now()
	}

	ticker := common.ParseTicker(data.Ticker).String()
	return &interfaces.GroupRow{
		Key:       interfaces.RowKey(ticker, data.Group),
		Ticker:    ticker,
		Group:     data.Group,
		Name:      data.Name,
		Sector:    data.Sector,
		Industry:  data.Industry,
		MarketCap: data.MarketCap,
		Payload:   encoded,
		AsOf:      data.AsOf,
		FetchedAt: fetchedAt,
	}, nil
}

// applyRow decodes a stored row onto the assembled record.
func (s *Service) applyRow(record *models.SecurityRecord, row *interfaces.GroupRow, stale bool) error {
	meta := models.GroupMeta{
		AsOf:      row.AsOf,
		FetchedAt: row.FetchedAt,
		Stale:     stale,
	}

	// Identity fields ride on every row; first non-empty value wins.
	if record.Name == "" {
		record.Name = row.Name
	}
	if record.Sector == "" {
		record.Sector = row.Sector
	}
	if record.Industry == "" {
		record.Industry = row.Industry
	}
	if record.MarketCap == 0 {
		record.MarketCap = row.MarketCap
	}

	switch row.Group {
	case models.GroupFundamentals:
		var v models.Fundamentals
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode fundamentals: %w", err)
		}
		v.GroupMeta = meta
		record.Fundamentals = &v
	case models.GroupOwnership:
		var v models.Ownership
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode ownership: %w", err)
		}
		v.GroupMeta = meta
		record.Ownership = &v
	case models.GroupShareData:
		var v models.ShareData
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode share data: %w", err)
		}
		v.GroupMeta = meta
		record.ShareData = &v
	case models.GroupValuation:
		var v models.Valuation
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode valuation: %w", err)
		}
		v.GroupMeta = meta
		record.Valuation = &v
	case models.GroupTechnicals:
		var v models.Technicals
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return fmt.Errorf("failed to decode technicals: %w", err)
		}
		v.GroupMeta = meta
		record.Technicals = &v
	}

	return nil
}

// recordEmpty reports whether none of the requested groups made it onto the
// record.
func recordEmpty(record *models.SecurityRecord, groups []models.GroupName) bool {
	for _, group := range groups {
		if record.Group(group) != nil {
			return false
		}
	}
	return true
}

// isNilPointer catches typed-nil group pointers inside the interface value.
func isNilPointer(v interface{}) bool {
	switch p := v.(type) {
	case *models.Fundamentals:
		return p == nil
	case *models.Ownership:
		return p == nil
	case *models.ShareData:
		return p == nil
	case *models.Valuation:
		return p == nil
	case *models.Technicals:
		return p == nil
	}
	return false
}
