package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/funnel/internal/models"
)

// ErrNotFound signals that a stored row does not exist.
var ErrNotFound = errors.New("not found")

// GroupRow is the durable unit of the cache: one row per (ticker, metric
// group). The payload is the serialized group; FetchedAt drives TTL checks.
// Rows survive process restarts, so a fresh process resumes serving
// unexpired groups without refetching.
type GroupRow struct {
	// Key is "TICKER|group", the badgerhold primary key.
	Key       string           `badgerhold:"key"`
	Ticker    string           `badgerholdIndex:"Ticker"`
	Group     models.GroupName `badgerholdIndex:"Group"`
	Name      string
	Sector    string
	Industry  string
	MarketCap float64
	Payload   []byte
	AsOf      time.Time
	FetchedAt time.Time
}

// RowKey builds the primary key for a (ticker, group) row.
func RowKey(ticker string, group models.GroupName) string {
	return ticker + "|" + string(group)
}

// SecurityStorage is the durable per-group store beneath the cache service.
// Writes serialize per (ticker, group); reads never block on writes to
// unrelated securities.
type SecurityStorage interface {
	// PutGroup upserts one (ticker, group) row. Idempotent: writing the
	// same row twice leaves the store unchanged.
	PutGroup(ctx context.Context, row *GroupRow) error

	// GetGroups returns the stored rows for the requested groups. Missing
	// groups are simply absent from the result, not an error.
	GetGroups(ctx context.Context, ticker string, groups []models.GroupName) (map[models.GroupName]*GroupRow, error)

	// IterateCandidates streams lightweight candidate projections over the
	// whole stored universe, applying the cheap categorical filter during
	// the scan. The callback returning false stops the scan. The sequence
	// is restartable: each call starts a fresh scan.
	IterateCandidates(ctx context.Context, filter models.UniverseFilter, fn func(models.Candidate) bool) error

	// Tickers returns all distinct tickers present in the store.
	Tickers(ctx context.Context) ([]string, error)

	// DeleteTicker removes every group row for a ticker. Administrative
	// use only; normal operation never deletes entries.
	DeleteTicker(ctx context.Context, ticker string) error

	// Count returns the number of stored group rows.
	Count(ctx context.Context) (int, error)
}

// StorageManager owns the database connection and hands out the typed
// storage interfaces. Opened once per process, closed on shutdown.
type StorageManager interface {
	SecurityStorage() SecurityStorage
	Close() error
}
