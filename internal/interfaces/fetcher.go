// Package interfaces defines the contracts between the funnel's layers:
// the provider fetcher boundary, the storage layer and the cache service.
package interfaces

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/funnel/internal/models"
)

// ErrDataUnavailable signals that the provider has no data for an
// identifier/group. It is local to that identifier and never aborts a batch.
var ErrDataUnavailable = errors.New("no data available for identifier")

// ErrInvalidCriteria signals malformed screening criteria. It fails the
// whole call fast and is never silently ignored.
var ErrInvalidCriteria = errors.New("invalid screen criteria")

// ProviderError wraps a transport or provider-side failure. Temporary
// errors (timeouts, 5xx, rate limits) are retried a bounded number of times
// at the fetcher adapter before degrading to stale-cache-or-drop.
type ProviderError struct {
	Provider  string
	Endpoint  string
	Temporary bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTemporary reports whether err is a transient provider failure worth
// retrying.
func IsTemporary(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Temporary
}

// Fetcher retrieves raw per-security financial facts from an external
// data provider, one metric group at a time. Calls are idempotent, may fail
// independently per identifier, and must honor ctx cancellation. Network
// timeouts are the adapter's responsibility.
type Fetcher interface {
	// FetchGroup retrieves the named metric group for a ticker. Returns
	// ErrDataUnavailable when the provider has no data for the ticker, or
	// a *ProviderError for transport failures.
	FetchGroup(ctx context.Context, ticker string, group models.GroupName) (*models.GroupData, error)

	// Supports reports whether this provider can populate the given group.
	// Unsupported groups fail with ErrDataUnavailable without a network
	// call.
	Supports(group models.GroupName) bool

	// Name identifies the provider in logs and diagnostics.
	Name() string
}
