// Package fetcher composes provider adapters: bounded retry on transient
// failures and primary/secondary fallback.
package fetcher

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/funnel/internal/interfaces"
	"github.com/ternarybob/funnel/internal/models"
)

const (
	// DefaultMaxRetries is the retry budget for transient provider failures.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the initial backoff, doubled per attempt.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// RetryFetcher wraps a Fetcher with bounded retry and exponential backoff.
// Only transient failures are retried; ErrDataUnavailable and permanent
// provider errors pass through immediately.
type RetryFetcher struct {
	inner      interfaces.Fetcher
	maxRetries int
	backoff    time.Duration
	logger     arbor.ILogger
}

// NewRetryFetcher wraps inner with retry behavior. Zero values fall back to
// the defaults.
func NewRetryFetcher(inner interfaces.Fetcher, maxRetries int, backoff time.Duration, logger arbor.ILogger) *RetryFetcher {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	return &RetryFetcher{
		inner:      inner,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

// FetchGroup delegates to the wrapped fetcher, retrying transient failures.
func (r *RetryFetcher) FetchGroup(ctx context.Context, ticker string, group models.GroupName) (*models.GroupData, error) {
	var lastErr error
	backoff := r.backoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			if r.logger != nil {
				r.logger.Warn().
					Str("ticker", ticker).
					Str("group", string(group)).
					Int("attempt", attempt).
					Err(lastErr).
					Msg("Retrying provider fetch")
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		data, err := r.inner.FetchGroup(ctx, ticker, group)
		if err == nil {
			return data, nil
		}
		if !interfaces.IsTemporary(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// Supports delegates to the wrapped fetcher.
func (r *RetryFetcher) Supports(group models.GroupName) bool {
	return r.inner.Supports(group)
}

// Name delegates to the wrapped fetcher.
func (r *RetryFetcher) Name() string {
	return r.inner.Name()
}

// FallbackFetcher tries the primary provider first and falls back to the
// secondary when the primary fails or does not support the group.
type FallbackFetcher struct {
	primary   interfaces.Fetcher
	secondary interfaces.Fetcher
	logger    arbor.ILogger
}

// NewFallbackFetcher composes a primary and an optional secondary provider.
func NewFallbackFetcher(primary, secondary interfaces.Fetcher, logger arbor.ILogger) *FallbackFetcher {
	return &FallbackFetcher{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// FetchGroup fetches from the primary, degrading to the secondary on
// failure when the secondary supports the group.
func (f *FallbackFetcher) FetchGroup(ctx context.Context, ticker string, group models.GroupName) (*models.GroupData, error) {
	var primaryErr error
	if f.primary.Supports(group) {
		data, err := f.primary.FetchGroup(ctx, ticker, group)
		if err == nil {
			return data, nil
		}
		primaryErr = err
	} else {
		primaryErr = interfaces.ErrDataUnavailable
	}

	if f.secondary == nil || !f.secondary.Supports(group) {
		return nil, primaryErr
	}

	if f.logger != nil {
		f.logger.Warn().
			Str("ticker", ticker).
			Str("group", string(group)).
			Str("provider", f.secondary.Name()).
			Err(primaryErr).
			Msg("Primary provider failed, trying secondary")
	}

	data, err := f.secondary.FetchGroup(ctx, ticker, group)
	if err != nil {
		// The primary's error is the more useful one to surface.
		return nil, primaryErr
	}
	return data, nil
}

// Supports reports whether either provider can populate the group.
func (f *FallbackFetcher) Supports(group models.GroupName) bool {
	if f.primary.Supports(group) {
		return true
	}
	return f.secondary != nil && f.secondary.Supports(group)
}

// Name identifies the composed provider chain.
func (f *FallbackFetcher) Name() string {
	if f.secondary == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

var (
	_ interfaces.Fetcher = (*RetryFetcher)(nil)
	_ interfaces.Fetcher = (*FallbackFetcher)(nil)
)
