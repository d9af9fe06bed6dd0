package data

import (
	"context"
	"math"
	"math/rand"
	"time"

	backtesterrors "github.com/junwei-lu/ashare-backtest/internal/errors"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// Fetcher retrieves raw daily bars from an upstream market-data provider.
// Implementations must return bars in ascending date order; the cache
// validates the payload before storing it.
type Fetcher interface {
	Fetch(ctx context.Context, key SeriesKey) ([]types.Bar, error)
	Name() string
}

// RetryConfig bounds the fetch retry loop.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig mirrors the upstream client defaults: three retries with
// exponential backoff capped at a minute.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// RetryingFetcher decorates a Fetcher with bounded exponential backoff.
// Validation failures are not retried: a malformed payload will not become
// well formed by asking again.
type RetryingFetcher struct {
	inner  Fetcher
	config RetryConfig
}

// NewRetryingFetcher wraps inner with the given retry policy.
func NewRetryingFetcher(inner Fetcher, config RetryConfig) *RetryingFetcher {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}
	return &RetryingFetcher{inner: inner, config: config}
}

func (f *RetryingFetcher) Name() string {
	return f.inner.Name()
}

// Fetch calls the inner fetcher until it succeeds, the retry budget is
// exhausted, or the context is canceled.
func (f *RetryingFetcher) Fetch(ctx context.Context, key SeriesKey) ([]types.Bar, error) {
	var lastErr error

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bars, err := f.inner.Fetch(ctx, key)
		if err == nil {
			return bars, nil
		}
		lastErr = err

		if attempt == f.config.MaxRetries || isValidationError(err) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay(attempt)):
		}
	}

	return nil, backtesterrors.Wrap(lastErr, backtesterrors.KindFetch, "fetcher", "retries exhausted for "+key.Symbol)
}

func (f *RetryingFetcher) delay(attempt int) time.Duration {
	delay := f.config.InitialDelay
	if attempt > 0 {
		delay = time.Duration(float64(f.config.InitialDelay) * math.Pow(f.config.BackoffFactor, float64(attempt)))
	}
	if f.config.MaxDelay > 0 && delay > f.config.MaxDelay {
		delay = f.config.MaxDelay
	}
	if f.config.JitterEnabled {
		delay += time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
	}
	return delay
}
