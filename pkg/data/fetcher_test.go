package data

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// flakyFetcher fails a fixed number of times before succeeding.
type flakyFetcher struct {
	failures int
	calls    int
	bars     []types.Bar
}

func (f *flakyFetcher) Name() string { return "flaky" }

func (f *flakyFetcher) Fetch(_ context.Context, _ SeriesKey) ([]types.Bar, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection timed out")
	}
	return f.bars, nil
}

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetryingFetcher_RecoversFromTransientFailure(t *testing.T) {
	inner := &flakyFetcher{failures: 2, bars: makeBars(3)}
	fetcher := NewRetryingFetcher(inner, fastRetryConfig(3))

	bars, err := fetcher.Fetch(context.Background(), testKey("600000"))
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingFetcher_ExhaustsBudget(t *testing.T) {
	inner := &flakyFetcher{failures: 10}
	fetcher := NewRetryingFetcher(inner, fastRetryConfig(2))

	_, err := fetcher.Fetch(context.Background(), testKey("600000"))
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls, "initial attempt plus two retries")
}

func TestRetryingFetcher_DoesNotRetryMalformedPayload(t *testing.T) {
	inner := &stubFetcher{calls: make(map[SeriesKey]int), err: fmt.Errorf("%w: junk row", ErrMalformedPayload)}
	fetcher := NewRetryingFetcher(inner, fastRetryConfig(5))
	key := testKey("600000")

	_, err := fetcher.Fetch(context.Background(), key)
	require.Error(t, err)
	assert.Equal(t, 1, inner.callCount(key), "validation failures must not be retried")
}

func TestRetryingFetcher_HonorsContextCancellation(t *testing.T) {
	inner := &flakyFetcher{failures: 100}
	fetcher := NewRetryingFetcher(inner, RetryConfig{
		MaxRetries:    100,
		InitialDelay:  50 * time.Millisecond,
		BackoffFactor: 1.0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := fetcher.Fetch(ctx, testKey("600000"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
