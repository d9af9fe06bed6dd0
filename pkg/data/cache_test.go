package data

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// stubFetcher counts fetches and returns a canned series or error per key.
type stubFetcher struct {
	mu      sync.Mutex
	calls   map[SeriesKey]int
	bars    []types.Bar
	err     error
	latency time.Duration
}

func newStubFetcher(bars []types.Bar) *stubFetcher {
	return &stubFetcher{calls: make(map[SeriesKey]int), bars: bars}
}

func (f *stubFetcher) Name() string { return "stub" }

func (f *stubFetcher) Fetch(_ context.Context, key SeriesKey) ([]types.Bar, error) {
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()
	if f.latency > 0 {
		time.Sleep(f.latency)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func (f *stubFetcher) callCount(key SeriesKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func makeBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 10.0
	for i := range bars {
		bars[i] = types.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.02,
			Low:    price * 0.99,
			Close:  price * 1.01,
			Volume: 10000,
		}
		price *= 1.001
	}
	return bars
}

func testKey(symbol string) SeriesKey {
	return SeriesKey{Symbol: symbol, Start: "2024-01-01", End: "2024-12-31", Adjust: types.AdjustForward}
}

func TestCache_Resolve_MemoizesSecondCall(t *testing.T) {
	fetcher := newStubFetcher(makeBars(10))
	cache := NewCache(fetcher, nil, nil)
	key := testKey("600000")

	first, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	second, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.callCount(key), "second resolve must not refetch")
	assert.Equal(t, int64(1), cache.Stats().MemoryHits)
}

func TestCache_Resolve_CoalescesConcurrentCallers(t *testing.T) {
	fetcher := newStubFetcher(makeBars(50))
	fetcher.latency = 30 * time.Millisecond
	cache := NewCache(fetcher, nil, nil)
	key := testKey("000001")

	const callers = 16
	results := make([][]types.Bar, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Resolve(context.Background(), key, false)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount(key), "concurrent resolvers must share one fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestCache_Resolve_IndependentKeysDoNotSerialize(t *testing.T) {
	fetcher := newStubFetcher(makeBars(10))
	cache := NewCache(fetcher, nil, nil)

	keys := []SeriesKey{testKey("600000"), testKey("000001"), testKey("000002")}
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key SeriesKey) {
			defer wg.Done()
			_, err := cache.Resolve(context.Background(), key, false)
			assert.NoError(t, err)
		}(key)
	}
	wg.Wait()

	for _, key := range keys {
		assert.Equal(t, 1, fetcher.callCount(key))
	}
}

func TestCache_Resolve_FailurePropagatesToAllCallersAndCachesNothing(t *testing.T) {
	fetcher := newStubFetcher(nil)
	fetcher.err = errors.New("connection reset")
	fetcher.latency = 20 * time.Millisecond
	cache := NewCache(fetcher, nil, nil)
	key := testKey("600519")

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cache.Resolve(context.Background(), key, false)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, fetcher.callCount(key))
	for i := 0; i < callers; i++ {
		assert.Error(t, errs[i])
	}

	// The failed fetch must not leave an entry behind: the next resolve
	// retries fresh and succeeds.
	fetcher.err = nil
	fetcher.bars = makeBars(5)
	bars, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	assert.Len(t, bars, 5)
	assert.Equal(t, 2, fetcher.callCount(key))
}

func TestCache_Resolve_ForceRefreshBypassesMemory(t *testing.T) {
	fetcher := newStubFetcher(makeBars(10))
	cache := NewCache(fetcher, nil, nil)
	key := testKey("600000")

	_, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	_, err = cache.Resolve(context.Background(), key, true)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.callCount(key))
}

func TestCache_Resolve_RejectsMalformedPayload(t *testing.T) {
	bars := makeBars(10)
	bars[4].Date = bars[3].Date // duplicate date
	fetcher := newStubFetcher(bars)
	cache := NewCache(fetcher, nil, nil)

	_, err := cache.Resolve(context.Background(), testKey("600000"), false)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestCache_Resolve_DurableTierSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir)
	require.NoError(t, err)

	fetcher := newStubFetcher(makeBars(20))
	cache := NewCache(fetcher, store, nil)
	key := testKey("000001")

	first, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.callCount(key))

	// Fresh cache over the same store simulates a process restart: the
	// durable tier must answer before any fetch is attempted.
	restarted := NewCache(fetcher, store, nil)
	second, err := restarted.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.callCount(key), "restart must hit the durable tier, not the network")
	assert.Equal(t, int64(1), restarted.Stats().DurableHits)
}

func TestCache_Resolve_InvalidKeyRejected(t *testing.T) {
	cache := NewCache(newStubFetcher(nil), nil, nil)
	_, err := cache.Resolve(context.Background(), SeriesKey{Symbol: ""}, false)
	assert.Error(t, err)
}

func TestCache_Invalidate_TriggersRefetch(t *testing.T) {
	fetcher := newStubFetcher(makeBars(10))
	cache := NewCache(fetcher, nil, nil)
	key := testKey("600000")

	_, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	cache.Invalidate(key)
	_, err = cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.callCount(key))
}

func TestCache_DegradesToMemoryOnStorageFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "series")
	store, err := NewCSVStore(root)
	require.NoError(t, err)

	// Replace the store root with a regular file so every durable read
	// and write fails, regardless of the uid the tests run under.
	require.NoError(t, os.RemoveAll(root))
	require.NoError(t, os.WriteFile(root, []byte("in the way"), 0o644))

	var logs bytes.Buffer
	fetcher := newStubFetcher(makeBars(10))
	cache := NewCache(fetcher, store, log.New(&logs, "", 0))
	key := testKey("600000")

	// The resolve still succeeds from upstream.
	bars, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	assert.Len(t, bars, 10)
	assert.True(t, cache.Stats().MemoryOnly)
	assert.Contains(t, logs.String(), "durable tier disabled")

	// The memory tier keeps serving without touching the broken store.
	_, err = cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.callCount(key))

	// Later resolves skip the durable tier and do not warn again.
	_, err = cache.Resolve(context.Background(), testKey("000001"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "durable tier disabled"))
}

// gatedFetcher blocks every fetch until the gate closes, tagging each result
// with its call number so tests can tell which fetch produced it.
type gatedFetcher struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
}

func (f *gatedFetcher) Name() string { return "gated" }

func (f *gatedFetcher) Fetch(_ context.Context, _ SeriesKey) ([]types.Bar, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	<-f.gate
	return makeBars(10 + n), nil
}

func (f *gatedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCache_Resolve_ForceRefreshDoesNotJoinNonForceFetch(t *testing.T) {
	fetcher := &gatedFetcher{gate: make(chan struct{})}
	cache := NewCache(fetcher, nil, nil)
	key := testKey("600000")

	var wg sync.WaitGroup
	var plainBars, forcedBars []types.Bar
	var plainErr, forcedErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		plainBars, plainErr = cache.Resolve(context.Background(), key, false)
	}()
	require.Eventually(t, func() bool { return fetcher.callCount() == 1 },
		time.Second, time.Millisecond)

	// A force caller arriving mid-fetch must wait the plain fetch out and
	// then go upstream itself rather than sharing its result.
	wg.Add(1)
	go func() {
		defer wg.Done()
		forcedBars, forcedErr = cache.Resolve(context.Background(), key, true)
	}()
	time.Sleep(20 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	require.NoError(t, plainErr)
	require.NoError(t, forcedErr)
	assert.Equal(t, 2, fetcher.callCount())
	assert.Len(t, plainBars, 11)
	assert.Len(t, forcedBars, 12, "force caller must see the second fetch, not the first")

	// The refreshed series is what the memory tier now serves.
	cached, err := cache.Resolve(context.Background(), key, false)
	require.NoError(t, err)
	assert.Len(t, cached, 12)
}

func TestCache_Resolve_ForceCallersShareOneForceFetch(t *testing.T) {
	fetcher := &gatedFetcher{gate: make(chan struct{})}
	cache := NewCache(fetcher, nil, nil)
	key := testKey("000002")

	var wg sync.WaitGroup
	results := make([][]types.Bar, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Resolve(context.Background(), key, true)
		}(i)
	}
	require.Eventually(t, func() bool { return cache.Stats().CoalescedHit == 1 },
		time.Second, time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	// Both already bypass the tiers, so one upstream fetch serves both.
	assert.Equal(t, 1, fetcher.callCount())
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestCache_EventHookObservesActivity(t *testing.T) {
	fetcher := newStubFetcher(makeBars(10))
	cache := NewCache(fetcher, nil, nil)
	var fetches int64
	cache.SetEventHook(func(event string) {
		if event == "fetch" {
			atomic.AddInt64(&fetches, 1)
		}
	})

	_, err := cache.Resolve(context.Background(), testKey("600000"), false)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&fetches) == 1
	}, time.Second, 10*time.Millisecond)
}
