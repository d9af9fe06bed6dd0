package data

import (
	"context"
	"log"
	"sync"

	backtesterrors "github.com/junwei-lu/ashare-backtest/internal/errors"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// CacheStats counts cache activity since construction.
type CacheStats struct {
	MemoryHits   int64
	DurableHits  int64
	Fetches      int64
	FetchErrors  int64
	MemoryOnly   bool // durable tier disabled after a storage failure
	MemorySize   int
	CoalescedHit int64 // callers that joined an in-flight fetch
}

// inflight is one pending fetch that concurrent resolvers of the same key
// attach to. All of them observe the same bars or the same error.
type inflight struct {
	done          chan struct{}
	bypassedTiers bool // populated with forceRefresh, straight from upstream
	bars          []types.Bar
	err           error
}

// Cache memoizes fetched series in two tiers: an in-memory map and a durable
// CSV store. At most one upstream fetch is in flight per SeriesKey; unrelated
// keys never serialize on each other.
type Cache struct {
	fetcher Fetcher
	store   *CSVStore
	logger  *log.Logger

	mu         sync.Mutex
	memory     map[SeriesKey][]types.Bar
	inflight   map[SeriesKey]*inflight
	memoryOnly bool
	stats      CacheStats

	onEvent func(event string) // optional hook for monitoring counters
}

// NewCache builds a cache over fetcher. store may be nil for memory-only
// operation. logger may be nil for silence.
func NewCache(fetcher Fetcher, store *CSVStore, logger *log.Logger) *Cache {
	return &Cache{
		fetcher:  fetcher,
		store:    store,
		logger:   logger,
		memory:   make(map[SeriesKey][]types.Bar),
		inflight: make(map[SeriesKey]*inflight),
	}
}

// SetEventHook registers a callback invoked with one of "memory_hit",
// "durable_hit", "fetch", "fetch_error", "coalesced" per cache event.
func (c *Cache) SetEventHook(hook func(event string)) {
	c.mu.Lock()
	c.onEvent = hook
	c.mu.Unlock()
}

// Resolve returns the series for key, fetching it at most once no matter how
// many goroutines ask concurrently. forceRefresh bypasses both tiers and
// overwrites them on success. The returned slice is shared: callers must not
// mutate it.
func (c *Cache) Resolve(ctx context.Context, key SeriesKey, forceRefresh bool) ([]types.Bar, error) {
	if err := key.Validate(); err != nil {
		return nil, backtesterrors.Wrap(err, backtesterrors.KindFetch, "cache", "invalid series key")
	}

	var fl *inflight
	for {
		c.mu.Lock()
		if !forceRefresh {
			if bars, ok := c.memory[key]; ok {
				c.stats.MemoryHits++
				c.emitLocked("memory_hit")
				c.mu.Unlock()
				return bars, nil
			}
		}

		if pending, ok := c.inflight[key]; ok {
			if !forceRefresh || pending.bypassedTiers {
				c.stats.CoalescedHit++
				c.emitLocked("coalesced")
				c.mu.Unlock()
				<-pending.done
				return pending.bars, pending.err
			}
			// A force caller must reach upstream; the pending fetch may
			// be serving the durable tier, so wait it out and retry.
			c.mu.Unlock()
			<-pending.done
			continue
		}

		fl = &inflight{done: make(chan struct{}), bypassedTiers: forceRefresh}
		c.inflight[key] = fl
		c.mu.Unlock()
		break
	}

	bars, err := c.populate(ctx, key, forceRefresh)

	fl.bars, fl.err = bars, err
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(fl.done)

	return bars, err
}

// populate loads key from the durable tier or upstream and installs the
// result. Only the in-flight winner for key runs this.
func (c *Cache) populate(ctx context.Context, key SeriesKey, forceRefresh bool) ([]types.Bar, error) {
	if !forceRefresh && c.store != nil && !c.isMemoryOnly() {
		bars, ok, err := c.store.Load(key)
		if err != nil {
			c.degradeToMemory(err)
		} else if ok {
			if verr := ValidateBars(bars); verr == nil {
				c.install(key, bars, false)
				c.countEvent("durable_hit", &c.stats.DurableHits)
				return bars, nil
			}
			// A corrupt durable entry is dropped and refetched.
			_ = c.store.Remove(key)
		}
	}

	c.countEvent("fetch", &c.stats.Fetches)
	c.logf("fetching %s", key)
	bars, err := c.fetcher.Fetch(ctx, key)
	if err == nil {
		err = ValidateBars(bars)
	}
	if err != nil {
		c.countEvent("fetch_error", &c.stats.FetchErrors)
		return nil, backtesterrors.Wrap(err, backtesterrors.KindFetch, "cache", "fetch "+key.Symbol)
	}

	c.install(key, bars, true)
	return bars, nil
}

// install writes bars to the memory tier and, when writeDurable is set, to the
// durable tier. A durable failure degrades the cache to memory-only with a
// warning instead of failing the resolve.
func (c *Cache) install(key SeriesKey, bars []types.Bar, writeDurable bool) {
	c.mu.Lock()
	c.memory[key] = bars
	c.stats.MemorySize = len(c.memory)
	c.mu.Unlock()

	if writeDurable && c.store != nil && !c.isMemoryOnly() {
		if err := c.store.Store(key, bars); err != nil {
			c.degradeToMemory(err)
		}
	}
}

// Invalidate drops both tiers' entries for key.
func (c *Cache) Invalidate(key SeriesKey) {
	c.mu.Lock()
	delete(c.memory, key)
	c.stats.MemorySize = len(c.memory)
	c.mu.Unlock()
	if c.store != nil {
		_ = c.store.Remove(key)
	}
}

// Clear drops every memory-tier entry. Durable files stay.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.memory = make(map[SeriesKey][]types.Bar)
	c.stats.MemorySize = 0
	c.mu.Unlock()
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.MemoryOnly = c.memoryOnly
	return s
}

func (c *Cache) isMemoryOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memoryOnly
}

func (c *Cache) degradeToMemory(cause error) {
	c.mu.Lock()
	already := c.memoryOnly
	c.memoryOnly = true
	c.mu.Unlock()
	if !already {
		serr := backtesterrors.Wrap(cause, backtesterrors.KindStorage, "cache", "durable tier disabled for this process")
		c.logf("warning: %v", serr)
	}
}

func (c *Cache) countEvent(event string, counter *int64) {
	c.mu.Lock()
	*counter++
	c.emitLocked(event)
	c.mu.Unlock()
}

func (c *Cache) emitLocked(event string) {
	if c.onEvent != nil {
		go c.onEvent(event)
	}
}

func (c *Cache) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
