package screener

import (
	"context"
	"log"
	"time"

	"github.com/junwei-lu/ashare-backtest/pkg/data"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// Predicate decides whether a symbol's bar series passes a screen.
type Predicate interface {
	// Matches inspects the series and reports whether the symbol
	// qualifies, with a short reason for the report.
	Matches(bars []types.Bar) (bool, string)

	// GetName returns the name of the predicate.
	GetName() string
}

// Match is one symbol that passed the screen.
type Match struct {
	Symbol string
	Reason string
}

// Screener evaluates predicates over series resolved through the shared
// cache, so screening warms the cache for the batch run that follows.
type Screener struct {
	cache  *data.Cache
	logger *log.Logger
}

// NewScreener creates a screener over the given series cache.
func NewScreener(cache *data.Cache, logger *log.Logger) *Screener {
	if logger == nil {
		logger = log.New(discard{}, "", 0)
	}
	return &Screener{cache: cache, logger: logger}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Screen resolves each symbol's series for the window and keeps the
// symbols every predicate accepts. Symbols whose data cannot be fetched
// are skipped with a log line rather than failing the screen.
func (s *Screener) Screen(ctx context.Context, symbols []string, start, end string, adjust types.Adjust, predicates ...Predicate) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	matches := make([]Match, 0, len(symbols))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		key, err := data.ParseSeriesKey(symbol, start, end, adjust)
		if err != nil {
			s.logger.Printf("screen: %s: bad key: %v", symbol, err)
			continue
		}
		bars, err := s.cache.Resolve(ctx, key, false)
		if err != nil {
			s.logger.Printf("screen: %s: fetch failed: %v", symbol, err)
			continue
		}

		passed := true
		reason := ""
		for _, p := range predicates {
			ok, why := p.Matches(bars)
			if !ok {
				passed = false
				break
			}
			if reason == "" {
				reason = why
			} else {
				reason += "; " + why
			}
		}
		if passed {
			matches = append(matches, Match{Symbol: key.Symbol, Reason: reason})
		}
	}

	s.logger.Printf("screen: %d/%d symbols matched in %s", len(matches), len(symbols), time.Since(started).Round(time.Millisecond))
	return matches, nil
}
