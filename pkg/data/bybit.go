package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// BybitFetcher serves daily bars for crypto symbols through the Bybit v5
// market API, so the same batch pipeline can replay crypto series. Adjustment
// modes do not apply to crypto; only AdjustNone is accepted.
type BybitFetcher struct {
	client   *bybit_api.Client
	category string
}

// NewBybitFetcher builds a public-data client. Kline endpoints need no
// credentials. category is "spot", "linear" or "inverse"; empty means spot.
func NewBybitFetcher(category string) *BybitFetcher {
	if category == "" {
		category = "spot"
	}
	return &BybitFetcher{
		client:   bybit_api.NewBybitHttpClient("", "", bybit_api.WithBaseURL(bybit_api.MAINNET)),
		category: category,
	}
}

func (f *BybitFetcher) Name() string {
	return "bybit"
}

// Fetch requests daily klines for key's date window.
func (f *BybitFetcher) Fetch(ctx context.Context, key SeriesKey) ([]types.Bar, error) {
	if key.Adjust != types.AdjustNone {
		return nil, fmt.Errorf("%w: adjust mode %q not supported for crypto series", ErrMalformedPayload, string(key.Adjust))
	}

	start, _ := time.Parse(DateFormat, key.Start)
	end, _ := time.Parse(DateFormat, key.End)
	// Inclusive end: cover the whole final day.
	endExclusive := end.AddDate(0, 0, 1)

	params := map[string]interface{}{
		"category": f.category,
		"symbol":   key.Symbol,
		"interval": "D",
		"start":    start.UnixMilli(),
		"end":      endExclusive.UnixMilli(),
		"limit":    1000,
	}

	result, err := f.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("get klines for %s: %w", key.Symbol, err)
	}
	return parseBybitKlines(result)
}

func parseBybitKlines(response interface{}) ([]types.Bar, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected response type", ErrMalformedPayload)
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("api error: %s (code %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var klineResult struct {
		List [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	bars := make([]types.Bar, 0, len(klineResult.List))
	for _, item := range klineResult.List {
		if len(item) < 6 {
			return nil, fmt.Errorf("%w: kline row with %d fields", ErrMalformedPayload, len(item))
		}
		// Row format: startTime, open, high, low, close, volume, turnover.
		ts, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: start time %q", ErrMalformedPayload, item[0])
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(item[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: field %d %q", ErrMalformedPayload, i+1, item[i+1])
			}
			vals[i] = v
		}
		bars = append(bars, types.Bar{
			Date:   time.UnixMilli(ts).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}

	// Bybit returns newest first; the cache wants ascending dates.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
