package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

const defaultEastmoneyBaseURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

// EastmoneyFetcher pulls A-share daily klines from the Eastmoney quote API,
// the same upstream akshare wraps.
type EastmoneyFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewEastmoneyFetcher builds a fetcher against the public endpoint. baseURL
// may be overridden for tests.
func NewEastmoneyFetcher(baseURL string) *EastmoneyFetcher {
	if baseURL == "" {
		baseURL = defaultEastmoneyBaseURL
	}
	return &EastmoneyFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *EastmoneyFetcher) Name() string {
	return "eastmoney"
}

type eastmoneyResponse struct {
	RC   int    `json:"rc"`
	Msg  string `json:"msg"`
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// Fetch requests the daily series for key. Rows come back as comma-joined
// strings "date,open,close,high,low,volume,amount".
func (f *EastmoneyFetcher) Fetch(ctx context.Context, key SeriesKey) ([]types.Bar, error) {
	q := url.Values{}
	q.Set("secid", secID(key.Symbol))
	q.Set("klt", "101") // daily
	q.Set("fqt", adjustCode(key.Adjust))
	q.Set("beg", strings.ReplaceAll(key.Start, "-", ""))
	q.Set("end", strings.ReplaceAll(key.End, "-", ""))
	q.Set("fields1", "f1,f2,f3")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request klines for %s: %w", key.Symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines for %s: status %d", key.Symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read kline response: %w", err)
	}

	var parsed eastmoneyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if parsed.Data == nil {
		return nil, fmt.Errorf("%w: no data for %s (%s)", ErrMalformedPayload, key.Symbol, parsed.Msg)
	}

	bars := make([]types.Bar, 0, len(parsed.Data.Klines))
	for i, line := range parsed.Data.Klines {
		bar, err := parseKlineRow(line)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedPayload, i, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseKlineRow(line string) (types.Bar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return types.Bar{}, fmt.Errorf("%d fields, want at least 6", len(fields))
	}
	date, err := time.Parse(DateFormat, fields[0])
	if err != nil {
		return types.Bar{}, fmt.Errorf("date %q: %v", fields[0], err)
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return types.Bar{}, fmt.Errorf("field %d %q: %v", i+1, fields[i+1], err)
		}
		vals[i] = v
	}
	// Eastmoney field order is open, close, high, low, volume.
	return types.Bar{
		Date:   date,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}

// secID maps a bare stock code to the exchange-prefixed form the quote API
// expects: 1.XXXXXX for Shanghai, 0.XXXXXX for Shenzhen.
func secID(symbol string) string {
	if strings.HasPrefix(symbol, "6") {
		return "1." + symbol
	}
	return "0." + symbol
}

func adjustCode(a types.Adjust) string {
	switch a {
	case types.AdjustForward:
		return "1"
	case types.AdjustBackward:
		return "2"
	default:
		return "0"
	}
}
