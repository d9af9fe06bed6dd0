package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/junwei-lu/ashare-backtest/internal/strategy"
	"github.com/junwei-lu/ashare-backtest/pkg/config"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// BatchFlags holds all command line flags for the batch backtest command
type BatchFlags struct {
	// Universe
	Symbols *string
	Start   *string
	End     *string
	Adjust  *string

	// Strategy selection
	Strategies   *string
	FastPeriod   *int
	SlowPeriod   *int
	SignalPeriod *int

	// Account settings
	InitialCapital *float64
	Commission     *float64

	// Execution
	Parallelism  *int
	ForceRefresh *bool
	DataSource   *string
	Metric       *string

	// Screening
	Screen            *bool
	ScreenMAShort     *int
	ScreenMALong      *int
	ScreenVolumeRatio *float64

	// Output options
	CacheDir    *string
	OutputDir   *string
	ConsoleOnly *bool
	MetricsAddr *string

	// Environment
	EnvFile *string

	ShowVersion *bool
	ShowHelp    *bool
}

// NewBatchFlags registers all flags with their defaults
func NewBatchFlags() *BatchFlags {
	return &BatchFlags{
		Symbols: flag.String("symbols", "", "Comma-separated stock symbols (e.g. 600519,000001)"),
		Start:   flag.String("start", "", "Series start date (YYYY-MM-DD)"),
		End:     flag.String("end", "", "Series end date (YYYY-MM-DD)"),
		Adjust:  flag.String("adjust", "qfq", "Price adjustment (qfq, hfq, none)"),

		Strategies:   flag.String("strategies", "ma_crossover", "Comma-separated strategies (ma_crossover, macd, oscillation)"),
		FastPeriod:   flag.Int("fast-period", 0, "Fast period override (0 = strategy default)"),
		SlowPeriod:   flag.Int("slow-period", 0, "Slow period override (0 = strategy default)"),
		SignalPeriod: flag.Int("signal-period", 0, "MACD signal period override (0 = strategy default)"),

		InitialCapital: flag.Float64("capital", config.DefaultInitialCapital, "Initial capital per simulation"),
		Commission:     flag.Float64("commission", config.DefaultCommissionRate, "Commission rate (0.0003 = 0.03%)"),

		Parallelism:  flag.Int("parallelism", config.DefaultMaxParallelism, "Concurrent simulations"),
		ForceRefresh: flag.Bool("force-refresh", false, "Bypass caches and refetch all series"),
		DataSource:   flag.String("source", "eastmoney", "Data source (eastmoney, bybit)"),
		Metric:       flag.String("metric", "total_return_pct", "Ranking metric (total_return_pct, sharpe_ratio, max_drawdown_pct)"),

		Screen:            flag.Bool("screen", false, "Pre-screen symbols before backtesting"),
		ScreenMAShort:     flag.Int("screen-ma-short", 5, "Screener short MA period"),
		ScreenMALong:      flag.Int("screen-ma-long", 20, "Screener long MA period"),
		ScreenVolumeRatio: flag.Float64("screen-volume-ratio", 0, "Require latest volume at this multiple of the 20-bar average (0 = off)"),

		CacheDir:    flag.String("cache-dir", "data/cache", "Durable series cache directory"),
		OutputDir:   flag.String("output-dir", "results", "Report output root"),
		ConsoleOnly: flag.Bool("console-only", false, "Skip CSV/Excel outputs"),
		MetricsAddr: flag.String("metrics-addr", "", "Expose Prometheus /metrics on this address (e.g. :9090)"),

		EnvFile: flag.String("env", ".env", "Environment file"),

		ShowVersion: flag.Bool("version", false, "Show version"),
		ShowHelp:    flag.Bool("help-detailed", false, "Show detailed usage"),
	}
}

// ValidateBatchFlags checks flag combinations before any work starts
func ValidateBatchFlags(flags *BatchFlags) error {
	if *flags.ShowVersion || *flags.ShowHelp {
		return nil
	}
	if strings.TrimSpace(*flags.Symbols) == "" {
		return fmt.Errorf("-symbols is required")
	}
	if *flags.Start == "" || *flags.End == "" {
		return fmt.Errorf("-start and -end are required")
	}
	if !parseAdjust(*flags.Adjust).Valid() {
		return fmt.Errorf("invalid -adjust %q (use qfq, hfq or none)", *flags.Adjust)
	}
	if *flags.DataSource == "bybit" && parseAdjust(*flags.Adjust) != types.AdjustNone {
		return fmt.Errorf("-source bybit requires -adjust none: price adjustment only applies to A-shares")
	}
	for _, name := range splitList(*flags.Strategies) {
		if err := (strategy.Config{Name: name}).Validate(); err != nil {
			return fmt.Errorf("invalid -strategies entry %q: %w", name, err)
		}
	}
	return nil
}

func parseAdjust(s string) types.Adjust {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return types.AdjustNone
	default:
		return types.Adjust(strings.ToLower(strings.TrimSpace(s)))
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// strategyConfigs builds one strategy config per requested name,
// applying period overrides where set.
func strategyConfigs(flags *BatchFlags) []strategy.Config {
	names := splitList(*flags.Strategies)
	configs := make([]strategy.Config, 0, len(names))
	for _, name := range names {
		params := map[string]float64{}
		if *flags.FastPeriod > 0 {
			params["fast_period"] = float64(*flags.FastPeriod)
		}
		if *flags.SlowPeriod > 0 {
			params["slow_period"] = float64(*flags.SlowPeriod)
		}
		if name == "macd" && *flags.SignalPeriod > 0 {
			params["signal_period"] = float64(*flags.SignalPeriod)
		}
		configs = append(configs, strategy.Config{Name: name, Params: params})
	}
	return configs
}
