package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/junwei-lu/ashare-backtest/internal/backtest"
	"github.com/junwei-lu/ashare-backtest/internal/monitoring"
	"github.com/junwei-lu/ashare-backtest/internal/screener"
	"github.com/junwei-lu/ashare-backtest/pkg/config"
	"github.com/junwei-lu/ashare-backtest/pkg/data"
	"github.com/junwei-lu/ashare-backtest/pkg/reporting"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

const (
	AppName    = "A-Share Batch Backtest"
	AppVersion = "1.0.0"
)

func main() {
	flags := NewBatchFlags()
	flag.Parse()

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}
	if *flags.ShowHelp {
		printUsageHelp()
		return
	}

	if err := ValidateBatchFlags(flags); err != nil {
		log.Fatalf("flag validation error: %v", err)
	}

	loadEnvironment(*flags.EnvFile)

	cfg := buildConfig(flags)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := monitoring.Serve(cfg.MetricsAddr); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := buildCache(cfg)
	if err != nil {
		log.Fatalf("cache setup error: %v", err)
	}

	symbols := splitList(*flags.Symbols)
	adjust := parseAdjust(*flags.Adjust)

	if *flags.Screen {
		symbols = runScreen(ctx, cache, flags, symbols, adjust)
		if len(symbols) == 0 {
			log.Println("screen: no symbols matched, nothing to backtest")
			return
		}
	}

	tasks, err := buildTasks(flags, symbols, adjust)
	if err != nil {
		log.Fatalf("task construction error: %v", err)
	}

	executor := backtest.NewExecutor(cache, cfg, log.Default())
	report, err := executor.RunBatch(ctx, tasks)
	if err != nil {
		log.Fatalf("batch error: %v", err)
	}

	ranked, err := report.Rank(*flags.Metric)
	if err != nil {
		log.Fatalf("ranking error: %v", err)
	}

	console := reporting.NewConsoleReporter(os.Stdout)
	console.PrintSummary(report)
	console.PrintRanking(ranked, *flags.Metric)

	stats := cache.Stats()
	log.Printf("cache: %d memory hits, %d durable hits, %d fetches (%d coalesced, %d errors)",
		stats.MemoryHits, stats.DurableHits, stats.Fetches, stats.CoalescedHit, stats.FetchErrors)

	if *flags.ConsoleOnly || len(ranked) == 0 {
		return
	}

	runDir := reporting.RunDir(cfg.OutputDir, symbols, time.Now())
	if err := writeReports(ranked, runDir); err != nil {
		log.Fatalf("report output error: %v", err)
	}
	log.Printf("reports written to %s", runDir)
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		// Missing .env is the normal case outside development.
		if !os.IsNotExist(err) {
			log.Printf("env: could not load %s: %v", envFile, err)
		}
	}
}

func buildConfig(flags *BatchFlags) config.BatchConfig {
	cfg := config.DefaultBatchConfig()
	cfg.Engine.InitialCapital = *flags.InitialCapital
	cfg.Engine.CommissionRate = *flags.Commission
	cfg.MaxParallelism = *flags.Parallelism
	cfg.ForceRefresh = *flags.ForceRefresh
	cfg.CacheDir = *flags.CacheDir
	cfg.OutputDir = *flags.OutputDir
	cfg.DataSource = *flags.DataSource
	cfg.MetricsAddr = config.GetEnv("METRICS_ADDR", *flags.MetricsAddr)
	return cfg
}

func buildCache(cfg config.BatchConfig) (*data.Cache, error) {
	var fetcher data.Fetcher
	switch cfg.DataSource {
	case "bybit":
		fetcher = data.NewBybitFetcher("spot")
	default:
		fetcher = data.NewEastmoneyFetcher("")
	}
	retrying := data.NewRetryingFetcher(fetcher, data.DefaultRetryConfig())

	store, err := data.NewCSVStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	cache := data.NewCache(retrying, store, log.Default())
	cache.SetEventHook(monitoring.RecordCacheEvent)
	return cache, nil
}

func runScreen(ctx context.Context, cache *data.Cache, flags *BatchFlags, symbols []string, adjust types.Adjust) []string {
	predicates := []screener.Predicate{
		screener.NewMAAlignment(*flags.ScreenMAShort, *flags.ScreenMALong),
	}
	if *flags.ScreenVolumeRatio > 0 {
		predicates = append(predicates, screener.NewVolumeSurge(20, *flags.ScreenVolumeRatio))
	}

	matches, err := screener.NewScreener(cache, log.Default()).
		Screen(ctx, symbols, *flags.Start, *flags.End, adjust, predicates...)
	if err != nil {
		log.Fatalf("screen error: %v", err)
	}

	selected := make([]string, len(matches))
	for i, m := range matches {
		selected[i] = m.Symbol
		log.Printf("screen: %s (%s)", m.Symbol, m.Reason)
	}
	return selected
}

func buildTasks(flags *BatchFlags, symbols []string, adjust types.Adjust) ([]backtest.Task, error) {
	configs := strategyConfigs(flags)
	tasks := make([]backtest.Task, 0, len(symbols)*len(configs))
	for _, symbol := range symbols {
		key, err := data.ParseSeriesKey(symbol, *flags.Start, *flags.End, adjust)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", symbol, err)
		}
		for _, sc := range configs {
			tasks = append(tasks, backtest.Task{Key: key, Strategy: sc})
		}
	}
	return tasks, nil
}

func writeReports(ranked []backtest.Outcome, runDir string) error {
	if err := reporting.WriteSummaryCSV(ranked, filepath.Join(runDir, "summary.csv")); err != nil {
		return err
	}
	if err := reporting.WriteSummaryXLSX(ranked, filepath.Join(runDir, "summary.xlsx")); err != nil {
		return err
	}
	for _, o := range ranked {
		name := fmt.Sprintf("trades_%s_%s.csv", o.Result.Symbol, o.Task.Strategy.Name)
		if err := reporting.WriteTradesCSV(o.Result, filepath.Join(runDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func printUsageHelp() {
	fmt.Printf("%s v%s\n\n", AppName, AppVersion)
	fmt.Println("Run a batch of strategy backtests over cached daily bar series and rank the results.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  batch-backtest -symbols 600519,000001 -start 2023-01-01 -end 2023-12-31")
	fmt.Println("  batch-backtest -symbols 600519 -strategies ma_crossover,macd -metric sharpe_ratio")
	fmt.Println("  batch-backtest -symbols 600519,000001,600036 -screen -screen-volume-ratio 2.0")
	fmt.Println()
	flag.PrintDefaults()
}
