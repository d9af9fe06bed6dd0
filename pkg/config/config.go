package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default engine parameters for the A-share market.
const (
	DefaultInitialCapital    = 100000.0
	DefaultCommissionRate    = 0.0003  // 0.03%, double-sided
	DefaultMinCommission     = 5.0     // broker minimum per order
	DefaultStampDutyRate     = 0.001   // 0.1%, sell side only
	DefaultTransferFeeRate   = 0.00002 // 0.002%, double-sided
	DefaultMinLotSize        = 100     // one board lot
	DefaultPriceMoveLimitPct = 0.10    // daily limit-up/limit-down band
	DefaultMaxParallelism    = 4
	DefaultRiskFreeRate      = 0.0
	DefaultAnnualizationDays = 252
)

// EngineParams seeds one simulation run: capital, costs and the market rules
// the broker enforces. Engine parameters are shared read-only across the
// batch; every run gets its own broker state.
type EngineParams struct {
	InitialCapital    float64
	CommissionRate    float64
	MinCommission     float64
	StampDutyRate     float64
	TransferFeeRate   float64
	MinLotSize        int
	SameDaySellBlock  bool // T+1: shares bought today cannot be sold today
	PriceMoveLimitPct float64
	RiskFreeRate      float64
	AnnualizationDays int
}

// DefaultEngineParams returns the standard A-share setup: T+1, 100-share
// lots, 10% daily price band, real commission structure.
func DefaultEngineParams() EngineParams {
	return EngineParams{
		InitialCapital:    DefaultInitialCapital,
		CommissionRate:    DefaultCommissionRate,
		MinCommission:     DefaultMinCommission,
		StampDutyRate:     DefaultStampDutyRate,
		TransferFeeRate:   DefaultTransferFeeRate,
		MinLotSize:        DefaultMinLotSize,
		SameDaySellBlock:  true,
		PriceMoveLimitPct: DefaultPriceMoveLimitPct,
		RiskFreeRate:      DefaultRiskFreeRate,
		AnnualizationDays: DefaultAnnualizationDays,
	}
}

// Validate rejects parameter sets that would make every run in a batch
// meaningless. Called eagerly before any work item is dispatched.
func (p EngineParams) Validate() error {
	if p.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %.2f", p.InitialCapital)
	}
	if p.CommissionRate < 0 {
		return fmt.Errorf("commission rate must be non-negative, got %.6f", p.CommissionRate)
	}
	if p.MinCommission < 0 {
		return fmt.Errorf("minimum commission must be non-negative, got %.2f", p.MinCommission)
	}
	if p.StampDutyRate < 0 {
		return fmt.Errorf("stamp duty rate must be non-negative, got %.6f", p.StampDutyRate)
	}
	if p.TransferFeeRate < 0 {
		return fmt.Errorf("transfer fee rate must be non-negative, got %.6f", p.TransferFeeRate)
	}
	if p.MinLotSize <= 0 {
		return fmt.Errorf("minimum lot size must be positive, got %d", p.MinLotSize)
	}
	if p.PriceMoveLimitPct <= 0 || p.PriceMoveLimitPct > 1 {
		return fmt.Errorf("price move limit must be within (0, 1], got %.4f", p.PriceMoveLimitPct)
	}
	if p.AnnualizationDays <= 0 {
		return fmt.Errorf("annualization days must be positive, got %d", p.AnnualizationDays)
	}
	return nil
}

// BatchConfig controls batch-wide behavior around the per-run engine params.
type BatchConfig struct {
	Engine         EngineParams
	MaxParallelism int
	ForceRefresh   bool
	CacheDir       string
	OutputDir      string
	DataSource     string // "eastmoney" or "bybit"
	MetricsAddr    string // optional Prometheus listen address
}

// DefaultBatchConfig wires the standard engine params with a small worker
// pool to keep pressure off the upstream data API.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Engine:         DefaultEngineParams(),
		MaxParallelism: DefaultMaxParallelism,
		CacheDir:       "data/cache",
		OutputDir:      "results",
		DataSource:     "eastmoney",
	}
}

// Validate checks the batch surface plus the embedded engine params.
func (c BatchConfig) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.MaxParallelism <= 0 {
		return fmt.Errorf("max parallelism must be positive, got %d", c.MaxParallelism)
	}
	switch c.DataSource {
	case "eastmoney", "bybit":
	default:
		return fmt.Errorf("unknown data source %q", c.DataSource)
	}
	return nil
}

// GetEnv reads an environment variable with a fallback, after godotenv has
// populated the process environment at CLI startup.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// GetEnvFloat reads a float environment variable with a fallback.
func GetEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetEnvInt reads an integer environment variable with a fallback.
func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
