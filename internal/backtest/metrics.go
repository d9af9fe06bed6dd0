package backtest

import (
	"math"

	"github.com/junwei-lu/ashare-backtest/pkg/config"
)

// MetricsRecord summarizes one simulation. Every field is finite even
// for runs that never traded.
type MetricsRecord struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`
	NumTrades      int     `json:"num_trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// ComputeMetrics derives the summary record from the broker's final
// state and the equity curve.
func ComputeMetrics(params config.EngineParams, broker *Broker, curve []EquityPoint) MetricsRecord {
	rec := MetricsRecord{
		InitialCapital: params.InitialCapital,
		FinalCapital:   params.InitialCapital,
	}
	if len(curve) > 0 {
		rec.FinalCapital = curve[len(curve)-1].Equity
	}
	if params.InitialCapital > 0 {
		rec.TotalReturnPct = (rec.FinalCapital - params.InitialCapital) / params.InitialCapital * 100
	}

	trades := broker.Trades()
	rec.NumTrades = len(trades)
	if len(trades) > 0 {
		wins := 0
		for _, t := range trades {
			if t.PnL > 0 {
				wins++
			}
		}
		rec.WinRatePct = float64(wins) / float64(len(trades)) * 100
	}

	rec.MaxDrawdownPct = maxDrawdownPct(curve)
	rec.SharpeRatio = sharpeRatio(curve, params.RiskFreeRate, params.AnnualizationDays)
	return rec
}

// maxDrawdownPct is the largest peak-to-trough equity decline, as a
// positive percentage.
func maxDrawdownPct(curve []EquityPoint) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// sharpeRatio annualizes the mean/stddev of per-bar equity returns.
// Fewer than two returns gives 0.
func sharpeRatio(curve []EquityPoint, riskFree float64, annualizationDays int) float64 {
	if len(curve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	dailyRiskFree := riskFree / float64(annualizationDays)
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	stdDev := math.Sqrt(variance)
	if stdDev < 1e-12 {
		return 0
	}

	return (mean - dailyRiskFree) / stdDev * math.Sqrt(float64(annualizationDays))
}
