package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/junwei-lu/ashare-backtest/internal/backtest"
)

// WriteSummaryCSV writes one row per ranked outcome to path.
func WriteSummaryCSV(ranked []backtest.Outcome, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"rank", "symbol", "strategy",
		"initial_capital", "final_capital", "total_return_pct",
		"num_trades", "win_rate_pct", "max_drawdown_pct", "sharpe_ratio",
	}); err != nil {
		return err
	}

	for rank, o := range ranked {
		m := o.Result.Metrics
		row := []string{
			strconv.Itoa(rank + 1),
			o.Result.Symbol,
			o.Result.StrategyName,
			fmt.Sprintf("%.2f", m.InitialCapital),
			fmt.Sprintf("%.2f", m.FinalCapital),
			fmt.Sprintf("%.4f", m.TotalReturnPct),
			strconv.Itoa(m.NumTrades),
			fmt.Sprintf("%.2f", m.WinRatePct),
			fmt.Sprintf("%.4f", m.MaxDrawdownPct),
			fmt.Sprintf("%.4f", m.SharpeRatio),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteTradesCSV writes one outcome's trade list to path.
func WriteTradesCSV(result *backtest.Result, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"entry_date", "exit_date", "entry_price", "exit_price", "quantity", "fees", "pnl",
	}); err != nil {
		return err
	}
	for _, t := range result.Trades {
		row := []string{
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			fmt.Sprintf("%.4f", t.EntryPrice),
			fmt.Sprintf("%.4f", t.ExitPrice),
			strconv.Itoa(t.Quantity),
			fmt.Sprintf("%.2f", t.Fees),
			fmt.Sprintf("%.2f", t.PnL),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}
