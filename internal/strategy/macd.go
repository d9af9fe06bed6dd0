package strategy

import (
	"fmt"

	"github.com/junwei-lu/ashare-backtest/internal/indicators"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// MACDStrategy trades DIF/DEA crossovers. A buy requires the DIF line to
// cross above DEA with a positive histogram on the signal bar; a sell
// fires when DIF crosses back below DEA.
type MACDStrategy struct {
	name string
	macd *indicators.MACD
}

// NewMACDStrategy builds a MACD crossover strategy. Parameters:
// fast_period (default 12), slow_period (default 26), signal_period
// (default 9).
func NewMACDStrategy(cfg Config) (Strategy, error) {
	fast := cfg.IntParam("fast_period", 12)
	slow := cfg.IntParam("slow_period", 26)
	signal := cfg.IntParam("signal_period", 9)
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("macd: periods must be positive, got fast=%d slow=%d signal=%d", fast, slow, signal)
	}
	if fast >= slow {
		return nil, fmt.Errorf("macd: fast_period (%d) must be less than slow_period (%d)", fast, slow)
	}
	return &MACDStrategy{
		name: fmt.Sprintf("macd(%d,%d,%d)", fast, slow, signal),
		macd: indicators.NewMACD(fast, slow, signal),
	}, nil
}

func (s *MACDStrategy) GetName() string { return s.name }

func (s *MACDStrategy) WarmupBars() int { return s.macd.WarmupBars() + 1 }

func (s *MACDStrategy) Reset() {}

func (s *MACDStrategy) Evaluate(bars []types.Bar) (*Decision, error) {
	if len(bars) < s.WarmupBars() {
		return holdDecision(lastDate(bars), "warming up"), nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	dif, dea, hist := s.macd.Series(closes)

	cur := len(closes) - 1
	prev := cur - 1
	ts := bars[cur].Date

	switch {
	case dif[prev] <= dea[prev] && dif[cur] > dea[cur] && hist[cur] > 0:
		return &Decision{Action: ActionBuy, Reason: "dif crossed above dea", Timestamp: ts}, nil
	case dif[prev] >= dea[prev] && dif[cur] < dea[cur]:
		return &Decision{Action: ActionSell, Reason: "dif crossed below dea", Timestamp: ts}, nil
	default:
		return holdDecision(ts, "no cross"), nil
	}
}
