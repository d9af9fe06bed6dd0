package strategy

import (
	"fmt"
	"time"

	"github.com/junwei-lu/ashare-backtest/internal/indicators"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// MACrossover trades golden/death crosses of two simple moving averages:
// buy when the fast MA crosses above the slow MA, sell on the reverse cross.
type MACrossover struct {
	name string
	fast *indicators.SMA
	slow *indicators.SMA
}

// NewMACrossover builds a moving-average crossover strategy. Parameters:
// fast_period (default 5) and slow_period (default 20).
func NewMACrossover(cfg Config) (Strategy, error) {
	fast := cfg.IntParam("fast_period", 5)
	slow := cfg.IntParam("slow_period", 20)
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("ma_crossover: periods must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("ma_crossover: fast_period (%d) must be less than slow_period (%d)", fast, slow)
	}
	return &MACrossover{
		name: fmt.Sprintf("ma_crossover(%d,%d)", fast, slow),
		fast: indicators.NewSMA(fast),
		slow: indicators.NewSMA(slow),
	}, nil
}

func (s *MACrossover) GetName() string { return s.name }

func (s *MACrossover) WarmupBars() int { return s.slow.Period() + 1 }

func (s *MACrossover) Reset() {}

func (s *MACrossover) Evaluate(bars []types.Bar) (*Decision, error) {
	if len(bars) < s.WarmupBars() {
		return holdDecision(lastDate(bars), "warming up"), nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	prev := closes[:len(closes)-1]

	fastNow, err := s.fast.Value(closes)
	if err != nil {
		return nil, err
	}
	slowNow, err := s.slow.Value(closes)
	if err != nil {
		return nil, err
	}
	fastPrev, err := s.fast.Value(prev)
	if err != nil {
		return nil, err
	}
	slowPrev, err := s.slow.Value(prev)
	if err != nil {
		return nil, err
	}

	ts := bars[len(bars)-1].Date
	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		return &Decision{Action: ActionBuy, Reason: "golden cross", Timestamp: ts}, nil
	case fastPrev >= slowPrev && fastNow < slowNow:
		return &Decision{Action: ActionSell, Reason: "death cross", Timestamp: ts}, nil
	default:
		return holdDecision(ts, "no cross"), nil
	}
}

func lastDate(bars []types.Bar) time.Time {
	if len(bars) == 0 {
		return time.Time{}
	}
	return bars[len(bars)-1].Date
}
