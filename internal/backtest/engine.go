package backtest

import (
	"fmt"
	"time"

	"github.com/junwei-lu/ashare-backtest/internal/strategy"
	"github.com/junwei-lu/ashare-backtest/pkg/config"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// EquityPoint is one mark-to-market sample of the portfolio.
type EquityPoint struct {
	Date   time.Time
	Equity float64
}

// Engine drives one strategy over one bar series with one broker.
// Signals fill at the close of the bar that produced them.
type Engine struct {
	params config.EngineParams
	strat  strategy.Strategy
}

// Result carries everything a single simulation produced.
type Result struct {
	Symbol       string
	StrategyName string
	Trades       []Trade
	EquityCurve  []EquityPoint
	Metrics      MetricsRecord
}

// NewEngine creates a simulation engine for a strategy.
func NewEngine(params config.EngineParams, strat strategy.Strategy) *Engine {
	return &Engine{params: params, strat: strat}
}

// Run replays bars in order, asking the strategy for a decision on each
// bar and routing fills through the broker. Any open position is closed
// at the last bar's close so final equity is fully realized.
func (e *Engine) Run(symbol string, bars []types.Bar) (*Result, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}

	e.strat.Reset()
	broker := NewBroker(e.params)
	curve := make([]EquityPoint, 0, len(bars))

	prevClose := 0.0
	for i := range bars {
		bar := bars[i]

		decision, err := e.strat.Evaluate(bars[:i+1])
		if err != nil {
			return nil, fmt.Errorf("strategy %s at bar %s: %w", e.strat.GetName(), bar.Date.Format("2006-01-02"), err)
		}

		switch decision.Action {
		case strategy.ActionBuy:
			broker.Buy(bar.Date, bar.Close, prevClose)
		case strategy.ActionSell:
			broker.Sell(bar.Date, bar.Close, prevClose)
		}

		curve = append(curve, EquityPoint{Date: bar.Date, Equity: broker.Equity(bar.Close)})
		prevClose = bar.Close
	}

	// Force-close at the end of the series.
	last := bars[len(bars)-1]
	if broker.Position() > 0 {
		if ok, _ := broker.Sell(last.Date, last.Close, prevClose); ok {
			curve[len(curve)-1].Equity = broker.Equity(last.Close)
		}
	}

	metrics := ComputeMetrics(e.params, broker, curve)
	return &Result{
		Symbol:       symbol,
		StrategyName: e.strat.GetName(),
		Trades:       broker.Trades(),
		EquityCurve:  curve,
		Metrics:      metrics,
	}, nil
}
