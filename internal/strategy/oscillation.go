package strategy

import (
	"fmt"

	"github.com/junwei-lu/ashare-backtest/internal/indicators"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// Oscillation trades range-bound markets: it buys oversold dips (RSI
// oversold, close at the lower Bollinger band, KDJ golden cross on
// above-average volume) and exits on stop-loss, tiered take-profit,
// overbought technicals or a holding-time limit.
//
// The strategy tracks its own entry state from the decisions it emits,
// assuming each one fills; the engine replays bars in order and calls
// Reset before every run.
type Oscillation struct {
	name string

	rsiPeriod     int
	rsiOversold   float64
	rsiOverbought float64
	bbPeriod      int
	bbDev         float64
	kdjPeriod     int
	kdjSmooth     int
	volumePeriod  int

	stopLoss     float64
	quickProfit  float64
	targetProfit float64
	maxHoldBars  int

	held       bool
	entryPrice float64
	barsHeld   int
}

// NewOscillation builds an oscillation strategy. Parameters (with
// defaults): rsi_period 6, rsi_oversold 30, rsi_overbought 70,
// bb_period 10, bb_dev 2.0, kdj_period 9, kdj_smooth 3, stop_loss 0.20,
// quick_profit 0.05, target_profit 0.10, max_hold_bars 10.
func NewOscillation(cfg Config) (Strategy, error) {
	s := &Oscillation{
		rsiPeriod:     cfg.IntParam("rsi_period", 6),
		rsiOversold:   cfg.Param("rsi_oversold", 30),
		rsiOverbought: cfg.Param("rsi_overbought", 70),
		bbPeriod:      cfg.IntParam("bb_period", 10),
		bbDev:         cfg.Param("bb_dev", 2.0),
		kdjPeriod:     cfg.IntParam("kdj_period", 9),
		kdjSmooth:     cfg.IntParam("kdj_smooth", 3),
		volumePeriod:  5,
		stopLoss:      cfg.Param("stop_loss", 0.20),
		quickProfit:   cfg.Param("quick_profit", 0.05),
		targetProfit:  cfg.Param("target_profit", 0.10),
		maxHoldBars:   cfg.IntParam("max_hold_bars", 10),
	}
	if s.rsiPeriod <= 0 || s.bbPeriod <= 0 || s.kdjPeriod <= 0 || s.kdjSmooth <= 0 {
		return nil, fmt.Errorf("oscillation: periods must be positive")
	}
	if s.rsiOversold >= s.rsiOverbought {
		return nil, fmt.Errorf("oscillation: rsi_oversold (%.1f) must be below rsi_overbought (%.1f)", s.rsiOversold, s.rsiOverbought)
	}
	if s.stopLoss <= 0 || s.quickProfit <= 0 || s.targetProfit < s.quickProfit {
		return nil, fmt.Errorf("oscillation: stop_loss and quick_profit must be positive, target_profit at least quick_profit")
	}
	if s.maxHoldBars <= 0 {
		return nil, fmt.Errorf("oscillation: max_hold_bars must be positive, got %d", s.maxHoldBars)
	}
	s.name = fmt.Sprintf("oscillation(rsi%d,bb%d,kdj%d)", s.rsiPeriod, s.bbPeriod, s.kdjPeriod)
	return s, nil
}

func (s *Oscillation) GetName() string { return s.name }

func (s *Oscillation) WarmupBars() int {
	warmup := s.rsiPeriod + 1
	if s.bbPeriod > warmup {
		warmup = s.bbPeriod
	}
	if kdj := s.kdjPeriod + 2*s.kdjSmooth; kdj > warmup {
		warmup = kdj
	}
	if s.volumePeriod > warmup {
		warmup = s.volumePeriod
	}
	return warmup + 1
}

func (s *Oscillation) Reset() {
	s.held = false
	s.entryPrice = 0
	s.barsHeld = 0
}

func (s *Oscillation) Evaluate(bars []types.Bar) (*Decision, error) {
	if len(bars) < s.WarmupBars() {
		return holdDecision(lastDate(bars), "warming up"), nil
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	cur := len(bars) - 1
	bar := bars[cur]

	rsi := indicators.RSISeries(closes, s.rsiPeriod)
	_, upper, lower := indicators.BollingerSeries(closes, s.bbPeriod, s.bbDev)
	k, d := indicators.KDJSeries(bars, s.kdjPeriod, s.kdjSmooth, s.kdjSmooth)

	if !s.held {
		goldenCross := k[cur] > d[cur] && k[cur-1] <= d[cur-1]
		volumeHigh := bar.Volume > volumeAverage(bars, s.volumePeriod)

		if rsi[cur] < s.rsiOversold && bar.Close <= lower[cur] && goldenCross && volumeHigh {
			s.held = true
			s.entryPrice = bar.Close
			s.barsHeld = 0
			reason := fmt.Sprintf("oversold dip (rsi %.1f, close at lower band)", rsi[cur])
			return &Decision{Action: ActionBuy, Reason: reason, Timestamp: bar.Date}, nil
		}
		return holdDecision(bar.Date, "no entry signal"), nil
	}

	s.barsHeld++
	profit := bar.Close/s.entryPrice - 1

	reason := ""
	switch {
	case profit <= -s.stopLoss:
		reason = fmt.Sprintf("stop loss (%.2f%%)", profit*100)
	case profit >= s.targetProfit:
		reason = fmt.Sprintf("target profit (%.2f%%)", profit*100)
	case profit >= s.quickProfit && rsi[cur] > 40:
		reason = fmt.Sprintf("quick profit (%.2f%%)", profit*100)
	case rsi[cur] > s.rsiOverbought && bar.Close >= upper[cur]:
		reason = fmt.Sprintf("overbought (rsi %.1f, close at upper band)", rsi[cur])
	case s.barsHeld >= s.maxHoldBars:
		reason = fmt.Sprintf("held %d bars", s.barsHeld)
	}
	if reason != "" {
		s.held = false
		s.entryPrice = 0
		s.barsHeld = 0
		return &Decision{Action: ActionSell, Reason: reason, Timestamp: bar.Date}, nil
	}
	return holdDecision(bar.Date, "holding"), nil
}

func volumeAverage(bars []types.Bar, period int) float64 {
	from := len(bars) - 1 - period
	if from < 0 {
		from = 0
	}
	window := bars[from : len(bars)-1]
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range window {
		sum += b.Volume
	}
	return sum / float64(len(window))
}
