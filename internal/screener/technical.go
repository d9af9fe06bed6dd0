package screener

import (
	"fmt"

	"github.com/junwei-lu/ashare-backtest/internal/indicators"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// MAAlignment passes symbols whose short MA sits above the long MA, the
// classic bullish alignment signal.
type MAAlignment struct {
	short *indicators.SMA
	long  *indicators.SMA
}

// NewMAAlignment builds a bullish MA-alignment predicate.
func NewMAAlignment(shortPeriod, longPeriod int) *MAAlignment {
	return &MAAlignment{
		short: indicators.NewSMA(shortPeriod),
		long:  indicators.NewSMA(longPeriod),
	}
}

func (p *MAAlignment) GetName() string {
	return fmt.Sprintf("ma_alignment(%d,%d)", p.short.Period(), p.long.Period())
}

func (p *MAAlignment) Matches(bars []types.Bar) (bool, string) {
	closes := closesOf(bars)
	shortMA, err := p.short.Value(closes)
	if err != nil {
		return false, ""
	}
	longMA, err := p.long.Value(closes)
	if err != nil {
		return false, ""
	}
	if shortMA > longMA {
		return true, fmt.Sprintf("MA%d %.2f above MA%d %.2f", p.short.Period(), shortMA, p.long.Period(), longMA)
	}
	return false, ""
}

// PriceAboveMA passes symbols trading above their moving average.
type PriceAboveMA struct {
	ma *indicators.SMA
}

// NewPriceAboveMA builds a price-above-MA predicate.
func NewPriceAboveMA(period int) *PriceAboveMA {
	return &PriceAboveMA{ma: indicators.NewSMA(period)}
}

func (p *PriceAboveMA) GetName() string {
	return fmt.Sprintf("price_above_ma(%d)", p.ma.Period())
}

func (p *PriceAboveMA) Matches(bars []types.Bar) (bool, string) {
	if len(bars) == 0 {
		return false, ""
	}
	closes := closesOf(bars)
	ma, err := p.ma.Value(closes)
	if err != nil {
		return false, ""
	}
	last := closes[len(closes)-1]
	if last > ma {
		return true, fmt.Sprintf("close %.2f above MA%d %.2f", last, p.ma.Period(), ma)
	}
	return false, ""
}

// VolumeSurge passes symbols whose latest volume is at least ratio times
// the average volume of the preceding lookback bars.
type VolumeSurge struct {
	lookback int
	ratio    float64
}

// NewVolumeSurge builds a volume-surge predicate.
func NewVolumeSurge(lookback int, ratio float64) *VolumeSurge {
	return &VolumeSurge{lookback: lookback, ratio: ratio}
}

func (p *VolumeSurge) GetName() string {
	return fmt.Sprintf("volume_surge(%d,%.1fx)", p.lookback, p.ratio)
}

func (p *VolumeSurge) Matches(bars []types.Bar) (bool, string) {
	if len(bars) < p.lookback+1 {
		return false, ""
	}
	window := bars[len(bars)-1-p.lookback : len(bars)-1]
	avg := 0.0
	for _, b := range window {
		avg += b.Volume
	}
	avg /= float64(len(window))
	if avg <= 0 {
		return false, ""
	}
	last := bars[len(bars)-1].Volume
	if last >= avg*p.ratio {
		return true, fmt.Sprintf("volume %.0f is %.1fx the %d-bar average", last, last/avg, p.lookback)
	}
	return false, ""
}

func closesOf(bars []types.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
