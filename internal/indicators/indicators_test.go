package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

func barsWithRange(closes []float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = types.Bar{
			Date:  day.AddDate(0, 0, i),
			Open:  c,
			High:  c + 0.5,
			Low:   c - 0.5,
			Close: c,
		}
	}
	return bars
}

func TestSMA_Value(t *testing.T) {
	sma := NewSMA(3)

	closes := []float64{10, 11, 12, 13, 14}
	v, err := sma.Value(closes)
	require.NoError(t, err)
	assert.InDelta(t, 13.0, v, 1e-9) // (12+13+14)/3
}

func TestSMA_InsufficientData(t *testing.T) {
	sma := NewSMA(5)

	_, err := sma.Value([]float64{10, 11})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEMASeries_WarmupMatchesSimpleAverage(t *testing.T) {
	closes := []float64{2, 4, 6, 8, 10, 12}
	ema := EMASeries(closes, 3)
	require.Len(t, ema, len(closes))

	// During warmup the series is a plain running average.
	assert.InDelta(t, 2.0, ema[0], 1e-9)
	assert.InDelta(t, 3.0, ema[1], 1e-9)
	assert.InDelta(t, 4.0, ema[2], 1e-9)

	// After warmup the smoothing kicks in: k = 2/(3+1) = 0.5.
	assert.InDelta(t, 0.5*8+0.5*4.0, ema[3], 1e-9)
}

func TestEMASeries_ConstantInput(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100
	}
	ema := EMASeries(closes, 12)
	for i, v := range ema {
		assert.InDelta(t, 100.0, v, 1e-9, "index %d", i)
	}
}

func TestMACD_Series(t *testing.T) {
	closes := make([]float64, 120)
	price := 100.0
	for i := range closes {
		// Gentle uptrend keeps DIF positive once warmed up.
		price *= 1.002
		closes[i] = price
	}

	macd := NewMACD(12, 26, 9)
	dif, dea, hist := macd.Series(closes)
	require.Len(t, dif, len(closes))
	require.Len(t, dea, len(closes))
	require.Len(t, hist, len(closes))

	for i := range closes {
		assert.InDelta(t, dif[i]-dea[i], hist[i], 1e-9, "index %d", i)
	}

	// In a steady uptrend the fast EMA sits above the slow EMA.
	last := len(closes) - 1
	assert.Greater(t, dif[last], 0.0)
}

func TestMACD_EmptyInput(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	dif, dea, hist := macd.Series(nil)
	assert.Nil(t, dif)
	assert.Nil(t, dea)
	assert.Nil(t, hist)
}

func TestRSISeries_ExtremesAndWarmup(t *testing.T) {
	closes := []float64{10, 11, 12, 13, 14, 15}
	rsi := RSISeries(closes, 3)
	require.Len(t, rsi, len(closes))

	// Warmup entries are neutral.
	assert.InDelta(t, 50.0, rsi[0], 1e-9)
	assert.InDelta(t, 50.0, rsi[2], 1e-9)

	// All gains, no losses.
	assert.InDelta(t, 100.0, rsi[5], 1e-9)

	declining := []float64{15, 14, 13, 12, 11, 10}
	rsi = RSISeries(declining, 3)
	assert.InDelta(t, 0.0, rsi[5], 1e-9)
}

func TestRSISeries_WilderSmoothing(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 12}
	rsi := RSISeries(closes, 2)

	// Seed averages over the first two changes: gain (2+0)/2=1,
	// loss (0+1)/2=0.5; then Wilder updates with the +2 change:
	// gain (1+2)/2=1.5, loss 0.5/2=0.25 -> RSI 100*1.5/1.75.
	assert.InDelta(t, 100*1.0/1.5, rsi[2], 1e-9)
	assert.InDelta(t, 100*1.5/1.75, rsi[3], 1e-9)
}

func TestRSISeries_FlatInputIsNeutral(t *testing.T) {
	closes := []float64{5, 5, 5, 5, 5, 5}
	rsi := RSISeries(closes, 3)
	for i, v := range rsi {
		assert.InDelta(t, 50.0, v, 1e-9, "index %d", i)
	}
}

func TestBollingerSeries_Bands(t *testing.T) {
	closes := []float64{10, 12, 14, 12, 10}
	middle, upper, lower := BollingerSeries(closes, 5, 2)
	require.Len(t, middle, len(closes))

	// Full window: mean 11.6, population variance 2.24.
	last := len(closes) - 1
	assert.InDelta(t, 11.6, middle[last], 1e-9)
	sd := upper[last] - middle[last]
	assert.InDelta(t, 2*1.4966629547, sd, 1e-6)
	assert.InDelta(t, middle[last]-sd, lower[last], 1e-9)
}

func TestBollingerSeries_ConstantInputCollapses(t *testing.T) {
	closes := []float64{7, 7, 7, 7}
	middle, upper, lower := BollingerSeries(closes, 3, 2)
	for i := range closes {
		assert.InDelta(t, 7.0, middle[i], 1e-9)
		assert.InDelta(t, 7.0, upper[i], 1e-9)
		assert.InDelta(t, 7.0, lower[i], 1e-9)
	}
}

func TestKDJSeries_TracksClosePosition(t *testing.T) {
	bars := barsWithRange([]float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19})
	k, d := KDJSeries(bars, 3, 1, 1)
	require.Len(t, k, len(bars))

	// Unsmoothed, each close sits at the top of its trailing range:
	// raw = (close - low) / (high - low) with a half-point band around
	// each close, so for a +1/bar trend: (c - (c-2.5)) / ((c+0.5) - (c-2.5)).
	last := len(bars) - 1
	assert.InDelta(t, 2.5/3.0*100, k[last], 1e-9)
	assert.InDelta(t, k[last], d[last], 1e-9)
}

func TestKDJSeries_FlatRangeIsNeutral(t *testing.T) {
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 20
	}
	k, d := KDJSeries(barsWithRange(closes), 9, 3, 3)
	for i := range closes {
		assert.InDelta(t, 50.0, k[i], 1e-9, "index %d", i)
		assert.InDelta(t, 50.0, d[i], 1e-9, "index %d", i)
	}
}
