package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

func barsFromCloses(closes []float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = types.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 10000,
		}
	}
	return bars
}

func TestRegistry_Build(t *testing.T) {
	s, err := Build(Config{Name: "ma_crossover"})
	require.NoError(t, err)
	assert.Equal(t, "ma_crossover(5,20)", s.GetName())

	_, err = Build(Config{Name: "nonexistent"})
	assert.Error(t, err)
}

func TestRegistry_Available(t *testing.T) {
	assert.Equal(t, []string{"ma_crossover", "macd", "oscillation"}, Available())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{Name: "macd"}.Validate())
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{
		Name:   "ma_crossover",
		Params: map[string]float64{"fast_period": 20, "slow_period": 5},
	}.Validate())
}

func TestMACrossover_GoldenCross(t *testing.T) {
	s, err := Build(Config{
		Name:   "ma_crossover",
		Params: map[string]float64{"fast_period": 2, "slow_period": 4},
	})
	require.NoError(t, err)

	// Flat then a sharp rally: fast MA overtakes slow MA on the last bar.
	closes := []float64{10, 10, 10, 10, 10, 9, 8, 12}
	bars := barsFromCloses(closes)

	d, err := s.Evaluate(bars)
	require.NoError(t, err)
	assert.Equal(t, ActionBuy, d.Action)
	assert.Equal(t, bars[len(bars)-1].Date, d.Timestamp)
}

func TestMACrossover_DeathCross(t *testing.T) {
	s, err := Build(Config{
		Name:   "ma_crossover",
		Params: map[string]float64{"fast_period": 2, "slow_period": 4},
	})
	require.NoError(t, err)

	closes := []float64{10, 10, 10, 10, 10, 11, 12, 8}
	d, err := s.Evaluate(barsFromCloses(closes))
	require.NoError(t, err)
	assert.Equal(t, ActionSell, d.Action)
}

func TestMACrossover_HoldsDuringWarmup(t *testing.T) {
	s, err := Build(Config{Name: "ma_crossover"})
	require.NoError(t, err)

	d, err := s.Evaluate(barsFromCloses([]float64{10, 11, 12}))
	require.NoError(t, err)
	assert.Equal(t, ActionHold, d.Action)
}

func TestMACrossover_RejectsBadPeriods(t *testing.T) {
	_, err := Build(Config{
		Name:   "ma_crossover",
		Params: map[string]float64{"fast_period": 10, "slow_period": 10},
	})
	assert.Error(t, err)

	_, err = Build(Config{
		Name:   "ma_crossover",
		Params: map[string]float64{"fast_period": -1},
	})
	assert.Error(t, err)
}

func TestMACD_SignalsOnTrendReversal(t *testing.T) {
	s, err := Build(Config{
		Name:   "macd",
		Params: map[string]float64{"fast_period": 3, "slow_period": 6, "signal_period": 3},
	})
	require.NoError(t, err)

	// Long decline then a strong recovery produces a DIF/DEA buy cross
	// somewhere in the rising leg.
	closes := make([]float64, 0, 40)
	price := 100.0
	for i := 0; i < 20; i++ {
		price *= 0.99
		closes = append(closes, price)
	}
	for i := 0; i < 20; i++ {
		price *= 1.03
		closes = append(closes, price)
	}
	bars := barsFromCloses(closes)

	sawBuy := false
	for i := s.WarmupBars(); i <= len(bars); i++ {
		d, err := s.Evaluate(bars[:i])
		require.NoError(t, err)
		if d.Action == ActionBuy {
			sawBuy = true
			break
		}
	}
	assert.True(t, sawBuy, "expected a buy signal during the recovery")
}

func TestMACD_HoldsDuringWarmup(t *testing.T) {
	s, err := Build(Config{Name: "macd"})
	require.NoError(t, err)

	d, err := s.Evaluate(barsFromCloses([]float64{10, 11}))
	require.NoError(t, err)
	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, "warming up", d.Reason)
}
