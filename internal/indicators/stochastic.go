package indicators

import "github.com/junwei-lu/ashare-backtest/pkg/types"

// KDJSeries computes the smoothed stochastic K and D lines over bars.
// The raw value compares each close with the high/low range of the
// trailing period window; K smooths it over kSmooth bars and D smooths
// K over dSmooth bars. A flat range reports the neutral 50.
func KDJSeries(bars []types.Bar, period, kSmooth, dSmooth int) (k, d []float64) {
	if len(bars) == 0 || period <= 0 {
		return nil, nil
	}

	raw := make([]float64, len(bars))
	for i := range bars {
		from := i - period + 1
		if from < 0 {
			from = 0
		}
		high := bars[from].High
		low := bars[from].Low
		for _, b := range bars[from+1 : i+1] {
			if b.High > high {
				high = b.High
			}
			if b.Low < low {
				low = b.Low
			}
		}
		if high == low {
			raw[i] = 50
			continue
		}
		raw[i] = (bars[i].Close - low) / (high - low) * 100
	}

	k = smooth(raw, kSmooth)
	d = smooth(k, dSmooth)
	return k, d
}

// smooth is a trailing simple average with a running-average warmup.
func smooth(values []float64, period int) []float64 {
	if period <= 1 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i < period {
			out[i] = sum / float64(i+1)
			continue
		}
		sum -= values[i-period]
		out[i] = sum / float64(period)
	}
	return out
}
