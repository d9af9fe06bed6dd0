package indicators

// RSISeries computes the Relative Strength Index for every index of
// closes using Wilder smoothing. Entries before the first full period
// are reported as the neutral 50 so the series is defined everywhere.
func RSISeries(closes []float64, period int) []float64 {
	if len(closes) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(closes))
	for i := 0; i < len(out) && i < period; i++ {
		out[i] = 50
	}
	if len(closes) <= period {
		return out
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
