package indicators

// EMASeries computes the exponential moving average for every index of
// closes. Entries before period-1 are seeded with a simple average warmup so
// the curve is defined everywhere the input is.
func EMASeries(closes []float64, period int) []float64 {
	if len(closes) == 0 || period <= 0 {
		return nil
	}
	out := make([]float64, len(closes))
	k := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i, c := range closes {
		if i < period {
			sum += c
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = c*k + out[i-1]*(1-k)
	}
	return out
}
