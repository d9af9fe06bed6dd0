package indicators

import "math"

// BollingerSeries computes the middle, upper and lower Bollinger bands
// for every index of closes. The middle band is an SMA over period; the
// outer bands sit dev standard deviations away. Early entries use the
// bars available so far.
func BollingerSeries(closes []float64, period int, dev float64) (middle, upper, lower []float64) {
	if len(closes) == 0 || period <= 0 {
		return nil, nil, nil
	}
	middle = make([]float64, len(closes))
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))

	for i := range closes {
		from := i - period + 1
		if from < 0 {
			from = 0
		}
		window := closes[from : i+1]

		mean := 0.0
		for _, c := range window {
			mean += c
		}
		mean /= float64(len(window))

		variance := 0.0
		for _, c := range window {
			d := c - mean
			variance += d * d
		}
		variance /= float64(len(window))
		sd := math.Sqrt(variance)

		middle[i] = mean
		upper[i] = mean + dev*sd
		lower[i] = mean - dev*sd
	}
	return middle, upper, lower
}
