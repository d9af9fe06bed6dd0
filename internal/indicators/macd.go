package indicators

// MACD computes the Moving Average Convergence Divergence lines: DIF (fast
// EMA minus slow EMA), DEA (EMA of DIF) and the histogram.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a MACD instance with the given fast, slow and signal
// periods. The conventional setup is (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{fastPeriod: fast, slowPeriod: slow, signalPeriod: signal}
}

// Series computes DIF, DEA and histogram values for every index of closes.
func (m *MACD) Series(closes []float64) (dif, dea, hist []float64) {
	if len(closes) == 0 {
		return nil, nil, nil
	}
	fast := EMASeries(closes, m.fastPeriod)
	slow := EMASeries(closes, m.slowPeriod)

	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea = EMASeries(dif, m.signalPeriod)

	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = dif[i] - dea[i]
	}
	return dif, dea, hist
}

// WarmupBars is the number of bars before MACD signals are meaningful.
func (m *MACD) WarmupBars() int {
	return m.slowPeriod + m.signalPeriod
}
