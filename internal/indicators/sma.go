package indicators

import "errors"

// ErrInsufficientData is returned when a window is shorter than the
// indicator's period.
var ErrInsufficientData = errors.New("insufficient data for indicator calculation")

// SMA represents the Simple Moving Average technical indicator.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Value calculates the SMA over the last period closes.
func (s *SMA) Value(closes []float64) (float64, error) {
	if len(closes) < s.period || s.period <= 0 {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(closes) - s.period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(s.period), nil
}

// Period returns the minimum number of bars needed.
func (s *SMA) Period() int {
	return s.period
}
