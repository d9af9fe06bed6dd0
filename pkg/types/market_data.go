package types

import "time"

// Bar is one daily candle of a historical price series.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Adjust identifies the price adjustment mode of a series.
type Adjust string

const (
	AdjustNone     Adjust = ""    // raw prices
	AdjustForward  Adjust = "qfq" // forward adjusted, recommended for backtests
	AdjustBackward Adjust = "hfq" // backward adjusted
)

func (a Adjust) Valid() bool {
	switch a {
	case AdjustNone, AdjustForward, AdjustBackward:
		return true
	}
	return false
}
