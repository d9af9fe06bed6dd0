package data

import (
	"fmt"
	"strings"
	"time"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// DateFormat is the wire format for series date bounds.
const DateFormat = "2006-01-02"

// SeriesKey identifies one requested historical price series. It is a value
// type: two keys with equal fields are the same cache entry regardless of how
// they were constructed.
type SeriesKey struct {
	Symbol string
	Start  string // inclusive, DateFormat
	End    string // inclusive, DateFormat
	Adjust types.Adjust
}

// NewSeriesKey builds a key from time bounds.
func NewSeriesKey(symbol string, start, end time.Time, adjust types.Adjust) SeriesKey {
	return SeriesKey{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Start:  start.Format(DateFormat),
		End:    end.Format(DateFormat),
		Adjust: adjust,
	}
}

// ParseSeriesKey builds a key from DateFormat strings and validates it.
func ParseSeriesKey(symbol, start, end string, adjust types.Adjust) (SeriesKey, error) {
	k := SeriesKey{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Start:  strings.TrimSpace(start),
		End:    strings.TrimSpace(end),
		Adjust: adjust,
	}
	if err := k.Validate(); err != nil {
		return SeriesKey{}, err
	}
	return k, nil
}

// Encode returns the stable on-disk encoding of the key, used as the durable
// cache filename stem. The field order is fixed so equal keys always produce
// the same name.
func (k SeriesKey) Encode() string {
	adjust := string(k.Adjust)
	if adjust == "" {
		adjust = "none"
	}
	return fmt.Sprintf("%s_%s_%s_%s", k.Symbol, k.Start, k.End, adjust)
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s %s~%s adjust=%q", k.Symbol, k.Start, k.End, string(k.Adjust))
}

// Validate checks the key is well formed before it reaches the fetch path.
func (k SeriesKey) Validate() error {
	if k.Symbol == "" {
		return fmt.Errorf("series key: empty symbol")
	}
	start, err := time.Parse(DateFormat, k.Start)
	if err != nil {
		return fmt.Errorf("series key %s: bad start date %q", k.Symbol, k.Start)
	}
	end, err := time.Parse(DateFormat, k.End)
	if err != nil {
		return fmt.Errorf("series key %s: bad end date %q", k.Symbol, k.End)
	}
	if end.Before(start) {
		return fmt.Errorf("series key %s: end %s before start %s", k.Symbol, k.End, k.Start)
	}
	if !k.Adjust.Valid() {
		return fmt.Errorf("series key %s: unknown adjust mode %q", k.Symbol, string(k.Adjust))
	}
	return nil
}
