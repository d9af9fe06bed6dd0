package data

import (
	"errors"
	"fmt"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// ErrMalformedPayload marks payloads rejected by validation. Retrying the
// fetch will not help, so the retry loop stops on it.
var ErrMalformedPayload = errors.New("malformed payload")

func isValidationError(err error) bool {
	return errors.Is(err, ErrMalformedPayload)
}

// ValidateBars rejects payloads that must never enter the cache: empty
// series, non-positive prices, bars whose high/low envelope is inconsistent,
// and non-increasing dates.
func ValidateBars(bars []types.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: empty series", ErrMalformedPayload)
	}
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("%w: non-positive price at row %d (%s)", ErrMalformedPayload, i, b.Date.Format(DateFormat))
		}
		if b.High < b.Open || b.High < b.Close || b.High < b.Low {
			return fmt.Errorf("%w: high below open/close/low at row %d", ErrMalformedPayload, i)
		}
		if b.Low > b.Open || b.Low > b.Close {
			return fmt.Errorf("%w: low above open/close at row %d", ErrMalformedPayload, i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("%w: negative volume at row %d", ErrMalformedPayload, i)
		}
		if i > 0 && !bars[i-1].Date.Before(b.Date) {
			return fmt.Errorf("%w: non-monotonic dates at row %d", ErrMalformedPayload, i)
		}
	}
	return nil
}
