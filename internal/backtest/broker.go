package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/junwei-lu/ashare-backtest/pkg/config"
)

// Trade records one completed round trip: an entry and its matching exit.
type Trade struct {
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   int
	Fees       float64
	PnL        float64
}

// Broker tracks cash and the open position and enforces the exchange
// rules that apply to each order: board lots, same-day sell restriction,
// the daily price-limit band and the fee schedule.
type Broker struct {
	params config.EngineParams

	cash       float64
	position   int
	avgEntry   float64
	entryDate  time.Time
	entryFees  float64
	lastBuyDay time.Time

	trades []Trade
}

// NewBroker creates a broker funded with the configured initial capital.
func NewBroker(params config.EngineParams) *Broker {
	return &Broker{
		params: params,
		cash:   params.InitialCapital,
	}
}

// Cash returns the current free cash.
func (b *Broker) Cash() float64 { return b.cash }

// Position returns the current share count.
func (b *Broker) Position() int { return b.position }

// Trades returns the completed round trips.
func (b *Broker) Trades() []Trade { return b.trades }

// Equity marks the portfolio to market at the given price.
func (b *Broker) Equity(price float64) float64 {
	return b.cash + float64(b.position)*price
}

// buyFees computes commission plus transfer fee for a buy of the given value.
func (b *Broker) buyFees(value float64) float64 {
	commission := math.Max(value*b.params.CommissionRate, b.params.MinCommission)
	return commission + value*b.params.TransferFeeRate
}

// sellFees adds stamp duty on top of commission and transfer fee.
func (b *Broker) sellFees(value float64) float64 {
	return b.buyFees(value) + value*b.params.StampDutyRate
}

// withinLimitBand reports whether price sits inside the allowed daily move
// band relative to the previous close. Orders outside the band do not fill.
func (b *Broker) withinLimitBand(price, prevClose float64) bool {
	if prevClose <= 0 {
		return true
	}
	move := math.Abs(price-prevClose) / prevClose
	return move <= b.params.PriceMoveLimitPct+1e-9
}

// Buy sizes a maximum whole-lot position at price and opens it. Returns
// false with a reason when the order cannot fill.
func (b *Broker) Buy(day time.Time, price, prevClose float64) (bool, string) {
	if b.position > 0 {
		return false, "position already open"
	}
	if !b.withinLimitBand(price, prevClose) {
		return false, "price outside limit band"
	}

	lot := b.params.MinLotSize
	// Largest lot multiple the cash covers including fees.
	qty := int(b.cash/(price*float64(lot))) * lot
	for qty >= lot {
		value := price * float64(qty)
		if value+b.buyFees(value) <= b.cash {
			break
		}
		qty -= lot
	}
	if qty < lot {
		return false, "insufficient cash for one lot"
	}

	value := price * float64(qty)
	fees := b.buyFees(value)
	b.cash -= value + fees
	b.position = qty
	b.avgEntry = price
	b.entryDate = day
	b.entryFees = fees
	b.lastBuyDay = day.Truncate(24 * time.Hour)
	return true, ""
}

// Sell closes the open position at price. Under the same-day rule shares
// bought today cannot be sold until the next session.
func (b *Broker) Sell(day time.Time, price, prevClose float64) (bool, string) {
	if b.position == 0 {
		return false, "no position"
	}
	if b.params.SameDaySellBlock && day.Truncate(24*time.Hour).Equal(b.lastBuyDay) {
		return false, "same-day sell blocked"
	}
	if !b.withinLimitBand(price, prevClose) {
		return false, "price outside limit band"
	}

	value := price * float64(b.position)
	fees := b.sellFees(value)
	b.cash += value - fees

	totalFees := b.entryFees + fees
	b.trades = append(b.trades, Trade{
		EntryDate:  b.entryDate,
		ExitDate:   day,
		EntryPrice: b.avgEntry,
		ExitPrice:  price,
		Quantity:   b.position,
		Fees:       totalFees,
		PnL:        (price-b.avgEntry)*float64(b.position) - totalFees,
	})

	b.position = 0
	b.avgEntry = 0
	b.entryFees = 0
	return true, ""
}

// String describes the broker state for logging.
func (b *Broker) String() string {
	return fmt.Sprintf("cash=%.2f position=%d", b.cash, b.position)
}
