package strategy

import (
	"fmt"
	"time"

	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// Strategy defines the interface for trading strategies
type Strategy interface {
	// Evaluate analyzes the bar window ending at the current bar and
	// returns a trading decision for that bar
	Evaluate(bars []types.Bar) (*Decision, error)

	// GetName returns the name of the strategy
	GetName() string

	// WarmupBars returns the minimum number of bars the strategy needs
	// before its signals are meaningful
	WarmupBars() int

	// Reset clears all strategy state so the same instance can be
	// reused on a fresh series
	Reset()
}

// Decision represents a trading decision made by a strategy
type Decision struct {
	Action    Action
	Reason    string
	Timestamp time.Time
}

// Action represents the type of trading action
type Action int

const (
	ActionHold Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Config describes a strategy instance to construct: a registered name
// plus its numeric parameters.
type Config struct {
	Name   string
	Params map[string]float64
}

// Param reads a parameter with a fallback default.
func (c Config) Param(key string, def float64) float64 {
	if v, ok := c.Params[key]; ok {
		return v
	}
	return def
}

// IntParam reads a parameter as an integer with a fallback default.
func (c Config) IntParam(key string, def int) int {
	if v, ok := c.Params[key]; ok {
		return int(v)
	}
	return def
}

// Validate checks that the config names a registered strategy and that
// its parameters construct a valid instance.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("strategy name is required")
	}
	if _, err := Build(c); err != nil {
		return err
	}
	return nil
}

func holdDecision(ts time.Time, reason string) *Decision {
	return &Decision{Action: ActionHold, Reason: reason, Timestamp: ts}
}
