package strategy

import (
	"fmt"
	"sort"
)

// Factory builds a strategy instance from its config.
type Factory func(cfg Config) (Strategy, error)

var registry = map[string]Factory{
	"ma_crossover": NewMACrossover,
	"macd":         NewMACDStrategy,
	"oscillation":  NewOscillation,
}

// Register adds a strategy factory under name, replacing any previous
// registration.
func Register(name string, factory Factory) {
	registry[name] = factory
}

// Build constructs the strategy named by cfg using the registered factory.
func Build(cfg Config) (Strategy, error) {
	factory, ok := registry[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", cfg.Name, Available())
	}
	return factory(cfg)
}

// Available lists the registered strategy names in sorted order.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
