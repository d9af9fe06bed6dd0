package backtest

import (
	"fmt"

	backtesterrors "github.com/junwei-lu/ashare-backtest/internal/errors"
	"github.com/junwei-lu/ashare-backtest/internal/strategy"
	"github.com/junwei-lu/ashare-backtest/pkg/config"
	"github.com/junwei-lu/ashare-backtest/pkg/types"
)

// RunSimulation builds the strategy, runs it over the bars and converts
// any panic into an error so one misbehaving run cannot take down the
// batch.
func RunSimulation(params config.EngineParams, cfg strategy.Config, symbol string, bars []types.Bar) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = backtesterrors.New(
				backtesterrors.KindSimulation,
				"runner",
				fmt.Sprintf("simulation panicked: %v", r),
			).WithLabel(symbol)
		}
	}()

	// A bad strategy config fails this run only, never the batch.
	strat, err := strategy.Build(cfg)
	if err != nil {
		return nil, backtesterrors.Wrap(err, backtesterrors.KindSimulation, "runner", "invalid strategy config").WithLabel(symbol)
	}

	res, err := NewEngine(params, strat).Run(symbol, bars)
	if err != nil {
		return nil, backtesterrors.Wrap(err, backtesterrors.KindSimulation, "runner", "simulation failed").WithLabel(symbol)
	}
	return res, nil
}
