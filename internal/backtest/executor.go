package backtest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	backtesterrors "github.com/junwei-lu/ashare-backtest/internal/errors"
	"github.com/junwei-lu/ashare-backtest/internal/monitoring"
	"github.com/junwei-lu/ashare-backtest/internal/strategy"
	"github.com/junwei-lu/ashare-backtest/pkg/config"
	"github.com/junwei-lu/ashare-backtest/pkg/data"
)

// Task pairs a series to fetch with a strategy to run over it.
type Task struct {
	Key      data.SeriesKey
	Strategy strategy.Config
}

// Label identifies the task in logs and reports.
func (t Task) Label() string {
	return fmt.Sprintf("%s/%s", t.Key.Symbol, t.Strategy.Name)
}

// Outcome is the per-task result slot. Result is nil when Err is set.
type Outcome struct {
	Index    int
	Task     Task
	Result   *Result
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the task produced a result.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Executor runs a batch of tasks over a shared series cache with
// bounded parallelism.
type Executor struct {
	cache        *data.Cache
	params       config.EngineParams
	parallelism  int
	forceRefresh bool
	logger       *log.Logger
}

// NewExecutor creates a batch executor. Parallelism below 1 falls back
// to the default.
func NewExecutor(cache *data.Cache, cfg config.BatchConfig, logger *log.Logger) *Executor {
	parallelism := cfg.MaxParallelism
	if parallelism < 1 {
		parallelism = config.DefaultMaxParallelism
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		cache:        cache,
		params:       cfg.Engine,
		parallelism:  parallelism,
		forceRefresh: cfg.ForceRefresh,
		logger:       logger,
	}
}

// RunBatch runs the tasks on a fixed pool of workers. The report always
// holds one outcome per task, in submission order; an empty batch gives
// an empty report. Invalid engine params reject the whole batch before
// any work starts, while a broken individual task only fails its own
// slot. Cancelling ctx lets in-flight tasks finish and marks the rest
// as failed.
func (e *Executor) RunBatch(ctx context.Context, tasks []Task) (*BatchReport, error) {
	if err := e.params.Validate(); err != nil {
		return nil, backtesterrors.Wrap(err, backtesterrors.KindConfiguration, "executor", "invalid engine params")
	}
	if len(tasks) == 0 {
		return NewBatchReport(nil, 0), nil
	}

	started := time.Now()
	e.logger.Printf("batch: %d tasks on %d workers", len(tasks), e.parallelism)

	outcomes := make([]Outcome, len(tasks))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < e.parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = e.runTask(ctx, idx, tasks[idx])
				monitoring.RecordSimulation(outcomes[idx].Succeeded())
			}
		}()
	}

	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(started)
	monitoring.RecordBatch(len(tasks), elapsed.Seconds())

	report := NewBatchReport(outcomes, elapsed)
	e.logger.Printf("batch: done in %s (%d ok, %d failed)", elapsed.Round(time.Millisecond),
		report.SuccessCount(), report.FailureCount())
	return report, nil
}

// runTask fetches the series and runs one simulation. Once ctx is
// cancelled tasks that have not started fail fast.
func (e *Executor) runTask(ctx context.Context, idx int, task Task) Outcome {
	started := time.Now()
	outcome := Outcome{Index: idx, Task: task}

	if err := ctx.Err(); err != nil {
		outcome.Err = backtesterrors.Wrap(err, backtesterrors.KindSimulation, "executor", "batch cancelled").
			WithLabel(task.Label())
		return outcome
	}

	bars, err := e.cache.Resolve(ctx, task.Key, e.forceRefresh)
	if err != nil {
		e.logger.Printf("batch: %s: data fetch failed: %v", task.Label(), err)
		outcome.Err = err
		outcome.Duration = time.Since(started)
		return outcome
	}

	result, err := RunSimulation(e.params, task.Strategy, task.Key.Symbol, bars)
	if err != nil {
		e.logger.Printf("batch: %s: %v", task.Label(), err)
		outcome.Err = err
	} else {
		outcome.Result = result
	}
	outcome.Duration = time.Since(started)
	return outcome
}
