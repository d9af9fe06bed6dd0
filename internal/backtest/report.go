package backtest

import (
	"fmt"
	"sort"
	"time"
)

// Ranking metrics.
const (
	MetricTotalReturn = "total_return_pct"
	MetricSharpe      = "sharpe_ratio"
	MetricMaxDrawdown = "max_drawdown_pct"
)

// RankMetrics lists the metrics Rank accepts.
func RankMetrics() []string {
	return []string{MetricTotalReturn, MetricSharpe, MetricMaxDrawdown}
}

// BatchReport holds every task outcome of one batch run, in submission
// order.
type BatchReport struct {
	Outcomes []Outcome
	Elapsed  time.Duration
}

// NewBatchReport wraps the outcome slots of a finished batch.
func NewBatchReport(outcomes []Outcome, elapsed time.Duration) *BatchReport {
	return &BatchReport{Outcomes: outcomes, Elapsed: elapsed}
}

// SuccessCount returns the number of tasks that produced a result.
func (r *BatchReport) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed tasks.
func (r *BatchReport) FailureCount() int {
	return len(r.Outcomes) - r.SuccessCount()
}

// Successes returns the successful outcomes in submission order.
func (r *BatchReport) Successes() []Outcome {
	out := make([]Outcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Failures returns the failed outcomes in submission order.
func (r *BatchReport) Failures() []Outcome {
	out := make([]Outcome, 0)
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}

// Rank orders the successful outcomes by metric. Return and Sharpe rank
// higher values first; drawdown ranks smaller magnitudes first. Ties
// keep submission order.
func (r *BatchReport) Rank(metric string) ([]Outcome, error) {
	ranked := r.Successes()
	var better func(a, b MetricsRecord) bool
	switch metric {
	case MetricTotalReturn:
		better = func(a, b MetricsRecord) bool { return a.TotalReturnPct > b.TotalReturnPct }
	case MetricSharpe:
		better = func(a, b MetricsRecord) bool { return a.SharpeRatio > b.SharpeRatio }
	case MetricMaxDrawdown:
		better = func(a, b MetricsRecord) bool { return a.MaxDrawdownPct < b.MaxDrawdownPct }
	default:
		return nil, fmt.Errorf("unknown ranking metric %q (available: %v)", metric, RankMetrics())
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return better(ranked[i].Result.Metrics, ranked[j].Result.Metrics)
	})
	return ranked, nil
}

// Best returns the top-ranked outcome, or nil when nothing succeeded.
func (r *BatchReport) Best(metric string) (*Outcome, error) {
	ranked, err := r.Rank(metric)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}
	best := ranked[0]
	return &best, nil
}
