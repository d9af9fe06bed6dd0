package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/junwei-lu/ashare-backtest/internal/backtest"
)

// ConsoleReporter renders batch results as terminal tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a console reporter. out defaults to stdout.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

// PrintRanking renders the ranked outcomes as a table, best first.
func (r *ConsoleReporter) PrintRanking(ranked []backtest.Outcome, metric string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("RANKING BY %s", metric))
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"#", "Symbol", "Strategy", "Return %", "Sharpe", "Max DD %", "Win %", "Trades"})
	for rank, o := range ranked {
		m := o.Result.Metrics
		t.AppendRow(table.Row{
			rank + 1,
			o.Result.Symbol,
			o.Result.StrategyName,
			fmt.Sprintf("%.2f", m.TotalReturnPct),
			fmt.Sprintf("%.2f", m.SharpeRatio),
			fmt.Sprintf("%.2f", m.MaxDrawdownPct),
			fmt.Sprintf("%.1f", m.WinRatePct),
			m.NumTrades,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
}

// PrintSummary renders batch totals and any failed tasks.
func (r *ConsoleReporter) PrintSummary(report *backtest.BatchReport) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("BATCH SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Tasks", len(report.Outcomes)},
		{"Succeeded", report.SuccessCount()},
		{"Failed", report.FailureCount()},
		{"Elapsed", report.Elapsed.Round(time.Millisecond).String()},
	})
	t.Render()

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(r.out)
	ft.SetTitle("FAILED TASKS")
	ft.SetStyle(table.StyleRounded)
	ft.AppendHeader(table.Row{"#", "Task", "Error"})
	for _, o := range failures {
		ft.AppendRow(table.Row{o.Index, o.Task.Label(), o.Err.Error()})
	}
	ft.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 70},
	})
	ft.Render()
}
