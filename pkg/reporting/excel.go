package reporting

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/junwei-lu/ashare-backtest/internal/backtest"
)

// ExcelStyles holds the style IDs shared across sheets.
type ExcelStyles struct {
	Header   int
	Positive int
	Negative int
}

// WriteSummaryXLSX writes the ranked outcomes to a styled workbook with
// a summary sheet plus one trades sheet per outcome.
func WriteSummaryXLSX(ranked []backtest.Outcome, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Summary"
	fx.SetSheetName(fx.GetSheetName(0), summarySheet)

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := writeSummarySheet(fx, summarySheet, ranked, styles); err != nil {
		return err
	}
	for i, o := range ranked {
		sheet := fmt.Sprintf("T%d %s", i+1, o.Result.Symbol)
		if _, err := fx.NewSheet(sheet); err != nil {
			return err
		}
		if err := writeTradesSheet(fx, sheet, o.Result, styles); err != nil {
			return err
		}
	}

	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.Header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F5496"}, Pattern: 1},
	})
	if err != nil {
		return styles, err
	}

	styles.Positive, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "006100"},
	})
	if err != nil {
		return styles, err
	}

	styles.Negative, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
	})
	return styles, err
}

func writeSummarySheet(fx *excelize.File, sheet string, ranked []backtest.Outcome, styles ExcelStyles) error {
	headers := []any{"Rank", "Symbol", "Strategy", "Initial", "Final", "Return %", "Trades", "Win %", "Max DD %", "Sharpe"}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, styles.Header); err != nil {
		return err
	}

	for i, o := range ranked {
		m := o.Result.Metrics
		row := []any{
			i + 1, o.Result.Symbol, o.Result.StrategyName,
			m.InitialCapital, m.FinalCapital, m.TotalReturnPct,
			m.NumTrades, m.WinRatePct, m.MaxDrawdownPct, m.SharpeRatio,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		retCell := fmt.Sprintf("F%d", i+2)
		style := styles.Positive
		if m.TotalReturnPct < 0 {
			style = styles.Negative
		}
		if err := fx.SetCellStyle(sheet, retCell, retCell, style); err != nil {
			return err
		}
	}
	return nil
}

func writeTradesSheet(fx *excelize.File, sheet string, result *backtest.Result, styles ExcelStyles) error {
	headers := []any{"Entry Date", "Exit Date", "Entry", "Exit", "Qty", "Fees", "PnL"}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, styles.Header); err != nil {
		return err
	}

	for i, t := range result.Trades {
		row := []any{
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			t.EntryPrice, t.ExitPrice, t.Quantity, t.Fees, t.PnL,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		pnlCell := fmt.Sprintf("G%d", i+2)
		style := styles.Positive
		if t.PnL < 0 {
			style = styles.Negative
		}
		if err := fx.SetCellStyle(sheet, pnlCell, pnlCell, style); err != nil {
			return err
		}
	}
	return nil
}
