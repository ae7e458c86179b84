// Package reporting renders order history and risk snapshots for
// humans: console tables for live operation, Excel workbooks for
// end-of-day review.
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantforge/riskpipe/internal/exchange"
	"github.com/quantforge/riskpipe/internal/risk"
)

// ConsoleReporter prints tables to an io.Writer (stdout by default).
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterWithWriter is used by tests to capture output.
func NewConsoleReporterWithWriter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// PrintOrders renders the order history table.
func (r *ConsoleReporter) PrintOrders(orders []exchange.OrderRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("ORDER HISTORY")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Time", "Symbol", "Side", "Type", "Qty", "Notional", "Status", "Avg Fill"})
	for _, o := range orders {
		t.AppendRow(table.Row{
			o.SubmittedAt.Format("01-02 15:04:05"),
			o.Symbol,
			o.Side.String(),
			o.Type.String(),
			fmt.Sprintf("%.4f", o.Qty),
			fmt.Sprintf("$%.2f", o.Notional),
			string(o.Status),
			fmt.Sprintf("%.4f", o.AvgFillPrice),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	t.Render()
}

// PrintRiskSnapshot renders current portfolio risk metrics.
func (r *ConsoleReporter) PrintRiskSnapshot(metrics risk.Metrics) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("RISK SNAPSHOT")
	t.SetStyle(table.StyleRounded)

	cooldown := "no"
	if metrics.InCooldown {
		cooldown = "YES"
	}

	t.AppendRows([]table.Row{
		{"📉 VaR", fmt.Sprintf("$%.2f", metrics.VaR)},
		{"📉 CVaR", fmt.Sprintf("$%.2f", metrics.CVaR)},
		{"📊 Total Exposure", fmt.Sprintf("$%.2f (%.1f%%)", metrics.TotalExposure, metrics.ExposurePct*100)},
		{"📊 Portfolio Beta", fmt.Sprintf("%.2f", metrics.PortfolioBeta)},
		{"📉 Drawdown", fmt.Sprintf("%.2f%%", metrics.Drawdown*100)},
		{"🧊 In Cooldown", cooldown},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignLeft},
	})

	t.Render()
}
