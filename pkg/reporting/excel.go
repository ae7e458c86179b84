package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/quantforge/riskpipe/internal/exchange"
)

// ExcelReporter exports order history to a styled workbook.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	plain    int
}

// WriteOrdersXLSX writes the order history workbook at path, creating
// parent directories as needed.
func (r *ExcelReporter) WriteOrdersXLSX(orders []exchange.OrderRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const ordersSheet = "Orders"
	fx.SetSheetName(fx.GetSheetName(0), ordersSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	headers := []string{"Submitted", "Order ID", "Symbol", "Side", "Type", "Qty", "Notional", "Limit Price", "Avg Fill", "Status"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		fx.SetCellValue(ordersSheet, cell, h)
		fx.SetCellStyle(ordersSheet, cell, cell, styles.header)
	}

	for i, o := range orders {
		row := i + 2
		values := []interface{}{
			o.SubmittedAt.Format("2006-01-02 15:04:05"),
			o.ID,
			o.Symbol,
			o.Side.String(),
			o.Type.String(),
			o.Qty,
			o.Notional,
			o.LimitPrice,
			o.AvgFillPrice,
			string(o.Status),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			fx.SetCellValue(ordersSheet, cell, v)
			style := styles.plain
			if col >= 6 && col <= 8 {
				style = styles.currency
			}
			fx.SetCellStyle(ordersSheet, cell, cell, style)
		}
	}

	fx.SetColWidth(ordersSheet, "A", "A", 20)
	fx.SetColWidth(ordersSheet, "B", "B", 38)
	fx.SetColWidth(ordersSheet, "C", "J", 14)

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create header style: %w", err)
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4, // #,##0.00
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create currency style: %w", err)
	}

	styles.plain, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "left",
		},
	})
	if err != nil {
		return styles, fmt.Errorf("failed to create cell style: %w", err)
	}

	return styles, nil
}
