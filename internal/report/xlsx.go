package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const billSheet = "Bill"

// XLSX renders the bill as a single-sheet workbook.
func XLSX(b DivisionBill) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", billSheet); err != nil {
		return nil, err
	}

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(billSheet, cell, value)
	}

	set("A1", "Division")
	set("B1", b.Division)
	set("A2", "Financial year")
	set("B2", b.Year)
	set("A3", "Users")
	set("B3", b.UserCount)

	tableRow := 5
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	for i, line := range b.Lines {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), line.Service)
		set(fmt.Sprintf("B%d", row), line.ServiceCost.InexactFloat64())
		set(fmt.Sprintf("C%d", row), line.ServiceCostEstimate.InexactFloat64())
		set(fmt.Sprintf("D%d", row), line.TotalUsers.IntPart())
		set(fmt.Sprintf("E%d", row), line.Cost.InexactFloat64())
		set(fmt.Sprintf("F%d", row), line.CostEstimate.InexactFloat64())
	}

	totalRow := tableRow + len(b.Lines) + 1
	set(fmt.Sprintf("A%d", totalRow), "Total")
	set(fmt.Sprintf("E%d", totalRow), b.Cost.InexactFloat64())
	set(fmt.Sprintf("F%d", totalRow), b.CostEstimate.InexactFloat64())
	set(fmt.Sprintf("A%d", totalRow+1), "Share of year")
	set(fmt.Sprintf("E%d", totalRow+1), percent(b.CostPercentage))
	set(fmt.Sprintf("F%d", totalRow+1), percent(b.CostEstimatePercentage))

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	_ = file.SetCellStyle(billSheet, fmt.Sprintf("A%d", tableRow), fmt.Sprintf("F%d", tableRow), bold)
	_ = file.SetCellStyle(billSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("F%d", totalRow), bold)

	amount, err := file.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	if len(b.Lines) > 0 {
		_ = file.SetCellStyle(billSheet, fmt.Sprintf("B%d", tableRow+1), fmt.Sprintf("C%d", totalRow), amount)
		_ = file.SetCellStyle(billSheet, fmt.Sprintf("E%d", tableRow+1), fmt.Sprintf("F%d", totalRow), amount)
	}

	_ = file.SetColWidth(billSheet, "A", "A", 40)
	_ = file.SetColWidth(billSheet, "B", "F", 18)

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
