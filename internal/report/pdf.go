package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

var colWidths = []float64{80, 36, 36, 28, 36, 36}

// PDF renders the bill on a landscape A4 page with the core Helvetica font.
func PDF(b DivisionBill) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("IT services bill: %s", b.Division)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Financial year %s, %d users", b.Year, b.UserCount)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	drawRow(pdf, headers, true)
	for _, line := range b.Lines {
		drawRow(pdf, []string{
			tr(line.Service),
			money(line.ServiceCost),
			money(line.ServiceCostEstimate),
			line.TotalUsers.String(),
			money(line.Cost),
			money(line.CostEstimate),
		}, false)
	}
	drawRow(pdf, []string{"Total", "", "", "", money(b.Cost), money(b.CostEstimate)}, true)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Share of year: cost %s, estimate %s",
		percent(b.CostPercentage), percent(b.CostEstimatePercentage)), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawRow(pdf *gofpdf.Fpdf, cols []string, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	for i, col := range cols {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(colWidths[i], 7, col, "1", 0, align, header, 0, "")
	}
	pdf.Ln(-1)
}
