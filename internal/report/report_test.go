package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func sampleBill() DivisionBill {
	d := decimal.RequireFromString
	return DivisionBill{
		DivisionID: 3,
		Division:   "Finance & Ops",
		UserCount:  50,
		Year:       "2024/2025",
		Lines: []Line{
			{Service: "Email", ServiceCost: d("1000"), ServiceCostEstimate: d("1200"), TotalUsers: d("200"), Cost: d("250"), CostEstimate: d("300")},
			{Service: "Desktop", ServiceCost: d("400"), ServiceCostEstimate: d("400"), TotalUsers: d("100"), Cost: d("200"), CostEstimate: d("200")},
		},
		Cost:                   d("450"),
		CostEstimate:           d("500"),
		CostPercentage:         d("12.5"),
		CostEstimatePercentage: d("10"),
	}
}

func TestXLSX(t *testing.T) {
	data, err := XLSX(sampleBill())
	if err != nil {
		t.Fatalf("XLSX: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	tests := []struct {
		cell string
		want string
	}{
		{"B1", "Finance & Ops"},
		{"B2", "2024/2025"},
		{"A5", "Service"},
		{"A6", "Email"},
		{"A7", "Desktop"},
		{"A8", "Total"},
		{"E9", "12.50%"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(billSheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.cell, got, tt.want)
		}
	}
}

func TestPDF(t *testing.T) {
	data, err := PDF(sampleBill())
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}
}

func TestFilename(t *testing.T) {
	if got := sampleBill().Filename("xlsx"); got != "bill-finance---ops-2024-2025.xlsx" {
		t.Errorf("Filename() = %q", got)
	}
}
