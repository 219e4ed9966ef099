// Package report renders a division's apportioned bill as xlsx or pdf.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one end-user service on a division bill.
type Line struct {
	Service             string          `json:"service"`
	ServiceCost         decimal.Decimal `json:"service_cost"`
	ServiceCostEstimate decimal.Decimal `json:"service_cost_estimate"`
	TotalUsers          decimal.Decimal `json:"total_users"`
	Cost                decimal.Decimal `json:"cost"`
	CostEstimate        decimal.Decimal `json:"cost_estimate"`
}

// DivisionBill is everything a division is charged for one financial year.
type DivisionBill struct {
	DivisionID             uint            `json:"division_id"`
	Division               string          `json:"division"`
	UserCount              uint            `json:"user_count"`
	Year                   string          `json:"year"`
	Lines                  []Line          `json:"lines"`
	Cost                   decimal.Decimal `json:"cost"`
	CostEstimate           decimal.Decimal `json:"cost_estimate"`
	CostPercentage         decimal.Decimal `json:"cost_percentage"`
	CostEstimatePercentage decimal.Decimal `json:"cost_estimate_percentage"`
}

// Filename is the download name for the bill in the given extension.
func (b DivisionBill) Filename(ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '-'
	}, strings.ToLower(b.Division))
	year := strings.ReplaceAll(b.Year, "/", "-")
	return fmt.Sprintf("bill-%s-%s.%s", name, year, ext)
}

var headers = []string{
	"Service",
	"Service cost",
	"Service estimate",
	"Total users",
	"Division cost",
	"Division estimate",
}

func money(d decimal.Decimal) string { return d.StringFixedBank(2) }

func percent(d decimal.Decimal) string { return d.StringFixedBank(2) + "%" }
