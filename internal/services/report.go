package services

import (
	"context"

	"github.com/diewo77/recoup/internal/models"
	"github.com/diewo77/recoup/internal/report"
	"gorm.io/gorm"
)

// ReportService assembles division bills.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// DivisionBill apportions every service linked to the division and measures
// the totals against year. A nil year leaves the percentages at zero.
func (s *ReportService) DivisionBill(ctx context.Context, divisionID uint, year *models.FinancialYear) (report.DivisionBill, error) {
	db := s.db.WithContext(ctx)
	var d models.Division
	if err := db.First(&d, divisionID).Error; err != nil {
		return report.DivisionBill{}, err
	}
	shares, err := DivisionShares(db, &d)
	if err != nil {
		return report.DivisionBill{}, err
	}

	bill := report.DivisionBill{
		DivisionID: d.ID,
		Division:   d.Name,
		UserCount:  d.UserCount,
		Lines:      make([]report.Line, 0, len(shares)),
	}
	for _, sh := range shares {
		bill.Lines = append(bill.Lines, report.Line{
			Service:             sh.ServiceName,
			ServiceCost:         sh.ServiceCost,
			ServiceCostEstimate: sh.ServiceCostEstimate,
			TotalUsers:          sh.TotalUsers,
			Cost:                sh.Cost,
			CostEstimate:        sh.CostEstimate,
		})
		bill.Cost = bill.Cost.Add(sh.Cost)
		bill.CostEstimate = bill.CostEstimate.Add(sh.CostEstimate)
	}
	if year == nil {
		return bill, nil
	}
	bill.Year = year.String()
	yearCost, err := Aggregate(year).Cost(db)
	if err != nil {
		return report.DivisionBill{}, err
	}
	yearEstimate, err := Aggregate(year).CostEstimate(db)
	if err != nil {
		return report.DivisionBill{}, err
	}
	bill.CostPercentage = Percentage(bill.Cost, yearCost)
	bill.CostEstimatePercentage = Percentage(bill.CostEstimate, yearEstimate)
	return bill, nil
}
