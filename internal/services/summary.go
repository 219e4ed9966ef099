package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/recoup/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var hundred = decimal.NewFromInt(100)

// Coster yields an entity's cost and estimate totals, read from the current
// rows on every call.
type Coster interface {
	Cost(db *gorm.DB) (decimal.Decimal, error)
	CostEstimate(db *gorm.DB) (decimal.Decimal, error)
}

type aggregateCoster struct{ a models.CostAggregate }

// Aggregate adapts an entity whose cost is a column sum.
func Aggregate(a models.CostAggregate) Coster { return aggregateCoster{a: a} }

func (c aggregateCoster) Cost(db *gorm.DB) (decimal.Decimal, error) {
	return models.SumFields(db, c.a.CostRows(), "cost")
}

func (c aggregateCoster) CostEstimate(db *gorm.DB) (decimal.Decimal, error) {
	return models.SumFields(db, c.a.CostRows(), "cost_estimate")
}

// Summary is the cost block shown for every cost-bearing entity.
type Summary struct {
	Cost                   decimal.Decimal `json:"cost"`
	CostEstimate           decimal.Decimal `json:"cost_estimate"`
	CostPercentage         decimal.Decimal `json:"cost_percentage"`
	CostEstimatePercentage decimal.Decimal `json:"cost_estimate_percentage"`
}

// Percentage is part as a percentage of whole rounded to two places, or
// zero when whole is zero.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return models.Round(part.Mul(hundred).Div(whole))
}

// SummaryService computes cost totals and their share of a reference year.
// Nothing is cached; every call reads the current rows.
type SummaryService struct {
	db *gorm.DB
}

func NewSummaryService(db *gorm.DB) *SummaryService {
	return &SummaryService{db: db}
}

func (s *SummaryService) Cost(ctx context.Context, c Coster) (decimal.Decimal, error) {
	return c.Cost(s.db.WithContext(ctx))
}

func (s *SummaryService) CostEstimate(ctx context.Context, c Coster) (decimal.Decimal, error) {
	return c.CostEstimate(s.db.WithContext(ctx))
}

// CostPercentage is c's cost as a percentage of the year's total cost.
func (s *SummaryService) CostPercentage(ctx context.Context, c Coster, year *models.FinancialYear) (decimal.Decimal, error) {
	if year == nil {
		return decimal.Zero, models.ErrNoFinancialYear
	}
	db := s.db.WithContext(ctx)
	yearCost, err := Aggregate(year).Cost(db)
	if err != nil {
		return decimal.Zero, err
	}
	if yearCost.IsZero() {
		return decimal.Zero, nil
	}
	cost, err := c.Cost(db)
	if err != nil {
		return decimal.Zero, err
	}
	return Percentage(cost, yearCost), nil
}

// CostEstimatePercentage is c's estimate as a percentage of the year's
// total estimate.
func (s *SummaryService) CostEstimatePercentage(ctx context.Context, c Coster, year *models.FinancialYear) (decimal.Decimal, error) {
	if year == nil {
		return decimal.Zero, models.ErrNoFinancialYear
	}
	db := s.db.WithContext(ctx)
	yearEstimate, err := Aggregate(year).CostEstimate(db)
	if err != nil {
		return decimal.Zero, err
	}
	if yearEstimate.IsZero() {
		return decimal.Zero, nil
	}
	estimate, err := c.CostEstimate(db)
	if err != nil {
		return decimal.Zero, err
	}
	return Percentage(estimate, yearEstimate), nil
}

// Summarize reads all four figures for c against year.
func (s *SummaryService) Summarize(ctx context.Context, c Coster, year *models.FinancialYear) (Summary, error) {
	var out Summary
	var err error
	if out.Cost, err = s.Cost(ctx, c); err != nil {
		return Summary{}, err
	}
	if out.CostEstimate, err = s.CostEstimate(ctx, c); err != nil {
		return Summary{}, err
	}
	if year == nil {
		return out, nil
	}
	db := s.db.WithContext(ctx)
	yearCost, err := Aggregate(year).Cost(db)
	if err != nil {
		return Summary{}, err
	}
	yearEstimate, err := Aggregate(year).CostEstimate(db)
	if err != nil {
		return Summary{}, err
	}
	out.CostPercentage = Percentage(out.Cost, yearCost)
	out.CostEstimatePercentage = Percentage(out.CostEstimate, yearEstimate)
	return out, nil
}

// CurrentYear returns the year with the given id, or the earliest-ending
// year when id is zero.
func (s *SummaryService) CurrentYear(ctx context.Context, id uint) (*models.FinancialYear, error) {
	var year models.FinancialYear
	q := s.db.WithContext(ctx)
	var err error
	if id != 0 {
		err = q.First(&year, id).Error
	} else {
		// "end" is a keyword in both dialects and must be quoted.
		err = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "end"}}).Order("id").First(&year).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNoFinancialYear
	}
	if err != nil {
		return nil, fmt.Errorf("load financial year: %w", err)
	}
	return &year, nil
}
