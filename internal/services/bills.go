package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/recoup/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillFilter narrows the bill list. Zero values mean no restriction.
type BillFilter struct {
	YearID     uint
	Active     *bool
	Allocation models.AllocationFilter
	Search     string
}

// BillRow is a bill with its allocation figures.
type BillRow struct {
	models.Bill
	Allocated        decimal.Decimal         `json:"allocated"`
	AllocationStatus models.AllocationStatus `json:"allocation_status"`
}

// BillService owns bill and cost item writes and the bill list.
type BillService struct {
	db *gorm.DB
}

func NewBillService(db *gorm.DB) *BillService {
	return &BillService{db: db}
}

// List returns bills ordered by estimate, highest first. The allocation
// key filters on the computed status of each bill.
func (s *BillService) List(ctx context.Context, f BillFilter) ([]BillRow, error) {
	var want models.AllocationStatus
	if f.Allocation != "" {
		status, ok := f.Allocation.Status()
		if !ok {
			return nil, invalidValue("bill_filter", "allocation")
		}
		want = status
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&models.Bill{}).Select("bills.*").Preload("Contract").Preload("Year")
	if f.YearID != 0 {
		q = q.Where("bills.year_id = ?", f.YearID)
	}
	if f.Active != nil {
		q = q.Where("bills.active = ?", *f.Active)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Joins("JOIN contracts ON contracts.id = bills.contract_id").
			Where(db.Where("LOWER(bills.name) LIKE ?", like).
				Or("LOWER(bills.description) LIKE ?", like).
				Or("LOWER(bills.comment) LIKE ?", like).
				Or("LOWER(contracts.vendor) LIKE ?", like).
				Or("LOWER(contracts.reference) LIKE ?", like).
				Or("LOWER(contracts.brand) LIKE ?", like))
	}
	var bills []models.Bill
	if err := q.Order("bills.cost_estimate DESC").Order("bills.id").Find(&bills).Error; err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	rows := make([]BillRow, 0, len(bills))
	for i := range bills {
		allocated, err := bills[i].Allocated(db)
		if err != nil {
			return nil, fmt.Errorf("allocation of bill %d: %w", bills[i].ID, err)
		}
		status := models.ClassifyAllocation(allocated)
		if want != "" && status != want {
			continue
		}
		rows = append(rows, BillRow{Bill: bills[i], Allocated: allocated, AllocationStatus: status})
	}
	return rows, nil
}

// Costs lists the cost items of a bill, largest share first.
func (s *BillService) Costs(ctx context.Context, billID uint) ([]models.EndUserCost, []models.ITPlatformCost, error) {
	db := s.db.WithContext(ctx)
	var endUser []models.EndUserCost
	if err := db.Where("bill_id = ?", billID).Order("percentage DESC").Order("id").Find(&endUser).Error; err != nil {
		return nil, nil, err
	}
	var platform []models.ITPlatformCost
	if err := db.Where("bill_id = ?", billID).Order("percentage DESC").Order("id").Find(&platform).Error; err != nil {
		return nil, nil, err
	}
	return endUser, platform, nil
}

// Recompute re-saves every bill so each cost item is derived again from
// the current bill values. Running it twice changes nothing.
func (s *BillService) Recompute(ctx context.Context) (int, error) {
	var bills []models.Bill
	if err := s.db.WithContext(ctx).Order("id").Find(&bills).Error; err != nil {
		return 0, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range bills {
			if err := tx.Omit(clause.Associations).Save(&bills[i]).Error; err != nil {
				return fmt.Errorf("recompute bill %d: %w", bills[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(bills), nil
}
