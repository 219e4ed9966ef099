package models

import (
	"fmt"
	"time"

	"github.com/diewo77/recoup/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bill is an invoiced cost from a contract for one financial year. Its cost
// and estimate are source values; every cost item derives from them.
type Bill struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContractID uint           `gorm:"index;not null" json:"contract_id"`
	Contract   *Contract      `gorm:"foreignKey:ContractID;constraint:OnDelete:RESTRICT" json:"contract,omitempty"`
	YearID     uint           `gorm:"index;not null" json:"year_id"`
	Year       *FinancialYear `gorm:"foreignKey:YearID;constraint:OnDelete:RESTRICT" json:"year,omitempty"`

	Name         string          `gorm:"size:320;not null" json:"name"`
	Description  string          `gorm:"type:text;not null" json:"description"`
	Comment      string          `gorm:"type:text;not null" json:"comment"`
	Quantity     string          `gorm:"size:320;not null" json:"quantity"`
	RenewalDate  *time.Time      `gorm:"type:date" json:"renewal_date,omitempty"`
	Cost         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	CostEstimate decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost_estimate"`
	Active       bool            `gorm:"not null" json:"active"`
}

func (Bill) TableName() string { return "bills" }

// NewBill returns an active bill with the column defaults applied.
func NewBill(contractID, yearID uint, name string) Bill {
	return Bill{
		ContractID:  contractID,
		YearID:      yearID,
		Name:        name,
		Description: "N/A",
		Quantity:    "1",
		Active:      true,
	}
}

func (b *Bill) String() string { return b.Name }

// CostItemScopes selects the bill's end-user and platform cost items.
func (b *Bill) CostItemScopes() []RowScope {
	return []RowScope{
		func(db *gorm.DB) *gorm.DB { return db.Model(&EndUserCost{}).Where("bill_id = ?", b.ID) },
		func(db *gorm.DB) *gorm.DB { return db.Model(&ITPlatformCost{}).Where("bill_id = ?", b.ID) },
	}
}

// Allocated is the sum of percentages across the bill's cost items.
func (b *Bill) Allocated(db *gorm.DB) (decimal.Decimal, error) {
	return SumFields(db, b.CostItemScopes(), "percentage")
}

func (b *Bill) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.Required("name", b.Name, v)
	validation.PositiveID("contract_id", b.ContractID, v)
	validation.PositiveID("year_id", b.YearID, v)
	validation.NonNegative("cost", b.Cost, v)
	validation.NonNegative("cost_estimate", b.CostEstimate, v)
	if !v.Empty() {
		return invalid("bill", v)
	}
	if ok, err := exists(tx, &Contract{}, b.ContractID); err != nil {
		return err
	} else if !ok {
		v["contract_id"] = "not_found"
	}
	if ok, err := exists(tx, &FinancialYear{}, b.YearID); err != nil {
		return err
	} else if !ok {
		v["year_id"] = "not_found"
	}
	b.Cost = Round(b.Cost)
	b.CostEstimate = Round(b.CostEstimate)
	return invalid("bill", v)
}

// AfterSave re-saves every cost item of the bill so their derived values
// follow the bill, whichever bill fields changed.
func (b *Bill) AfterSave(tx *gorm.DB) error {
	db := fresh(tx)

	var endUser []EndUserCost
	if err := db.Where("bill_id = ?", b.ID).Order("id").Find(&endUser).Error; err != nil {
		return fmt.Errorf("load end-user costs of bill %d: %w", b.ID, err)
	}
	for i := range endUser {
		if err := fresh(tx).Omit(clause.Associations).Save(&endUser[i]).Error; err != nil {
			return fmt.Errorf("recompute end-user cost %d: %w", endUser[i].ID, err)
		}
	}

	var platform []ITPlatformCost
	if err := db.Where("bill_id = ?", b.ID).Order("id").Find(&platform).Error; err != nil {
		return fmt.Errorf("load platform costs of bill %d: %w", b.ID, err)
	}
	for i := range platform {
		if err := fresh(tx).Omit(clause.Associations).Save(&platform[i]).Error; err != nil {
			return fmt.Errorf("recompute platform cost %d: %w", platform[i].ID, err)
		}
	}
	return nil
}

func (b *Bill) BeforeDelete(tx *gorm.DB) error {
	if err := protect(tx, "bill", b.ID, "end_user_costs", &EndUserCost{}, "bill_id"); err != nil {
		return err
	}
	return protect(tx, "bill", b.ID, "it_platform_costs", &ITPlatformCost{}, "bill_id")
}
