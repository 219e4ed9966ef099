package models

import (
	"fmt"
	"time"

	"github.com/diewo77/recoup/validation"
	"gorm.io/gorm"
)

// FinancialYear anchors the annual spend every cost percentage is measured against.
type FinancialYear struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Start time.Time `gorm:"type:date;not null" json:"start"`
	End   time.Time `gorm:"type:date;not null;index" json:"end"`
}

func (FinancialYear) TableName() string { return "financial_years" }

// String renders the year as "2024/2025".
func (y *FinancialYear) String() string {
	return fmt.Sprintf("%d/%d", y.Start.Year(), y.End.Year())
}

// CostRows selects every bill of the year, active or not.
func (y *FinancialYear) CostRows() []RowScope {
	return []RowScope{func(db *gorm.DB) *gorm.DB {
		return db.Model(&Bill{}).Where("year_id = ?", y.ID)
	}}
}

func (y *FinancialYear) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	if y.Start.IsZero() {
		v["start"] = "required"
	}
	if y.End.IsZero() {
		v["end"] = "required"
	}
	if v.Empty() && !y.Start.Before(y.End) {
		v["end"] = "must_be_after_start"
	}
	return invalid("financial_year", v)
}

func (y *FinancialYear) BeforeDelete(tx *gorm.DB) error {
	return protect(tx, "financial_year", y.ID, "bills", &Bill{}, "year_id")
}
