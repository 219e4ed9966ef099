package models

import (
	"errors"
	"time"

	"github.com/diewo77/recoup/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CostItem is the percentage-weighted share of one bill assigned to a
// reporting bucket. Cost and CostEstimate are derived on every write and are
// never taken from callers.
type CostItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string          `gorm:"size:320;not null" json:"name"`
	BillID        uint            `gorm:"index;not null" json:"bill_id"`
	ServicePoolID uint            `gorm:"index;not null" json:"service_pool_id"`
	Percentage    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"percentage"`
	Cost          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	CostEstimate  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost_estimate"`
}

// Derive sets the item's cost figures from its bill. Inactive bills
// contribute nothing whatever the percentage.
func (c *CostItem) Derive(bill *Bill) {
	if !bill.Active {
		c.Cost, c.CostEstimate = decimal.Zero, decimal.Zero
		return
	}
	c.Cost = Round(bill.Cost.Mul(c.Percentage).Div(hundred))
	c.CostEstimate = Round(bill.CostEstimate.Mul(c.Percentage).Div(hundred))
}

func (c *CostItem) validate(v validation.Violations) {
	validation.Required("name", c.Name, v)
	validation.PositiveID("bill_id", c.BillID, v)
	validation.PositiveID("service_pool_id", c.ServicePoolID, v)
	validation.RangeDecimal("percentage", c.Percentage, decimal.Zero, hundred, v)
}

// prepare validates the item and derives its cost inside the write's
// transaction.
func (c *CostItem) prepare(tx *gorm.DB, entity string, target string, targetID uint, targetModel any, v validation.Violations) error {
	c.validate(v)
	validation.PositiveID(target, targetID, v)
	if !v.Empty() {
		return invalid(entity, v)
	}
	c.Percentage = Round(c.Percentage)

	if ok, err := exists(tx, &ServicePool{}, c.ServicePoolID); err != nil {
		return err
	} else if !ok {
		v["service_pool_id"] = "not_found"
	}
	if ok, err := exists(tx, targetModel, targetID); err != nil {
		return err
	} else if !ok {
		v[target] = "not_found"
	}

	var bill Bill
	err := fresh(tx).First(&bill, c.BillID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		v["bill_id"] = "not_found"
	} else if err != nil {
		return err
	}
	if !v.Empty() {
		return invalid(entity, v)
	}
	c.Derive(&bill)
	return nil
}

// EndUserCost allocates part of a bill to an end-user service.
type EndUserCost struct {
	CostItem
	ServiceID uint            `gorm:"index;not null" json:"service_id"`
	Service   *EndUserService `gorm:"foreignKey:ServiceID;constraint:OnDelete:RESTRICT" json:"service,omitempty"`
}

func (EndUserCost) TableName() string { return "end_user_costs" }

func (c *EndUserCost) BeforeSave(tx *gorm.DB) error {
	return c.prepare(tx, "end_user_cost", "service_id", c.ServiceID, &EndUserService{}, make(validation.Violations))
}

// ITPlatformCost allocates part of a bill to an IT platform.
type ITPlatformCost struct {
	CostItem
	PlatformID uint      `gorm:"index;not null" json:"platform_id"`
	Platform   *Platform `gorm:"foreignKey:PlatformID;constraint:OnDelete:RESTRICT" json:"platform,omitempty"`
}

func (ITPlatformCost) TableName() string { return "it_platform_costs" }

func (c *ITPlatformCost) BeforeSave(tx *gorm.DB) error {
	return c.prepare(tx, "it_platform_cost", "platform_id", c.PlatformID, &Platform{}, make(validation.Violations))
}
