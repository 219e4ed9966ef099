package models

import (
	"fmt"
	"time"

	"github.com/diewo77/recoup/validation"
	"gorm.io/gorm"
)

// Contract groups the bills received from one vendor.
type Contract struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Vendor        string     `gorm:"size:320;not null" json:"vendor"`
	Brand         string     `gorm:"size:320;not null" json:"brand"`
	Reference     string     `gorm:"size:320;not null" json:"reference"`
	InvoicePeriod string     `gorm:"size:320;not null" json:"invoice_period"`
	Start         time.Time  `gorm:"type:date;not null" json:"start"`
	End           *time.Time `gorm:"type:date" json:"end,omitempty"`
	Active        bool       `gorm:"not null" json:"active"`
}

func (Contract) TableName() string { return "contracts" }

// NewContract returns a contract carrying the same defaults as the columns.
func NewContract(vendor string) Contract {
	return Contract{
		Vendor:        vendor,
		Brand:         "N/A",
		Reference:     "N/A",
		InvoicePeriod: "Annual",
		Start:         today(),
		Active:        true,
	}
}

func (c *Contract) String() string {
	return fmt.Sprintf("%s (%s)", c.Vendor, c.Reference)
}

// CostRows selects the contract's active bills.
func (c *Contract) CostRows() []RowScope {
	return []RowScope{func(db *gorm.DB) *gorm.DB {
		return db.Model(&Bill{}).Where("contract_id = ? AND active = ?", c.ID, true)
	}}
}

func (c *Contract) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.Required("vendor", c.Vendor, v)
	if c.Start.IsZero() {
		c.Start = today()
	}
	if c.End != nil && c.End.Before(c.Start) {
		v["end"] = "must_not_be_before_start"
	}
	return invalid("contract", v)
}

func (c *Contract) BeforeDelete(tx *gorm.DB) error {
	return protect(tx, "contract", c.ID, "bills", &Bill{}, "contract_id")
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
