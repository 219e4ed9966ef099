package models

import (
	"fmt"
	"time"

	"github.com/diewo77/recoup/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EndUserService groups end-user costs so they can be apportioned across
// the divisions that consume the service.
type EndUserService struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string     `gorm:"size:320;not null" json:"name"`
	Divisions []Division `gorm:"many2many:end_user_service_divisions;" json:"divisions,omitempty"`
}

func (EndUserService) TableName() string { return "end_user_services" }

func (s *EndUserService) String() string { return s.Name }

// CostRows selects the service's end-user costs.
func (s *EndUserService) CostRows() []RowScope {
	return []RowScope{func(db *gorm.DB) *gorm.DB {
		return db.Model(&EndUserCost{}).Where("service_id = ?", s.ID)
	}}
}

// TotalUserCount sums user_count over every division linked to the service.
func (s *EndUserService) TotalUserCount(db *gorm.DB) (decimal.Decimal, error) {
	return SumField(db, func(db *gorm.DB) *gorm.DB {
		return db.Model(&Division{}).
			Joins("JOIN end_user_service_divisions esd ON esd.division_id = divisions.id").
			Where("esd.end_user_service_id = ?", s.ID)
	}, "divisions.user_count")
}

func (s *EndUserService) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.Required("name", s.Name, v)
	return invalid("end_user_service", v)
}

func (s *EndUserService) BeforeDelete(tx *gorm.DB) error {
	if err := protect(tx, "end_user_service", s.ID, "end_user_costs", &EndUserCost{}, "service_id"); err != nil {
		return err
	}
	return fresh(tx).Model(s).Association("Divisions").Clear()
}

// Division is a tier 2 division of the department, billed for its share of
// every end-user service it uses.
type Division struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string           `gorm:"size:320;not null" json:"name"`
	UserCount   uint             `gorm:"not null;default:0" json:"user_count"`
	CCCount     uint             `gorm:"column:cc_count;not null;default:0" json:"cc_count"`
	SystemCount uint             `gorm:"not null;default:0" json:"system_count"`
	Services    []EndUserService `gorm:"many2many:end_user_service_divisions;" json:"services,omitempty"`
}

func (Division) TableName() string { return "divisions" }

func (d *Division) String() string { return d.Name }

// BillLink is the report reference the UI links to for this division.
func (d *Division) BillLink() string {
	return fmt.Sprintf("/bill?division=%d", d.ID)
}

// SystemsByCC lists the division's systems ordered by cost centre then name.
func (d *Division) SystemsByCC(db *gorm.DB) ([]ITSystem, error) {
	var systems []ITSystem
	err := db.Where("division_id = ?", d.ID).Order("cost_centre").Order("name").Find(&systems).Error
	return systems, err
}

func (d *Division) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.Required("name", d.Name, v)
	if !v.Empty() {
		return invalid("division", v)
	}
	// system_count is derived; never trust the value carried by the caller.
	d.SystemCount = 0
	if d.ID != 0 {
		var count int64
		if err := fresh(tx).Model(&ITSystem{}).Where("division_id = ?", d.ID).Count(&count).Error; err != nil {
			return err
		}
		d.SystemCount = uint(count)
	}
	return nil
}

func (d *Division) BeforeDelete(tx *gorm.DB) error {
	if err := protect(tx, "division", d.ID, "it_systems", &ITSystem{}, "division_id"); err != nil {
		return err
	}
	return fresh(tx).Model(d).Association("Services").Clear()
}

// recountDivisionSystems stores the number of systems owned by a division.
func recountDivisionSystems(tx *gorm.DB, divisionID uint) error {
	if divisionID == 0 {
		return nil
	}
	var count int64
	if err := fresh(tx).Model(&ITSystem{}).Where("division_id = ?", divisionID).Count(&count).Error; err != nil {
		return err
	}
	return fresh(tx).Model(&Division{}).Where("id = ?", divisionID).UpdateColumn("system_count", count).Error
}
