package models

import (
	"time"

	"github.com/diewo77/recoup/validation"
	"gorm.io/gorm"
)

// ServicePool is an internal reporting bucket. Pools are created by the seed
// step only and are read-only to operators.
type ServicePool struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `gorm:"size:320;not null;uniqueIndex" json:"name"`
}

func (ServicePool) TableName() string { return "service_pools" }

func (p *ServicePool) String() string { return p.Name }

// CostRows selects the pool's cost items from both cost tables.
func (p *ServicePool) CostRows() []RowScope {
	return []RowScope{
		func(db *gorm.DB) *gorm.DB { return db.Model(&EndUserCost{}).Where("service_pool_id = ?", p.ID) },
		func(db *gorm.DB) *gorm.DB { return db.Model(&ITPlatformCost{}).Where("service_pool_id = ?", p.ID) },
	}
}

func (p *ServicePool) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.Required("name", p.Name, v)
	if v.Empty() {
		dup, err := taken(tx, &ServicePool{}, "name", p.Name, p.ID)
		if err != nil {
			return err
		}
		if dup {
			v["name"] = "already_exists"
		}
	}
	return invalid("service_pool", v)
}

func (p *ServicePool) BeforeDelete(tx *gorm.DB) error {
	if err := protect(tx, "service_pool", p.ID, "end_user_costs", &EndUserCost{}, "service_pool_id"); err != nil {
		return err
	}
	return protect(tx, "service_pool", p.ID, "it_platform_costs", &ITPlatformCost{}, "service_pool_id")
}
