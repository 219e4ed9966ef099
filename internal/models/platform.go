package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/recoup/validation"
	"gorm.io/gorm"
)

// Platform is infrastructure that IT systems depend on. SystemCount is kept
// equal to the number of dependencies referencing the platform.
type Platform struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:320;not null" json:"name"`
	SystemCount uint   `gorm:"not null;default:0" json:"system_count"`
}

func (Platform) TableName() string { return "platforms" }

func (p *Platform) String() string { return p.Name }

// CostRows selects the platform's cost items.
func (p *Platform) CostRows() []RowScope {
	return []RowScope{func(db *gorm.DB) *gorm.DB {
		return db.Model(&ITPlatformCost{}).Where("platform_id = ?", p.ID)
	}}
}

func (p *Platform) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.Required("name", p.Name, v)
	if !v.Empty() {
		return invalid("platform", v)
	}
	p.SystemCount = 0
	if p.ID != 0 {
		count, err := countDependencies(tx, p.ID)
		if err != nil {
			return err
		}
		p.SystemCount = uint(count)
	}
	return nil
}

func (p *Platform) BeforeDelete(tx *gorm.DB) error {
	if err := protect(tx, "platform", p.ID, "it_platform_costs", &ITPlatformCost{}, "platform_id"); err != nil {
		return err
	}
	return protect(tx, "platform", p.ID, "system_dependencies", &SystemDependency{}, "platform_id")
}

func countDependencies(tx *gorm.DB, platformID uint) (int64, error) {
	var count int64
	err := fresh(tx).Model(&SystemDependency{}).Where("platform_id = ?", platformID).Count(&count).Error
	return count, err
}

// recountPlatformSystems stores the live dependency count on the platform.
func recountPlatformSystems(tx *gorm.DB, platformID uint) error {
	if platformID == 0 {
		return nil
	}
	count, err := countDependencies(tx, platformID)
	if err != nil {
		return err
	}
	return fresh(tx).Model(&Platform{}).Where("id = ?", platformID).UpdateColumn("system_count", count).Error
}

// ITSystem is a system owned by a division that depends on platforms.
type ITSystem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SystemID   string    `gorm:"column:system_id;size:4;not null;uniqueIndex" json:"system_id"`
	CostCentre string    `gorm:"size:24;not null" json:"cost_centre"`
	Name       string    `gorm:"size:320;not null" json:"name"`
	DivisionID uint      `gorm:"index;not null" json:"division_id"`
	Division   *Division `gorm:"foreignKey:DivisionID;constraint:OnDelete:RESTRICT" json:"division,omitempty"`

	prevDivisionID uint
}

func (ITSystem) TableName() string { return "it_systems" }

func (s *ITSystem) String() string { return s.Name }

// DependsOn lists the platforms the system depends on, ordered by name.
func (s *ITSystem) DependsOn(db *gorm.DB) ([]Platform, error) {
	var platforms []Platform
	err := db.Model(&Platform{}).
		Joins("JOIN system_dependencies sd ON sd.platform_id = platforms.id").
		Where("sd.system_id = ?", s.ID).
		Order("platforms.name").
		Find(&platforms).Error
	return platforms, err
}

// DependsOnDisplay joins the names of the platforms the system depends on.
func (s *ITSystem) DependsOnDisplay(db *gorm.DB) (string, error) {
	platforms, err := s.DependsOn(db)
	if err != nil {
		return "", err
	}
	names := make([]string, len(platforms))
	for i := range platforms {
		names[i] = platforms[i].Name
	}
	return strings.Join(names, ", "), nil
}

func (s *ITSystem) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	s.SystemID = strings.TrimSpace(s.SystemID)
	validation.Required("system_id", s.SystemID, v)
	validation.MaxLength("system_id", s.SystemID, 4, v)
	validation.Required("cost_centre", s.CostCentre, v)
	validation.MaxLength("cost_centre", s.CostCentre, 24, v)
	validation.Required("name", s.Name, v)
	validation.PositiveID("division_id", s.DivisionID, v)
	if !v.Empty() {
		return invalid("it_system", v)
	}
	dup, err := taken(tx, &ITSystem{}, "system_id", s.SystemID, s.ID)
	if err != nil {
		return err
	}
	if dup {
		v["system_id"] = "already_exists"
	}
	if ok, err := exists(tx, &Division{}, s.DivisionID); err != nil {
		return err
	} else if !ok {
		v["division_id"] = "not_found"
	}
	if !v.Empty() {
		return invalid("it_system", v)
	}
	s.prevDivisionID = 0
	if s.ID != 0 {
		var stored ITSystem
		err := fresh(tx).Select("id", "division_id").First(&stored, s.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		s.prevDivisionID = stored.DivisionID
	}
	return nil
}

func (s *ITSystem) AfterSave(tx *gorm.DB) error {
	if err := recountDivisionSystems(tx, s.DivisionID); err != nil {
		return err
	}
	if s.prevDivisionID != s.DivisionID {
		return recountDivisionSystems(tx, s.prevDivisionID)
	}
	return nil
}

func (s *ITSystem) BeforeDelete(tx *gorm.DB) error {
	return protect(tx, "it_system", s.ID, "system_dependencies", &SystemDependency{}, "system_id")
}

func (s *ITSystem) AfterDelete(tx *gorm.DB) error {
	return recountDivisionSystems(tx, s.DivisionID)
}

// SystemDependency links a system to a platform it uses.
type SystemDependency struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SystemID   uint      `gorm:"not null;uniqueIndex:idx_system_platform" json:"system_id"`
	System     *ITSystem `gorm:"foreignKey:SystemID;constraint:OnDelete:RESTRICT" json:"system,omitempty"`
	PlatformID uint      `gorm:"not null;index;uniqueIndex:idx_system_platform" json:"platform_id"`
	Platform   *Platform `gorm:"foreignKey:PlatformID;constraint:OnDelete:RESTRICT" json:"platform,omitempty"`
	Weighting  float64   `gorm:"not null" json:"weighting"`

	prevPlatformID uint
}

func (SystemDependency) TableName() string { return "system_dependencies" }

// NewSystemDependency returns a dependency with the default weighting.
func NewSystemDependency(systemID, platformID uint) SystemDependency {
	return SystemDependency{SystemID: systemID, PlatformID: platformID, Weighting: 1}
}

// Describe renders "<system> depends on <platform>", loading both names.
func (d *SystemDependency) Describe(db *gorm.DB) (string, error) {
	var system ITSystem
	if err := db.First(&system, d.SystemID).Error; err != nil {
		return "", err
	}
	var platform Platform
	if err := db.First(&platform, d.PlatformID).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s depends on %s", system.Name, platform.Name), nil
}

func (d *SystemDependency) BeforeSave(tx *gorm.DB) error {
	v := make(validation.Violations)
	validation.PositiveID("system_id", d.SystemID, v)
	validation.PositiveID("platform_id", d.PlatformID, v)
	if d.Weighting < 0 {
		v["weighting"] = "must_not_be_negative"
	}
	if !v.Empty() {
		return invalid("system_dependency", v)
	}
	if ok, err := exists(tx, &ITSystem{}, d.SystemID); err != nil {
		return err
	} else if !ok {
		v["system_id"] = "not_found"
	}
	if ok, err := exists(tx, &Platform{}, d.PlatformID); err != nil {
		return err
	} else if !ok {
		v["platform_id"] = "not_found"
	}
	if !v.Empty() {
		return invalid("system_dependency", v)
	}

	var count int64
	q := fresh(tx).Model(&SystemDependency{}).Where("system_id = ? AND platform_id = ?", d.SystemID, d.PlatformID)
	if d.ID != 0 {
		q = q.Where("id <> ?", d.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		v["platform_id"] = "dependency_already_exists"
		return invalid("system_dependency", v)
	}

	d.prevPlatformID = 0
	if d.ID != 0 {
		var stored SystemDependency
		err := fresh(tx).Select("id", "platform_id").First(&stored, d.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		d.prevPlatformID = stored.PlatformID
	}
	return nil
}

// AfterSave recomputes the platform's system count, and the count of the
// platform the row pointed at before when the dependency moved.
func (d *SystemDependency) AfterSave(tx *gorm.DB) error {
	if err := recountPlatformSystems(tx, d.PlatformID); err != nil {
		return fmt.Errorf("recount platform %d: %w", d.PlatformID, err)
	}
	if d.prevPlatformID != d.PlatformID {
		if err := recountPlatformSystems(tx, d.prevPlatformID); err != nil {
			return fmt.Errorf("recount platform %d: %w", d.prevPlatformID, err)
		}
	}
	return d.recountDivision(tx)
}

func (d *SystemDependency) AfterDelete(tx *gorm.DB) error {
	if err := recountPlatformSystems(tx, d.PlatformID); err != nil {
		return fmt.Errorf("recount platform %d: %w", d.PlatformID, err)
	}
	return d.recountDivision(tx)
}

func (d *SystemDependency) recountDivision(tx *gorm.DB) error {
	var system ITSystem
	err := fresh(tx).Select("id", "division_id").First(&system, d.SystemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return recountDivisionSystems(tx, system.DivisionID)
}
