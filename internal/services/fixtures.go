package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/diewo77/recoup/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceDivision is one row of the service/division link table.
type ServiceDivision struct {
	EndUserServiceID uint `gorm:"column:end_user_service_id" json:"end_user_service_id"`
	DivisionID       uint `gorm:"column:division_id" json:"division_id"`
}

const serviceDivisionTable = "end_user_service_divisions"

// Fixture is a full snapshot of the stored data, derived columns included.
type Fixture struct {
	FinancialYears     []models.FinancialYear    `json:"financial_years"`
	Contracts          []models.Contract         `json:"contracts"`
	ServicePools       []models.ServicePool      `json:"service_pools"`
	Divisions          []models.Division         `json:"divisions"`
	EndUserServices    []models.EndUserService   `json:"end_user_services"`
	ServiceDivisions   []ServiceDivision         `json:"service_divisions"`
	Platforms          []models.Platform         `json:"platforms"`
	Bills              []models.Bill             `json:"bills"`
	EndUserCosts       []models.EndUserCost      `json:"end_user_costs"`
	ITPlatformCosts    []models.ITPlatformCost   `json:"it_platform_costs"`
	ITSystems          []models.ITSystem         `json:"it_systems"`
	SystemDependencies []models.SystemDependency `json:"system_dependencies"`
}

// FixtureService dumps and restores the whole store.
type FixtureService struct {
	db *gorm.DB
}

func NewFixtureService(db *gorm.DB) *FixtureService {
	return &FixtureService{db: db}
}

// Snapshot reads every table ordered by id.
func (s *FixtureService) Snapshot(ctx context.Context) (*Fixture, error) {
	db := s.db.WithContext(ctx)
	f := &Fixture{}
	lists := []struct {
		name string
		dst  any
	}{
		{"financial_years", &f.FinancialYears},
		{"contracts", &f.Contracts},
		{"service_pools", &f.ServicePools},
		{"divisions", &f.Divisions},
		{"end_user_services", &f.EndUserServices},
		{"platforms", &f.Platforms},
		{"bills", &f.Bills},
		{"end_user_costs", &f.EndUserCosts},
		{"it_platform_costs", &f.ITPlatformCosts},
		{"it_systems", &f.ITSystems},
		{"system_dependencies", &f.SystemDependencies},
	}
	for _, l := range lists {
		if err := db.Order("id").Find(l.dst).Error; err != nil {
			return nil, fmt.Errorf("dump %s: %w", l.name, err)
		}
	}
	err := db.Table(serviceDivisionTable).
		Order("end_user_service_id").Order("division_id").
		Find(&f.ServiceDivisions).Error
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", serviceDivisionTable, err)
	}
	return f, nil
}

// Dump writes the snapshot as indented JSON.
func (s *FixtureService) Dump(ctx context.Context, w io.Writer) error {
	f, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// Load reads a JSON fixture and restores it.
func (s *FixtureService) Load(ctx context.Context, r io.Reader) error {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}
	return s.Restore(ctx, &f)
}

// Restore inserts the fixture in dependency order in one transaction. Write
// hooks are skipped, so stored ids and derived values are taken as given.
func (s *FixtureService) Restore(ctx context.Context, f *Fixture) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw := tx.Omit(clause.Associations).Session(&gorm.Session{SkipHooks: true})
		steps := []struct {
			name  string
			rows  any
			count int
		}{
			{"financial_years", &f.FinancialYears, len(f.FinancialYears)},
			{"contracts", &f.Contracts, len(f.Contracts)},
			{"service_pools", &f.ServicePools, len(f.ServicePools)},
			{"divisions", &f.Divisions, len(f.Divisions)},
			{"end_user_services", &f.EndUserServices, len(f.EndUserServices)},
			{"platforms", &f.Platforms, len(f.Platforms)},
			{"bills", &f.Bills, len(f.Bills)},
			{"end_user_costs", &f.EndUserCosts, len(f.EndUserCosts)},
			{"it_platform_costs", &f.ITPlatformCosts, len(f.ITPlatformCosts)},
			{"it_systems", &f.ITSystems, len(f.ITSystems)},
			{"system_dependencies", &f.SystemDependencies, len(f.SystemDependencies)},
		}
		for _, step := range steps {
			if step.count == 0 {
				continue
			}
			if err := raw.CreateInBatches(step.rows, 200).Error; err != nil {
				return fmt.Errorf("load %s: %w", step.name, err)
			}
		}
		if len(f.ServiceDivisions) > 0 {
			if err := tx.Table(serviceDivisionTable).Create(&f.ServiceDivisions).Error; err != nil {
				return fmt.Errorf("load %s: %w", serviceDivisionTable, err)
			}
		}
		if tx.Dialector.Name() == "postgres" {
			names := make([]string, len(steps))
			for i, step := range steps {
				names[i] = step.name
			}
			return resetSequences(tx, names)
		}
		return nil
	})
}

// resetSequences moves each serial past the highest loaded id so later
// inserts do not collide with fixture rows.
func resetSequences(tx *gorm.DB, tables []string) error {
	for _, table := range tables {
		q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %[1]s", table)
		if err := tx.Exec(q).Error; err != nil {
			return fmt.Errorf("reset sequence of %s: %w", table, err)
		}
	}
	return nil
}
