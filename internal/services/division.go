package services

import (
	"context"
	"fmt"

	"github.com/diewo77/recoup/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceShare is a division's apportioned part of one end-user service.
type ServiceShare struct {
	ServiceID           uint            `json:"service_id"`
	ServiceName         string          `json:"service_name"`
	ServiceCost         decimal.Decimal `json:"service_cost"`
	ServiceCostEstimate decimal.Decimal `json:"service_cost_estimate"`
	TotalUsers          decimal.Decimal `json:"total_users"`
	Cost                decimal.Decimal `json:"cost"`
	CostEstimate        decimal.Decimal `json:"cost_estimate"`
}

// Apportion splits value by users over total, rounding the share to two
// places. The multiplication happens first so exact shares stay exact.
func Apportion(value, users, total decimal.Decimal) decimal.Decimal {
	return models.Round(value.Mul(users).Div(total))
}

// DivisionShares returns one apportioned line per end-user service linked to
// the division, ordered by service name. A linked service whose divisions
// have no users at all fails with a *models.ZeroUsersError.
func DivisionShares(db *gorm.DB, d *models.Division) ([]ServiceShare, error) {
	var services []models.EndUserService
	err := db.Model(&models.EndUserService{}).
		Joins("JOIN end_user_service_divisions esd ON esd.end_user_service_id = end_user_services.id").
		Where("esd.division_id = ?", d.ID).
		Order("end_user_services.name").
		Order("end_user_services.id").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("load services of division %d: %w", d.ID, err)
	}

	users := decimal.NewFromInt(int64(d.UserCount))
	shares := make([]ServiceShare, 0, len(services))
	for i := range services {
		svc := &services[i]
		total, err := svc.TotalUserCount(db)
		if err != nil {
			return nil, fmt.Errorf("total users of service %d: %w", svc.ID, err)
		}
		if total.IsZero() {
			return nil, &models.ZeroUsersError{ServiceID: svc.ID, ServiceName: svc.Name}
		}
		agg := Aggregate(svc)
		cost, err := agg.Cost(db)
		if err != nil {
			return nil, err
		}
		estimate, err := agg.CostEstimate(db)
		if err != nil {
			return nil, err
		}
		shares = append(shares, ServiceShare{
			ServiceID:           svc.ID,
			ServiceName:         svc.Name,
			ServiceCost:         cost,
			ServiceCostEstimate: estimate,
			TotalUsers:          total,
			Cost:                Apportion(cost, users, total),
			CostEstimate:        Apportion(estimate, users, total),
		})
	}
	return shares, nil
}

type divisionCoster struct{ d *models.Division }

// Apportioned reads a division's cost as the sum of its service shares.
func Apportioned(d *models.Division) Coster { return divisionCoster{d: d} }

func (c divisionCoster) Cost(db *gorm.DB) (decimal.Decimal, error) {
	return c.sum(db, func(s ServiceShare) decimal.Decimal { return s.Cost })
}

func (c divisionCoster) CostEstimate(db *gorm.DB) (decimal.Decimal, error) {
	return c.sum(db, func(s ServiceShare) decimal.Decimal { return s.CostEstimate })
}

func (c divisionCoster) sum(db *gorm.DB, field func(ServiceShare) decimal.Decimal) (decimal.Decimal, error) {
	shares, err := DivisionShares(db, c.d)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(field(s))
	}
	return total, nil
}

// DivisionService links divisions to the end-user services they consume.
type DivisionService struct {
	db *gorm.DB
}

func NewDivisionService(db *gorm.DB) *DivisionService {
	return &DivisionService{db: db}
}

// LinkDivisions replaces the set of divisions consuming a service.
func (s *DivisionService) LinkDivisions(ctx context.Context, serviceID uint, divisionIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.EndUserService
		if err := tx.First(&svc, serviceID).Error; err != nil {
			return fmt.Errorf("load service %d: %w", serviceID, err)
		}
		divisions := []models.Division{}
		if len(divisionIDs) > 0 {
			if err := tx.Where("id IN ?", divisionIDs).Find(&divisions).Error; err != nil {
				return fmt.Errorf("load divisions: %w", err)
			}
		}
		if len(divisions) != len(uniqueIDs(divisionIDs)) {
			return invalidIDs("end_user_service", "division_ids")
		}
		return tx.Model(&svc).Omit("Divisions.*").Association("Divisions").Replace(divisions)
	})
}

// Division loads a division with its linked services.
func (s *DivisionService) Division(ctx context.Context, id uint) (*models.Division, error) {
	var d models.Division
	err := s.db.WithContext(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	out := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
