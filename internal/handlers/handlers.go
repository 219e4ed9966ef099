// Package handlers binds the cost allocation services to JSON endpoints.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/recoup/internal/models"
	"github.com/diewo77/recoup/internal/services"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handlers holds one handler per resource.
type Handlers struct {
	Years         *Resource[models.FinancialYear]
	Contracts     *Resource[models.Contract]
	Bills         *Resource[models.Bill]
	EndUserCosts  *Resource[models.EndUserCost]
	PlatformCosts *Resource[models.ITPlatformCost]
	Services      *Resource[models.EndUserService]
	Divisions     *Resource[models.Division]
	Platforms     *Resource[models.Platform]
	Systems       *Resource[models.ITSystem]
	Dependencies  *Resource[models.SystemDependency]
	ServicePools  *Resource[models.ServicePool]

	BillList *BillHandler
	Links    *LinkHandler
	Report   *ReportHandler
}

// New wires every handler on db. yearID selects the reference year for
// percentages; zero means the earliest-ending year.
func New(db *gorm.DB, yearID uint) *Handlers {
	store := services.NewStore(db)
	v := &views{
		db:        db,
		summary:   services.NewSummaryService(db),
		bills:     services.NewBillService(db),
		divisions: services.NewDivisionService(db),
		yearID:    yearID,
	}
	return &Handlers{
		Years: &Resource[models.FinancialYear]{
			Entity: "financial_year", DB: db, Store: store,
			Order:  []string{"\"end\"", "id"},
			New:    func() *models.FinancialYear { return &models.FinancialYear{} },
			ID:     func(y *models.FinancialYear) *uint { return &y.ID },
			Detail: v.year,
		},
		Contracts: &Resource[models.Contract]{
			Entity: "contract", DB: db, Store: store,
			Order:  []string{"vendor", "id"},
			New:    func() *models.Contract { c := models.NewContract(""); return &c },
			ID:     func(c *models.Contract) *uint { return &c.ID },
			Detail: v.contract,
		},
		Bills: &Resource[models.Bill]{
			Entity: "bill", DB: db, Store: store,
			Order:  []string{"cost_estimate DESC", "id"},
			New:    func() *models.Bill { b := models.NewBill(0, 0, ""); return &b },
			ID:     func(b *models.Bill) *uint { return &b.ID },
			Detail: v.bill,
		},
		EndUserCosts: &Resource[models.EndUserCost]{
			Entity: "end_user_cost", DB: db, Store: store,
			Order: []string{"percentage DESC", "id"},
			New:   func() *models.EndUserCost { return &models.EndUserCost{} },
			ID:    func(c *models.EndUserCost) *uint { return &c.ID },
		},
		PlatformCosts: &Resource[models.ITPlatformCost]{
			Entity: "it_platform_cost", DB: db, Store: store,
			Order: []string{"percentage DESC", "id"},
			New:   func() *models.ITPlatformCost { return &models.ITPlatformCost{} },
			ID:    func(c *models.ITPlatformCost) *uint { return &c.ID },
		},
		Services: &Resource[models.EndUserService]{
			Entity: "end_user_service", DB: db, Store: store,
			Order:  []string{"name", "id"},
			New:    func() *models.EndUserService { return &models.EndUserService{} },
			ID:     func(s *models.EndUserService) *uint { return &s.ID },
			Detail: v.service,
		},
		Divisions: &Resource[models.Division]{
			Entity: "division", DB: db, Store: store,
			Order:  []string{"name", "id"},
			New:    func() *models.Division { return &models.Division{} },
			ID:     func(d *models.Division) *uint { return &d.ID },
			Detail: v.division,
		},
		Platforms: &Resource[models.Platform]{
			Entity: "platform", DB: db, Store: store,
			Order:  []string{"name", "id"},
			New:    func() *models.Platform { return &models.Platform{} },
			ID:     func(p *models.Platform) *uint { return &p.ID },
			Detail: v.platform,
		},
		Systems: &Resource[models.ITSystem]{
			Entity: "it_system", DB: db, Store: store,
			Order:  []string{"system_id", "id"},
			New:    func() *models.ITSystem { return &models.ITSystem{} },
			ID:     func(s *models.ITSystem) *uint { return &s.ID },
			Detail: v.system,
		},
		Dependencies: &Resource[models.SystemDependency]{
			Entity: "system_dependency", DB: db, Store: store,
			Order:  []string{"id"},
			New:    func() *models.SystemDependency { d := models.NewSystemDependency(0, 0); return &d },
			ID:     func(d *models.SystemDependency) *uint { return &d.ID },
			Detail: v.dependency,
		},
		ServicePools: &Resource[models.ServicePool]{
			Entity: "service_pool", DB: db, Store: store,
			Order:  []string{"name", "id"},
			New:    func() *models.ServicePool { return &models.ServicePool{} },
			ID:     func(p *models.ServicePool) *uint { return &p.ID },
			Detail: v.pool,
		},
		BillList: &BillHandler{bills: v.bills},
		Links:    &LinkHandler{divisions: services.NewDivisionService(db)},
		Report:   &ReportHandler{views: v, reports: services.NewReportService(db)},
	}
}

// views builds the detail payloads with their derived display fields.
type views struct {
	db        *gorm.DB
	summary   *services.SummaryService
	bills     *services.BillService
	divisions *services.DivisionService
	yearID    uint
}

// referenceYear picks ?year=<id> over the configured year. No stored year
// yields nil, which leaves percentages at zero.
func (v *views) referenceYear(ctx context.Context, r *http.Request) (*models.FinancialYear, error) {
	id := v.yearID
	if raw := r.URL.Query().Get("year"); raw != "" {
		var year models.FinancialYear
		if err := v.db.WithContext(ctx).First(&year, "id = ?", raw).Error; err != nil {
			return nil, err
		}
		return &year, nil
	}
	year, err := v.summary.CurrentYear(ctx, id)
	if errors.Is(err, models.ErrNoFinancialYear) {
		return nil, nil
	}
	return year, err
}

func (v *views) summarize(ctx context.Context, r *http.Request, c services.Coster) (*services.Summary, error) {
	year, err := v.referenceYear(ctx, r)
	if err != nil {
		return nil, err
	}
	s, err := v.summary.Summarize(ctx, c, year)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type yearView struct {
	*models.FinancialYear
	Name    string            `json:"name"`
	Summary *services.Summary `json:"summary"`
}

func (v *views) year(ctx context.Context, r *http.Request, y *models.FinancialYear) (any, error) {
	s, err := v.summary.Summarize(ctx, services.Aggregate(y), y)
	if err != nil {
		return nil, err
	}
	return yearView{FinancialYear: y, Name: y.String(), Summary: &s}, nil
}

type contractView struct {
	*models.Contract
	Name    string            `json:"name"`
	Summary *services.Summary `json:"summary"`
}

func (v *views) contract(ctx context.Context, r *http.Request, c *models.Contract) (any, error) {
	s, err := v.summarize(ctx, r, services.Aggregate(c))
	if err != nil {
		return nil, err
	}
	return contractView{Contract: c, Name: c.String(), Summary: s}, nil
}

type billView struct {
	*models.Bill
	Allocated        decimal.Decimal         `json:"allocated"`
	AllocationStatus models.AllocationStatus `json:"allocation_status"`
	EndUserCosts     []models.EndUserCost    `json:"end_user_costs"`
	ITPlatformCosts  []models.ITPlatformCost `json:"it_platform_costs"`
}

func (v *views) bill(ctx context.Context, r *http.Request, b *models.Bill) (any, error) {
	allocated, err := b.Allocated(v.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	endUser, platform, err := v.bills.Costs(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return billView{
		Bill:             b,
		Allocated:        allocated,
		AllocationStatus: models.ClassifyAllocation(allocated),
		EndUserCosts:     endUser,
		ITPlatformCosts:  platform,
	}, nil
}

type serviceView struct {
	*models.EndUserService
	TotalUserCount decimal.Decimal   `json:"total_user_count"`
	Summary        *services.Summary `json:"summary"`
}

func (v *views) service(ctx context.Context, r *http.Request, s *models.EndUserService) (any, error) {
	db := v.db.WithContext(ctx)
	if err := db.Model(s).Order("name").Association("Divisions").Find(&s.Divisions); err != nil {
		return nil, err
	}
	total, err := s.TotalUserCount(db)
	if err != nil {
		return nil, err
	}
	sum, err := v.summarize(ctx, r, services.Aggregate(s))
	if err != nil {
		return nil, err
	}
	return serviceView{EndUserService: s, TotalUserCount: total, Summary: sum}, nil
}

type divisionView struct {
	*models.Division
	BillLink     string            `json:"bill_link"`
	SystemsByCC  []models.ITSystem `json:"systems_by_cc"`
	Summary      *services.Summary `json:"summary,omitempty"`
	SummaryError string            `json:"summary_error,omitempty"`
}

// division reports an apportionment that cannot be computed in
// summary_error instead of failing the whole view.
func (v *views) division(ctx context.Context, r *http.Request, d *models.Division) (any, error) {
	d, err := v.divisions.Division(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	systems, err := d.SystemsByCC(v.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := divisionView{Division: d, BillLink: d.BillLink(), SystemsByCC: systems}
	sum, err := v.summarize(ctx, r, services.Apportioned(d))
	switch {
	case errors.Is(err, models.ErrDivisionByZero):
		out.SummaryError = err.Error()
	case err != nil:
		return nil, err
	default:
		out.Summary = sum
	}
	return out, nil
}

type platformView struct {
	*models.Platform
	Summary *services.Summary `json:"summary"`
}

func (v *views) platform(ctx context.Context, r *http.Request, p *models.Platform) (any, error) {
	s, err := v.summarize(ctx, r, services.Aggregate(p))
	if err != nil {
		return nil, err
	}
	return platformView{Platform: p, Summary: s}, nil
}

type poolView struct {
	*models.ServicePool
	Summary *services.Summary `json:"summary"`
}

func (v *views) pool(ctx context.Context, r *http.Request, p *models.ServicePool) (any, error) {
	s, err := v.summarize(ctx, r, services.Aggregate(p))
	if err != nil {
		return nil, err
	}
	return poolView{ServicePool: p, Summary: s}, nil
}

type systemView struct {
	*models.ITSystem
	DependsOn string `json:"depends_on"`
}

func (v *views) system(ctx context.Context, r *http.Request, s *models.ITSystem) (any, error) {
	deps, err := s.DependsOnDisplay(v.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return systemView{ITSystem: s, DependsOn: deps}, nil
}

type dependencyView struct {
	*models.SystemDependency
	Description string `json:"description"`
}

func (v *views) dependency(ctx context.Context, r *http.Request, d *models.SystemDependency) (any, error) {
	desc, err := d.Describe(v.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return dependencyView{SystemDependency: d, Description: desc}, nil
}
