package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/recoup/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openTestDB(t, t.Name())
}

func openTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(name, "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustSave(t *testing.T, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Omit(clause.Associations).Save(value).Error; err != nil {
		t.Fatalf("save %T: %v", value, err)
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", name, got.String(), want)
	}
}

// world is a small allocation: one bill of 1000/1200 split 40% to the
// Email service and 60% to the Cloud platform.
type world struct {
	year     models.FinancialYear
	contract models.Contract
	pool     models.ServicePool
	email    models.EndUserService
	cloud    models.Platform
	bill     models.Bill
	euCost   models.EndUserCost
	pcCost   models.ITPlatformCost
	finance  models.Division
	ops      models.Division
}

func newWorld(t *testing.T, db *gorm.DB) *world {
	t.Helper()
	w := &world{
		year: models.FinancialYear{
			Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		},
		contract: models.NewContract("Acme"),
		pool:     models.ServicePool{Name: "End User"},
		email:    models.EndUserService{Name: "Email"},
		cloud:    models.Platform{Name: "Cloud"},
		finance:  models.Division{Name: "Finance", UserCount: 50},
		ops:      models.Division{Name: "Ops", UserCount: 150},
	}
	w.contract.Reference = "REF-1"
	for _, v := range []any{&w.year, &w.contract, &w.pool, &w.email, &w.cloud, &w.finance, &w.ops} {
		mustSave(t, db, v)
	}
	w.bill = models.NewBill(w.contract.ID, w.year.ID, "Licences")
	w.bill.Cost = dec("1000")
	w.bill.CostEstimate = dec("1200")
	mustSave(t, db, &w.bill)

	w.euCost = models.EndUserCost{
		CostItem:  models.CostItem{Name: "mail", BillID: w.bill.ID, ServicePoolID: w.pool.ID, Percentage: dec("40")},
		ServiceID: w.email.ID,
	}
	mustSave(t, db, &w.euCost)
	w.pcCost = models.ITPlatformCost{
		CostItem:   models.CostItem{Name: "hosting", BillID: w.bill.ID, ServicePoolID: w.pool.ID, Percentage: dec("60")},
		PlatformID: w.cloud.ID,
	}
	mustSave(t, db, &w.pcCost)

	if err := NewDivisionService(db).LinkDivisions(context.Background(), w.email.ID, []uint{w.finance.ID, w.ops.ID}); err != nil {
		t.Fatalf("link divisions: %v", err)
	}
	return w
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	s := NewSummaryService(db)
	ctx := context.Background()

	tests := []struct {
		name        string
		coster      Coster
		cost        string
		estimate    string
		costPct     string
		estimatePct string
	}{
		{"year", Aggregate(&w.year), "1000", "1200", "100", "100"},
		{"contract", Aggregate(&w.contract), "1000", "1200", "100", "100"},
		{"service", Aggregate(&w.email), "400", "480", "40", "40"},
		{"platform", Aggregate(&w.cloud), "600", "720", "60", "60"},
		{"pool", Aggregate(&w.pool), "1000", "1200", "100", "100"},
		{"division", Apportioned(&w.finance), "100", "120", "10", "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Summarize(ctx, tt.coster, &w.year)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			assertDecimal(t, "cost", got.Cost, tt.cost)
			assertDecimal(t, "cost_estimate", got.CostEstimate, tt.estimate)
			assertDecimal(t, "cost_percentage", got.CostPercentage, tt.costPct)
			assertDecimal(t, "cost_estimate_percentage", got.CostEstimatePercentage, tt.estimatePct)

			pct, err := s.CostPercentage(ctx, tt.coster, &w.year)
			if err != nil {
				t.Fatal(err)
			}
			assertDecimal(t, "CostPercentage", pct, tt.costPct)
		})
	}
}

func TestSummaryInactiveBill(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	s := NewSummaryService(db)
	ctx := context.Background()

	w.bill.Active = false
	mustSave(t, db, &w.bill)

	cost, err := s.Cost(ctx, Aggregate(&w.contract))
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "contract cost", cost, "0")
	cost, err = s.Cost(ctx, Aggregate(&w.email))
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "service cost", cost, "0")
	// The year still counts the inactive bill.
	cost, err = s.Cost(ctx, Aggregate(&w.year))
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "year cost", cost, "1000")
}

func TestPercentageOfEmptyYear(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	s := NewSummaryService(db)
	ctx := context.Background()

	empty := models.FinancialYear{
		Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	mustSave(t, db, &empty)

	pct, err := s.CostPercentage(ctx, Aggregate(&w.email), &empty)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "cost_percentage", pct, "0")
	pct, err = s.CostEstimatePercentage(ctx, Aggregate(&w.email), &empty)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "cost_estimate_percentage", pct, "0")

	if _, err := s.CostPercentage(ctx, Aggregate(&w.email), nil); !errors.Is(err, models.ErrNoFinancialYear) {
		t.Errorf("nil year: %v", err)
	}
}

func TestCurrentYear(t *testing.T) {
	db := setupTestDB(t)
	s := NewSummaryService(db)
	ctx := context.Background()

	if _, err := s.CurrentYear(ctx, 0); !errors.Is(err, models.ErrNoFinancialYear) {
		t.Fatalf("no years: %v", err)
	}
	later := models.FinancialYear{
		Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	mustSave(t, db, &later)
	earlier := models.FinancialYear{
		Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	mustSave(t, db, &earlier)

	got, err := s.CurrentYear(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != earlier.ID {
		t.Errorf("CurrentYear(0) = %d, want earliest-ending %d", got.ID, earlier.ID)
	}
	got, err = s.CurrentYear(ctx, later.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != later.ID {
		t.Errorf("CurrentYear(%d) = %d", later.ID, got.ID)
	}
	if _, err := s.CurrentYear(ctx, 999); !errors.Is(err, models.ErrNoFinancialYear) {
		t.Errorf("unknown id: %v", err)
	}
}

func TestDivisionApportionment(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)

	// Raise the service's cost to exactly 1000 so the share is 50/200 of it.
	w.euCost.Percentage = dec("100")
	mustSave(t, db, &w.euCost)

	shares, err := DivisionShares(db, &w.finance)
	if err != nil {
		t.Fatal(err)
	}
	if len(shares) != 1 {
		t.Fatalf("shares = %d, want 1", len(shares))
	}
	assertDecimal(t, "total users", shares[0].TotalUsers, "200")
	assertDecimal(t, "share", shares[0].Cost, "250.00")
	assertDecimal(t, "share estimate", shares[0].CostEstimate, "300.00")

	cost, err := Apportioned(&w.ops).Cost(db)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "ops cost", cost, "750")
}

func TestApportionRounding(t *testing.T) {
	tests := []struct {
		value, users, total, want string
	}{
		{"1000", "50", "200", "250"},
		{"300", "1", "3", "100"},
		{"100", "1", "3", "33.33"},
		{"0.05", "1", "2", "0.02"},
		{"0.15", "1", "2", "0.08"},
	}
	for _, tt := range tests {
		t.Run(tt.value+"x"+tt.users+"/"+tt.total, func(t *testing.T) {
			got := Apportion(dec(tt.value), dec(tt.users), dec(tt.total))
			assertDecimal(t, "share", got, tt.want)
		})
	}
}

func TestDivisionZeroUsers(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	w.finance.UserCount = 0
	mustSave(t, db, &w.finance)
	w.ops.UserCount = 0
	mustSave(t, db, &w.ops)

	_, err := Apportioned(&w.finance).Cost(db)
	if !errors.Is(err, models.ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	var zu *models.ZeroUsersError
	if !errors.As(err, &zu) || zu.ServiceName != "Email" {
		t.Errorf("error does not name the service: %v", err)
	}
}

func TestLinkDivisionsUnknownID(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	err := NewDivisionService(db).LinkDivisions(context.Background(), w.email.ID, []uint{w.finance.ID, 404})
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	total, err := w.email.TotalUserCount(db)
	if err != nil {
		t.Fatal(err)
	}
	assertDecimal(t, "links unchanged", total, "200")
}

func TestBillList(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	ctx := context.Background()
	bills := NewBillService(db)

	partial := models.NewBill(w.contract.ID, w.year.ID, "Support")
	partial.Cost = dec("50")
	partial.CostEstimate = dec("60")
	partial.Comment = "renewal pending"
	mustSave(t, db, &partial)
	half := models.EndUserCost{
		CostItem:  models.CostItem{Name: "half", BillID: partial.ID, ServicePoolID: w.pool.ID, Percentage: dec("50")},
		ServiceID: w.email.ID,
	}
	mustSave(t, db, &half)

	other := models.NewContract("Globex")
	mustSave(t, db, &other)
	idle := models.NewBill(other.ID, w.year.ID, "Spare")
	idle.Active = false
	mustSave(t, db, &idle)

	inactive := false
	tests := []struct {
		name   string
		filter BillFilter
		want   []string
	}{
		{"all by estimate", BillFilter{}, []string{"Licences", "Support", "Spare"}},
		{"full", BillFilter{Allocation: models.FilterFull}, []string{"Licences"}},
		{"partial", BillFilter{Allocation: models.FilterPartial}, []string{"Support"}},
		{"none", BillFilter{Allocation: models.FilterUnallocated}, []string{"Spare"}},
		{"over", BillFilter{Allocation: models.FilterOver}, nil},
		{"inactive", BillFilter{Active: &inactive}, []string{"Spare"}},
		{"search comment", BillFilter{Search: "RENEWAL"}, []string{"Support"}},
		{"search vendor", BillFilter{Search: "globex"}, []string{"Spare"}},
		{"search reference", BillFilter{Search: "ref-1"}, []string{"Licences", "Support"}},
		{"year", BillFilter{YearID: w.year.ID + 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := bills.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var got []string
			for _, r := range rows {
				got = append(got, r.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("List() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := bills.List(ctx, BillFilter{Allocation: "bogus"}); err == nil {
		t.Error("unknown allocation key accepted")
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	ctx := context.Background()
	bills := NewBillService(db)

	// Corrupt a derived value behind the hooks' back.
	if err := db.Model(&models.EndUserCost{}).Where("id = ?", w.euCost.ID).UpdateColumn("cost", 1).Error; err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		n, err := bills.Recompute(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("recomputed %d bills, want 1", n)
		}
		var got models.EndUserCost
		db.First(&got, w.euCost.ID)
		assertDecimal(t, "cost", got.Cost, "400")
	}
}

func TestStoreDeleteProtected(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	store := NewStore(db)
	ctx := context.Background()

	if err := store.Delete(ctx, &models.Bill{}, w.bill.ID); !errors.Is(err, models.ErrProtected) {
		t.Fatalf("expected ErrProtected, got %v", err)
	}
	if err := store.Delete(ctx, &models.EndUserService{}, w.email.ID); !errors.Is(err, models.ErrProtected) {
		t.Fatalf("expected ErrProtected, got %v", err)
	}
	if err := store.Delete(ctx, &models.Bill{}, 999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := store.Delete(ctx, &models.EndUserCost{}, w.euCost.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, &models.EndUserService{}, w.email.ID); err != nil {
		t.Fatalf("delete unreferenced service: %v", err)
	}
	var links int64
	db.Table("end_user_service_divisions").Count(&links)
	if links != 0 {
		t.Errorf("service links left behind: %d", links)
	}
}

func TestStoreSaveKeepsZeroWeighting(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	sys := models.ITSystem{SystemID: "W0", CostCentre: "CC1", Name: "Ledger", DivisionID: w.finance.ID}
	mustSave(t, db, &sys)

	dep := models.NewSystemDependency(sys.ID, w.cloud.ID)
	dep.Weighting = 0
	ctx := context.Background()
	if err := NewStore(db).Save(ctx, &dep); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var stored models.SystemDependency
	if err := NewStore(db).Get(ctx, &stored, dep.ID); err != nil {
		t.Fatal(err)
	}
	if stored.Weighting != 0 {
		t.Errorf("stored weighting = %v, want 0", stored.Weighting)
	}
}

func TestFixtureRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	w := newWorld(t, src)
	div := models.Division{Name: "Legal"}
	mustSave(t, src, &div)
	sys := models.ITSystem{SystemID: "L1", CostCentre: "CC7", Name: "Casebook", DivisionID: div.ID}
	mustSave(t, src, &sys)
	dep := models.NewSystemDependency(sys.ID, w.cloud.ID)
	dep.Weighting = 0
	mustSave(t, src, &dep)
	w.bill.Quantity = ""
	w.bill.Description = ""
	mustSave(t, src, &w.bill)

	ctx := context.Background()
	var dump bytes.Buffer
	if err := NewFixtureService(src).Dump(ctx, &dump); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	dst := openTestDB(t, t.Name()+"_dst")
	if err := NewFixtureService(dst).Load(ctx, bytes.NewReader(dump.Bytes())); err != nil {
		t.Fatalf("Load: %v", err)
	}
	var again bytes.Buffer
	if err := NewFixtureService(dst).Dump(ctx, &again); err != nil {
		t.Fatal(err)
	}
	if dump.String() != again.String() {
		t.Errorf("round trip changed the data:\n%s\n---\n%s", dump.String(), again.String())
	}

	var loadedDep models.SystemDependency
	dst.First(&loadedDep, dep.ID)
	if loadedDep.Weighting != 0 {
		t.Errorf("weighting after load = %v, want 0", loadedDep.Weighting)
	}
	var loadedBill models.Bill
	dst.First(&loadedBill, w.bill.ID)
	if loadedBill.Quantity != "" || loadedBill.Description != "" {
		t.Errorf("bill after load: quantity=%q description=%q", loadedBill.Quantity, loadedBill.Description)
	}

	var cloud models.Platform
	dst.First(&cloud, w.cloud.ID)
	if cloud.SystemCount != 1 {
		t.Errorf("platform system_count = %d, want 1", cloud.SystemCount)
	}

	if _, err := NewBillService(dst).Recompute(ctx); err != nil {
		t.Fatal(err)
	}
	var item models.ITPlatformCost
	dst.First(&item, w.pcCost.ID)
	assertDecimal(t, "platform cost after recompute", item.Cost, "600")
	assertDecimal(t, "platform estimate after recompute", item.CostEstimate, "720")
}

func TestDivisionBill(t *testing.T) {
	db := setupTestDB(t)
	w := newWorld(t, db)
	bill, err := NewReportService(db).DivisionBill(context.Background(), w.finance.ID, &w.year)
	if err != nil {
		t.Fatal(err)
	}
	if bill.Division != "Finance" || bill.Year != "2024/2025" || len(bill.Lines) != 1 {
		t.Fatalf("unexpected bill: %+v", bill)
	}
	assertDecimal(t, "line cost", bill.Lines[0].Cost, "100")
	assertDecimal(t, "total", bill.Cost, "100")
	assertDecimal(t, "cost_percentage", bill.CostPercentage, "10")
	assertDecimal(t, "cost_estimate_percentage", bill.CostEstimatePercentage, "10")

	if _, err := NewReportService(db).DivisionBill(context.Background(), 999, &w.year); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("unknown division: %v", err)
	}
}
