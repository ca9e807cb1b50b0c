package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rebill/internal/domain"
	"rebill/internal/money"
	"rebill/internal/store"
)

func TestSeededCatalog(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx, false)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) == 0 {
		t.Fatalf("expected seeded products")
	}

	categories, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories failed: %v", err)
	}
	if len(categories) != 6 {
		t.Fatalf("expected 6 seeded categories, got %d", len(categories))
	}

	setting, err := s.GetSetting(ctx, domain.SettingShopName)
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if setting.Value == "" {
		t.Fatalf("expected seeded shop name")
	}
}

func TestBillNumbersAreSequential(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	next, err := s.NextBillNo(ctx)
	if err != nil {
		t.Fatalf("next bill no failed: %v", err)
	}
	if next != 1 {
		t.Fatalf("expected first bill number 1, got %d", next)
	}

	for i := 1; i <= 3; i++ {
		bill, err := s.CreateBill(ctx, domain.Bill{
			Status:      domain.BillStatusConfirmed,
			Items:       []domain.LineItem{{ProductID: "PRD-TEA-01", Price: money.FromMajor(10), Quantity: 1}},
			TotalAmount: money.FromMajor(10),
		})
		if err != nil {
			t.Fatalf("create bill %d failed: %v", i, err)
		}
		if bill.BillNo != i {
			t.Fatalf("expected bill number %d, got %d", i, bill.BillNo)
		}
	}

	deleted, err := s.DeleteAllBills(ctx)
	if err != nil {
		t.Fatalf("delete all bills failed: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
	next, _ = s.NextBillNo(ctx)
	if next != 1 {
		t.Fatalf("expected counter reset to 1, got %d", next)
	}
}

func TestCreateBillPreservesExplicitTimestamp(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	bill, err := s.CreateBill(ctx, domain.Bill{
		Status:      domain.BillStatusConfirmed,
		Items:       []domain.LineItem{{ProductID: "PRD-TEA-01", Price: money.FromMajor(15), Quantity: 1}},
		TotalAmount: money.FromMajor(15),
		CreatedAt:   at,
	})
	if err != nil {
		t.Fatalf("create bill failed: %v", err)
	}
	if !bill.CreatedAt.Equal(at) {
		t.Fatalf("expected explicit timestamp kept, got %s", bill.CreatedAt)
	}

	listed, err := s.ListBillsBetween(ctx, at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("list bills failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 bill in window, got %d", len(listed))
	}

	outside, err := s.ListBillsBetween(ctx, at.Add(time.Hour), at.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list bills failed: %v", err)
	}
	if len(outside) != 0 {
		t.Fatalf("expected empty window, got %d", len(outside))
	}
}

func TestGetBillNotFound(t *testing.T) {
	s := NewSeeded()

	if _, err := s.GetBill(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateProductIDRejected(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{
		ProductID: "PRD-TEA-01",
		Name:      "Clone",
		Price:     money.FromMajor(1),
		Category:  "tea",
		Active:    true,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate product id, got %v", err)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, _ := s.ListProducts(ctx, false)
	products[0].Name = "mutated"

	again, _ := s.ListProducts(ctx, false)
	if again[0].Name == "mutated" {
		t.Fatalf("list result aliases store state")
	}
}

func TestInventoryLookupByProduct(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	record, err := s.GetInventoryByProduct(ctx, "PRD-SNK-01")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if record.Name != "Samosa" {
		t.Fatalf("expected Samosa record, got %s", record.Name)
	}

	if _, err := s.GetInventoryByProduct(ctx, "PRD-NONE"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttendanceUpsertsPerDay(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	worker, err := s.CreateWorker(ctx, domain.Worker{
		Name:     "Ravi",
		Salary:   money.FromMajor(9000),
		JoinDate: time.Now().UTC(),
		Status:   domain.WorkerStatusActive,
	})
	if err != nil {
		t.Fatalf("create worker failed: %v", err)
	}

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if _, err := s.UpsertAttendance(ctx, domain.Attendance{
		WorkerID: worker.WorkerID,
		Date:     day,
		Status:   domain.AttendanceAbsent,
	}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := s.UpsertAttendance(ctx, domain.Attendance{
		WorkerID: worker.WorkerID,
		Date:     day,
		Status:   domain.AttendancePresent,
	}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	listed, err := s.ListAttendance(ctx, worker.WorkerID, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list attendance failed: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected one record per worker per day, got %d", len(listed))
	}
	if listed[0].Status != domain.AttendancePresent {
		t.Fatalf("expected latest status to win, got %s", listed[0].Status)
	}
}

func TestMarkSalaryPaidRejectsDoublePay(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	worker, err := s.CreateWorker(ctx, domain.Worker{
		Name:     "Meena",
		Salary:   money.FromMajor(12000),
		JoinDate: time.Now().UTC(),
		Status:   domain.WorkerStatusActive,
	})
	if err != nil {
		t.Fatalf("create worker failed: %v", err)
	}

	payment, err := s.CreateSalaryPayment(ctx, domain.SalaryPayment{
		WorkerID:    worker.WorkerID,
		Month:       8,
		Year:        2026,
		BaseSalary:  worker.Salary,
		FinalSalary: worker.Salary,
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	paid, err := s.MarkSalaryPaid(ctx, payment.PaymentID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if !paid.Paid || paid.PaidDate == nil {
		t.Fatalf("expected payment marked paid, got %+v", paid)
	}

	if _, err := s.MarkSalaryPaid(ctx, payment.PaymentID, time.Now().UTC()); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on double pay, got %v", err)
	}

	found, err := s.FindSalaryPayment(ctx, worker.WorkerID, 8, 2026)
	if err != nil {
		t.Fatalf("find payment failed: %v", err)
	}
	if found.PaymentID != payment.PaymentID {
		t.Fatalf("expected to find the created payment")
	}
}

func TestUpsertSettingsOverwrites(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.UpsertSettings(ctx, []domain.Setting{
		{Key: domain.SettingShopName, Value: "Corner Cafe", GroupName: "shop"},
		{Key: "receipt_footer", Value: "Thank you!", GroupName: "shop"},
	}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	name, err := s.GetSetting(ctx, domain.SettingShopName)
	if err != nil {
		t.Fatalf("get setting failed: %v", err)
	}
	if name.Value != "Corner Cafe" {
		t.Fatalf("expected overwrite, got %s", name.Value)
	}

	shop, err := s.ListSettings(ctx, "shop")
	if err != nil {
		t.Fatalf("list settings failed: %v", err)
	}
	found := false
	for _, setting := range shop {
		if setting.Key == "receipt_footer" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected new key listed under its group")
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.CreateUser(ctx, domain.UserAccount{
		Username: "admin",
		Password: "hash",
		Role:     "admin",
		Active:   true,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}
}
