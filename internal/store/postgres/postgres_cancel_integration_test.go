package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"rebill/internal/cache"
	"rebill/internal/domain"
	"rebill/internal/money"
	"rebill/internal/service"
)

// TestCancelBillRestocksInventory runs the bill cancel path against a real
// postgres database: a confirmed bill's deducted stock must come back when
// the bill is cancelled, and the bill must refuse a second cancel.
func TestCancelBillRestocksInventory(t *testing.T) {
	databaseURL := os.Getenv("REBILL_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set REBILL_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("PRD-CANCEL-IT-%d", stamp)
	category := fmt.Sprintf("it-cat-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_records WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM categories WHERE name = $1`, category)
	})

	if _, err := s.CreateCategory(ctx, domain.Category{Name: category, Active: true}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{
		ProductID: productID,
		Name:      "Cancel IT Samosa",
		Price:     money.FromMajor(18),
		Category:  category,
		Active:    true,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	record, err := s.CreateInventoryRecord(ctx, domain.InventoryRecord{
		Name:           "Cancel IT Samosa",
		Type:           domain.InventoryTypeDirectSale,
		Unit:           "pcs",
		Stock:          money.QuantityFromUnits(10),
		AlertThreshold: money.QuantityFromUnits(2),
		ProductID:      productID,
	})
	if err != nil {
		t.Fatalf("create inventory record: %v", err)
	}

	svc := service.New(s, cache.NoopSummaryCache{}, time.UTC, 5*time.Second, "")
	actorCtx := service.WithActor(ctx, domain.Actor{Username: "it-admin", Role: "admin"})

	bill, err := svc.CreateBill(actorCtx, domain.BillCreateRequest{
		Items: []domain.BillItemRequest{{ProductID: productID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bills WHERE bill_no = $1`, bill.BillNo)
	})
	if want := money.FromMajor(54); bill.TotalAmount != want {
		t.Fatalf("expected total %s, got %s", want, bill.TotalAmount)
	}

	afterSale, err := s.GetInventoryRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("get inventory after sale: %v", err)
	}
	if want := money.QuantityFromUnits(7); afterSale.Stock != want {
		t.Fatalf("expected stock %s after sale, got %s", want, afterSale.Stock)
	}

	cancelled, err := svc.CancelBill(actorCtx, bill.BillNo)
	if err != nil {
		t.Fatalf("cancel bill: %v", err)
	}
	if cancelled.Status != domain.BillStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	restocked, err := s.GetInventoryRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("get inventory after cancel: %v", err)
	}
	if want := money.QuantityFromUnits(10); restocked.Stock != want {
		t.Fatalf("expected stock %s after cancel restock, got %s", want, restocked.Stock)
	}

	if _, err := svc.CancelBill(actorCtx, bill.BillNo); err == nil {
		t.Fatalf("expected second cancel to be rejected")
	}
}
