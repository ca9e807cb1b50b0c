package inventory

import (
	"testing"

	"rebill/internal/domain"
	"rebill/internal/money"
)

func record(name string, stock, threshold int64) domain.InventoryRecord {
	return domain.InventoryRecord{
		Name:           name,
		Type:           domain.InventoryTypeRawMaterial,
		Stock:          money.QuantityFromUnits(stock),
		AlertThreshold: money.QuantityFromUnits(threshold),
	}
}

func TestStatusBoundaries(t *testing.T) {
	cases := []struct {
		stock     money.Quantity
		threshold money.Quantity
		want      StockStatus
	}{
		{0, 10000, StatusOut},
		{-1, 10000, StatusOut},
		{1, 10000, StatusLow},
		{10000, 10000, StatusLow},
		{10001, 10000, StatusOK},
		{1, 0, StatusOK},
	}
	for _, tc := range cases {
		rec := domain.InventoryRecord{Stock: tc.stock, AlertThreshold: tc.threshold}
		if got := Status(rec); got != tc.want {
			t.Fatalf("Status(stock=%d, threshold=%d) = %s, want %s", tc.stock, tc.threshold, got, tc.want)
		}
	}
}

func TestEvaluateValuation(t *testing.T) {
	products := map[string]domain.Product{
		"P1": {ProductID: "P1", Price: money.FromMajor(20), Active: true},
	}
	// 10 pieces at the product price plus 5 kg of raw material priced per
	// unit on the record itself.
	records := []domain.InventoryRecord{
		{Type: domain.InventoryTypeDirectSale, ProductID: "P1", Stock: money.QuantityFromUnits(10), AlertThreshold: money.QuantityFromUnits(2)},
		{Type: domain.InventoryTypeRawMaterial, Name: "Sugar", UnitPrice: money.FromMajor(8), Stock: money.QuantityFromUnits(5), AlertThreshold: money.QuantityFromUnits(2)},
	}

	report := Evaluate(records, products)
	if want := money.FromMajor(240); report.Valuation != want {
		t.Fatalf("valuation = %s, want %s", report.Valuation, want)
	}
	if report.InactiveValuation != 0 {
		t.Fatalf("inactive valuation = %s, want 0", report.InactiveValuation)
	}
	if report.Total != 2 || report.OK != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if want := money.QuantityFromUnits(15); report.TotalUnits != want {
		t.Fatalf("total units = %s, want %s", report.TotalUnits, want)
	}
}

func TestEvaluateSplitsInactiveValuation(t *testing.T) {
	products := map[string]domain.Product{
		"P1": {ProductID: "P1", Price: money.FromMajor(20), Active: true},
		"P2": {ProductID: "P2", Price: money.FromMajor(8), Active: false},
	}
	records := []domain.InventoryRecord{
		{Type: domain.InventoryTypeDirectSale, ProductID: "P1", Stock: money.QuantityFromUnits(10)},
		{Type: domain.InventoryTypeDirectSale, ProductID: "P2", Stock: money.QuantityFromUnits(5)},
	}

	report := Evaluate(records, products)
	if want := money.FromMajor(240); report.Valuation != want {
		t.Fatalf("valuation = %s, want %s", report.Valuation, want)
	}
	if want := money.FromMajor(40); report.InactiveValuation != want {
		t.Fatalf("inactive valuation = %s, want %s", report.InactiveValuation, want)
	}
}

func TestEvaluateToleratesDanglingLinks(t *testing.T) {
	records := []domain.InventoryRecord{
		{Type: domain.InventoryTypeDirectSale, ProductID: "missing", Stock: money.QuantityFromUnits(4)},
		{Type: domain.InventoryTypeRawMaterial, Stock: money.QuantityFromUnits(3)},
	}

	report := Evaluate(records, map[string]domain.Product{})
	if report.Valuation != 0 {
		t.Fatalf("expected zero valuation for unresolvable records, got %s", report.Valuation)
	}
	if report.Total != 2 {
		t.Fatalf("expected both records counted, got %d", report.Total)
	}
}

func TestLowStockSelection(t *testing.T) {
	records := []domain.InventoryRecord{
		record("Samosa", 40, 10),
		record("Milk", 0, 5),
		record("Sugar", 3, 10),
	}

	flagged := LowStock(records)
	if len(flagged) != 2 {
		t.Fatalf("expected 2 flagged records, got %d", len(flagged))
	}
	if flagged[0].Name != "Milk" || flagged[1].Name != "Sugar" {
		t.Fatalf("expected input order preserved, got %s then %s", flagged[0].Name, flagged[1].Name)
	}
}

func TestSortedByStatusPutsOutFirst(t *testing.T) {
	records := []domain.InventoryRecord{
		record("Samosa", 40, 10),
		record("Milk", 0, 5),
		record("Sugar", 3, 10),
	}

	sorted := Sorted(records, SortByStatus, false)
	if sorted[0].Name != "Milk" {
		t.Fatalf("expected out-of-stock first, got %s", sorted[0].Name)
	}
	if sorted[1].Name != "Sugar" {
		t.Fatalf("expected low second, got %s", sorted[1].Name)
	}

	// The input slice is never reordered.
	if records[0].Name != "Samosa" {
		t.Fatalf("input slice mutated")
	}
}

func TestSortedByNameIsCaseInsensitiveAndStable(t *testing.T) {
	records := []domain.InventoryRecord{
		{Name: "banana", Stock: 1},
		{Name: "Apple", Stock: 1},
		{Name: "apple", Stock: 2},
	}

	sorted := Sorted(records, SortByName, false)
	if sorted[0].Name != "Apple" || sorted[1].Name != "apple" {
		t.Fatalf("expected stable case-insensitive order, got %s then %s", sorted[0].Name, sorted[1].Name)
	}
	if sorted[2].Name != "banana" {
		t.Fatalf("expected banana last, got %s", sorted[2].Name)
	}
}

func TestFilterCombinesCriteria(t *testing.T) {
	records := []domain.InventoryRecord{
		record("Tea Powder", 5, 2),
		record("Milk", 0, 5),
		{Name: "Samosa", Type: domain.InventoryTypeDirectSale, Stock: money.QuantityFromUnits(40), AlertThreshold: money.QuantityFromUnits(10)},
	}

	got := Filter(records, domain.InventoryTypeRawMaterial, "", "")
	if len(got) != 2 {
		t.Fatalf("type filter: expected 2, got %d", len(got))
	}

	got = Filter(records, "", StatusOut, "")
	if len(got) != 1 || got[0].Name != "Milk" {
		t.Fatalf("status filter: expected Milk, got %v", got)
	}

	got = Filter(records, domain.InventoryTypeRawMaterial, "", "tea")
	if len(got) != 1 || got[0].Name != "Tea Powder" {
		t.Fatalf("combined filter: expected Tea Powder, got %v", got)
	}
}
