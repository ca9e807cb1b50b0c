package cart

import (
	"testing"
	"time"

	"rebill/internal/domain"
	"rebill/internal/money"
)

var (
	productA = domain.Product{ProductID: "A", Name: "Masala Chai", Price: money.FromMajor(50), Category: "tea", Active: true}
	productB = domain.Product{ProductID: "B", Name: "Samosa", Price: money.FromMajor(30), Category: "snacks", Active: true}
)

func TestAddOrIncrementMergesRepeatedAdds(t *testing.T) {
	order := New()
	for i := 0; i < 3; i++ {
		order = AddOrIncrement(order, productA)
	}

	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Lines))
	}
	if order.Lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", order.Lines[0].Quantity)
	}
	if want := money.FromMajor(150); Total(order) != want {
		t.Fatalf("expected total %s, got %s", want, Total(order))
	}
}

func TestAddDenormalizesProductFields(t *testing.T) {
	order := AddOrIncrement(New(), productA)

	line := order.Lines[0]
	if line.Name != "Masala Chai" || line.Category != "tea" {
		t.Fatalf("expected denormalized name and category, got %+v", line)
	}
	if line.Price != productA.Price {
		t.Fatalf("expected price copied at add time")
	}
}

func TestSetQuantityRemovesOnZero(t *testing.T) {
	order := AddOrIncrement(New(), productA)
	order = AddOrIncrement(order, productB)

	order = SetQuantity(order, "A", 0)
	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line after removal, got %d", len(order.Lines))
	}
	if order.Lines[0].ProductID != "B" {
		t.Fatalf("expected B to remain, got %s", order.Lines[0].ProductID)
	}

	// Removing again, or removing an unknown product, changes nothing.
	order = SetQuantity(order, "A", 0)
	order = SetQuantity(order, "unknown", -5)
	if len(order.Lines) != 1 {
		t.Fatalf("expected removal to be idempotent, got %d lines", len(order.Lines))
	}
}

func TestTotalGrowsWithAdds(t *testing.T) {
	order := New()
	last := Total(order)
	for i := 0; i < 5; i++ {
		order = AddOrIncrement(order, productB)
		if Total(order) <= last {
			t.Fatalf("total should grow on each add: %s then %s", last, Total(order))
		}
		last = Total(order)
	}
}

func TestCartLifecycle(t *testing.T) {
	order := New()
	order = AddOrIncrement(order, productA)
	order = AddOrIncrement(order, productA)
	order = AddOrIncrement(order, productB)

	if want := money.FromMajor(130); Total(order) != want {
		t.Fatalf("expected total %s, got %s", want, Total(order))
	}

	order = SetQuantity(order, "A", 0)
	if want := money.FromMajor(30); Total(order) != want {
		t.Fatalf("expected total %s after removing A, got %s", want, Total(order))
	}
}

func TestOperationsDoNotAliasInput(t *testing.T) {
	base := AddOrIncrement(New(), productA)

	_ = AddOrIncrement(base, productA)
	_ = SetQuantity(base, "A", 9)

	if base.Lines[0].Quantity != 1 {
		t.Fatalf("input order mutated: quantity %d", base.Lines[0].Quantity)
	}
}

func TestClearKeepsEditTarget(t *testing.T) {
	order := Seed(domain.Bill{
		BillNo: 12,
		Items:  []domain.LineItem{{ProductID: "A", Price: money.FromMajor(50), Quantity: 2}},
	})

	order = Clear(order)
	if order.BillNo != 12 {
		t.Fatalf("expected bill number to survive clear, got %d", order.BillNo)
	}
	if !IsEmpty(order) {
		t.Fatalf("expected empty order after clear")
	}
}

func TestBuildLinesReportsUnknownProducts(t *testing.T) {
	catalog := map[string]domain.Product{"A": productA}

	lines, missing := BuildLines([]domain.BillItemRequest{
		{ProductID: "A", Quantity: 2},
		{ProductID: "ghost", Quantity: 1},
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 0},
	}, catalog)

	if len(missing) != 1 || missing[0] != "ghost" {
		t.Fatalf("expected ghost reported missing, got %v", missing)
	}
	if len(lines) != 1 {
		t.Fatalf("expected duplicate ids merged into 1 line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", lines[0].Quantity)
	}
}

func TestClickGuardWindow(t *testing.T) {
	guard := NewClickGuard(200 * time.Millisecond)
	start := time.Unix(0, 0)

	if !guard.Allow("A", start) {
		t.Fatalf("first click should pass")
	}
	if guard.Allow("A", start.Add(150*time.Millisecond)) {
		t.Fatalf("click inside window should be swallowed")
	}
	if !guard.Allow("B", start.Add(150*time.Millisecond)) {
		t.Fatalf("different product should not be affected")
	}
	if !guard.Allow("A", start.Add(400*time.Millisecond)) {
		t.Fatalf("click after window should pass")
	}

	guard.Reset()
	if !guard.Allow("A", start.Add(401*time.Millisecond)) {
		t.Fatalf("click after reset should pass")
	}
}
