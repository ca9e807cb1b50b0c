// Package cart implements order aggregation for the billing screen: merging
// repeated product adds into quantity-keyed line items and deriving totals.
// The same code computes bill totals on the server, so the terminal and the
// backend can never disagree by construction.
package cart

import (
	"rebill/internal/domain"
	"rebill/internal/money"
)

// Order is an ordered collection of line items, at most one per product id.
// A line with quantity below one is removed, never stored. Orders are values:
// every operation returns a fresh Order and never aliases the input's lines.
type Order struct {
	// BillNo is set when the order was seeded from an existing bill for
	// editing, zero for a new billing session.
	BillNo int
	Lines  []domain.LineItem
}

// New returns an empty Order for a fresh billing session.
func New() Order {
	return Order{}
}

// Seed builds an Order from an existing bill's items, tagged with the
// originating bill number so submission updates instead of creating.
func Seed(bill domain.Bill) Order {
	lines := make([]domain.LineItem, len(bill.Items))
	copy(lines, bill.Items)
	return Order{BillNo: bill.BillNo, Lines: lines}
}

// AddOrIncrement adds one unit of the product: an existing line's quantity
// grows by 1, otherwise a new line is appended with quantity 1, copying the
// product's current name, price and category.
func AddOrIncrement(order Order, product domain.Product) Order {
	next := clone(order)
	for i, line := range next.Lines {
		if line.ProductID == product.ProductID {
			next.Lines[i].Quantity++
			return next
		}
	}
	next.Lines = append(next.Lines, domain.LineItem{
		ProductID: product.ProductID,
		Name:      product.Name,
		Price:     product.Price,
		Category:  product.Category,
		Quantity:  1,
	})
	return next
}

// SetQuantity replaces the quantity of the product's line. A quantity of
// zero or less removes the line entirely; setting an absent product to zero
// is a no-op.
func SetQuantity(order Order, productID string, quantity int) Order {
	next := clone(order)
	for i, line := range next.Lines {
		if line.ProductID != productID {
			continue
		}
		if quantity <= 0 {
			next.Lines = append(next.Lines[:i:i], next.Lines[i+1:]...)
		} else {
			next.Lines[i].Quantity = quantity
		}
		return next
	}
	return next
}

// Clear returns an empty Order, keeping the edit-mode bill number so a
// cleared edit session still targets the same bill.
func Clear(order Order) Order {
	return Order{BillNo: order.BillNo}
}

// Total derives the order total from its lines. It is recomputed on every
// call, never cached.
func Total(order Order) money.Money {
	var total money.Money
	for _, line := range order.Lines {
		total += line.Price.MulInt(line.Quantity)
	}
	return total
}

// ItemCount reports the total number of units across all lines.
func ItemCount(order Order) int {
	count := 0
	for _, line := range order.Lines {
		count += line.Quantity
	}
	return count
}

// Quantity reports the quantity of the product's line, zero when absent.
func Quantity(order Order, productID string) int {
	for _, line := range order.Lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// IsEmpty reports whether the order has no lines.
func IsEmpty(order Order) bool {
	return len(order.Lines) == 0
}

// BuildLines resolves item requests (product id + quantity) against the
// product catalog into denormalized line items, merging duplicate ids.
// Unknown product ids are reported back to the caller; lines with a
// non-positive quantity are dropped.
func BuildLines(items []domain.BillItemRequest, products map[string]domain.Product) (lines []domain.LineItem, missing []string) {
	order := Order{}
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		product, ok := products[item.ProductID]
		if !ok {
			missing = append(missing, item.ProductID)
			continue
		}
		for n := 0; n < item.Quantity; n++ {
			order = AddOrIncrement(order, product)
		}
	}
	return order.Lines, missing
}

func clone(order Order) Order {
	lines := make([]domain.LineItem, len(order.Lines))
	copy(lines, order.Lines)
	return Order{BillNo: order.BillNo, Lines: lines}
}
