// Package inventory classifies stock records and derives the aggregate
// figures the inventory screen shows: per-status counts, total units on
// hand, and stock valuation split by product active state.
package inventory

import (
	"rebill/internal/domain"
	"rebill/internal/money"
)

// StockStatus is the health bucket of a single record. Exactly one status
// applies to any stock level.
type StockStatus string

const (
	StatusOK  StockStatus = "ok"
	StatusLow StockStatus = "low"
	StatusOut StockStatus = "out"
)

// Status classifies a record: out when stock is zero or below, low when
// positive but at or under the alert threshold, ok otherwise. A record with
// stock exactly at the threshold is low, not ok.
func Status(record domain.InventoryRecord) StockStatus {
	switch {
	case record.Stock <= 0:
		return StatusOut
	case record.Stock <= record.AlertThreshold:
		return StatusLow
	default:
		return StatusOK
	}
}

// Report aggregates a full inventory snapshot.
type Report struct {
	Total      int            `json:"total"`
	OK         int            `json:"ok"`
	Low        int            `json:"low"`
	Out        int            `json:"out"`
	TotalUnits money.Quantity `json:"total_units"`
	// Valuation sums direct-sale stock at the linked product's price
	// (whether or not the product is active) plus raw-material stock at the
	// record's own unit price.
	Valuation money.Money `json:"valuation"`
	// InactiveValuation is the slice of the direct-sale valuation whose
	// linked product is inactive.
	InactiveValuation money.Money `json:"inactive_valuation"`
}

// Evaluate computes the aggregate report over a snapshot. Direct-sale
// records whose product id resolves to nothing contribute zero to the
// valuation; raw materials with no unit price likewise default to zero.
func Evaluate(records []domain.InventoryRecord, products map[string]domain.Product) Report {
	report := Report{Total: len(records)}

	for _, record := range records {
		switch Status(record) {
		case StatusOut:
			report.Out++
		case StatusLow:
			report.Low++
		default:
			report.OK++
		}
		report.TotalUnits += record.Stock

		switch record.Type {
		case domain.InventoryTypeDirectSale:
			product, ok := products[record.ProductID]
			if !ok {
				continue
			}
			value := product.Price.MulQuantity(record.Stock)
			report.Valuation += value
			if !product.Active {
				report.InactiveValuation += value
			}
		case domain.InventoryTypeRawMaterial:
			report.Valuation += record.UnitPrice.MulQuantity(record.Stock)
		}
	}

	return report
}

// LowStock returns the records that need attention (low or out), preserving
// input order.
func LowStock(records []domain.InventoryRecord) []domain.InventoryRecord {
	flagged := make([]domain.InventoryRecord, 0, len(records))
	for _, record := range records {
		if Status(record) != StatusOK {
			flagged = append(flagged, record)
		}
	}
	return flagged
}
