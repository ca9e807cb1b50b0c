package analytics

import (
	"sort"

	"rebill/internal/domain"
	"rebill/internal/money"
)

// Slice is one category's share of the day's sales.
type Slice struct {
	Category string      `json:"category"`
	Label    string      `json:"label"`
	Amount   money.Money `json:"amount"`
	Percent  float64     `json:"percent"`
	Color    string      `json:"color"`
}

// Breakdown aggregates confirmed bills into per-category sales slices,
// sorted by amount descending. Ties break on category key ascending so
// repeated renders keep the same order and therefore the same colors.
func Breakdown(bills []domain.Bill) []Slice {
	totals := make(map[string]money.Money)
	for _, bill := range bills {
		if bill.Status != domain.BillStatusConfirmed {
			continue
		}
		for _, item := range bill.Items {
			totals[item.Category] += item.Price.MulInt(item.Quantity)
		}
	}
	return buildSlices(totals)
}

// BreakdownFromTotals builds slices from precomputed category totals, for
// callers that already hold a summary rather than raw bills.
func BreakdownFromTotals(totals map[string]money.Money) []Slice {
	return buildSlices(totals)
}

func buildSlices(totals map[string]money.Money) []Slice {
	slices := make([]Slice, 0, len(totals))
	var grand money.Money
	for category, amount := range totals {
		if amount == 0 {
			continue
		}
		grand += amount
		slices = append(slices, Slice{Category: category, Label: Label(category), Amount: amount})
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if slices[i].Amount != slices[j].Amount {
			return slices[i].Amount > slices[j].Amount
		}
		return slices[i].Category < slices[j].Category
	})
	for i := range slices {
		if grand > 0 {
			// Unrounded share so the percentages always sum to 100;
			// renderers round when formatting.
			slices[i].Percent = float64(slices[i].Amount) / float64(grand) * 100
		}
		slices[i].Color = ColorAt(i)
	}
	return slices
}

// Total sums the slice amounts.
func Total(slices []Slice) money.Money {
	var sum money.Money
	for _, s := range slices {
		sum += s.Amount
	}
	return sum
}
