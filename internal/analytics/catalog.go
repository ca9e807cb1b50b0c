// Package analytics derives the dashboard's presentation data: category
// sales shares with stable color assignments, pie-chart arc geometry, and
// date-scoped bill filtering.
package analytics

import "strings"

// palette is the fixed chart palette. Colors are assigned by position in
// the sorted breakdown and wrap when categories outnumber entries, so two
// renders of the same input always color identically.
var palette = []string{
	"#4e79a7",
	"#f28e2b",
	"#e15759",
	"#76b7b2",
	"#59a14f",
	"#edc948",
	"#b07aa1",
	"#ff9da7",
	"#9c755f",
	"#bab0ac",
}

// categoryLabels maps raw category keys to display labels. Both the billing
// screen and the dashboard resolve through this one table so the legend and
// the product grid never disagree.
var categoryLabels = map[string]string{
	"tea":       "Tea",
	"coffee":    "Coffee",
	"juice":     "Juice",
	"snacks":    "Snacks",
	"meals":     "Meals",
	"bakery":    "Bakery",
	"dessert":   "Dessert",
	"beverage":  "Beverages",
	"household": "Household",
	"other":     "Other",
}

// FallbackLabel is used for category keys with no catalog entry.
const FallbackLabel = "Uncategorized"

// Label resolves a category key to its display label. Unknown non-empty
// keys fall back to the raw key (title-cased is the caller's concern);
// an empty key resolves to FallbackLabel.
func Label(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return FallbackLabel
	}
	if label, ok := categoryLabels[strings.ToLower(trimmed)]; ok {
		return label
	}
	return trimmed
}

// ColorAt returns the palette color for a position in the sorted breakdown.
func ColorAt(index int) string {
	if index < 0 {
		index = 0
	}
	return palette[index%len(palette)]
}
