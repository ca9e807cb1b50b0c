package inventory

import (
	"sort"
	"strings"

	"rebill/internal/domain"
)

// SortKey selects the column the inventory screen sorts by.
type SortKey string

const (
	SortByName   SortKey = "name"
	SortByStock  SortKey = "stock"
	SortByType   SortKey = "type"
	SortByStatus SortKey = "status"
)

// Sorted returns a copy of the records ordered by the given key. String
// comparisons are case-insensitive and ties keep the input order.
func Sorted(records []domain.InventoryRecord, key SortKey, descending bool) []domain.InventoryRecord {
	out := make([]domain.InventoryRecord, len(records))
	copy(out, records)

	less := func(a, b domain.InventoryRecord) bool {
		switch key {
		case SortByStock:
			return a.Stock < b.Stock
		case SortByType:
			return strings.ToLower(a.Type) < strings.ToLower(b.Type)
		case SortByStatus:
			return statusRank(Status(a)) < statusRank(Status(b))
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// Filter narrows a snapshot by type, status and a case-insensitive name
// query. Empty criteria match everything.
func Filter(records []domain.InventoryRecord, recordType string, status StockStatus, query string) []domain.InventoryRecord {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.InventoryRecord, 0, len(records))
	for _, record := range records {
		if recordType != "" && !strings.EqualFold(record.Type, recordType) {
			continue
		}
		if status != "" && Status(record) != status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(record.Name), query) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// statusRank orders statuses by urgency: out, then low, then ok.
func statusRank(s StockStatus) int {
	switch s {
	case StatusOut:
		return 0
	case StatusLow:
		return 1
	default:
		return 2
	}
}
