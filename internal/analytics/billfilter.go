package analytics

import (
	"sort"
	"time"

	"rebill/internal/domain"
	"rebill/internal/money"
)

// BillsOnDate keeps bills whose creation instant falls on the given
// calendar date in loc. Timestamps are stored UTC; the conversion happens
// here so a bill created at 23:30 UTC still lands on the next local day
// for zones ahead of UTC.
func BillsOnDate(bills []domain.Bill, date time.Time, loc *time.Location) []domain.Bill {
	if loc == nil {
		loc = time.UTC
	}
	year, month, day := date.In(loc).Date()
	matched := make([]domain.Bill, 0, len(bills))
	for _, bill := range bills {
		by, bm, bd := bill.CreatedAt.In(loc).Date()
		if by == year && bm == month && bd == day {
			matched = append(matched, bill)
		}
	}
	SortBills(matched)
	return matched
}

// SortBills orders bills newest first; equal timestamps fall back to
// descending bill number so pagination stays stable.
func SortBills(bills []domain.Bill) {
	sort.SliceStable(bills, func(i, j int) bool {
		if !bills[i].CreatedAt.Equal(bills[j].CreatedAt) {
			return bills[i].CreatedAt.After(bills[j].CreatedAt)
		}
		return bills[i].BillNo > bills[j].BillNo
	})
}

// HourlyBuckets sums confirmed-bill sales per local hour, keyed "00".."23".
func HourlyBuckets(bills []domain.Bill, loc *time.Location) map[string]money.Money {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[string]money.Money)
	for _, bill := range bills {
		if bill.Status != domain.BillStatusConfirmed {
			continue
		}
		hour := bill.CreatedAt.In(loc).Format("15")
		buckets[hour] += bill.TotalAmount
	}
	return buckets
}

// PeakHour returns the hour key with the highest sales, or "" when there are
// none. Ties resolve to the earlier hour.
func PeakHour(buckets map[string]money.Money) string {
	peak := ""
	var best money.Money
	hours := make([]string, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Strings(hours)
	for _, h := range hours {
		if buckets[h] > best {
			best = buckets[h]
			peak = h
		}
	}
	return peak
}
