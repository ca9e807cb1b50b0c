// Package terminal holds the billing screen's interaction state: the open
// order, the double-click guard, the held data snapshot and the notification
// banner. A Session is confined to the UI goroutine; nothing here talks to
// the network.
package terminal

import (
	"time"

	"rebill/internal/cart"
	"rebill/internal/domain"
	"rebill/internal/money"
)

// SummaryState tags the held summary so "not loaded yet" is distinguishable
// from "loaded with zero sales" and from "refresh failed".
type SummaryState int

const (
	SummaryNotLoaded SummaryState = iota
	SummaryLoaded
	SummaryFailed
)

func (s SummaryState) String() string {
	switch s {
	case SummaryLoaded:
		return "loaded"
	case SummaryFailed:
		return "failed"
	default:
		return "not_loaded"
	}
}

// Snapshot is the screen's held copy of backend data. Refreshes replace
// fields wholesale; overlapping refreshes apply last-write-wins.
type Snapshot struct {
	Products     []domain.Product
	Bills        []domain.Bill
	Summary      domain.SalesSummary
	SummaryState SummaryState
	NextBillNo   int
}

// Session is the state of one operator's billing screen. It is not safe for
// concurrent use; a session lives and dies on the UI goroutine.
type Session struct {
	order    cart.Order
	guard    *cart.ClickGuard
	snapshot Snapshot
	notifier *Notifier
	now      func() time.Time
}

func NewSession() *Session {
	return &Session{
		guard:    cart.NewClickGuard(cart.DefaultGuardWindow),
		notifier: NewNotifier(DefaultDismissAfter),
		now:      time.Now,
	}
}

// Add puts one unit of the product on the order. A second click on the same
// product inside the guard window is swallowed, so a double-click nets one
// unit. Reports whether the order changed.
func (s *Session) Add(product domain.Product) bool {
	if !s.guard.Allow(product.ProductID, s.now()) {
		return false
	}
	s.order = cart.AddOrIncrement(s.order, product)
	return true
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func (s *Session) SetQuantity(productID string, quantity int) {
	s.order = cart.SetQuantity(s.order, productID, quantity)
}

// ClearOrder empties the order but keeps the edit-mode bill number.
func (s *Session) ClearOrder() {
	s.order = cart.Clear(s.order)
}

// EditBill seeds the order from an existing bill so submission updates it.
func (s *Session) EditBill(bill domain.Bill) {
	s.order = cart.Seed(bill)
}

// Order returns a copy of the open order.
func (s *Session) Order() cart.Order {
	return s.order
}

// Total is the order total, recomputed on each call.
func (s *Session) Total() money.Money {
	return cart.Total(s.order)
}

// BillRequest converts the open order into the create/update payload,
// carrying the locally computed total for the server's integrity check.
func (s *Session) BillRequest(customerName string, print bool) domain.BillCreateRequest {
	total := cart.Total(s.order)
	items := make([]domain.BillItemRequest, 0, len(s.order.Lines))
	for _, line := range s.order.Lines {
		items = append(items, domain.BillItemRequest{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return domain.BillCreateRequest{
		CustomerName:  customerName,
		Items:         items,
		Print:         print,
		ExpectedTotal: &total,
	}
}

// EditingBillNo is the bill number the session was seeded from, zero for a
// fresh order.
func (s *Session) EditingBillNo() int {
	return s.order.BillNo
}

// ApplySnapshot replaces the held snapshot. The caller decides what it
// fetched; the last applied snapshot wins.
func (s *Session) ApplySnapshot(snapshot Snapshot) {
	s.snapshot = snapshot
}

// ApplySummary records a successful summary refresh.
func (s *Session) ApplySummary(summary domain.SalesSummary) {
	s.snapshot.Summary = summary
	s.snapshot.SummaryState = SummaryLoaded
}

// MarkSummaryFailed marks the held summary as stale after a failed refresh.
// The previous figures stay visible but the state tag flips.
func (s *Session) MarkSummaryFailed() {
	s.snapshot.SummaryState = SummaryFailed
}

// Snapshot returns the held snapshot.
func (s *Session) Snapshot() Snapshot {
	return s.snapshot
}

// Notifier exposes the session's banner state.
func (s *Session) Notifier() *Notifier {
	return s.notifier
}

// Close resets all interaction state: the order, the click guard, the held
// snapshot and any visible notification. A closed session can be reused as
// if freshly created.
func (s *Session) Close() {
	s.order = cart.Order{}
	s.guard.Reset()
	s.snapshot = Snapshot{}
	s.notifier.Dismiss()
}
