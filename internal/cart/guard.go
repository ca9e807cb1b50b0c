package cart

import (
	"sync"
	"time"
)

// DefaultGuardWindow is the double-click suppression window for product adds.
const DefaultGuardWindow = 200 * time.Millisecond

// ClickGuard collapses rapid duplicate add clicks for the same product into
// a single increment. It models the billing screen's double-click guard and
// is interaction state, not a business rule: each session owns one guard and
// resets it when the session ends.
type ClickGuard struct {
	mu      sync.Mutex
	window  time.Duration
	lastAdd map[string]time.Time
}

func NewClickGuard(window time.Duration) *ClickGuard {
	if window <= 0 {
		window = DefaultGuardWindow
	}
	return &ClickGuard{window: window, lastAdd: make(map[string]time.Time)}
}

// Allow reports whether an add for the product at the given instant should
// be applied. A second call for the same product within the window is
// rejected; calls for different products never interfere.
func (g *ClickGuard) Allow(productID string, at time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.lastAdd[productID]; ok && at.Sub(last) < g.window {
		return false
	}
	g.lastAdd[productID] = at
	return true
}

// Reset clears all recorded clicks. Called when the owning session closes.
func (g *ClickGuard) Reset() {
	g.mu.Lock()
	g.lastAdd = make(map[string]time.Time)
	g.mu.Unlock()
}
