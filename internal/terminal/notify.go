package terminal

import (
	"sync"
	"time"
)

// DefaultDismissAfter is how long a banner stays up before auto-dismissing.
const DefaultDismissAfter = 5 * time.Second

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one banner message.
type Notification struct {
	Message  string
	Severity Severity
}

// Notifier shows one banner at a time and auto-dismisses it after a fixed
// interval. Showing a newer banner cancels the previous banner's timer, so a
// stale timer can never clear a message it did not create.
type Notifier struct {
	mu           sync.Mutex
	dismissAfter time.Duration
	current      *Notification
	timer        *time.Timer
	seq          uint64
}

func NewNotifier(dismissAfter time.Duration) *Notifier {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Notifier{dismissAfter: dismissAfter}
}

// Show replaces any visible banner and arms a fresh dismissal timer.
func (n *Notifier) Show(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.seq++
	n.current = &Notification{Message: message, Severity: severity}

	seq := n.seq
	n.timer = time.AfterFunc(n.dismissAfter, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		// Only clear if no newer banner replaced this one in the meantime.
		if n.seq == seq {
			n.current = nil
			n.timer = nil
		}
	})
}

// Dismiss clears the banner immediately and cancels its timer.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	n.current = nil
}

// Current returns the visible banner, or nil when none is shown.
func (n *Notifier) Current() *Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	copied := *n.current
	return &copied
}
