// Package declare rate-limits self-description broadcasts.
package declare

import "time"

// DefaultWindow is the minimum spacing between two declare events.
const DefaultWindow = 12 * time.Hour

// ShouldDeclare reports whether a declare is due with the default window.
func ShouldDeclare(last, now time.Time) bool {
	return due(last, now, DefaultWindow)
}

func due(last, now time.Time, window time.Duration) bool {
	return last.IsZero() || now.Sub(last) > window
}

// Throttler owns the timestamp of the last declare event. It is not safe for
// concurrent use; the runner calls it from a single goroutine.
type Throttler struct {
	Window time.Duration
	last   time.Time
}

// NewThrottler returns a Throttler using DefaultWindow.
func NewThrottler() *Throttler {
	return &Throttler{Window: DefaultWindow}
}

// Due reports whether a declare should happen at now.
func (t *Throttler) Due(now time.Time) bool {
	window := t.Window
	if window <= 0 {
		window = DefaultWindow
	}

	return due(t.last, now, window)
}

// Mark records a declare event at now, whatever its outcome.
func (t *Throttler) Mark(now time.Time) {
	t.last = now
}

// Last returns the time of the last declare, or the zero time.
func (t *Throttler) Last() time.Time {
	return t.last
}
