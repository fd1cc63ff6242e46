package sync

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into one call of fn after a quiet period.
// It owns at most one timer; every Trigger resets it.
type Debouncer struct {
	timer   *time.Timer
	fn      func()
	delay   time.Duration
	mu      sync.Mutex
	stopped bool
}

// NewDebouncer creates a debouncer calling fn delay after the last Trigger.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fn)
		return
	}
	d.timer.Reset(d.delay)
}

// Stop cancels a pending call. Triggers after Stop are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
