// Package debounce coalesces bursts of change notifications into one call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once a burst of Trigger calls has been quiet for delay.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	armed   bool
	stopped bool
}

// New returns a Debouncer for fn.
func New(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the quiet period. A stopped Debouncer ignores it.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.armed = true
	if d.timer != nil {
		d.timer.Reset(d.delay)
		return
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	run := d.armed && !d.stopped
	d.armed = false
	d.mu.Unlock()

	if run {
		d.fn()
	}
}

// Flush runs fn now if a call is pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	run := d.armed && !d.stopped
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	if run {
		d.fn()
	}
}

// Stop drops any pending call and disables the Debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
