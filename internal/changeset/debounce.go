package changeset

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet window used when none is configured.
const DefaultDebounce = 50 * time.Millisecond

// Debouncer coalesces bursts of triggers into a single trailing call. Each
// Trigger inside the quiet window reschedules the call.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	fn      func()
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// NewDebouncer returns a debouncer calling fn once wait has elapsed after the
// last Trigger. A non-positive wait makes Trigger call fn synchronously.
func NewDebouncer(wait time.Duration, fn func()) *Debouncer {
	return &Debouncer{wait: wait, fn: fn}
}

// Trigger schedules fn, cancelling any call already scheduled.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.wait <= 0 {
		d.mu.Unlock()
		d.fn()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
	d.mu.Unlock()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs a scheduled call immediately. It does nothing when no call is
// pending.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.cancelLocked()
	d.mu.Unlock()

	d.fn()
}

// Stop drops any scheduled call; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
