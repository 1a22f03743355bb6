package layout

import (
	"sync"
	"time"
)

// Debouncer runs a task once its trigger has been quiet for a fixed delay.
// Each Trigger cancels the pending run and schedules a new one.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	task    func()
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer returns a debouncer that runs task after delay.
func NewDebouncer(delay time.Duration, task func()) *Debouncer {
	return &Debouncer{delay: delay, task: task}
}

// Trigger schedules the task, superseding any pending run.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A timer that lost the race with Trigger or Cancel must not run.
	if d.stopped || seq != d.seq || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.task()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops the pending run, if any, and reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.seq++
	return true
}

// Flush runs the pending task now, on the calling goroutine.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	pending := d.cancelLocked()
	d.mu.Unlock()
	if pending {
		d.task()
	}
}

// Stop cancels the pending run and disables further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.stopped = true
	d.mu.Unlock()
}
