// Package debounce coalesces rapid repeated triggers into one deferred task.
//
// A Debouncer has a single pending slot. Schedule cancels whatever is
// pending and arms the new task; only the last task scheduled within a
// quiet window runs.
package debounce

import (
	"sync"
	"time"
)

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

// Scheduler arms callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the wall clock via time.AfterFunc.
type RealScheduler struct{}

// AfterFunc implements Scheduler.
func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently scheduled task after a quiet period.
//
// Thread-safety: all methods are safe for concurrent use. The task runs on
// the scheduler's goroutine without the Debouncer's lock held.
type Debouncer struct {
	delay     time.Duration
	scheduler Scheduler

	mu      sync.Mutex
	timer   Timer
	task    func()
	pending uint64 // generation of the armed task; 0 when none
	gen     uint64
}

// New creates a Debouncer. A nil scheduler means RealScheduler.
func New(delay time.Duration, scheduler Scheduler) *Debouncer {
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	return &Debouncer{delay: delay, scheduler: scheduler}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending task and arms task to run after the quiet
// period.
func (d *Debouncer) Schedule(task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.task = task
	d.pending = gen
	d.timer = d.scheduler.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending task, if any. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending != 0
	d.stopLocked()
	return had
}

// Flush runs the pending task immediately on the caller's goroutine and
// reports whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	task := d.task
	had := d.pending != 0
	d.stopLocked()
	d.mu.Unlock()

	if had && task != nil {
		task()
	}
	return had
}

// Pending reports whether a task is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != 0
}

// fire runs the task armed at generation gen unless it was superseded or
// canceled after the timer fired but before fire took the lock.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.pending != gen {
		d.mu.Unlock()
		return
	}
	task := d.task
	d.pending = 0
	d.task = nil
	d.timer = nil
	d.mu.Unlock()

	if task != nil {
		task()
	}
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.task = nil
	d.pending = 0
}
