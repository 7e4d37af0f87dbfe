// Package scheduler provides cancellable delayed and repeating tasks on
// top of an injectable clock, so timing-heavy behavior can be tested on
// virtual time instead of real sleeps.
package scheduler

import (
	"sync"
	"time"
)

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

// Clock abstracts time for schedulers and controllers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Delayed is a cancellable one-shot task.
type Delayed struct {
	mu    sync.Mutex
	timer Timer
	done  bool
}

// After schedules fn to run once after d on the given clock.
func After(clock Clock, d time.Duration, fn func()) *Delayed {
	task := &Delayed{}
	task.timer = clock.AfterFunc(d, func() {
		task.mu.Lock()
		if task.done {
			task.mu.Unlock()
			return
		}
		task.done = true
		task.mu.Unlock()
		fn()
	})
	return task
}

// Cancel stops the task if it has not fired yet.
func (d *Delayed) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return
	}
	d.done = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Repeating is a cancellable repeating task whose period is drawn fresh
// before every tick, which is what makes jittered cadences possible.
type Repeating struct {
	clock  Clock
	period func() time.Duration
	fn     func()

	mu      sync.Mutex
	timer   Timer
	running bool
	// gen invalidates in-flight ticks whenever the schedule is replaced
	// by Start, Stop or SuspendFor.
	gen uint64
}

// NewRepeating builds a repeating task. period is consulted before each
// tick, including the first.
func NewRepeating(clock Clock, period func() time.Duration, fn func()) *Repeating {
	return &Repeating{clock: clock, period: period, fn: fn}
}

// Start begins ticking. Calling Start on a running task restarts it,
// discarding the pending tick.
func (r *Repeating) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
	}
	r.running = true
	r.scheduleLocked()
}

// Stop cancels the pending tick. Idempotent.
func (r *Repeating) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.running = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Running reports whether the task has a pending tick.
func (r *Repeating) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// SuspendFor stops ticking for the given duration, then resumes
// automatically. Used for human-like rest periods.
func (r *Repeating) SuspendFor(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.gen++
	gen := r.gen
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.running && r.gen == gen {
			r.scheduleLocked()
		}
	})
}

func (r *Repeating) scheduleLocked() {
	gen := r.gen
	r.timer = r.clock.AfterFunc(r.period(), func() { r.tick(gen) })
}

func (r *Repeating) tick(gen uint64) {
	r.mu.Lock()
	if !r.running || r.gen != gen {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.fn()

	r.mu.Lock()
	// fn may have stopped or suspended the task; chain the next tick
	// only when the schedule is still ours.
	if r.running && r.gen == gen {
		r.scheduleLocked()
	}
	r.mu.Unlock()
}
