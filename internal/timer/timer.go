package timer

import (
	"sync"
	"time"
)

// Scheduler owns every timer of one device. It shares the device's lock:
// callbacks run under it and all Scheduler and Timer methods must be called
// with it held. See the package documentation for the discipline.
type Scheduler struct {
	locker sync.Locker
	timers map[*Timer]struct{}
	closed bool
}

// NewScheduler returns a scheduler bound to the given device lock.
func NewScheduler(locker sync.Locker) *Scheduler {
	return &Scheduler{
		locker: locker,
		timers: make(map[*Timer]struct{}),
	}
}

// Schedule arms a one-shot timer firing after delay. The callback runs on its
// own goroutine with the device lock held. Scheduling on a closed scheduler
// returns an inert, already-cancelled handle whose callback never runs.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Timer {
	t := &Timer{sched: s, fn: fn}
	t.done = sync.NewCond(s.locker)

	if s.closed {
		t.cancelled = true
		return t
	}

	s.timers[t] = struct{}{}
	t.arm(delay)
	return t
}

// CancelAll cancels every live timer and closes the scheduler. Used on the
// detach path: after it returns no callback body will ever run again, so
// private state can be released safely. The scheduler stays closed.
func (s *Scheduler) CancelAll() {
	s.closed = true
	for t := range s.timers {
		t.cancelled = true
		t.disarm()
		t.done.Broadcast()
	}
	s.timers = make(map[*Timer]struct{})
}

// Active returns the number of timers that are armed or may still fire.
func (s *Scheduler) Active() int {
	return len(s.timers)
}

// Timer is a single scheduled callback owned by one device. Handles stay
// valid after firing so periodic callbacks can reschedule themselves.
type Timer struct {
	sched *Scheduler
	fn    func()
	done  *sync.Cond

	// All fields below are guarded by the scheduler's device lock.
	armed     *time.Timer
	seq       int
	cancelled bool
}

// arm starts a new cycle. Device lock held.
func (t *Timer) arm(delay time.Duration) {
	t.seq++
	seq := t.seq
	t.armed = time.AfterFunc(delay, func() { t.fire(seq) })
}

// disarm stops the pending cycle if any. A cycle that already left the timer
// queue is suppressed by the sequence check in fire. Device lock held.
func (t *Timer) disarm() {
	if t.armed != nil {
		t.armed.Stop()
		t.armed = nil
	}
}

// fire runs one cycle on the timer goroutine.
func (t *Timer) fire(seq int) {
	t.sched.locker.Lock()
	defer t.sched.locker.Unlock()

	// Cancelled or superseded by a reschedule while this goroutine was
	// waiting for the lock: the body must not run.
	if t.cancelled || seq != t.seq {
		return
	}
	t.armed = nil

	t.fn()

	// The body may have rescheduled or cancelled this timer.
	if t.armed == nil {
		delete(t.sched.timers, t)
	}
	t.done.Broadcast()
}

// Reschedule arms the next cycle after delay, replacing any pending one.
// Called from inside the callback body this yields a periodic timer that
// never overlaps itself. Returns false once the timer has been cancelled.
// Device lock held.
func (t *Timer) Reschedule(delay time.Duration) bool {
	if t.cancelled {
		return false
	}
	t.disarm()
	if t.sched.closed {
		t.cancelled = true
		return false
	}
	t.sched.timers[t] = struct{}{}
	t.arm(delay)
	return true
}

// Cancel marks the timer cancelled and stops any pending cycle. When it
// returns the callback body has either already completed or will never run;
// the handle refuses any future reschedule. Device lock held.
func (t *Timer) Cancel() {
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.disarm()
	delete(t.sched.timers, t)
	t.done.Broadcast()
}

// Wait blocks until the timer is finished: its body completed without
// rescheduling, or it was cancelled. The device lock is released while
// waiting and held again on return. Device lock held on entry.
func (t *Timer) Wait() {
	for t.armed != nil && !t.cancelled {
		t.done.Wait()
	}
}

// Cancelled reports whether the timer has been cancelled. Device lock held.
func (t *Timer) Cancelled() bool {
	return t.cancelled
}
