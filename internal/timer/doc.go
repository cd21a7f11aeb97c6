// Package timer provides the per-device scheduler used by drivers to run
// long hardware operations without blocking the dispatch path.
//
// Every device owns one Scheduler, built around the device's own lock. A
// scheduled callback fires on its own goroutine, acquires the device lock,
// re-checks that it was not cancelled in the meantime and only then runs its
// body, still holding the lock. Drivers therefore mutate private state and
// publish from inside the body without any locking of their own.
//
// # Locking Discipline
//
// Every method of Scheduler and Timer must be called with the device lock
// held. This single rule is what makes Cancel race-free without deadlock:
//
//   - If the callback body is mid-execution it holds the device lock, so a
//     canceller cannot be running at the same time. By the time Cancel
//     executes, the body has completed.
//   - If the callback has not yet acquired the lock, Cancel marks the timer
//     cancelled under the lock the callback is about to take; the callback
//     observes the mark and its body never runs.
//
// When Cancel returns the body has either fully completed or will never
// execute. There is no third possibility.
//
// # Periodic Timers
//
// A periodic operation reschedules itself from inside its own body:
//
//	d.poll = d.Timers().Schedule(3*time.Second, func() {
//		d.readTemperature()
//		d.poll.Reschedule(3 * time.Second)
//	})
//
// Because the next cycle is armed only after the body finishes, a slow body
// lengthens the effective period instead of overlapping with itself.
package timer
