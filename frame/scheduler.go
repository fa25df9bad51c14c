// Package frame provides a cooperative, single-owner frame scheduler.
//
// It plays the role of a display refresh loop: callbacks requested with
// Request run once on the next Step, timers registered with After run on the
// first Step at or past their deadline. Nothing here starts goroutines; the
// owner (the daemon loop) calls Step from its ticker.
package frame

import (
	"sort"
	"time"
)

// Handle identifies a pending frame callback or timer. The zero Handle is never issued.
type Handle uint64

// Callback runs once per requested frame. dt is the clamped time since the previous Step.
type Callback func(now time.Time, dt time.Duration)

type entry struct {
	h    Handle
	at   time.Time // timers only
	cb   Callback
	tcb  func(now time.Time)
	dead bool
}

// Scheduler queues frame callbacks and timers.
//
// This is intended to be used only by the owning goroutine (single-owner).
type Scheduler struct {
	clock    Clock
	interval time.Duration
	maxDt    time.Duration

	next     Handle
	frames   []*entry
	timers   []*entry
	running  []*entry
	lastStep time.Time
	steps    uint64
}

// NewScheduler creates a scheduler for a nominal refresh rate of hz.
// A non-positive hz falls back to 60.
func NewScheduler(clock Clock, hz int) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if hz <= 0 {
		hz = 60
	}
	interval := time.Second / time.Duration(hz)
	return &Scheduler{
		clock:    clock,
		interval: interval,
		// Allow up to ~2 frames worth of time to be integrated in one step.
		maxDt: 2 * interval,
	}
}

// Now returns the scheduler clock's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Interval returns the nominal frame interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Steps returns the number of Step calls so far.
func (s *Scheduler) Steps() uint64 { return s.steps }

// Request schedules cb to run on the next Step.
func (s *Scheduler) Request(cb Callback) Handle {
	if cb == nil {
		return 0
	}
	s.next++
	s.frames = append(s.frames, &entry{h: s.next, cb: cb})
	return s.next
}

// After schedules cb to run on the first Step at or after now+d.
func (s *Scheduler) After(d time.Duration, cb func(now time.Time)) Handle {
	if cb == nil {
		return 0
	}
	s.next++
	s.timers = append(s.timers, &entry{h: s.next, at: s.clock.Now().Add(d), tcb: cb})
	return s.next
}

// Cancel drops a pending callback or timer. It reports whether anything was canceled.
// Canceling a callback that is part of the batch currently being run also prevents it from running.
func (s *Scheduler) Cancel(h Handle) bool {
	if h == 0 {
		return false
	}
	if cancelIn(&s.frames, h) || cancelIn(&s.timers, h) {
		return true
	}
	for _, e := range s.running {
		if e.h == h && !e.dead {
			e.dead = true
			return true
		}
	}
	return false
}

func cancelIn(list *[]*entry, h Handle) bool {
	for i, e := range *list {
		if e.h == h {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of queued frame callbacks and timers.
func (s *Scheduler) Pending() int {
	return len(s.frames) + len(s.timers)
}

// Step runs due timers, then every frame callback queued before this call.
// Callbacks requested while stepping run on the next Step. Returns the number of callbacks run.
func (s *Scheduler) Step(now time.Time) int {
	s.steps++

	dt := s.interval
	if !s.lastStep.IsZero() {
		dt = now.Sub(s.lastStep)
	}
	if dt < 0 {
		dt = 0
	}
	if s.maxDt > 0 && dt > s.maxDt {
		dt = s.maxDt
	}
	s.lastStep = now

	ran := 0

	// Timers first: an idle timeout firing End() may start a momentum frame,
	// which must not run in the same step.
	var due []*entry
	kept := s.timers[:0]
	for _, t := range s.timers {
		if !t.at.After(now) {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	s.timers = kept
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })

	s.running = due
	for _, t := range due {
		if t.dead {
			continue
		}
		t.dead = true
		t.tcb(now)
		ran++
	}

	s.running = s.frames
	s.frames = nil
	for _, f := range s.running {
		if f.dead {
			continue
		}
		f.dead = true
		f.cb(now, dt)
		ran++
	}
	s.running = nil

	return ran
}
