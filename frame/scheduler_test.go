package frame

import (
	"testing"
	"time"
)

func newTestScheduler(t *testing.T) (*Scheduler, *ManualClock) {
	t.Helper()
	clock := NewManualClock(time.Unix(1000, 0))
	return NewScheduler(clock, 60), clock
}

func TestScheduler_RequestRunsOnNextStepOnly(t *testing.T) {
	s, clock := newTestScheduler(t)

	calls := 0
	s.Request(func(now time.Time, dt time.Duration) { calls++ })

	if ran := s.Step(clock.Advance(16 * time.Millisecond)); ran != 1 {
		t.Fatalf("expected 1 callback run, got %d", ran)
	}
	if ran := s.Step(clock.Advance(16 * time.Millisecond)); ran != 0 {
		t.Fatalf("expected 0 callbacks on second step, got %d", ran)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestScheduler_RequestDuringStepDefersToNextStep(t *testing.T) {
	s, clock := newTestScheduler(t)

	order := []int{}
	s.Request(func(now time.Time, dt time.Duration) {
		order = append(order, 1)
		s.Request(func(now time.Time, dt time.Duration) { order = append(order, 2) })
	})

	s.Step(clock.Advance(16 * time.Millisecond))
	if len(order) != 1 {
		t.Fatalf("expected nested request to be deferred, got %v", order)
	}
	s.Step(clock.Advance(16 * time.Millisecond))
	if len(order) != 2 || order[1] != 2 {
		t.Fatalf("expected nested request on the next step, got %v", order)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s, clock := newTestScheduler(t)

	called := false
	h := s.Request(func(now time.Time, dt time.Duration) { called = true })
	if !s.Cancel(h) {
		t.Fatalf("expected cancel to succeed")
	}
	if s.Cancel(h) {
		t.Fatalf("expected second cancel to report false")
	}
	s.Step(clock.Advance(16 * time.Millisecond))
	if called {
		t.Errorf("canceled callback ran")
	}
	if s.Cancel(0) {
		t.Errorf("zero handle must never cancel")
	}
}

func TestScheduler_CancelWithinSameBatch(t *testing.T) {
	s, clock := newTestScheduler(t)

	var second Handle
	secondRan := false
	s.Request(func(now time.Time, dt time.Duration) { s.Cancel(second) })
	second = s.Request(func(now time.Time, dt time.Duration) { secondRan = true })

	s.Step(clock.Advance(16 * time.Millisecond))
	if secondRan {
		t.Errorf("callback canceled by an earlier callback in the same batch still ran")
	}
}

func TestScheduler_AfterFiresAtDeadline(t *testing.T) {
	s, clock := newTestScheduler(t)

	fired := 0
	s.After(150*time.Millisecond, func(now time.Time) { fired++ })

	s.Step(clock.Advance(100 * time.Millisecond))
	if fired != 0 {
		t.Fatalf("timer fired early")
	}
	s.Step(clock.Advance(50 * time.Millisecond))
	if fired != 1 {
		t.Fatalf("expected timer to fire at its deadline, fired=%d", fired)
	}
	s.Step(clock.Advance(time.Second))
	if fired != 1 {
		t.Fatalf("timer fired more than once")
	}
	if s.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", s.Pending())
	}
}

func TestScheduler_DtClamped(t *testing.T) {
	s, clock := newTestScheduler(t)

	var got []time.Duration
	record := func(now time.Time, dt time.Duration) { got = append(got, dt) }

	s.Request(record)
	s.Step(clock.Now()) // first step uses the nominal interval
	s.Request(record)
	s.Step(clock.Advance(5 * time.Second)) // stall

	if got[0] != s.Interval() {
		t.Errorf("first dt = %v, want %v", got[0], s.Interval())
	}
	if got[1] != 2*s.Interval() {
		t.Errorf("stalled dt = %v, want clamp %v", got[1], 2*s.Interval())
	}
}
