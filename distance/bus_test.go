package distance

import (
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_OrderAndPanicIsolation(t *testing.T) {
	b := NewBus(quietLogger())

	var got []string
	b.On(EventRotate, func(Event) { got = append(got, "first") })
	b.On(EventRotate, func(Event) { panic("boom") })
	b.On(EventRotate, func(Event) { got = append(got, "third") })
	b.On(EventEnd, func(Event) { got = append(got, "end") })

	b.Emit(Event{Type: EventRotate})

	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Fatalf("expected [first third], got %v", got)
	}
}

func TestBus_Off(t *testing.T) {
	b := NewBus(quietLogger())

	calls := 0
	sub := b.On(EventStart, func(Event) { calls++ })
	if b.HandlerCount(EventStart) != 1 {
		t.Fatalf("expected 1 handler")
	}

	if !b.Off(sub) {
		t.Fatalf("Off returned false for a registered subscription")
	}
	if b.Off(sub) {
		t.Errorf("second Off should report false")
	}
	b.Emit(Event{Type: EventStart})
	if calls != 0 {
		t.Errorf("removed handler was called")
	}
}

func TestBus_OffDuringEmit(t *testing.T) {
	b := NewBus(quietLogger())

	calls := 0
	var second Subscription
	b.On(EventUpdate, func(Event) { b.Off(second) })
	second = b.On(EventUpdate, func(Event) { calls++ })

	// The in-flight dispatch still sees the original list.
	b.Emit(Event{Type: EventUpdate})
	if calls != 1 {
		t.Fatalf("expected handler removed mid-emit to run once, got %d", calls)
	}
	b.Emit(Event{Type: EventUpdate})
	if calls != 1 {
		t.Errorf("handler still registered after Off")
	}
}

func TestBus_IgnoresInvalidTypes(t *testing.T) {
	b := NewBus(quietLogger())

	sub := b.On(EventType(99), func(Event) { t.Fatal("should not be called") })
	if b.Off(sub) {
		t.Errorf("invalid subscription should not be removable")
	}
	b.Emit(Event{Type: EventType(99)})
	b.Emit(Event{Type: EventType(-1)})
}
