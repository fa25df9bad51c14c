package distance

import (
	"log/slog"
)

// Handler receives engine events. Handlers must not retain or mutate engine state;
// they get a copy of the payload.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed with Off.
type Subscription struct {
	Type EventType
	id   uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Bus dispatches events to ordered subscriber lists keyed by EventType.
//
// Architecture:
//   - Synchronous dispatch, no queuing
//   - Handlers are invoked in registration order
//   - A panicking handler is recovered and logged; the remaining handlers still run
type Bus struct {
	handlers [eventTypeCount][]subscriber
	next     uint64
	logger   *slog.Logger
}

// NewBus creates an empty bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// On registers fn for events of type t.
func (b *Bus) On(t EventType, fn Handler) Subscription {
	if t < 0 || t >= eventTypeCount || fn == nil {
		return Subscription{Type: t}
	}
	b.next++
	b.handlers[t] = append(b.handlers[t], subscriber{id: b.next, fn: fn})
	return Subscription{Type: t, id: b.next}
}

// Off removes a subscription. It reports whether the subscription was registered.
func (b *Bus) Off(s Subscription) bool {
	if s.id == 0 || s.Type < 0 || s.Type >= eventTypeCount {
		return false
	}
	list := b.handlers[s.Type]
	for i, sub := range list {
		if sub.id == s.id {
			// Copy so an Emit iterating the old slice is unaffected.
			next := make([]subscriber, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			b.handlers[s.Type] = next
			return true
		}
	}
	return false
}

// Emit delivers ev to every handler registered for ev.Type.
func (b *Bus) Emit(ev Event) {
	if ev.Type < 0 || ev.Type >= eventTypeCount {
		return
	}
	for _, sub := range b.handlers[ev.Type] {
		b.dispatch(sub, ev)
	}
}

// HandlerCount returns the number of handlers registered for t.
func (b *Bus) HandlerCount(t EventType) int {
	if t < 0 || t >= eventTypeCount {
		return 0
	}
	return len(b.handlers[t])
}

func (b *Bus) dispatch(sub subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", ev.Type.String(), "subscription", sub.id, "panic", r)
		}
	}()
	sub.fn(ev)
}
