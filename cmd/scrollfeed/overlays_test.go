package main

import (
	"slices"
	"testing"
	"time"

	"scrollfeed/manifest"
	"scrollfeed/schedule"
)

// eventLog records overlay broadcasts as short strings for order assertions.
type eventLog struct {
	got []string
}

func (l *eventLog) emit(b StateBroadcast) {
	switch ev := b.(type) {
	case BroadcastCard:
		l.got = append(l.got, "card_"+ev.Kind+":"+string(rune('0'+ev.Index)))
	case BroadcastNotification:
		l.got = append(l.got, "notification_"+ev.Kind+":"+string(rune('0'+ev.Window.TargetIndex)))
	case BroadcastMilestone:
		l.got = append(l.got, "milestone")
	default:
		l.got = append(l.got, "other")
	}
}

func (l *eventLog) take() []string {
	out := l.got
	l.got = nil
	return out
}

func newTestOverlays(t *testing.T, log *eventLog) *overlayTracker {
	t.Helper()
	cards := []manifest.Flashcard{
		{Title: "first"},
		{Title: "second"},
		{Title: "third"},
	}
	cfg := overlayConfig{
		Mode:            schedule.ModeFixed,
		Params:          schedule.Params{MetersPerCard: 10},
		Lifetime:        1,
		Margin:          0.5,
		MilestoneMeters: 25,
	}
	o, err := newOverlayTracker(cfg, cards, nil, log.emit)
	if err != nil {
		t.Fatalf("newOverlayTracker: %v", err)
	}
	return o
}

func TestOverlayTracker_CardsAndWindowsInOrder(t *testing.T) {
	log := &eventLog{}
	o := newTestOverlays(t, log)
	at := time.Now()

	steps := []struct {
		d    float64
		want []string
	}{
		{0, []string{"card_spawned:0"}},
		{0.5, nil},
		{1, []string{"card_expired:0", "notification_start:1"}},
		{9.6, []string{"notification_end:1"}},
		{10, []string{"card_spawned:1"}},
		{26, []string{"card_expired:1", "milestone"}},
	}
	for _, s := range steps {
		o.Observe(s.d, at)
		if got := log.take(); !slices.Equal(got, s.want) {
			t.Fatalf("Observe(%v) events = %v, want %v", s.d, got, s.want)
		}
	}

	if got := o.Milestones(); got != 1 {
		t.Fatalf("Milestones() = %d, want 1", got)
	}
	if got := o.ActiveCards(); len(got) != 0 {
		t.Fatalf("ActiveCards() = %v, want none", got)
	}
}

func TestOverlayTracker_SpawnCarriesFlashcard(t *testing.T) {
	var cards []BroadcastCard
	o := newTestOverlays(t, &eventLog{})
	o.emit = func(b StateBroadcast) {
		if c, ok := b.(BroadcastCard); ok {
			cards = append(cards, c)
		}
	}

	o.Observe(10.5, time.Now())

	if len(cards) != 1 {
		t.Fatalf("got %d card events, want 1", len(cards))
	}
	c := cards[0]
	if c.Kind != "spawned" || c.Index != 1 {
		t.Fatalf("card event = %s/%d, want spawned/1", c.Kind, c.Index)
	}
	if c.Flashcard == nil || c.Flashcard.Title != "second" {
		t.Fatalf("flashcard = %+v, want title second", c.Flashcard)
	}
	if c.Lifecycle != (schedule.Lifecycle{Spawn: 10, Disappear: 11}) {
		t.Fatalf("lifecycle = %+v", c.Lifecycle)
	}
}

func TestOverlayTracker_ResetRewinds(t *testing.T) {
	log := &eventLog{}
	o := newTestOverlays(t, log)
	at := time.Now()

	var milestones []float64
	o.onMilestone = func(m float64, _ time.Time) { milestones = append(milestones, m) }

	o.Observe(5, at)
	o.Observe(30, at)
	log.take()

	// Back inside card 0 after a reset: it spawns again.
	o.Observe(0.2, at)
	if got, want := log.take(), []string{"card_spawned:0"}; !slices.Equal(got, want) {
		t.Fatalf("after reset events = %v, want %v", got, want)
	}
	if got := o.Milestones(); got != 0 {
		t.Fatalf("Milestones() after reset = %d, want 0", got)
	}

	o.Observe(2, at)
	log.take()
	o.Observe(1.5, at)
	if got, want := log.take(), []string{"notification_end:1", "notification_start:1"}; !slices.Equal(got, want) {
		t.Fatalf("rewind inside window events = %v, want %v", got, want)
	}

	o.Observe(26, at)
	if !slices.Equal(milestones, []float64{25, 25}) {
		t.Fatalf("milestones = %v, want [25 25]", milestones)
	}
}

func TestOverlayTracker_Status(t *testing.T) {
	o := newTestOverlays(t, &eventLog{})
	at := time.Now()

	o.Observe(0.5, at)
	if got := o.Status(); got != "first" {
		t.Fatalf("Status() in card = %q, want first", got)
	}

	o.Observe(5, at)
	if got := o.Status(); got != "card 2 in 5.0 m" {
		t.Fatalf("Status() in window = %q", got)
	}
	if w, ok := o.Window(); !ok || w.TargetIndex != 1 {
		t.Fatalf("Window() = %+v, %v", w, ok)
	}

	o.Observe(9.8, at)
	if got := o.Status(); got != "" {
		t.Fatalf("Status() between window and card = %q, want empty", got)
	}
}

func TestOverlayTracker_NoCards(t *testing.T) {
	cfg := overlayConfig{Mode: schedule.ModeFixed, Params: schedule.Params{MetersPerCard: 10}, Lifetime: 1}
	o, err := newOverlayTracker(cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("newOverlayTracker: %v", err)
	}
	o.Observe(100, time.Now())
	if len(o.ActiveCards()) != 0 || o.Status() != "" {
		t.Fatalf("tracker without cards should stay empty")
	}
}
