package main

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"scrollfeed/manifest"
	"scrollfeed/schedule"
)

// overlayConfig places flashcard cards, notification windows and milestones
// along the absolute distance, in meters.
type overlayConfig struct {
	Mode            schedule.Mode
	Params          schedule.Params
	Lifetime        float64
	Margin          float64
	MilestoneMeters float64
}

func (c *Config) overlayConfig() (overlayConfig, error) {
	mode, err := schedule.ParseMode(c.Schedule.Mode)
	if err != nil {
		return overlayConfig{}, err
	}
	return overlayConfig{
		Mode:            mode,
		Params:          c.ScheduleParams(),
		Lifetime:        c.Schedule.CardLifetime,
		Margin:          c.Schedule.NotifyMargin,
		MilestoneMeters: c.Schedule.MilestoneMeters,
	}, nil
}

// overlayTracker turns the absolute distance into the discrete events overlays
// consume: card_spawned / card_expired, notification_start / notification_end
// and milestone. Owned by the daemon goroutine.
type overlayTracker struct {
	cards      []manifest.Flashcard
	distances  []float64
	lifetime   float64
	windows    []schedule.Window
	milestones *schedule.Milestones

	active []int // live card indices, spawn order
	window int   // index into windows, -1 when none is open
	last   float64

	emit        func(StateBroadcast)
	onMilestone func(meters float64, at time.Time)
}

// newOverlayTracker lays out one card per flashcard. emit may be nil.
func newOverlayTracker(cfg overlayConfig, cards []manifest.Flashcard, rng *rand.Rand, emit func(StateBroadcast)) (*overlayTracker, error) {
	distances, err := schedule.GenerateDistances(len(cards), cfg.Mode, cfg.Params, rng)
	if err != nil {
		return nil, fmt.Errorf("generate spawn distances: %w", err)
	}
	if emit == nil {
		emit = func(StateBroadcast) {}
	}
	return &overlayTracker{
		cards:      cards,
		distances:  distances,
		lifetime:   cfg.Lifetime,
		windows:    schedule.NotificationWindows(distances, cfg.Lifetime, cfg.Margin),
		milestones: schedule.NewMilestones(cfg.MilestoneMeters),
		window:     -1,
		emit:       emit,
	}, nil
}

// Observe advances the tracker to absolute distance d (meters). A smaller d than
// last time means the totals were reset: everything open is closed first.
func (o *overlayTracker) Observe(d float64, at time.Time) {
	if d < o.last {
		o.rewind(at)
	}
	o.last = d

	now := schedule.ActiveCards(o.distances, o.lifetime, d)
	kept := o.active[:0]
	for _, i := range o.active {
		if slices.Contains(now, i) {
			kept = append(kept, i)
			continue
		}
		o.emitCard("expired", i, at)
	}
	o.active = kept
	for _, i := range now {
		if slices.Contains(o.active, i) {
			continue
		}
		o.active = append(o.active, i)
		o.emitCard("spawned", i, at)
	}
	slices.Sort(o.active)

	idx, _ := schedule.WindowAt(o.windows, d)
	if idx != o.window {
		if o.window >= 0 {
			o.emit(BroadcastNotification{Kind: "end", Window: o.windows[o.window], At: at})
		}
		if idx >= 0 {
			o.emit(BroadcastNotification{Kind: "start", Window: o.windows[idx], At: at})
		}
		o.window = idx
	}

	for _, m := range o.milestones.Observe(d) {
		o.emit(BroadcastMilestone{Meters: m, Reached: o.milestones.Reached(), At: at})
		if o.onMilestone != nil {
			o.onMilestone(m, at)
		}
	}
}

func (o *overlayTracker) rewind(at time.Time) {
	for _, i := range o.active {
		o.emitCard("expired", i, at)
	}
	o.active = o.active[:0]
	if o.window >= 0 {
		o.emit(BroadcastNotification{Kind: "end", Window: o.windows[o.window], At: at})
		o.window = -1
	}
	o.milestones.Reset()
	o.last = 0
}

func (o *overlayTracker) emitCard(kind string, i int, at time.Time) {
	lc, ok := schedule.CardLifecycle(i, o.distances, o.lifetime)
	if !ok {
		return
	}
	ev := BroadcastCard{Kind: kind, Index: i, Lifecycle: lc, At: at}
	if kind == "spawned" && i < len(o.cards) {
		fc := o.cards[i]
		ev.Flashcard = &fc
	}
	o.emit(ev)
}

// ActiveCards returns a copy of the live card indices.
func (o *overlayTracker) ActiveCards() []int {
	return slices.Clone(o.active)
}

// Window returns the open notification window, if any.
func (o *overlayTracker) Window() (schedule.Window, bool) {
	if o.window < 0 {
		return schedule.Window{}, false
	}
	return o.windows[o.window], true
}

// Milestones returns how many milestones fired since the last reset.
func (o *overlayTracker) Milestones() int { return o.milestones.Reached() }

// Status is the one-line notification text for the terminal viewer.
func (o *overlayTracker) Status() string {
	if w, ok := o.Window(); ok {
		return fmt.Sprintf("card %d in %.1f m", w.TargetIndex+1, w.TargetDistance-o.last)
	}
	if len(o.active) > 0 {
		i := o.active[len(o.active)-1]
		if i < len(o.cards) && o.cards[i].Title != "" {
			return o.cards[i].Title
		}
		return fmt.Sprintf("card %d", i+1)
	}
	return ""
}
