package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"scrollfeed/distance"
	"scrollfeed/frame"
	"scrollfeed/journal"
	"scrollfeed/manifest"
	"scrollfeed/stream"
	"scrollfeed/ui"
)

// DaemonState is everything the daemon goroutine owns. Nothing here is safe to touch
// from another goroutine; other goroutines talk to it through Actions and read it
// through Snapshots and StateBroadcasts.
type DaemonState struct {
	sched    *frame.Scheduler
	engine   *distance.Engine
	feed     *stream.Stream[manifest.Item]
	surface  *ui.Surface
	overlays *overlayTracker

	journal *journal.Recorder
	session string

	broadcasts chan<- StateBroadcast
	invalidate func()
	dirty      bool

	logger *slog.Logger
}

// daemonOptions are the optional collaborators of a DaemonState.
type daemonOptions struct {
	Broadcasts chan<- StateBroadcast // nil drops broadcasts
	Invalidate func()                // asks the viewer to redraw; may be nil
	Journal    *journal.Recorder     // nil disables the journal
}

// newDaemonState wires the engine to the stream, the overlay tracker, the journal
// and the broadcast channel.
func newDaemonState(
	sched *frame.Scheduler,
	engine *distance.Engine,
	feed *stream.Stream[manifest.Item],
	surface *ui.Surface,
	overlays *overlayTracker,
	opts daemonOptions,
	logger *slog.Logger,
) *DaemonState {
	if logger == nil {
		logger = slog.Default()
	}
	st := &DaemonState{
		sched:      sched,
		engine:     engine,
		feed:       feed,
		surface:    surface,
		overlays:   overlays,
		journal:    opts.Journal,
		broadcasts: opts.Broadcasts,
		invalidate: opts.Invalidate,
		dirty:      true,
		logger:     logger,
	}

	// The stream subscribes first so it has scrolled before anyone reads positions.
	feed.Attach(engine)

	overlays.emit = st.broadcast
	overlays.onMilestone = st.recordMilestone

	engine.On(distance.EventStart, func(ev distance.Event) {
		st.dirty = true
		st.broadcast(st.interaction("start", ev))
	})
	engine.On(distance.EventRotate, func(ev distance.Event) {
		st.dirty = true
		m := engine.Meters()
		st.broadcast(BroadcastRotate{Event: ev, Meters: m})
		overlays.Observe(m.Absolute, ev.At)
	})
	engine.On(distance.EventEnd, func(ev distance.Event) {
		st.dirty = true
		st.broadcast(st.interaction("end", ev))
	})
	engine.On(distance.EventUpdate, func(ev distance.Event) {
		st.dirty = true
		st.broadcast(st.interaction("update", ev))
		overlays.Observe(engine.Meters().Absolute, ev.At)
	})

	if st.journal != nil {
		st.session = st.journal.BeginSession(sched.Now())
		logger.Info("journal session started", "session_id", st.session)
	}

	return st
}

func (st *DaemonState) interaction(kind string, ev distance.Event) BroadcastInteraction {
	return BroadcastInteraction{
		Kind:   kind,
		Value:  ev.Value,
		Source: ev.Source,
		Meters: st.engine.Meters(),
		At:     ev.At,
	}
}

// broadcast never blocks the daemon; a full queue drops the broadcast.
func (st *DaemonState) broadcast(b StateBroadcast) {
	if st.broadcasts == nil {
		return
	}
	select {
	case st.broadcasts <- b:
	default:
		st.logger.Debug("broadcast queue full, dropping", "broadcast", fmt.Sprintf("%T", b))
	}
}

func (st *DaemonState) recordMilestone(meters float64, at time.Time) {
	st.logger.Info("milestone reached", "meters", meters)
	if st.journal != nil {
		st.journal.Milestone(st.session, meters, at)
	}
}

// apply executes one action against the engine or the stream.
func (st *DaemonState) apply(act Action) {
	e := st.engine
	switch a := act.(type) {
	case WheelScroll:
		e.Wheel(a.Pixels)
	case DialTurn:
		e.Dial(a.Detents)

	case TouchStart:
		e.TouchStart(a.ID, a.X, a.Y)
	case TouchMove:
		e.TouchMove(a.ID, a.X, a.Y)
	case TouchEnd:
		e.TouchEnd(a.ID)

	case PointerStart:
		e.Start(distance.Point{X: a.X, Y: a.Y})
	case PointerMove:
		e.Move(a.Delta)
	case PointerEnd:
		e.End()

	case RotateStart:
		e.RotateStart(a.X, a.Y)
	case RotateMove:
		e.RotateMove(a.X, a.Y)
	case RotateEnd:
		e.RotateEnd()

	case ResetDistance:
		e.Reset()
		st.logger.Info("distance reset")
	case SetValue:
		e.SetValue(a.Value)
	case Resize:
		st.feed.SetViewport(a.Height)
		st.dirty = true

	case RequestSnapshot:
		if a.Reply != nil {
			select {
			case a.Reply <- st.snapshot():
			default:
				st.logger.Warn("snapshot reply dropped (receiver not ready)")
			}
		}

	default:
		st.logger.Warn("unhandled action", "action", fmt.Sprintf("%T", act))
	}
	st.settle()
}

// tick advances momentum, wheel idle timers and pending re-layouts by one frame.
func (st *DaemonState) tick(now time.Time) {
	st.sched.Step(now)
	st.settle()
}

// settle feeds reported content heights back into the stream and refreshes the view.
func (st *DaemonState) settle() {
	for _, m := range st.surface.DrainMeasurements() {
		st.feed.Measure(m.Index, m.Height)
		st.dirty = true
	}
	if !st.dirty {
		return
	}
	st.dirty = false

	st.surface.SetStatus(ui.Status{
		Step:         st.engine.Value(),
		Meters:       st.engine.Meters(),
		Phase:        st.engine.Phase().String(),
		Velocity:     st.engine.Velocity(),
		Live:         st.feed.LiveCount(stream.Foreground) + st.feed.LiveCount(stream.Background),
		Notification: st.overlays.Status(),
		Milestones:   st.overlays.Milestones(),
	})
	if st.invalidate != nil {
		st.invalidate()
	}
}

func (st *DaemonState) snapshot() Snapshot {
	es := st.engine.State()
	snap := Snapshot{
		SignedTotal:   es.SignedTotal,
		AbsoluteTotal: es.AbsoluteTotal,
		Value:         es.StepValue,
		Active:        es.IsActive,
		Phase:         es.Phase.String(),
		Velocity:      es.Velocity,
		Meters:        st.engine.Meters(),
		Offset:        st.feed.Offset(),
		Foreground:    st.feed.VisibleRange(stream.Foreground),
		Background:    st.feed.VisibleRange(stream.Background),
		Live:          st.feed.LiveCount(stream.Foreground) + st.feed.LiveCount(stream.Background),
		ActiveCards:   st.overlays.ActiveCards(),
		Milestones:    st.overlays.Milestones(),
		SessionID:     st.session,
		At:            st.sched.Now(),
	}
	if w, ok := st.overlays.Window(); ok {
		snap.Notification = &w
	}
	return snap
}

// close ends the journal session and releases every live element.
func (st *DaemonState) close() {
	if st.journal != nil && st.session != "" {
		m := st.engine.Meters()
		st.journal.EndSession(st.session, st.sched.Now(), journal.Summary{
			SignedMeters:   m.Signed,
			AbsoluteMeters: m.Absolute,
			Steps:          st.engine.Value(),
		})
		st.logger.Info("journal session ended",
			"session_id", st.session,
			"absolute_meters", humanize.FormatFloat("#,###.##", m.Absolute),
			"steps", humanize.FormatFloat("#,###.#", st.engine.Value()))
		st.session = ""
	}
	st.feed.Close()
}
