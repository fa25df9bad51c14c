// Package distance converts gesture input into a signed and absolute distance,
// a step value derived from it, and post-release momentum.
//
// The Engine is a single-owner state machine (idle -> dragging -> momentum -> idle).
// Momentum frames and wheel idle timeouts run on a frame.Scheduler owned by the
// same goroutine; every new Start cancels whatever the previous gesture left scheduled.
package distance

import (
	"log/slog"
	"math"
	"time"

	"scrollfeed/frame"
)

// Phase is the engine's position in its gesture state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseMomentum
)

func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseMomentum:
		return "momentum"
	default:
		return "idle"
	}
}

// State is a snapshot of the engine-owned distance state.
type State struct {
	SignedTotal   float64
	AbsoluteTotal float64
	StepValue     float64
	IsActive      bool
	Velocity      float64 // px/s; zero unless dragging or decaying
	Phase         Phase
	Source        Source
	Origin        Point // captured by the current (or last) start
}

// Engine accumulates distance from gesture input.
//
// This is intended to be used only by the owning goroutine (single-owner).
type Engine struct {
	cfg    Config
	sched  *frame.Scheduler
	bus    *Bus
	logger *slog.Logger

	signed   float64
	absolute float64
	step     float64
	velocity float64
	phase    Phase
	source   Source
	origin   Point

	tracker  *velocityTracker
	momentum frame.Handle
	idle     frame.Handle

	// touch tracking
	touchID     int
	touchActive bool
	lastTouchY  float64

	// rotational tracking
	lastAngle float64
	radius    float64
}

// New creates an engine driven by sched. A nil logger uses slog.Default().
func New(cfg Config, sched *frame.Scheduler, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sched == nil {
		sched = frame.NewScheduler(frame.SystemClock{}, 60)
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:     cfg,
		sched:   sched,
		bus:     NewBus(logger),
		logger:  logger,
		tracker: newVelocityTracker(cfg.VelocitySamples),
	}
}

// On registers a handler for events of type t.
func (e *Engine) On(t EventType, h Handler) Subscription { return e.bus.On(t, h) }

// Off removes a subscription.
func (e *Engine) Off(s Subscription) bool { return e.bus.Off(s) }

// Emit dispatches ev on the engine's bus. Producers other than the engine
// (replays, tests) use it to feed subscribers; it does not touch engine totals.
func (e *Engine) Emit(ev Event) { e.bus.Emit(ev) }

// Config returns the effective configuration (defaults applied).
func (e *Engine) Config() Config { return e.cfg }

// Start begins a generic pointer interaction at origin.
func (e *Engine) Start(origin Point) {
	e.begin(SourcePointer, origin)
}

// Move applies a raw pointer delta scaled by Config.Scale.
// Deltas outside an active interaction, and non-finite or out-of-range deltas, are dropped.
func (e *Engine) Move(rawDelta float64) {
	if !e.acceptMove(rawDelta) {
		return
	}
	e.accumulate(rawDelta*e.cfg.Scale, 0, true)
}

// End releases the current interaction. Draggable sources with enough release
// velocity continue in the momentum phase; everything else ends immediately.
func (e *Engine) End() {
	if e.phase != PhaseDragging {
		return
	}
	e.cancelIdle()

	now := e.sched.Now()
	v := e.velocity
	if e.tracker.idleFor(now) > e.cfg.VelocityWindow {
		// Held still before releasing.
		v = 0
	}

	if e.source.draggable() && math.Abs(v) >= e.cfg.MomentumMinVelocity {
		e.phase = PhaseMomentum
		e.velocity = v
		e.momentum = e.sched.Request(e.momentumFrame)
		e.logger.Debug("momentum started", "velocity", v, "source", e.source.String())
		return
	}
	e.finish()
}

// Reset zeroes the signed and absolute totals. The step value is left alone.
func (e *Engine) Reset() {
	e.signed = 0
	e.absolute = 0
	e.emit(EventUpdate, 0, 0, 0)
}

// Value returns the cumulative step value.
func (e *Engine) Value() float64 { return e.step }

// SetValue replaces the step value.
func (e *Engine) SetValue(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	e.step = v
	e.emit(EventUpdate, 0, 0, 0)
}

// IsActive reports whether an interaction (including its momentum) is in progress.
func (e *Engine) IsActive() bool { return e.phase != PhaseIdle }

// Phase returns the current state machine phase.
func (e *Engine) Phase() Phase { return e.phase }

// Velocity returns the current smoothed velocity in px/s.
func (e *Engine) Velocity() float64 { return e.velocity }

// State returns a snapshot of the distance state.
func (e *Engine) State() State {
	return State{
		SignedTotal:   e.signed,
		AbsoluteTotal: e.absolute,
		StepValue:     e.step,
		IsActive:      e.IsActive(),
		Velocity:      e.velocity,
		Phase:         e.phase,
		Source:        e.source,
		Origin:        e.origin,
	}
}

// Meters converts both totals with the display heuristic. Advisory only.
func (e *Engine) Meters() Meters {
	ppm := PixelsPerMeter(e.cfg.Display)
	return Meters{
		Signed:   e.signed / ppm,
		Absolute: e.absolute / ppm,
	}
}

// begin ends whatever gesture is still running, dragging or decaying, so every
// start is paired with exactly one end. Then it starts the new one.
func (e *Engine) begin(src Source, origin Point) {
	if e.phase != PhaseIdle {
		e.logger.Debug("interaction interrupted", "source", e.source.String(), "by", src.String())
		e.finish()
	}
	if src != SourceTouch {
		e.touchActive = false
	}

	e.phase = PhaseDragging
	e.source = src
	e.origin = origin
	e.velocity = 0
	e.tracker.reset(e.sched.Now())

	e.emit(EventStart, 0, 0, 0)
}

func (e *Engine) acceptMove(raw float64) bool {
	if e.phase != PhaseDragging {
		e.logger.Debug("move outside interaction dropped", "delta", raw, "phase", e.phase.String())
		return false
	}
	return e.validDelta(raw)
}

// validDelta filters broken input: non-finite or absurdly large deltas.
func (e *Engine) validDelta(raw float64) bool {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		e.logger.Debug("non-finite delta dropped", "source", e.source.String())
		return false
	}
	if e.cfg.MaxDelta > 0 && math.Abs(raw) > e.cfg.MaxDelta {
		e.logger.Debug("out-of-range delta dropped", "delta", raw, "max", e.cfg.MaxDelta)
		return false
	}
	return true
}

// accumulate applies d pixels of motion and emits rotate.
// track is false for momentum frames, which carry their own decaying velocity.
func (e *Engine) accumulate(d, radius float64, track bool) {
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return
	}
	deltaStep := d / e.cfg.StepPixels

	e.signed += d
	e.absolute += math.Abs(d)
	e.step += deltaStep
	if track {
		e.velocity = e.tracker.add(d, e.sched.Now())
	}

	e.emit(EventRotate, d, deltaStep, radius)
}

func (e *Engine) momentumFrame(now time.Time, dt time.Duration) {
	// Cooperative cancellation: a Start between scheduling and running moves us out of momentum.
	if e.phase != PhaseMomentum {
		return
	}
	e.momentum = 0

	d := e.velocity * dt.Seconds()
	e.velocity *= e.cfg.Friction
	e.accumulate(d, e.radius, false)

	if math.Abs(e.velocity) < e.cfg.MomentumStopVelocity {
		e.finish()
		return
	}
	e.momentum = e.sched.Request(e.momentumFrame)
}

func (e *Engine) finish() {
	e.cancelMomentum()
	e.cancelIdle()
	e.phase = PhaseIdle
	e.velocity = 0
	src := e.source
	e.emit(EventEnd, 0, 0, 0)
	e.source = SourceNone
	e.logger.Debug("interaction ended", "source", src.String(), "value", e.step, "absolute", e.absolute)
}

func (e *Engine) cancelMomentum() {
	if e.momentum != 0 {
		e.sched.Cancel(e.momentum)
		e.momentum = 0
	}
}

func (e *Engine) cancelIdle() {
	if e.idle != 0 {
		e.sched.Cancel(e.idle)
		e.idle = 0
	}
}

// armIdle (re)starts the idle timer that ends discrete-input sessions.
func (e *Engine) armIdle() {
	e.cancelIdle()
	e.idle = e.sched.After(e.cfg.WheelIdle, func(time.Time) {
		e.idle = 0
		e.End()
	})
}

func (e *Engine) emit(t EventType, d, deltaStep, radius float64) {
	dir := Forward
	if d < 0 {
		dir = Backward
	}
	e.bus.Emit(Event{
		Type:      t,
		Delta:     deltaStep,
		Value:     e.step,
		Direction: dir,
		Distance: Distance{
			Total:    e.signed,
			Absolute: e.absolute,
			Delta:    d,
			DeltaAbs: math.Abs(d),
			Radius:   radius,
		},
		Source: e.source,
		At:     e.sched.Now(),
	})
}
