package distance

import "math"

// Wheel applies a wheel delta in pixels (positive = forward). A wheel session
// starts implicitly and ends after Config.WheelIdle without further wheel events.
func (e *Engine) Wheel(deltaY float64) {
	if !e.validDelta(deltaY) {
		return
	}
	if e.phase != PhaseDragging || e.source != SourceWheel {
		e.begin(SourceWheel, Point{})
		e.radius = 0
	}
	e.accumulate(deltaY*e.cfg.WheelScale, 0, true)
	e.armIdle()
}

// Dial applies rotary-encoder detents (positive = clockwise = forward). Each detent
// is Config.DialStepDegrees of arc at Config.DialRadius. Sessions end on idle like the wheel.
func (e *Engine) Dial(detents int) {
	if detents == 0 {
		return
	}
	dAngle := float64(detents) * e.cfg.DialStepDegrees * math.Pi / 180
	d := e.cfg.DialRadius * dAngle
	if !e.validDelta(d) {
		return
	}
	if e.phase != PhaseDragging || e.source != SourceDial {
		e.begin(SourceDial, Point{})
	}
	e.radius = e.cfg.DialRadius
	e.accumulate(d, e.radius, true)
	e.armIdle()
}

// TouchStart begins a touch drag for touch identifier id. While a primary touch is
// down, additional fingers are ignored.
func (e *Engine) TouchStart(id int, x, y float64) {
	if e.touchActive && id != e.touchID && e.phase == PhaseDragging {
		return
	}
	e.touchID = id
	e.touchActive = true
	e.lastTouchY = y
	e.begin(SourceTouch, Point{X: x, Y: y})
	e.radius = 0
}

// TouchMove applies the vertical movement of touch id. Dragging up moves forward.
func (e *Engine) TouchMove(id int, x, y float64) {
	if !e.touchActive || id != e.touchID || e.source != SourceTouch {
		return
	}
	raw := -(y - e.lastTouchY)
	if !e.acceptMove(raw) {
		return
	}
	e.lastTouchY = y
	e.accumulate(raw*e.cfg.TouchScale, 0, true)
}

// TouchEnd releases touch id. Releasing a secondary finger does nothing.
func (e *Engine) TouchEnd(id int) {
	if !e.touchActive || id != e.touchID {
		return
	}
	e.touchActive = false
	e.End()
}

// RotateStart begins a circular drag at (x, y) around Config.Center.
func (e *Engine) RotateStart(x, y float64) {
	e.begin(SourceRotary, Point{X: x, Y: y})
	e.lastAngle = math.Atan2(y-e.cfg.Center.Y, x-e.cfg.Center.X)
	e.radius = math.Hypot(x-e.cfg.Center.X, y-e.cfg.Center.Y)
}

// RotateMove applies the arc length swept from the previous point to (x, y).
// Screen y grows downward, so clockwise motion is forward.
func (e *Engine) RotateMove(x, y float64) {
	if e.phase != PhaseDragging || e.source != SourceRotary {
		return
	}
	angle := math.Atan2(y-e.cfg.Center.Y, x-e.cfg.Center.X)
	dAngle := wrapAngle(angle - e.lastAngle)
	radius := math.Hypot(x-e.cfg.Center.X, y-e.cfg.Center.Y)

	d := radius * dAngle
	if !e.validDelta(d) {
		return
	}
	e.lastAngle = angle
	e.radius = radius
	e.accumulate(d, radius, true)
}

// RotateEnd releases a circular drag.
func (e *Engine) RotateEnd() {
	if e.source != SourceRotary {
		return
	}
	e.End()
}

// wrapAngle corrects a difference of two atan2 angles that crossed the -pi/pi seam.
func wrapAngle(d float64) float64 {
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
