package main

import (
	"slices"
)

// ============================================================================
// evdev translation
// ============================================================================
// Raw input events arrive one axis at a time; the kernel groups them into
// frames terminated by SYN_REPORT. The translator accumulates a frame and
// turns it into daemon Actions when the frame is complete.
// ============================================================================

// evdevConfig controls how device units map to feed pixels.
type evdevConfig struct {
	WheelPixels float64 // per REL_WHEEL detent
	PagePixels  float64 // per KEY_PAGEUP / KEY_PAGEDOWN
	TouchScale  float64 // feed px per ABS_MT_POSITION unit; 0 means 1
}

func (c *Config) evdevConfig() evdevConfig {
	scale := 1.0
	if c.Input.TouchAxisMax > 0 && c.Input.TouchScreenHeight > 0 {
		scale = c.Input.TouchScreenHeight / c.Input.TouchAxisMax
	}
	return evdevConfig{
		WheelPixels: c.Input.WheelPixelsPerDetent,
		PagePixels:  c.Stream.ViewportHeight,
		TouchScale:  scale,
	}
}

type touchSlot struct {
	id      int // tracking id, -1 when no contact
	x, y    float64
	started bool
	moved   bool
	endedID int // tracking id lifted in this frame, -1 if none
}

// evdevTranslator is fed by a single reader goroutine; it is not safe for concurrent use.
type evdevTranslator struct {
	cfg evdevConfig

	// Devices with high-resolution wheels report both codes; once REL_WHEEL_HI_RES
	// is seen, plain REL_WHEEL is ignored so a detent is not counted twice.
	hiRes bool

	wheel float64 // pending feed px
	dial  int
	reset bool

	slot  int
	slots map[int]*touchSlot
}

func newEvdevTranslator(cfg evdevConfig) *evdevTranslator {
	if cfg.WheelPixels <= 0 {
		cfg.WheelPixels = defaultWheelPixels
	}
	if cfg.TouchScale <= 0 {
		cfg.TouchScale = 1
	}
	return &evdevTranslator{
		cfg:   cfg,
		slots: make(map[int]*touchSlot),
	}
}

func (t *evdevTranslator) current() *touchSlot {
	s, ok := t.slots[t.slot]
	if !ok {
		s = &touchSlot{id: -1, endedID: -1}
		t.slots[t.slot] = s
	}
	return s
}

// Feed consumes one raw event. It returns the frame's actions on SYN_REPORT and nil otherwise.
func (t *evdevTranslator) Feed(ev inputEvent) []Action {
	switch ev.Type {
	case EV_REL:
		switch ev.Code {
		case REL_WHEEL:
			if !t.hiRes {
				// Positive REL_WHEEL is away from the user: back up the feed.
				t.wheel -= float64(ev.Value) * t.cfg.WheelPixels
			}
		case REL_WHEEL_HI_RES:
			t.hiRes = true
			t.wheel -= float64(ev.Value) * t.cfg.WheelPixels / hiResUnitsPerDetent
		case REL_DIAL:
			t.dial += int(ev.Value)
		}

	case EV_KEY:
		if ev.Value != evValuePress && ev.Value != evValueRepeat {
			return nil
		}
		switch ev.Code {
		case KEY_DOWN:
			t.wheel += t.cfg.WheelPixels
		case KEY_UP:
			t.wheel -= t.cfg.WheelPixels
		case KEY_PAGEDOWN:
			t.wheel += t.cfg.PagePixels
		case KEY_PAGEUP:
			t.wheel -= t.cfg.PagePixels
		case KEY_HOME:
			if ev.Value == evValuePress {
				t.reset = true
			}
		}

	case EV_ABS:
		switch ev.Code {
		case ABS_MT_SLOT:
			t.slot = int(ev.Value)
		case ABS_MT_TRACKING_ID:
			s := t.current()
			if ev.Value < 0 {
				if s.id >= 0 {
					s.endedID = s.id
				}
				s.id = -1
				s.started = false
				s.moved = false
				return nil
			}
			if s.id >= 0 && s.id != int(ev.Value) {
				s.endedID = s.id
			}
			s.id = int(ev.Value)
			s.started = true
		case ABS_MT_POSITION_X:
			s := t.current()
			s.x = float64(ev.Value) * t.cfg.TouchScale
		case ABS_MT_POSITION_Y:
			s := t.current()
			s.y = float64(ev.Value) * t.cfg.TouchScale
			if s.id >= 0 && !s.started {
				s.moved = true
			}
		}

	case EV_SYN:
		if ev.Code == SYN_REPORT {
			return t.flush()
		}
	}
	return nil
}

func (t *evdevTranslator) flush() []Action {
	var out []Action

	keys := make([]int, 0, len(t.slots))
	for k := range t.slots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		s := t.slots[k]
		if s.endedID >= 0 {
			out = append(out, TouchEnd{ID: s.endedID})
			s.endedID = -1
		}
		switch {
		case s.started:
			out = append(out, TouchStart{ID: s.id, X: s.x, Y: s.y})
		case s.moved:
			out = append(out, TouchMove{ID: s.id, X: s.x, Y: s.y})
		}
		s.started = false
		s.moved = false
	}

	if t.wheel != 0 {
		out = append(out, WheelScroll{Pixels: t.wheel})
		t.wheel = 0
	}
	if t.dial != 0 {
		out = append(out, DialTurn{Detents: t.dial})
		t.dial = 0
	}
	if t.reset {
		out = append(out, ResetDistance{})
		t.reset = false
	}
	return out
}
