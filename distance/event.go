package distance

import (
	"fmt"
	"time"
)

// EventType identifies an engine event.
type EventType int

const (
	// EventStart fires when an interaction begins. Payload: Value.
	EventStart EventType = iota

	// EventRotate fires for every applied motion, including momentum frames.
	// Payload: Delta, Value, Direction, Distance.
	EventRotate

	// EventEnd fires when an interaction (and its momentum) is over. Payload: Value.
	EventEnd

	// EventUpdate fires when a caller changes the value or resets the totals.
	EventUpdate

	eventTypeCount
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventRotate:
		return "rotate"
	case EventEnd:
		return "end"
	case EventUpdate:
		return "update"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Direction of a motion.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// MarshalText encodes the direction as "forward" or "backward".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes "forward" or "backward".
func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "forward":
		*d = Forward
	case "backward":
		*d = Backward
	default:
		return fmt.Errorf("unknown direction %q", string(b))
	}
	return nil
}

// Source is the input variant that produced an interaction.
type Source int

const (
	SourceNone Source = iota
	SourcePointer
	SourceWheel
	SourceTouch
	SourceDial
	SourceRotary
)

func (s Source) String() string {
	switch s {
	case SourcePointer:
		return "pointer"
	case SourceWheel:
		return "wheel"
	case SourceTouch:
		return "touch"
	case SourceDial:
		return "dial"
	case SourceRotary:
		return "rotary"
	default:
		return "none"
	}
}

// MarshalText encodes the source name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// draggable sources keep their release velocity as momentum.
func (s Source) draggable() bool {
	return s == SourcePointer || s == SourceTouch || s == SourceRotary
}

// Distance is the physical part of an event payload, in pixels.
type Distance struct {
	Total    float64 `json:"total"`    // net signed distance
	Absolute float64 `json:"absolute"` // total traveled
	Delta    float64 `json:"delta"`    // signed distance of this motion
	DeltaAbs float64 `json:"deltaAbs"`
	Radius   float64 `json:"radius"` // 0 for linear input
}

// Event is the immutable payload handed to subscribers.
type Event struct {
	Type      EventType `json:"-"`
	Delta     float64   `json:"delta"` // step units
	Value     float64   `json:"value"` // cumulative step units
	Direction Direction `json:"direction"`
	Distance  Distance  `json:"distance"`
	Source    Source    `json:"source"`
	At        time.Time `json:"-"`
}
