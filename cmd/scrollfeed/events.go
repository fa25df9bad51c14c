package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Action Types
// ============================================================================
// Actions represent intent from the input sources (evdev, terminal, IPC,
// WebSocket). The daemon loop is the only consumer and applies them to the
// engine and stream it owns.
// ============================================================================

// Action is a marker interface for everything the daemon loop accepts.
type Action interface {
	actionMarker()
}

// WheelScroll is a wheel movement in feed pixels (positive = forward).
type WheelScroll struct {
	Pixels float64 `json:"pixels"`
}

func (WheelScroll) actionMarker() {}

// DialTurn is a rotary encoder movement in detents (positive = clockwise).
type DialTurn struct {
	Detents int `json:"detents"`
}

func (DialTurn) actionMarker() {}

// TouchStart is a new contact with tracking identifier ID.
type TouchStart struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (TouchStart) actionMarker() {}

// TouchMove is a position update for contact ID.
type TouchMove struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (TouchMove) actionMarker() {}

// TouchEnd lifts contact ID.
type TouchEnd struct {
	ID int `json:"id"`
}

func (TouchEnd) actionMarker() {}

// PointerStart begins a generic drag at (X, Y).
type PointerStart struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (PointerStart) actionMarker() {}

// PointerMove is a raw drag delta.
type PointerMove struct {
	Delta float64 `json:"delta"`
}

func (PointerMove) actionMarker() {}

// PointerEnd releases a generic drag.
type PointerEnd struct{}

func (PointerEnd) actionMarker() {}

// RotateStart begins a circular drag at (X, Y).
type RotateStart struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (RotateStart) actionMarker() {}

// RotateMove continues a circular drag to (X, Y).
type RotateMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (RotateMove) actionMarker() {}

// RotateEnd releases a circular drag.
type RotateEnd struct{}

func (RotateEnd) actionMarker() {}

// ResetDistance zeroes the signed and absolute totals.
type ResetDistance struct{}

func (ResetDistance) actionMarker() {}

// SetValue replaces the step value.
type SetValue struct {
	Value float64 `json:"value"`
}

func (SetValue) actionMarker() {}

// Resize changes the viewport height in feed pixels.
type Resize struct {
	Height float64 `json:"height"`
}

func (Resize) actionMarker() {}

// RequestSnapshot asks the daemon for a Snapshot on Reply. Reply should be buffered;
// the daemon never blocks on it. It arrives over the wire as "snapshot" with a nil
// Reply that the transport fills in.
type RequestSnapshot struct {
	Reply chan<- Snapshot `json:"-"`
}

func (RequestSnapshot) actionMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// ActionEnvelope wraps an action with a type discriminator for JSON marshaling
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// decodeData unmarshals env.Data into a fresh T. Missing data leaves T zero.
func decodeData[T Action](env ActionEnvelope) (Action, error) {
	var a T
	if len(env.Data) == 0 {
		return a, nil
	}
	if err := json.Unmarshal(env.Data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", a, err)
	}
	return a, nil
}

// UnmarshalAction deserializes a JSON action envelope into a concrete Action
func UnmarshalAction(data []byte) (Action, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "wheel":
		return decodeData[WheelScroll](env)
	case "dial":
		return decodeData[DialTurn](env)

	case "touch_start":
		return decodeData[TouchStart](env)
	case "touch_move":
		return decodeData[TouchMove](env)
	case "touch_end":
		return decodeData[TouchEnd](env)

	case "pointer_start":
		return decodeData[PointerStart](env)
	case "pointer_move":
		return decodeData[PointerMove](env)
	case "pointer_end":
		return PointerEnd{}, nil

	case "rotate_start":
		return decodeData[RotateStart](env)
	case "rotate_move":
		return decodeData[RotateMove](env)
	case "rotate_end":
		return RotateEnd{}, nil

	case "reset_distance":
		return ResetDistance{}, nil
	case "set_value":
		return decodeData[SetValue](env)
	case "resize":
		return decodeData[Resize](env)

	case "snapshot":
		return RequestSnapshot{}, nil

	default:
		return nil, fmt.Errorf("unknown action type: %q", env.Type)
	}
}

// actionType returns the wire name of a.
func actionType(a Action) (string, bool) {
	switch a.(type) {
	case WheelScroll:
		return "wheel", true
	case DialTurn:
		return "dial", true
	case TouchStart:
		return "touch_start", true
	case TouchMove:
		return "touch_move", true
	case TouchEnd:
		return "touch_end", true
	case PointerStart:
		return "pointer_start", true
	case PointerMove:
		return "pointer_move", true
	case PointerEnd:
		return "pointer_end", true
	case RotateStart:
		return "rotate_start", true
	case RotateMove:
		return "rotate_move", true
	case RotateEnd:
		return "rotate_end", true
	case ResetDistance:
		return "reset_distance", true
	case SetValue:
		return "set_value", true
	case Resize:
		return "resize", true
	case RequestSnapshot:
		return "snapshot", true
	default:
		return "", false
	}
}

// MarshalAction serializes an Action into a JSON envelope with type discriminator
func MarshalAction(a Action) ([]byte, error) {
	typ, ok := actionType(a)
	if !ok {
		return nil, fmt.Errorf("unsupported action type: %T", a)
	}
	env := ActionEnvelope{Type: typ}

	switch a.(type) {
	case PointerEnd, RotateEnd, ResetDistance, RequestSnapshot:
		// No payload.
	default:
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal %T: %w", a, err)
		}
		env.Data = data
	}

	return json.Marshal(env)
}
