package main

import (
	"time"

	"scrollfeed/distance"
	"scrollfeed/manifest"
	"scrollfeed/schedule"
	"scrollfeed/stream"
)

// StateBroadcast is a state change emitted by the daemon loop for external consumers
// (the WebSocket broadcaster). Values are immutable copies; nothing daemon-owned leaks.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastInteraction reports an engine start, end or update.
type BroadcastInteraction struct {
	Kind   string // "start", "end", "update"
	Value  float64
	Source distance.Source
	Meters distance.Meters
	At     time.Time
}

// BroadcastRotate reports one applied motion.
type BroadcastRotate struct {
	Event  distance.Event
	Meters distance.Meters
}

// BroadcastCard reports a flashcard card entering or leaving its lifecycle.
type BroadcastCard struct {
	Kind      string // "spawned", "expired"
	Index     int
	Lifecycle schedule.Lifecycle
	Flashcard *manifest.Flashcard
	At        time.Time
}

// BroadcastNotification reports a notification window opening or closing.
type BroadcastNotification struct {
	Kind   string // "start", "end"
	Window schedule.Window
	At     time.Time
}

// BroadcastMilestone reports an absolute distance milestone.
type BroadcastMilestone struct {
	Meters  float64
	Reached int
	At      time.Time
}

func (BroadcastInteraction) broadcastMarker()  {}
func (BroadcastRotate) broadcastMarker()       {}
func (BroadcastCard) broadcastMarker()         {}
func (BroadcastNotification) broadcastMarker() {}
func (BroadcastMilestone) broadcastMarker()    {}

// Snapshot is a point-in-time copy of daemon state for state_init, IPC and HTTP.
type Snapshot struct {
	SignedTotal   float64         `json:"signed_total"`
	AbsoluteTotal float64         `json:"absolute_total"`
	Value         float64         `json:"value"`
	Active        bool            `json:"active"`
	Phase         string          `json:"phase"`
	Velocity      float64         `json:"velocity"`
	Meters        distance.Meters `json:"meters"`

	Offset     float64      `json:"offset"`
	Foreground stream.Range `json:"foreground"`
	Background stream.Range `json:"background"`
	Live       int          `json:"live"`

	ActiveCards  []int            `json:"active_cards"`
	Notification *schedule.Window `json:"notification,omitempty"`
	Milestones   int              `json:"milestones"`

	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}
