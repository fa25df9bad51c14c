package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"scrollfeed/distance"
	"scrollfeed/schedule"
)

// NOTE: These tests focus on hub behavior (fanout + slow-client disconnection)
// without standing up a real websocket server.
//
// Clients are constructed with a nil websocket.Conn; the hub guards against nil on close.

// newTestHub returns a hub with small buffers for deterministic tests.
func newTestHub(t *testing.T, sendBuf int, broadcastBuf int) *Hub {
	t.Helper()
	return NewHub(slog.Default(), HubConfig{
		SendBuf:      sendBuf,
		BroadcastBuf: broadcastBuf,
	})
}

func newTestClient(hub *Hub, name string, buf int) *Client {
	return &Client{
		hub:        hub,
		conn:       nil,
		send:       make(chan []byte, buf),
		remoteAddr: name,
		logger:     slog.Default(),
	}
}

func registerClient(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	waitUntil(t, 500*time.Millisecond, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		_, ok := hub.clients[c]
		return ok
	}, c.remoteAddr+" not registered in time")
}

func startHub(t *testing.T, hub *Hub) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	return cancel, done
}

func TestHub_BroadcastDeliveredToAllClients(t *testing.T) {
	hub := newTestHub(t, 4, 8)
	cancel, done := startHub(t, hub)
	defer cancel()

	c1 := newTestClient(hub, "c1", 4)
	c2 := newTestClient(hub, "c2", 4)
	registerClient(t, hub, c1)
	registerClient(t, hub, c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount() = %d, want 2", got)
	}

	msg := []byte(`{"type":"milestone","data":{"meters":50,"reached":1}}`)

	// Avoid BroadcastBytes() here because it is non-blocking and may drop.
	hub.broadcast <- msg

	for _, c := range []*Client{c1, c2} {
		select {
		case got := <-c.send:
			if string(got) != string(msg) {
				t.Fatalf("%s got %q, want %q", c.remoteAddr, string(got), string(msg))
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timeout waiting for %s to receive broadcast", c.remoteAddr)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for hub to stop")
	}

	// Shutdown closes every client's send channel.
	if _, ok := <-c1.send; ok {
		t.Fatalf("expected c1 send channel to be closed after shutdown")
	}
}

func TestHub_SlowClientDisconnectedOnFullSendBuffer(t *testing.T) {
	hub := newTestHub(t, 1, 8)
	cancel, _ := startHub(t, hub)
	defer cancel()

	slow := newTestClient(hub, "slow", 1)
	fast := newTestClient(hub, "fast", 8)
	registerClient(t, hub, slow)
	registerClient(t, hub, fast)

	// Pre-fill slow client buffer to simulate it being stuck.
	slow.send <- []byte(`"already queued"`)

	msg := []byte(`{"type":"card_spawned","data":{"index":0}}`)
	hub.broadcast <- msg

	select {
	case got := <-fast.send:
		if string(got) != string(msg) {
			t.Fatalf("fast client got %q, want %q", string(got), string(msg))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for fast client to receive broadcast")
	}

	select {
	case <-slow.send:
	default:
	}

	waitUntil(t, 750*time.Millisecond, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "expected slow send channel to be closed")

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}
}

func TestClient_HandleInboundForwardsActions(t *testing.T) {
	actions := make(chan Action, 4)
	c := newTestClient(nil, "c", 1)
	c.actions = actions

	c.handleInbound([]byte(`{"type":"wheel","data":{"pixels":-120}}`))
	c.handleInbound([]byte(`{"type":"snapshot"}`))
	c.handleInbound([]byte(`not json`))
	c.handleInbound([]byte(`{"type":"reset_distance"}`))

	if len(actions) != 2 {
		t.Fatalf("queued %d actions, want 2", len(actions))
	}
	if got, ok := (<-actions).(WheelScroll); !ok || got.Pixels != -120 {
		t.Fatalf("first action = %#v, want WheelScroll{-120}", got)
	}
	if _, ok := (<-actions).(ResetDistance); !ok {
		t.Fatalf("second action is not ResetDistance")
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

type wireFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, c *Client) wireFrame {
	t.Helper()
	select {
	case msg := <-c.send:
		var f wireFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			t.Fatalf("unmarshal frame %q: %v", string(msg), err)
		}
		return f
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for broadcast frame")
	}
	return wireFrame{}
}

func rotateBroadcast(delta, total float64) BroadcastRotate {
	return BroadcastRotate{
		Event: distance.Event{
			Type:      distance.EventRotate,
			Delta:     delta,
			Value:     total,
			Direction: distance.Forward,
			Distance:  distance.Distance{Total: total, Absolute: total, Delta: delta, DeltaAbs: delta},
			Source:    distance.SourceWheel,
			At:        time.Now(),
		},
		Meters: distance.Meters{Signed: total / 100, Absolute: total / 100},
	}
}

func TestBroadcaster_CoalescesRotates(t *testing.T) {
	hub := newTestHub(t, 16, 16)
	cancel, _ := startHub(t, hub)
	defer cancel()

	c := newTestClient(hub, "c", 16)
	registerClient(t, hub, c)

	src := make(chan StateBroadcast, 8)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go RunBroadcaster(ctx, hub, src, slog.Default())

	src <- rotateBroadcast(2, 2)
	src <- rotateBroadcast(3, 5)
	src <- rotateBroadcast(1, 6)

	f := readFrame(t, c)
	if f.Type != "rotate" {
		t.Fatalf("frame type = %q, want rotate", f.Type)
	}
	var d struct {
		Delta     float64            `json:"delta"`
		Value     float64            `json:"value"`
		Direction distance.Direction `json:"direction"`
		Distance  distance.Distance  `json:"distance"`
		Source    string             `json:"source"`
		Frames    int                `json:"frames"`
	}
	if err := json.Unmarshal(f.Data, &d); err != nil {
		t.Fatalf("unmarshal rotate: %v", err)
	}
	if d.Delta != 6 || d.Value != 6 || d.Frames != 3 {
		t.Fatalf("coalesced rotate = delta %v value %v frames %d, want 6/6/3", d.Delta, d.Value, d.Frames)
	}
	if d.Distance.Total != 6 || d.Distance.Delta != 6 {
		t.Fatalf("coalesced distance = %+v", d.Distance)
	}
	if d.Direction != distance.Forward || d.Source != "wheel" {
		t.Fatalf("direction/source = %v/%q, want forward/wheel", d.Direction, d.Source)
	}
}

func TestBroadcaster_FlushesPendingRotateBeforeOtherEvents(t *testing.T) {
	hub := newTestHub(t, 16, 16)
	cancel, _ := startHub(t, hub)
	defer cancel()

	c := newTestClient(hub, "c", 16)
	registerClient(t, hub, c)

	src := make(chan StateBroadcast, 8)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go RunBroadcaster(ctx, hub, src, slog.Default())

	src <- rotateBroadcast(4, 4)
	src <- BroadcastCard{
		Kind:      "spawned",
		Index:     0,
		Lifecycle: schedule.Lifecycle{Spawn: 0, Disappear: 1},
		At:        time.Now(),
	}
	src <- BroadcastMilestone{Meters: 50, Reached: 1, At: time.Now()}

	want := []string{"rotate", "card_spawned", "milestone"}
	for _, typ := range want {
		if f := readFrame(t, c); f.Type != typ {
			t.Fatalf("frame type = %q, want %q", f.Type, typ)
		}
	}
}

func TestBroadcaster_StopsWhenSourceCloses(t *testing.T) {
	hub := newTestHub(t, 4, 4)
	src := make(chan StateBroadcast)
	done := make(chan struct{})
	go func() {
		defer close(done)
		RunBroadcaster(context.Background(), hub, src, slog.Default())
	}()

	close(src)
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatalf("broadcaster did not stop after source closed")
	}
}

func TestConvertBroadcast_WireTypes(t *testing.T) {
	cases := []struct {
		in   StateBroadcast
		want string
	}{
		{BroadcastInteraction{Kind: "start"}, "start"},
		{BroadcastInteraction{Kind: "update"}, "update"},
		{BroadcastCard{Kind: "expired"}, "card_expired"},
		{BroadcastNotification{Kind: "start"}, "notification_start"},
		{BroadcastNotification{Kind: "end"}, "notification_end"},
		{BroadcastMilestone{Meters: 100, Reached: 2}, "milestone"},
	}
	for _, tc := range cases {
		ev, ok := convertBroadcast(tc.in)
		if !ok {
			t.Fatalf("convertBroadcast(%T) not ok", tc.in)
		}
		if ev.Type != tc.want {
			t.Errorf("convertBroadcast(%T) type = %q, want %q", tc.in, ev.Type, tc.want)
		}
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}
