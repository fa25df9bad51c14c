package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scrollfeed/distance"
	"scrollfeed/manifest"
	"scrollfeed/schedule"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// This file implements:
//   - A Hub that tracks connected WebSocket clients
//   - Per-client write pumps so one slow client doesn't block others
//   - A broadcaster loop that reads daemon-emitted broadcasts and fans out
//
// Constraints:
//   - DaemonState stays daemon-owned; the initial snapshot goes through the actions channel.
//   - Slow clients are disconnected when their send buffer fills.
//   - Messages are JSON text frames with an envelope: {type, ts, data}.
//   - Inbound text frames are action envelopes, forwarded to the daemon.
//
// ============================================================================

// wsInteractionData is the `data` payload for "start", "end" and "update".
type wsInteractionData struct {
	Value  float64         `json:"value"`
	Source distance.Source `json:"source"`
	Meters distance.Meters `json:"meters"`
}

// wsRotateData is the `data` payload for "rotate". A coalesced frame sums the deltas
// of the motions it covers and keeps the latest totals.
type wsRotateData struct {
	Delta     float64            `json:"delta"`
	Value     float64            `json:"value"`
	Direction distance.Direction `json:"direction"`
	Distance  distance.Distance  `json:"distance"`
	Source    distance.Source    `json:"source"`
	Meters    distance.Meters    `json:"meters"`
	Frames    int                `json:"frames"`
}

// merge folds a later motion into r.
func (r *wsRotateData) merge(next wsRotateData) {
	r.Delta += next.Delta
	r.Distance.Delta += next.Distance.Delta
	r.Distance.DeltaAbs += next.Distance.DeltaAbs
	r.Distance.Total = next.Distance.Total
	r.Distance.Absolute = next.Distance.Absolute
	r.Distance.Radius = next.Distance.Radius
	r.Value = next.Value
	r.Source = next.Source
	r.Meters = next.Meters
	r.Frames += next.Frames
	switch {
	case r.Distance.Delta > 0:
		r.Direction = distance.Forward
	case r.Distance.Delta < 0:
		r.Direction = distance.Backward
	default:
		r.Direction = next.Direction
	}
}

type wsCardData struct {
	Index     int                 `json:"index"`
	Lifecycle schedule.Lifecycle  `json:"lifecycle"`
	Flashcard *manifest.Flashcard `json:"flashcard,omitempty"`
}

type wsNotificationData struct {
	schedule.Window
}

type wsMilestoneData struct {
	Meters  float64 `json:"meters"`
	Reached int     `json:"reached"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // zero means "use now"
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

func marshalEnvelope(ev wsOutboundEvent) ([]byte, error) {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()
	return json.Marshal(envelope{Type: ev.Type, Ts: &ts, Data: ev.Data})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size. Zero uses a default.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size. Zero uses a default.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 64
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 256
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit.
		safeCloseChan(c.send)

		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	// actions receives inbound commands; nil ignores them.
	actions chan<- Action

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, actions chan<- Action, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 64
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		actions:    actions,
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	// Inbound frames larger than this close the connection.
	maxInboundBytes = 4096
)

// wsRotateCoalesceWindow is the maximum time window during which bursty rotate updates
// are coalesced before broadcasting to clients.
const wsRotateCoalesceWindow = 50 * time.Millisecond

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump, kind string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting ("+kind+" error)", "remote_addr", c.remoteAddr, "error", err)
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", "write", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", "ping", err)
				return
			}
		}
	}
}

// readPump forwards inbound action envelopes to the daemon and detects disconnects.
// It exits on read error, then unregisters the client.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logExit("readPump", "read", err)
			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
		if typ == websocket.TextMessage {
			c.handleInbound(msg)
		}
	}
}

// handleInbound decodes one inbound frame and queues it for the daemon.
// Snapshots are not served inbound: clients get state_init on connect.
func (c *Client) handleInbound(msg []byte) {
	if c.actions == nil {
		return
	}
	act, err := UnmarshalAction(msg)
	if err != nil {
		c.logger.Debug("ws inbound action rejected", "remote_addr", c.remoteAddr, "error", err)
		return
	}
	if _, ok := act.(RequestSnapshot); ok {
		return
	}
	select {
	case c.actions <- act:
	default:
		c.logger.Warn("action queue full, dropping ws action", "remote_addr", c.remoteAddr)
	}
}

// ============================================================================
// HTTP Handlers
// ============================================================================

type StateServer struct {
	logger *slog.Logger

	hub *Hub

	// Used for snapshot requests and inbound actions.
	actions chan<- Action
}

type StateServerConfig struct {
	Hub HubConfig
}

// NewStateServer constructs the WS state server components. Call Register on a mux,
// start Hub().Run(ctx), and start the broadcaster loop.
func NewStateServer(logger *slog.Logger, actions chan<- Action, cfg StateServerConfig) *StateServer {
	return &StateServer{
		logger:  logger,
		hub:     NewHub(logger, cfg.Hub),
		actions: actions,
	}
}

func (s *StateServer) Hub() *Hub { return s.hub }

// Register registers the WS and snapshot handlers on the provided mux.
func (s *StateServer) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/ws", s.handleStateWS)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
}

var upgrader = websocket.Upgrader{
	// Overlays are served from arbitrary origins (OBS browser sources, file://).
	CheckOrigin: func(r *http.Request) bool { return true },
}

// requestSnapshot round-trips a snapshot through the daemon loop.
func requestSnapshot(ctx context.Context, actions chan<- Action) (Snapshot, error) {
	reply := make(chan Snapshot, 1)

	select {
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case actions <- RequestSnapshot{Reply: reply}:
	}

	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, snapshotReplyTimeoutSec*time.Second)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return Snapshot{}, fmt.Errorf("wait for snapshot: %w", ctx.Err())
	case snap := <-reply:
		return snap, nil
	}
}

// handleStateWS upgrades and registers a client, then sends state_init.
func (s *StateServer) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, s.actions, r.RemoteAddr, s.logger)

	// Register client first so broadcasts can reach it.
	s.hub.register <- client

	// The pumps must outlive this handler: net/http cancels r.Context() when it returns.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	if s.actions == nil {
		return
	}
	snap, err := requestSnapshot(r.Context(), s.actions)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", err)
		}
		return
	}

	initMsg, err := marshalEnvelope(wsOutboundEvent{Type: "state_init", Data: snap, At: snap.At})
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}
	// Enqueue init message; if client is already slow, disconnect.
	select {
	case client.send <- initMsg:
	default:
		s.hub.unregister <- client
	}
}

// handleSnapshot serves the current snapshot as JSON.
func (s *StateServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.actions == nil {
		http.Error(w, "no daemon", http.StatusServiceUnavailable)
		return
	}
	snap, err := requestSnapshot(r.Context(), s.actions)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Debug("snapshot write failed", "error", err)
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads daemon broadcasts, marshals them, and broadcasts them to all hub
// clients. Intended to run as a single goroutine.
//
// Rotate events are coalesced: at most one rotate frame per wsRotateCoalesceWindow,
// carrying the summed deltas and the latest totals. Any other event flushes the pending
// rotate first, so clients see events in daemon order.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	var pending *wsRotateData
	var pendingAt time.Time
	var timer *time.Timer
	var timerCh <-chan time.Time

	send := func(ev wsOutboundEvent) {
		msg, err := marshalEnvelope(ev)
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flushPending := func() {
		if pending == nil {
			return
		}
		send(wsOutboundEvent{Type: "rotate", Data: *pending, At: pendingAt})
		pending = nil
	}

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		timerCh = nil
	}

	for {
		select {
		case <-ctx.Done():
			// Best-effort: flush pending rotate before exit.
			flushPending()
			stopTimer()
			return

		case <-timerCh:
			flushPending()
			stopTimer()

		case b, ok := <-src:
			if !ok {
				flushPending()
				stopTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			if r, isRotate := b.(BroadcastRotate); isRotate {
				next := rotateData(r)
				if pending == nil {
					pending = &next
				} else {
					pending.merge(next)
				}
				pendingAt = r.Event.At
				// Do NOT reset on each update: the window bounds latency, not silence.
				if timer == nil {
					timer = time.NewTimer(wsRotateCoalesceWindow)
					timerCh = timer.C
				}
				continue
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				// Unknown broadcasts are dropped.
				continue
			}
			flushPending()
			stopTimer()
			send(ev)
		}
	}
}

func rotateData(r BroadcastRotate) wsRotateData {
	return wsRotateData{
		Delta:     r.Event.Delta,
		Value:     r.Event.Value,
		Direction: r.Event.Direction,
		Distance:  r.Event.Distance,
		Source:    r.Event.Source,
		Meters:    r.Meters,
		Frames:    1,
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastInteraction:
		return wsOutboundEvent{
			Type: ev.Kind,
			Data: wsInteractionData{Value: ev.Value, Source: ev.Source, Meters: ev.Meters},
			At:   ev.At,
		}, true

	case BroadcastRotate:
		return wsOutboundEvent{Type: "rotate", Data: rotateData(ev), At: ev.Event.At}, true

	case BroadcastCard:
		return wsOutboundEvent{
			Type: "card_" + ev.Kind,
			Data: wsCardData{Index: ev.Index, Lifecycle: ev.Lifecycle, Flashcard: ev.Flashcard},
			At:   ev.At,
		}, true

	case BroadcastNotification:
		return wsOutboundEvent{
			Type: "notification_" + ev.Kind,
			Data: wsNotificationData{Window: ev.Window},
			At:   ev.At,
		}, true

	case BroadcastMilestone:
		return wsOutboundEvent{
			Type: "milestone",
			Data: wsMilestoneData{Meters: ev.Meters, Reached: ev.Reached},
			At:   ev.At,
		}, true

	default:
		return wsOutboundEvent{}, false
	}
}
