package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// envelope mirrors the daemon's outbound frame.
type envelope struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func main() {
	var (
		wsURL   = flag.String("ws", "ws://127.0.0.1:8088/ws", "scrollfeed state websocket URL")
		send    = flag.String("send", "", `Send one action envelope after connecting (e.g. '{"type":"wheel","data":{"pixels":600}}')`)
		rotates = flag.Bool("rotates", false, "Print every rotate frame instead of one line per 0.1 m")
		raw     = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	if *send != "" {
		if !json.Valid([]byte(*send)) {
			log.Fatalf("-send is not valid JSON")
		}
		writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, []byte(*send))
		writeMu.Unlock()
		if err != nil {
			log.Fatalf("failed to send action: %v", err)
		}
	}

	p := &printer{everyRotate: *rotates, raw: *raw, lastMeters: math.NaN()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			// Data frames keep the connection alive as well as pongs.
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			switch messageType {
			case websocket.TextMessage:
				p.handleTextMessage(message)
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printer renders frames one line each. Rotate frames are thinned to one line per
// 0.1 m of absolute distance unless everyRotate is set.
type printer struct {
	everyRotate bool
	raw         bool
	lastMeters  float64
}

type meters struct {
	Signed   float64 `json:"signed"`
	Absolute float64 `json:"absolute"`
}

func (p *printer) handleTextMessage(message []byte) {
	if p.raw {
		fmt.Printf("%s\n", string(message))
		return
	}

	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}
	ts := env.Ts.Local().Format("15:04:05.000")

	switch env.Type {
	case "rotate":
		var d struct {
			Delta     float64 `json:"delta"`
			Value     float64 `json:"value"`
			Direction string  `json:"direction"`
			Source    string  `json:"source"`
			Meters    meters  `json:"meters"`
			Frames    int     `json:"frames"`
		}
		if json.Unmarshal(env.Data, &d) != nil {
			break
		}
		m := math.Floor(d.Meters.Absolute*10) / 10
		if !p.everyRotate && m == p.lastMeters {
			return
		}
		p.lastMeters = m
		fmt.Printf("%s [ROTATE] %-8s %-7s %+.2f steps  value %.2f  %.2f m (%.2f m net)  x%d\n",
			ts, d.Direction, d.Source, d.Delta, d.Value, d.Meters.Absolute, d.Meters.Signed, d.Frames)
		return

	case "start", "end", "update":
		var d struct {
			Value  float64 `json:"value"`
			Source string  `json:"source"`
			Meters meters  `json:"meters"`
		}
		if json.Unmarshal(env.Data, &d) != nil {
			break
		}
		fmt.Printf("%s [%s] %s value %.2f  %.2f m\n", ts, strings.ToUpper(env.Type), d.Source, d.Value, d.Meters.Absolute)
		return

	case "card_spawned", "card_expired":
		var d struct {
			Index     int `json:"index"`
			Lifecycle struct {
				Spawn     float64 `json:"spawn"`
				Disappear float64 `json:"disappear"`
			} `json:"lifecycle"`
			Flashcard *struct {
				Title string `json:"title"`
			} `json:"flashcard"`
		}
		if json.Unmarshal(env.Data, &d) != nil {
			break
		}
		title := ""
		if d.Flashcard != nil {
			title = d.Flashcard.Title
		}
		fmt.Printf("%s [%s] card %d  %.1f-%.1f m  %s\n",
			ts, strings.ToUpper(env.Type), d.Index+1, d.Lifecycle.Spawn, d.Lifecycle.Disappear, title)
		return

	case "notification_start", "notification_end":
		var d struct {
			Start          float64 `json:"startDistance"`
			End            float64 `json:"endDistance"`
			TargetIndex    int     `json:"targetIndex"`
			TargetDistance float64 `json:"targetDistance"`
		}
		if json.Unmarshal(env.Data, &d) != nil {
			break
		}
		fmt.Printf("%s [%s] card %d at %.1f m (window %.1f-%.1f m)\n",
			ts, strings.ToUpper(env.Type), d.TargetIndex+1, d.TargetDistance, d.Start, d.End)
		return

	case "milestone":
		var d struct {
			Meters  float64 `json:"meters"`
			Reached int     `json:"reached"`
		}
		if json.Unmarshal(env.Data, &d) != nil {
			break
		}
		fmt.Printf("%s [MILESTONE] %.0f m (#%d)\n", ts, d.Meters, d.Reached)
		return
	}

	// state_init and anything unrecognized
	var jsonData any
	if err := json.Unmarshal(env.Data, &jsonData); err != nil {
		fmt.Printf("%s [%s] %s\n", ts, strings.ToUpper(env.Type), string(env.Data))
		return
	}
	prettyJSON, _ := json.MarshalIndent(jsonData, "", "  ")
	fmt.Printf("%s [%s]\n%s\n\n", ts, strings.ToUpper(env.Type), string(prettyJSON))
}
