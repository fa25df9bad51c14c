package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// readInputEvents reads input events from a single device and sends them to a channel.
// This runs in a dedicated goroutine and blocks on read operations.
func readInputEvents(f *os.File, events chan<- inputEvent, readErr chan<- error) {
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf) // Reusable reader, reset on each iteration

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			readErr <- fmt.Errorf("read from %s: %w", f.Name(), err)
			return
		}

		reader.Reset(buf)
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}

		events <- ev
	}
}

// openInputDevices opens every configured device. Devices that fail to open are
// logged and skipped; the feed keeps running on the remaining inputs.
func openInputDevices(paths []string, logger *slog.Logger) []*os.File {
	var files []*os.File
	for _, p := range paths {
		f, err := os.Open(ExpandPath(p))
		if err != nil {
			logger.Warn("failed to open input device", "device", p, "error", err)
			continue
		}
		logger.Info("input device opened", "device", p)
		files = append(files, f)
	}
	return files
}

// translateInput turns raw device events into daemon actions until events is closed.
// Actions that do not fit in the queue are dropped rather than stalling the reader.
func translateInput(events <-chan inputEvent, tr *evdevTranslator, actions chan<- Action, logger *slog.Logger) {
	for ev := range events {
		for _, act := range tr.Feed(ev) {
			select {
			case actions <- act:
			default:
				logger.Warn("action queue full, dropping input", "action", fmt.Sprintf("%T", act))
			}
		}
	}
}
