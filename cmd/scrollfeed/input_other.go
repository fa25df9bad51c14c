//go:build !linux

package main

import "os"

// startInputReaders falls back to one blocking reader goroutine per device.
func startInputReaders(files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	for _, f := range files {
		go readInputEvents(f, events, readErr)
	}
}
