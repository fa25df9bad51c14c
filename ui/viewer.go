package ui

import (
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Viewer runs the terminal application around a FeedView.
type Viewer struct {
	app     *tview.Application
	view    *FeedView
	pending atomic.Bool
}

// NewViewer creates a viewer for view. screen may be nil to use the real terminal.
func NewViewer(view *FeedView, screen tcell.Screen) *Viewer {
	app := tview.NewApplication().EnableMouse(true)
	if screen != nil {
		app.SetScreen(screen)
	}
	app.SetRoot(view, true).SetFocus(view)
	return &Viewer{app: app, view: view}
}

// Run blocks until Stop is called or the application fails.
func (v *Viewer) Run() error {
	return v.app.Run()
}

// Stop ends Run.
func (v *Viewer) Stop() {
	v.app.Stop()
}

// Invalidate asks for a redraw. Calls made before the redraw runs collapse into one.
func (v *Viewer) Invalidate() {
	if !v.pending.CompareAndSwap(false, true) {
		return
	}
	v.app.QueueUpdateDraw(func() {
		v.pending.Store(false)
	})
}
