package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"scrollfeed/distance"
	"scrollfeed/manifest"
	"scrollfeed/stream"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	return screen
}

func rowText(screen tcell.Screen, y, width int) string {
	var b strings.Builder
	for x := 0; x < width; x++ {
		ch, _, _, _ := screen.GetContent(x, y)
		b.WriteRune(ch)
	}
	return b.String()
}

func intPtr(i int) *int { return &i }

func TestSurface_CreateMeasuresForegroundOnly(t *testing.T) {
	cards := []manifest.Flashcard{{Title: "What is rizz?"}}
	m := &manifest.Manifest{Flashcards: cards}
	s := NewSurface(10, m.Flashcard)

	fg, err := s.Create(stream.Foreground, 4, manifest.Item{Src: "img/a.jpg", Type: manifest.TypeImage, FlashcardIndex: intPtr(0)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(stream.Background, 1, manifest.Item{Src: "bg.jpg", Type: manifest.TypeImage}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ms := s.DrainMeasurements()
	if len(ms) != 1 || ms[0].Index != 4 || ms[0].Height != float64(imageRows+flashcardRows)*10 {
		t.Fatalf("unexpected measurements %+v", ms)
	}
	if len(s.DrainMeasurements()) != 0 {
		t.Errorf("measurements not cleared")
	}

	fg.Place(25)
	snap, _ := s.Snapshot()
	if len(snap) != 2 || snap[0].Layer != stream.Background || snap[1].Y != 25 || snap[1].Flashcard != "What is rizz?" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	fg.Destroy()
	if s.Len() != 1 {
		t.Errorf("expected 1 card after destroy, got %d", s.Len())
	}
}

func TestSurface_ProbeFailureLeavesSlotEmpty(t *testing.T) {
	s := NewSurface(10, nil)
	s.Probe = func(it manifest.Item) error {
		if strings.HasSuffix(it.Src, ".broken") {
			return errors.New("decode failed")
		}
		return nil
	}
	if _, err := s.Create(stream.Foreground, 0, manifest.Item{Src: "x.broken", Type: manifest.TypeVideo}); err == nil {
		t.Errorf("expected probe error")
	}
	if _, err := s.Create(stream.Foreground, 0, manifest.Item{}); err == nil {
		t.Errorf("expected error for an item without src")
	}
	if s.Len() != 0 {
		t.Errorf("failed creates left cards behind")
	}
}

func TestFeedView_Draw(t *testing.T) {
	screen := newScreen(t)
	s := NewSurface(10, nil)

	el, _ := s.Create(stream.Foreground, 7, manifest.Item{Src: "media/cat.jpg", Type: manifest.TypeImage})
	el.Place(20) // row 2
	bg, _ := s.Create(stream.Background, 0, manifest.Item{Src: "bg.jpg", Type: manifest.TypeImage})
	bg.Place(0)
	s.SetStatus(Status{Step: 1234.5, Meters: distance.Meters{Absolute: 1500, Signed: -2}, Phase: "momentum", Live: 5})

	view := NewFeedView(s)
	var resized float64
	view.SetResizeFunc(func(px float64) { resized = px })
	view.SetRect(0, 0, 40, 12)
	view.Draw(screen)

	if resized != 110 {
		t.Errorf("resize reported %f px, want 110", resized)
	}
	if got := rowText(screen, 2, 40); !strings.Contains(got, "cat.jpg") || !strings.Contains(got, "┌") {
		t.Errorf("card title row = %q", got)
	}
	if got := rowText(screen, 3, 40); !strings.Contains(got, "#7 image") {
		t.Errorf("card body row = %q", got)
	}
	if ch, _, _, _ := screen.GetContent(0, 0); ch != '░' {
		t.Errorf("expected background gutter, got %q", ch)
	}
	status := rowText(screen, 11, 40)
	if !strings.Contains(status, "step 1,234.5") || !strings.Contains(status, "1,500.0 m") {
		t.Errorf("status row = %q", status)
	}
}

func TestFeedView_KeysAndWheel(t *testing.T) {
	s := NewSurface(10, nil)
	view := NewFeedView(s)
	view.WheelPixels = 120

	var got []float64
	resets, quits := 0, 0
	view.SetWheelFunc(func(px float64) { got = append(got, px) }).
		SetResetFunc(func() { resets++ }).
		SetQuitFunc(func() { quits++ })

	capture := view.GetInputCapture()
	capture(tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	capture(tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone))
	capture(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone))
	capture(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	if ev := capture(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)); ev == nil {
		t.Errorf("unbound key should pass through")
	}

	mouse := view.GetMouseCapture()
	mouse(tview.MouseScrollDown, tcell.NewEventMouse(0, 0, tcell.WheelDown, tcell.ModNone))
	mouse(tview.MouseScrollUp, tcell.NewEventMouse(0, 0, tcell.WheelUp, tcell.ModNone))

	want := []float64{30, -30, 120, -120}
	if len(got) != len(want) {
		t.Fatalf("wheel calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("wheel call %d = %f, want %f", i, got[i], want[i])
		}
	}
	if resets != 1 || quits != 1 {
		t.Errorf("resets=%d quits=%d", resets, quits)
	}
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(Status{Step: 2, Velocity: 1234.4, Live: 3, Milestones: 2, Notification: "next card in 4 m"})
	for _, want := range []string{"step 2.00", "1,234 px/s", "live 3", "milestones 2", "next card in 4 m"} {
		if !strings.Contains(got, want) {
			t.Errorf("status %q missing %q", got, want)
		}
	}
}
