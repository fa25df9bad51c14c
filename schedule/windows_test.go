package schedule

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestNotificationWindows_Scenario(t *testing.T) {
	d, err := GenerateDistances(3, ModeFixed, Params{MetersPerCard: 10}, nil)
	if err != nil {
		t.Fatalf("GenerateDistances: %v", err)
	}
	if !reflect.DeepEqual(d, []float64{0, 10, 20}) {
		t.Fatalf("unexpected distances %v", d)
	}

	got := NotificationWindows(d, 1.0, 0)
	want := []Window{
		{Start: 1, End: 10, TargetIndex: 1, TargetDistance: 10},
		{Start: 11, End: 20, TargetIndex: 2, TargetDistance: 20},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNotificationWindows_SkipsEmpty(t *testing.T) {
	got := NotificationWindows([]float64{0, 2, 10}, 3, 1)
	if len(got) != 1 || got[0].TargetIndex != 2 || got[0].Start != 5 || got[0].End != 9 {
		t.Errorf("unexpected windows %+v", got)
	}
	if w := NotificationWindows([]float64{0}, 1, 0); len(w) != 0 {
		t.Errorf("single card should have no windows")
	}
	if w := NotificationWindows(nil, 1, 0); len(w) != 0 {
		t.Errorf("empty schedule should have no windows")
	}
}

func TestNotificationWindows_NeverOverlapCards(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	const lifetime = 2.0

	d, err := GenerateDistances(200, ModeRandom, Params{Min: 0.5, Max: 6}, rng)
	if err != nil {
		t.Fatalf("GenerateDistances: %v", err)
	}
	windows := NotificationWindows(d, lifetime, 0.25)

	for wi, w := range windows {
		if w.End <= w.Start {
			t.Fatalf("window %d is empty: %+v", wi, w)
		}
		if wi > 0 && w.Start < windows[wi-1].End {
			t.Fatalf("window %d overlaps the previous one", wi)
		}
		for i, spawn := range d {
			if w.Start < spawn+lifetime && spawn < w.End {
				t.Fatalf("window %+v overlaps card %d [%f, %f]", w, i, spawn, spawn+lifetime)
			}
		}
	}
}

func TestWindowAtAndProgress(t *testing.T) {
	windows := NotificationWindows([]float64{0, 10, 20}, 1, 0)

	tests := []struct {
		at   float64
		idx  int
		ok   bool
		prog float64
	}{
		{0.5, -1, false, 0},
		{1, 0, true, 0},
		{5.5, 0, true, 0.5},
		{10, -1, false, 0},
		{15.5, 1, true, 0.5},
		{25, -1, false, 0},
	}
	for _, tt := range tests {
		idx, ok := WindowAt(windows, tt.at)
		if idx != tt.idx || ok != tt.ok {
			t.Errorf("WindowAt(%v) = %d, %v; want %d, %v", tt.at, idx, ok, tt.idx, tt.ok)
			continue
		}
		if ok {
			if p := windows[idx].Progress(tt.at); p != tt.prog {
				t.Errorf("Progress(%v) = %v, want %v", tt.at, p, tt.prog)
			}
		}
	}

	w := windows[0]
	if w.Progress(-100) != 0 || w.Progress(100) != 1 {
		t.Errorf("Progress should clamp to [0, 1]")
	}
}
