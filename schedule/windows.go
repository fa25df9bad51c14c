package schedule

import (
	"math"
	"sort"
)

// Window is a notification window between two consecutive cards.
type Window struct {
	Start          float64 `json:"startDistance"`
	End            float64 `json:"endDistance"`
	TargetIndex    int     `json:"targetIndex"`
	TargetDistance float64 `json:"targetDistance"`
}

// Contains reports whether d falls inside [Start, End).
func (w Window) Contains(d float64) bool {
	return d >= w.Start && d < w.End
}

// Progress returns how far d is through the window, clamped to [0, 1].
func (w Window) Progress(d float64) float64 {
	span := w.End - w.Start
	if span <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, (d-w.Start)/span))
}

// NotificationWindows derives one window per adjacent spawn pair (i, i+1): it opens
// lifetime after card i spawns and closes margin before card i+1 spawns. Pairs whose
// window would be empty are skipped.
func NotificationWindows(distances []float64, lifetime, margin float64) []Window {
	var out []Window
	for i := 0; i+1 < len(distances); i++ {
		start := distances[i] + lifetime
		end := distances[i+1] - margin
		if end <= start {
			continue
		}
		out = append(out, Window{
			Start:          start,
			End:            end,
			TargetIndex:    i + 1,
			TargetDistance: distances[i+1],
		})
	}
	return out
}

// WindowAt returns the index of the window containing d, or false. windows must be
// sorted and disjoint, as NotificationWindows returns them.
func WindowAt(windows []Window, d float64) (int, bool) {
	i := sort.Search(len(windows), func(i int) bool { return windows[i].End > d })
	if i < len(windows) && windows[i].Contains(d) {
		return i, true
	}
	return -1, false
}
