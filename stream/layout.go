package stream

import "math"

// minPitch keeps a degenerate item (zero height, zero gap) from stalling a search.
const minPitch = 1.0

// layout answers position queries for the variable-pitch foreground layer.
//
// pos(i) is the top edge of virtual index i: the sum of pitches of 0..i-1 for i > 0,
// minus the sum of pitches of i..-1 for i < 0. Computed tops are memoized over a
// contiguous range [lo, hi] around 0 and dropped whenever a measured height changes.
type layout struct {
	deckLen       int
	realIndex     func(int) (int, bool)
	gaps          *GapTable
	defaultHeight float64
	heights       map[int]float64 // real deck index -> measured content height

	tops   *Cache[int, float64]
	lo, hi int

	anchor      int
	anchorValid bool
	version     uint64
}

func newLayout(deckLen int, realIndex func(int) (int, bool), gaps *GapTable, defaultHeight float64) *layout {
	l := &layout{
		deckLen:       deckLen,
		realIndex:     realIndex,
		gaps:          gaps,
		defaultHeight: defaultHeight,
		heights:       make(map[int]float64),
		tops:          NewCache[int, float64](),
	}
	l.invalidate()
	return l
}

func (l *layout) invalidate() {
	l.tops.Clear()
	l.tops.Set(0, 0)
	l.lo, l.hi = 0, 0
	l.anchorValid = false
	l.version++
}

// height returns the content height of virtual index i.
func (l *layout) height(i int) float64 {
	j, ok := l.realIndex(i)
	if !ok {
		return 0
	}
	if h, ok := l.heights[j]; ok {
		return h
	}
	return l.defaultHeight
}

// pitch is the vertical space owned by virtual index i: content plus the gap after it.
func (l *layout) pitch(i int) float64 {
	return math.Max(l.height(i)+l.gaps.Gap(i), minPitch)
}

// setHeight records a measurement for real index j. It reports whether the layout moved.
func (l *layout) setHeight(j int, h, tolerance float64) bool {
	old, measured := l.heights[j]
	if !measured {
		old = l.defaultHeight
	}
	if measured && math.Abs(h-old) <= tolerance {
		return false
	}
	l.heights[j] = h
	if math.Abs(h-old) <= tolerance {
		// First measurement close enough to the estimate; keep the layout.
		return false
	}
	l.invalidate()
	return true
}

func (l *layout) pos(i int) float64 {
	if i >= l.lo && i <= l.hi {
		v, _ := l.tops.Get(i)
		return v
	}
	for l.hi < i {
		prev, _ := l.tops.Get(l.hi)
		l.tops.Set(l.hi+1, prev+l.pitch(l.hi))
		l.hi++
	}
	for l.lo > i {
		next, _ := l.tops.Get(l.lo)
		l.tops.Set(l.lo-1, next-l.pitch(l.lo-1))
		l.lo--
	}
	v, _ := l.tops.Get(i)
	return v
}

// indexAt returns the virtual index whose pitch contains y, searching outward from
// the last resolved index while the layout is unchanged, else from 0.
func (l *layout) indexAt(y float64) int {
	if l.deckLen == 0 || math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	i := 0
	if l.anchorValid {
		i = l.anchor
	}
	for l.pos(i) > y {
		i--
	}
	for l.pos(i+1) <= y {
		i++
	}
	l.anchor = i
	l.anchorValid = true
	return i
}
