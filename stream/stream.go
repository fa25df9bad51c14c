// Package stream renders a logically infinite, shuffled content sequence with a
// bounded set of live elements across two independently paced layers.
//
// The background layer is a looping backdrop with one viewport height per index,
// moving at a parallax fraction of the distance. The foreground layer has variable
// pitch: measured content height plus a cached randomized gap.
package stream

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"scrollfeed/distance"
	"scrollfeed/frame"
)

// LayerID names one of the two layers.
type LayerID int

const (
	Background LayerID = iota
	Foreground
	layerCount
)

func (l LayerID) String() string {
	switch l {
	case Background:
		return "background"
	case Foreground:
		return "foreground"
	default:
		return fmt.Sprintf("LayerID(%d)", int(l))
	}
}

// Element is a live visual element owned by the stream.
type Element interface {
	// Place moves the element to screen offset y (px from the viewport top).
	Place(y float64)
	// Destroy releases the element. The stream never touches it afterwards.
	Destroy()
}

// Renderer creates elements for items entering the window. An error leaves the
// slot empty until the index leaves the window; the stream keeps going.
type Renderer[T any] interface {
	Create(layer LayerID, index int, item T) (Element, error)
}

// Range is an inclusive range of virtual indices. Start > End means empty.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var emptyRange = Range{Start: 0, End: -1}

// Empty reports whether r contains no index.
func (r Range) Empty() bool { return r.End < r.Start }

// Contains reports whether i is in r.
func (r Range) Contains(i int) bool { return i >= r.Start && i <= r.End }

// Len returns the number of indices in r.
func (r Range) Len() int {
	if r.Empty() {
		return 0
	}
	return r.End - r.Start + 1
}

const (
	DefaultViewportHeight  = 800.0
	DefaultBuffer          = 2
	DefaultParallax        = 0.5
	DefaultItemHeight      = 480.0
	DefaultHeightTolerance = 2.0
)

// Config controls the stream geometry.
type Config struct {
	ViewportHeight  float64
	Buffer          int     // extra indices kept live on each side of the visible range
	Parallax        float64 // background speed as a fraction of the distance
	DefaultHeight   float64 // foreground height assumed until an item is measured
	HeightTolerance float64 // measured changes at or below this do not trigger re-layout
	Gaps            GapConfig
}

// DefaultConfig returns a Config with every field populated.
func DefaultConfig() Config {
	return Config{
		ViewportHeight:  DefaultViewportHeight,
		Buffer:          DefaultBuffer,
		Parallax:        DefaultParallax,
		DefaultHeight:   DefaultItemHeight,
		HeightTolerance: DefaultHeightTolerance,
		Gaps:            DefaultGapConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = d.ViewportHeight
	}
	if c.Buffer < 0 {
		c.Buffer = 0
	}
	if c.Parallax < 0 || math.IsNaN(c.Parallax) {
		c.Parallax = d.Parallax
	}
	if c.DefaultHeight <= 0 {
		c.DefaultHeight = d.DefaultHeight
	}
	if c.HeightTolerance < 0 {
		c.HeightTolerance = 0
	}
	c.Gaps = c.Gaps.withDefaults()
	return c
}

type layer[T any] struct {
	id   LayerID
	deck *Deck[T]
	live map[int]Element // nil value = slot whose element failed to load
	rng  Range
}

// Stream owns both layers and their element maps.
//
// This is intended to be used only by the owning goroutine (single-owner).
type Stream[T any] struct {
	cfg      Config
	sched    *frame.Scheduler
	renderer Renderer[T]
	logger   *slog.Logger

	layers [layerCount]*layer[T]
	gaps   *GapTable
	fg     *layout

	offset   float64
	relayout frame.Handle

	engine *distance.Engine
	subs   []distance.Subscription
}

// New creates a stream over foreground and background content. Each list is copied and
// shuffled once with rng (nil seeds a fresh generator). Empty lists are allowed and render
// nothing.
func New[T any](cfg Config, foreground, background []T, r Renderer[T], sched *frame.Scheduler, rng *rand.Rand, logger *slog.Logger) *Stream[T] {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	cfg = cfg.withDefaults()

	s := &Stream[T]{
		cfg:      cfg,
		sched:    sched,
		renderer: r,
		logger:   logger,
	}
	s.layers[Foreground] = &layer[T]{id: Foreground, deck: NewDeck(foreground, rng), live: make(map[int]Element), rng: emptyRange}
	s.layers[Background] = &layer[T]{id: Background, deck: NewDeck(background, rng), live: make(map[int]Element), rng: emptyRange}

	fgDeck := s.layers[Foreground].deck
	s.gaps = NewGapTable(cfg.Gaps, fgDeck.Len(), rng)
	s.fg = newLayout(fgDeck.Len(), fgDeck.RealIndex, s.gaps, cfg.DefaultHeight)
	return s
}

// Attach subscribes the stream to an engine's motion. The scroll offset follows the
// engine's signed total.
func (s *Stream[T]) Attach(e *distance.Engine) {
	s.Detach()
	s.engine = e
	s.subs = append(s.subs,
		e.On(distance.EventRotate, s.HandleMotion),
		e.On(distance.EventUpdate, s.HandleMotion),
	)
	s.ScrollTo(e.State().SignedTotal)
}

// Detach removes the engine subscriptions, if any.
func (s *Stream[T]) Detach() {
	if s.engine == nil {
		return
	}
	for _, sub := range s.subs {
		s.engine.Off(sub)
	}
	s.subs = nil
	s.engine = nil
}

// HandleMotion is the engine event handler.
func (s *Stream[T]) HandleMotion(ev distance.Event) {
	s.ScrollTo(ev.Distance.Total)
}

// ScrollTo moves both layers to the given distance and recycles elements.
func (s *Stream[T]) ScrollTo(offset float64) {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return
	}
	s.offset = offset
	s.Sync()
}

// Offset returns the current foreground scroll offset.
func (s *Stream[T]) Offset() float64 { return s.offset }

// SetViewport changes the viewport height and recycles.
func (s *Stream[T]) SetViewport(height float64) {
	if height <= 0 || math.IsNaN(height) || math.IsInf(height, 0) {
		return
	}
	s.cfg.ViewportHeight = height
	s.Sync()
}

// Config returns the effective configuration.
func (s *Stream[T]) Config() Config { return s.cfg }

// Sync recomputes both windows, destroys elements that left them, creates elements
// that entered them, and repositions every live element.
func (s *Stream[T]) Sync() {
	for _, l := range s.layers {
		s.recycle(l, s.computeRange(l.id))
	}
}

// Measure records the rendered content height of foreground virtual index i. Changes
// beyond the tolerance schedule one re-layout on the next frame, however many arrive.
func (s *Stream[T]) Measure(i int, height float64) {
	if height < 0 || math.IsNaN(height) || math.IsInf(height, 0) {
		return
	}
	j, ok := s.layers[Foreground].deck.RealIndex(i)
	if !ok {
		return
	}
	if !s.fg.setHeight(j, height, s.cfg.HeightTolerance) {
		return
	}
	if s.sched == nil {
		s.Sync()
		return
	}
	if s.relayout != 0 {
		return
	}
	s.relayout = s.sched.Request(func(time.Time, time.Duration) {
		s.relayout = 0
		s.Sync()
	})
}

// RelayoutPending reports whether a coalesced re-layout is scheduled.
func (s *Stream[T]) RelayoutPending() bool { return s.relayout != 0 }

// Position returns the top edge of foreground virtual index i.
func (s *Stream[T]) Position(i int) float64 {
	if s.layers[Foreground].deck.Len() == 0 {
		return 0
	}
	return s.fg.pos(i)
}

// ItemHeight returns the content height of foreground virtual index i.
func (s *Stream[T]) ItemHeight(i int) float64 { return s.fg.height(i) }

// Gap returns the cached gap after foreground virtual index i.
func (s *Stream[T]) Gap(i int) float64 { return s.gaps.Gap(i) }

// FindIndexAtPosition returns the foreground virtual index covering distance y.
func (s *Stream[T]) FindIndexAtPosition(y float64) int { return s.fg.indexAt(y) }

// VisibleRange returns the live range of a layer, buffer included.
func (s *Stream[T]) VisibleRange(id LayerID) Range {
	if id < 0 || id >= layerCount {
		return emptyRange
	}
	return s.layers[id].rng
}

// LiveCount returns the number of live slots in a layer.
func (s *Stream[T]) LiveCount(id LayerID) int {
	if id < 0 || id >= layerCount {
		return 0
	}
	return len(s.layers[id].live)
}

// Item returns the item behind virtual index i of a layer.
func (s *Stream[T]) Item(id LayerID, i int) (T, bool) {
	if id < 0 || id >= layerCount {
		var zero T
		return zero, false
	}
	return s.layers[id].deck.At(i)
}

// ScreenY returns where virtual index i of a layer sits relative to the viewport top.
func (s *Stream[T]) ScreenY(id LayerID, i int) float64 {
	if id == Background {
		return float64(i)*s.cfg.ViewportHeight - s.offset*s.cfg.Parallax
	}
	return s.Position(i) - s.offset
}

// Close destroys every live element and detaches from the engine.
func (s *Stream[T]) Close() {
	s.Detach()
	if s.relayout != 0 && s.sched != nil {
		s.sched.Cancel(s.relayout)
		s.relayout = 0
	}
	for _, l := range s.layers {
		s.recycle(l, emptyRange)
	}
}

func (s *Stream[T]) computeRange(id LayerID) Range {
	l := s.layers[id]
	if l.deck.Len() == 0 {
		return emptyRange
	}
	vh := s.cfg.ViewportHeight
	var start, end int
	switch id {
	case Background:
		top := s.offset * s.cfg.Parallax
		start = int(math.Floor(top / vh))
		end = int(math.Ceil((top+vh)/vh)) - 1
	default:
		start = s.fg.indexAt(s.offset)
		end = s.fg.indexAt(s.offset + vh)
		if end > start && s.fg.pos(end) >= s.offset+vh {
			end--
		}
	}
	return Range{Start: start - s.cfg.Buffer, End: end + s.cfg.Buffer}
}

func (s *Stream[T]) recycle(l *layer[T], next Range) {
	for i, el := range l.live {
		if next.Contains(i) {
			continue
		}
		if el != nil {
			el.Destroy()
		}
		delete(l.live, i)
	}
	l.rng = next

	if !next.Empty() {
		for i := next.Start; i <= next.End; i++ {
			if _, ok := l.live[i]; ok {
				continue
			}
			l.live[i] = s.create(l, i)
		}
	}

	for i, el := range l.live {
		if el != nil {
			el.Place(s.ScreenY(l.id, i))
		}
	}
}

func (s *Stream[T]) create(l *layer[T], i int) Element {
	item, ok := l.deck.At(i)
	if !ok || s.renderer == nil {
		return nil
	}
	el, err := s.renderer.Create(l.id, i, item)
	if err != nil {
		s.logger.Warn("element load failed, leaving slot empty", "layer", l.id.String(), "index", i, "error", err)
		return nil
	}
	return el
}
