// Package ui is the terminal rendition of the feed: a Surface the stream renders
// into, and a tview primitive that draws the Surface.
package ui

import (
	"errors"
	"path"
	"sort"
	"sync"

	"scrollfeed/distance"
	"scrollfeed/manifest"
	"scrollfeed/stream"
)

// DefaultRowPixels is how many feed pixels one terminal row stands for.
const DefaultRowPixels = 40.0

// Content heights in rows, per media kind. A flashcard adds its own rows.
const (
	imageRows     = 6
	videoRows     = 9
	flashcardRows = 3
)

var errNoSource = errors.New("item has no source")

// Card is a drawable copy of a live element.
type Card struct {
	Layer     stream.LayerID
	Index     int
	Y         float64 // px from the viewport top
	Height    float64 // content height, px
	Title     string
	Kind      manifest.ItemType
	GenZ      bool
	Flashcard string
}

// Measurement is a content height reported after an element loaded.
type Measurement struct {
	Index  int
	Height float64
}

// Status is the line under the feed.
type Status struct {
	Step         float64
	Meters       distance.Meters
	Phase        string
	Velocity     float64
	Live         int
	Notification string
	Milestones   int
}

// Surface implements stream.Renderer for the terminal. The stream calls it from the
// daemon goroutine; the view reads snapshots from the draw goroutine.
type Surface struct {
	rowPixels float64
	flashcard func(manifest.Item) (manifest.Flashcard, bool)

	// Probe, when set, is consulted before an element is created; an error leaves the slot empty.
	Probe func(manifest.Item) error

	mu       sync.Mutex
	cards    map[*element]struct{}
	measured []Measurement
	status   Status
}

// NewSurface creates an empty surface. flashcard may be nil.
func NewSurface(rowPixels float64, flashcard func(manifest.Item) (manifest.Flashcard, bool)) *Surface {
	if rowPixels <= 0 {
		rowPixels = DefaultRowPixels
	}
	return &Surface{
		rowPixels: rowPixels,
		flashcard: flashcard,
		cards:     make(map[*element]struct{}),
	}
}

// RowPixels returns the pixel height of one terminal row.
func (s *Surface) RowPixels() float64 { return s.rowPixels }

type element struct {
	s    *Surface
	card Card
}

func (e *element) Place(y float64) {
	e.s.mu.Lock()
	e.card.Y = y
	e.s.mu.Unlock()
}

func (e *element) Destroy() {
	e.s.mu.Lock()
	delete(e.s.cards, e)
	e.s.mu.Unlock()
}

// Create builds a card for item. Foreground cards report their height through
// DrainMeasurements, the way loaded media reports its size.
func (s *Surface) Create(layer stream.LayerID, index int, item manifest.Item) (stream.Element, error) {
	if item.Src == "" {
		return nil, errNoSource
	}
	if s.Probe != nil {
		if err := s.Probe(item); err != nil {
			return nil, err
		}
	}

	rows := imageRows
	if item.Type == manifest.TypeVideo {
		rows = videoRows
	}
	c := Card{
		Layer: layer,
		Index: index,
		Title: path.Base(item.Src),
		Kind:  item.Type,
		GenZ:  item.IsGenZ,
	}
	if s.flashcard != nil {
		if fc, ok := s.flashcard(item); ok {
			c.Flashcard = fc.Title
			rows += flashcardRows
		}
	}
	c.Height = float64(rows) * s.rowPixels

	el := &element{s: s, card: c}
	s.mu.Lock()
	s.cards[el] = struct{}{}
	if layer == stream.Foreground {
		s.measured = append(s.measured, Measurement{Index: index, Height: c.Height})
	}
	s.mu.Unlock()
	return el, nil
}

// DrainMeasurements returns and clears the heights reported since the last call.
func (s *Surface) DrainMeasurements() []Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.measured
	s.measured = nil
	return out
}

// SetStatus replaces the status line.
func (s *Surface) SetStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Snapshot returns copies of every live card, background first, each layer by index,
// together with the status line.
func (s *Surface) Snapshot() ([]Card, Status) {
	s.mu.Lock()
	out := make([]Card, 0, len(s.cards))
	for el := range s.cards {
		out = append(out, el.card)
	}
	st := s.status
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].Index < out[j].Index
	})
	return out, st
}

// Len returns the number of live cards.
func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}
