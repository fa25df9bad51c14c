// Package manifest loads the content list and flashcards the feed is built from.
//
// Both documents are static JSON fetched once at startup and treated as read-only
// ordered sequences afterwards.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zeebo/xxh3"
)

// ItemType is the media kind of a content item.
type ItemType string

const (
	TypeImage ItemType = "image"
	TypeVideo ItemType = "video"
)

// Item is one entry of the content manifest.
type Item struct {
	Src            string   `json:"src"`
	Type           ItemType `json:"type"`
	IsGenZ         bool     `json:"isGenZ"`
	FlashcardIndex *int     `json:"flashcardIndex,omitempty"`

	// ID is derived from Src, not read from the document.
	ID uint64 `json:"-"`
}

// Key returns ID as a fixed-width hex string, usable in logs and element ids.
func (it Item) Key() string {
	return fmt.Sprintf("%016x", it.ID)
}

// Flashcard is a question/answer card some items point at.
type Flashcard struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	GenZ    string `json:"genZ"`
}

// Manifest holds the parsed items and flashcards.
type Manifest struct {
	Items      []Item
	Flashcards []Flashcard
}

// ItemID hashes a source URL into the id used for dedupe.
func ItemID(src string) uint64 {
	return xxh3.Hash([]byte(src))
}

// ParseItems decodes an item list. Items with an unknown type or an empty src are skipped;
// repeated src values keep the first occurrence.
func ParseItems(data []byte, logger *slog.Logger) ([]Item, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var raw []Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	seen := make(map[uint64]struct{}, len(raw))
	out := make([]Item, 0, len(raw))
	for i, it := range raw {
		if it.Src == "" {
			logger.Warn("manifest item without src skipped", "position", i)
			continue
		}
		switch it.Type {
		case TypeImage, TypeVideo:
		default:
			logger.Warn("manifest item with unknown type skipped", "position", i, "src", it.Src, "type", string(it.Type))
			continue
		}
		it.ID = ItemID(it.Src)
		if _, dup := seen[it.ID]; dup {
			logger.Debug("duplicate manifest item dropped", "src", it.Src)
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out, nil
}

// ParseFlashcards decodes a flashcard list.
func ParseFlashcards(data []byte) ([]Flashcard, error) {
	var cards []Flashcard
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse flashcards: %w", err)
	}
	return cards, nil
}

// Flashcard returns the card attached to it, if any. Out-of-range indices report false.
func (m *Manifest) Flashcard(it Item) (Flashcard, bool) {
	if it.FlashcardIndex == nil {
		return Flashcard{}, false
	}
	i := *it.FlashcardIndex
	if i < 0 || i >= len(m.Flashcards) {
		return Flashcard{}, false
	}
	return m.Flashcards[i], true
}

// Images returns the image items, in manifest order.
func (m *Manifest) Images() []Item {
	var out []Item
	for _, it := range m.Items {
		if it.Type == TypeImage {
			out = append(out, it)
		}
	}
	return out
}

// GenZCount returns how many items are flagged isGenZ.
func (m *Manifest) GenZCount() int {
	n := 0
	for _, it := range m.Items {
		if it.IsGenZ {
			n++
		}
	}
	return n
}

// Validate reports flashcard references that point past the flashcard list.
func (m *Manifest) Validate() []error {
	var errs []error
	for _, it := range m.Items {
		if it.FlashcardIndex == nil {
			continue
		}
		if i := *it.FlashcardIndex; i < 0 || i >= len(m.Flashcards) {
			errs = append(errs, fmt.Errorf("item %s: flashcardIndex %d out of range (have %d)",
				it.Src, i, len(m.Flashcards)))
		}
	}
	return errs
}
