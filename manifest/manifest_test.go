package manifest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const itemsJSON = `[
  {"src": "a.jpg", "type": "image"},
  {"src": "b.mp4", "type": "video", "isGenZ": true, "flashcardIndex": 1},
  {"src": "c.gif", "type": "sticker"},
  {"src": "", "type": "image"},
  {"src": "a.jpg", "type": "image", "isGenZ": true},
  {"src": "d.jpg", "type": "image", "flashcardIndex": 7}
]`

const flashcardsJSON = `[
  {"title": "Q0", "content": "A0", "genZ": "fr0"},
  {"title": "Q1", "content": "A1", "genZ": "fr1"}
]`

func TestParseItems(t *testing.T) {
	items, err := ParseItems([]byte(itemsJSON), quietLogger())
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items after filtering, got %d: %+v", len(items), items)
	}
	if items[0].Src != "a.jpg" || items[0].IsGenZ {
		t.Errorf("duplicate src should keep the first occurrence, got %+v", items[0])
	}
	if items[1].Type != TypeVideo || items[1].FlashcardIndex == nil || *items[1].FlashcardIndex != 1 {
		t.Errorf("unexpected second item %+v", items[1])
	}
	if items[0].ID != ItemID("a.jpg") || items[0].ID == items[1].ID {
		t.Errorf("ids not derived from src")
	}
	if len(items[0].Key()) != 16 {
		t.Errorf("Key should be 16 hex digits, got %q", items[0].Key())
	}
}

func TestParseItems_Malformed(t *testing.T) {
	if _, err := ParseItems([]byte(`{"src": "x"}`), quietLogger()); err == nil {
		t.Errorf("expected error for a non-array document")
	}
	if _, err := ParseFlashcards([]byte(`nope`)); err == nil {
		t.Errorf("expected error for malformed flashcards")
	}
}

func TestManifest_FlashcardLookup(t *testing.T) {
	items, _ := ParseItems([]byte(itemsJSON), quietLogger())
	cards, _ := ParseFlashcards([]byte(flashcardsJSON))
	m := &Manifest{Items: items, Flashcards: cards}

	if _, ok := m.Flashcard(items[0]); ok {
		t.Errorf("item without index returned a flashcard")
	}
	fc, ok := m.Flashcard(items[1])
	if !ok || fc.Title != "Q1" || fc.GenZ != "fr1" {
		t.Errorf("Flashcard(items[1]) = %+v, %v", fc, ok)
	}
	if _, ok := m.Flashcard(items[2]); ok {
		t.Errorf("out-of-range index should report not found")
	}
	if errs := m.Validate(); len(errs) != 1 {
		t.Errorf("expected 1 validation problem, got %v", errs)
	}
	if len(m.Images()) != 2 || m.GenZCount() != 1 {
		t.Errorf("Images=%d GenZCount=%d", len(m.Images()), m.GenZCount())
	}
}

func TestLoader_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "items.json")
	cardsPath := filepath.Join(dir, "flashcards.json")
	if err := os.WriteFile(itemsPath, []byte(itemsJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cardsPath, []byte(flashcardsJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	l := &Loader{Logger: quietLogger()}
	m, err := l.Load(context.Background(), itemsPath, cardsPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Items) != 3 || len(m.Flashcards) != 2 {
		t.Errorf("unexpected manifest: %d items, %d flashcards", len(m.Items), len(m.Flashcards))
	}

	if _, err := l.Load(context.Background(), filepath.Join(dir, "missing.json"), ""); err == nil {
		t.Errorf("expected error for a missing file")
	}
}

func TestLoader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items.json":
			w.Write([]byte(itemsJSON))
		case "/flashcards.json":
			w.Write([]byte(flashcardsJSON))
		default:
			http.Error(w, "not here", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := &Loader{Client: srv.Client(), Logger: quietLogger()}
	m, err := l.Load(context.Background(), srv.URL+"/items.json", srv.URL+"/flashcards.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Items) != 3 || len(m.Flashcards) != 2 {
		t.Errorf("unexpected manifest: %d items, %d flashcards", len(m.Items), len(m.Flashcards))
	}

	if _, err := l.Load(context.Background(), srv.URL+"/gone.json", ""); err == nil {
		t.Errorf("expected error for a 404")
	}
}
