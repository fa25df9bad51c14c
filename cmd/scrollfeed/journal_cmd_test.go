package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scrollfeed/journal"
)

func TestPrintJournal(t *testing.T) {
	store, err := journal.NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id := journal.NewSessionID()
	if err := store.BeginSession(id, start); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := store.RecordMilestone(id, 50, start.Add(time.Minute)); err != nil {
		t.Fatalf("RecordMilestone: %v", err)
	}
	if err := store.EndSession(id, start.Add(90*time.Second), journal.Summary{
		SignedMeters:   -12.5,
		AbsoluteMeters: 1234.5,
		Steps:          99,
	}); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	var buf bytes.Buffer
	if err := printJournal(&buf, store, 10, true); err != nil {
		t.Fatalf("printJournal: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"1 sessions, 1,234.50 m scrolled",
		id,
		"1m30s",
		"1,234.50 m",
		"-12.50 m net",
		"    50 m at ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
