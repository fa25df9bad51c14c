package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SessionLifecycle(t *testing.T) {
	s := tempStore(t)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	id := NewSessionID()
	if err := s.BeginSession(id, start); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := s.RecordMilestone(id, 10, start.Add(time.Minute)); err != nil {
		t.Fatalf("RecordMilestone: %v", err)
	}
	if err := s.RecordMilestone(id, 20, start.Add(2*time.Minute)); err != nil {
		t.Fatalf("RecordMilestone: %v", err)
	}

	sessions, err := s.Sessions(0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || !sessions[0].EndedAt.IsZero() {
		t.Fatalf("expected one open session, got %+v", sessions)
	}

	sum := Summary{SignedMeters: -3.5, AbsoluteMeters: 24.25, Steps: 12}
	if err := s.EndSession(id, start.Add(5*time.Minute), sum); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sessions, err = s.Sessions(10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	got := sessions[0]
	if got.ID != id || !got.StartedAt.Equal(start) || !got.EndedAt.Equal(start.Add(5*time.Minute)) {
		t.Errorf("unexpected session row %+v", got)
	}
	if got.Summary != sum {
		t.Errorf("summary = %+v, want %+v", got.Summary, sum)
	}

	ms, err := s.Milestones(id)
	if err != nil {
		t.Fatalf("Milestones: %v", err)
	}
	if len(ms) != 2 || ms[0].Meters != 10 || ms[1].Meters != 20 {
		t.Errorf("unexpected milestones %+v", ms)
	}

	n, total, err := s.Totals()
	if err != nil || n != 1 || total != 24.25 {
		t.Errorf("Totals() = %d, %f, %v", n, total, err)
	}
}

func TestStore_Errors(t *testing.T) {
	s := tempStore(t)

	if err := s.BeginSession("not-a-uuid", time.Now()); err == nil {
		t.Errorf("expected error for a malformed id")
	}
	if err := s.EndSession(NewSessionID(), time.Now(), Summary{}); err == nil {
		t.Errorf("expected error closing an unknown session")
	}
	if err := s.RecordMilestone(NewSessionID(), 1, time.Now()); err == nil {
		t.Errorf("expected foreign key error for an unknown session")
	}
}

func TestRecorder_WritesAndDrainsOnCancel(t *testing.T) {
	s := tempStore(t)
	r := NewRecorder(s, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id := r.BeginSession(now)
	r.Milestone(id, 10, now.Add(time.Second))
	r.EndSession(id, now.Add(2*time.Second), Summary{AbsoluteMeters: 11})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	sessions, err := s.Sessions(0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != id || sessions[0].AbsoluteMeters != 11 {
		t.Errorf("queued writes were not drained: %+v", sessions)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	s := tempStore(t)
	r := NewRecorder(s, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r.BeginSession(time.Now())
	r.BeginSession(time.Now()) // queue full, dropped

	if len(r.ops) != 1 {
		t.Errorf("expected 1 queued op, got %d", len(r.ops))
	}
}
