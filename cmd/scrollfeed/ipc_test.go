package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startTestIPC runs the IPC server on a temp socket. The returned channel carries
// every action the server queued.
func startTestIPC(t *testing.T) (string, chan Action) {
	t.Helper()
	// Unix socket paths are length-limited; keep it short.
	dir, err := os.MkdirTemp("", "sf")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "ipc.sock")

	actions := make(chan Action, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runIPCServer(ctx, sock, actions, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("runIPCServer: %v", err)
			}
		case <-time.After(time.Second):
			t.Errorf("IPC server did not stop")
		}
	})

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(sock)
		return err == nil
	}, "IPC socket not created")
	return sock, actions
}

func TestIPC_ForwardsActions(t *testing.T) {
	sock, actions := startTestIPC(t)

	resp, err := SendIPCAction(sock, DialTurn{Detents: -2}, time.Second)
	if err != nil {
		t.Fatalf("SendIPCAction: %v", err)
	}
	if resp.Status != "ok" || resp.Data != nil {
		t.Fatalf("response = %+v", resp)
	}

	select {
	case a := <-actions:
		if a != (DialTurn{Detents: -2}) {
			t.Fatalf("queued %#v, want DialTurn{-2}", a)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for queued action")
	}
}

func TestIPC_SnapshotRoundTrip(t *testing.T) {
	sock, actions := startTestIPC(t)

	// Stand in for the daemon loop.
	go func() {
		for a := range actions {
			if req, ok := a.(RequestSnapshot); ok {
				req.Reply <- Snapshot{SignedTotal: 320, Phase: "idle", SessionID: "s1"}
				return
			}
		}
	}()

	resp, err := SendIPCAction(sock, RequestSnapshot{}, 2*time.Second)
	if err != nil {
		t.Fatalf("SendIPCAction: %v", err)
	}
	if resp.Data == nil {
		t.Fatalf("snapshot response without data: %+v", resp)
	}
	if resp.Data.SignedTotal != 320 || resp.Data.SessionID != "s1" {
		t.Fatalf("snapshot = %+v", resp.Data)
	}
}

func TestIPC_NoDaemon(t *testing.T) {
	if _, err := SendIPCAction(filepath.Join(t.TempDir(), "missing.sock"), ResetDistance{}, 200*time.Millisecond); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestRequestSnapshot_TimesOutWithoutReply(t *testing.T) {
	actions := make(chan Action, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := requestSnapshot(ctx, actions); err == nil {
		t.Fatalf("expected timeout error")
	}
	if _, ok := (<-actions).(RequestSnapshot); !ok {
		t.Fatalf("request was not queued")
	}
}
