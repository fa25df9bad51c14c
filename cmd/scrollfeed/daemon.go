package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The daemon goroutine is the single owner of the engine, the stream, the frame
// scheduler and the overlay tracker. Everything else reaches them through the
// actions channel.
//
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Actions from every input source and applies them in arrival order
//   - Steps the frame scheduler on a fixed cadence (momentum, wheel idle, re-layout)
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the actions channel is closed
//
// Either way the journal session is closed before returning.
func runDaemon(ctx context.Context, actions <-chan Action, st *DaemonState, logger *slog.Logger) {
	if st == nil {
		logger.Error("daemon state is nil")
		return
	}
	defer st.close()

	ticker := time.NewTicker(st.sched.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case act, ok := <-actions:
			if !ok {
				logger.Info("daemon stopping (actions channel closed)")
				return
			}
			st.apply(act)

		case now := <-ticker.C:
			st.tick(now)
		}
	}
}
