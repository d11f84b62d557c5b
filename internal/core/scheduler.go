package core

// scheduler.go runs background maintenance for the Service.
//
// The session sweeper removes sessions that have been idle longer than the
// configured TTL so uploaded tables do not accumulate in memory. It is
// long-running and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// StartSessionSweeper sweeps expired sessions every interval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.Warn("session sweeper disabled", "interval", interval)
		return
	}
	slog.Info("session sweeper started", "interval", interval, "ttl", s.cfg.Session.TTL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

// runSweep performs one sweep cycle.
func (s *Service) runSweep() {
	start := time.Now()
	removed := s.sessions.Sweep()
	if removed == 0 {
		return
	}
	slog.Info("expired sessions removed",
		"sessions_removed", removed,
		"sessions_remaining", s.sessions.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
