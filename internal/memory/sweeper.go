package memory

import (
	"context"
	"log/slog"
	"time"
)

// sweepInterval is how often the idle sweeper scans for stale sessions.
const sweepInterval = time.Minute

// StartSweeper runs a background goroutine that periodically drops sessions
// whose last activity is older than ttl, bounding memory in a long-running
// process. A non-positive ttl disables the sweeper.
//
// The goroutine exits when ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("memory: idle sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := s.SweepIdle(ttl); n > 0 {
					slog.Info("memory: swept idle sessions", "count", n)
				}
			case <-ctx.Done():
				slog.Info("memory: idle sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// SweepIdle removes every session idle for longer than ttl and returns how
// many were dropped. Exported so tests and administrative tooling can
// trigger a sweep directly.
func (s *Store) SweepIdle(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			n++
			slog.Debug("memory: session expired", "session_id", id)
		}
	}
	return n
}
