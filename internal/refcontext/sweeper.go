package refcontext

import (
	"context"
	"log/slog"
	"time"

	"github.com/tajerhq/tajerbot/internal/store"
)

// DefaultSweepInterval is how often expired reference contexts are purged
// from the store when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweeper periodically deletes expired reference contexts. Expired contexts
// are already invisible to lookups; the sweeper only keeps the table from
// growing without bound.
type Sweeper struct {
	store    store.Store
	interval time.Duration
}

// NewSweeper returns a Sweeper purging through st every interval. A
// non-positive interval falls back to DefaultSweepInterval.
func NewSweeper(st store.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: st, interval: interval}
}

// Run blocks, purging on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("reference context sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("reference context sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	n, err := s.store.DeleteExpiredReferenceContexts(time.Now().UTC())
	if err != nil {
		slog.Error("failed to delete expired reference contexts", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("deleted expired reference contexts", "count", n)
	}
}
