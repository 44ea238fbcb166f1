package monitor

import (
	"context"
	"time"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/types"
)

// Scheduler calls MaybeRefresh on a fixed interval until its context is done.
type Scheduler struct {
	refresher interfaces.Refresher
	interval  time.Duration
}

func NewScheduler(refresher interfaces.Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{refresher: refresher, interval: interval}
}

// Run blocks until ctx is cancelled. The first check happens one interval
// after start. A refresh already running when ctx is cancelled is allowed to
// finish so a half-loaded file is never published.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info(ctx, "Refresh scheduler started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Refresh scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	snap := s.refresher.MaybeRefresh(context.WithoutCancel(ctx))
	switch snap.Status {
	case types.StatusError:
		logger.Warn(ctx, "Scheduled refresh produced an error snapshot", "error", snap.Error)
	case types.StatusSuccess:
		logger.Info(ctx, "Scheduled refresh loaded trades", "rows", len(snap.Records))
	default:
		logger.Debug(ctx, "Scheduled refresh found no changes")
	}
}
