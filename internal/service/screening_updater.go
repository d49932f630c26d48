package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/clock"
	"github.com/iliyamo/cinema-seat-booking/internal/logging"
)

// DefaultSweepInterval is how often Run sweeps when no interval is given.
const DefaultSweepInterval = time.Minute

// ScreeningUpdater moves screenings from upcoming to expired once their
// start is more than the grace period in the past.
type ScreeningUpdater struct {
	screenings ScreeningStore
	clock      clock.Clock
	grace      time.Duration
	interval   time.Duration
	log        *logrus.Logger
}

// NewScreeningUpdater returns an updater.  Non-positive interval falls back
// to DefaultSweepInterval, negative grace to zero.
func NewScreeningUpdater(screenings ScreeningStore, clk clock.Clock, grace, interval time.Duration, log *logrus.Logger) *ScreeningUpdater {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if grace < 0 {
		grace = 0
	}
	if log == nil {
		log = logging.Discard()
	}
	return &ScreeningUpdater{screenings: screenings, clock: clk, grace: grace, interval: interval, log: log}
}

// Sweep expires every upcoming screening that satisfies IsExpired and
// returns how many rows changed.  Running it again right away is a no-op.
func (u *ScreeningUpdater) Sweep(ctx context.Context) (int, error) {
	now := u.clock.Now()
	candidates, err := u.screenings.ListUpcoming(ctx, now.Add(-u.grace))
	if err != nil {
		return 0, err
	}
	var ids []uint64
	for i := range candidates {
		if IsExpired(&candidates[i], now, u.grace) {
			ids = append(ids, candidates[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := u.screenings.MarkExpired(ctx, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.log.WithFields(logrus.Fields{"expired": n, "ids": ids}).Info("screenings expired")
	}
	return int(n), nil
}

// Run sweeps immediately and then on every tick until ctx is done.  A
// failed sweep is logged and retried on the next tick.
func (u *ScreeningUpdater) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	u.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			u.log.Info("screening updater stopped")
			return
		case <-ticker.C:
			u.tick(ctx)
		}
	}
}

func (u *ScreeningUpdater) tick(ctx context.Context) {
	if _, err := u.Sweep(ctx); err != nil && ctx.Err() == nil {
		u.log.WithError(err).Error("screening sweep failed")
	}
}
