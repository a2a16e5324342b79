package db

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the share-lifecycle surface the cleaner drives. It is
// implemented by the share service, which also deletes the stored blobs.
type Sweeper interface {
	// ExpireOverdue transitions shares past their expiry to expired and
	// removes their blobs. Returns the number of shares expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
	// PurgeOld deletes consumed/expired records older than the cutoff.
	PurgeOld(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartShareCleaner runs the expiry and retention sweeps on the given
// interval until ctx is cancelled.
func StartShareCleaner(
	ctx context.Context,
	sweeper Sweeper,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				expired, err := sweeper.ExpireOverdue(ctx, now)
				if err != nil {
					log.Error("failed to expire overdue shares", zap.Error(err))
				} else if expired > 0 {
					log.Info("expired overdue shares", zap.Int("count", expired))
				}

				purged, err := sweeper.PurgeOld(ctx, now.Add(-retention))
				if err != nil {
					log.Error("failed to purge old share records", zap.Error(err))
				} else if purged > 0 {
					log.Info("purged old share records", zap.Int64("removed", purged))
				}
			}
		}
	}()
}
