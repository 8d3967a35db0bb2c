package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// NotificationPruner deletes read notifications older than a cutoff
type NotificationPruner interface {
	PruneReadNotifications(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartNotificationCleanup prunes read notifications older than retention every
// interval until ctx is cancelled. Failures are logged and retried on the next tick.
func StartNotificationCleanup(ctx context.Context, pruner NotificationPruner, interval, retention time.Duration, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := pruner.PruneReadNotifications(ctx, time.Now().Add(-retention))
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("failed to prune notifications", zap.Error(err))
					}
					continue
				}
				if n > 0 {
					logger.Info("pruned read notifications", zap.Int64("count", n))
				}
			}
		}
	}()
}
