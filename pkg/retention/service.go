// Package retention removes high resolution points once they fall out of
// their retention window.
package retention

import (
	"context"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"go.uber.org/zap"
)

type Pruner interface {
	Prune(ctx context.Context, tier router.SinkID, cutoff time.Time) (int64, error)
}

type Cleaner struct {
	store     Pruner
	tier      router.SinkID
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger

	now func() time.Time
}

func NewCleaner(store Pruner, tier router.SinkID, retention, interval time.Duration, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		store:     store,
		tier:      tier,
		retention: retention,
		interval:  interval,
		logger:    logger.With(zap.String("tier", string(tier))),
		now:       time.Now,
	}
}

// Cleanup removes everything older than the retention window.
func (c *Cleaner) Cleanup(ctx context.Context) error {
	cutoff := c.now().UTC().Add(-c.retention).Truncate(time.Second)
	deleted, err := c.store.Prune(ctx, c.tier, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		c.logger.Info("cleaned up old points",
			zap.Int64("deleted", deleted),
			zap.String("cutoff", cutoff.Format(time.RFC3339)))
	}
	return nil
}

// Run cleans up immediately and then once per interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.Cleanup(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("error cleaning up old points", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
