package ratecache

import (
	"context"
	"time"
)

// RunSweeper evicts expired entries every interval until ctx is done.
// A non-positive interval disables sweeping.
func (rateCache *RateCache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	sweepTicker := time.NewTicker(interval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-sweepTicker.C:
			rateCache.SweepExpired()
		case <-ctx.Done():
			return
		}
	}
}
