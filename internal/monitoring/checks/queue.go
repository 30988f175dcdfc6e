package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/shortlink/internal/monitoring"
)

const defaultQueueTimeout = 2 * time.Second

// QueueDepther reports the number of click events waiting for aggregation.
type QueueDepther interface {
	Len(ctx context.Context) (int64, error)
}

// Queue returns a readiness probe for the click queue. A depth at or above
// maxDepth reports StatusDegraded: events are still accepted but the consumer
// is falling behind.
func Queue(q QueueDepther, maxDepth int64, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("click_queue", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if q == nil {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusUp,
				Details:  "queue disabled",
				Duration: time.Since(start),
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultQueueTimeout))
		defer cancel()

		depth, err := q.Len(probeCtx)
		if err != nil {
			return monitoring.ResultFromError("click_queue", err, time.Since(start))
		}

		if maxDepth > 0 && depth >= maxDepth {
			return monitoring.ProbeResult{
				Status:   monitoring.StatusDegraded,
				Details:  fmt.Sprintf("queue depth %d at or above threshold %d", depth, maxDepth),
				Duration: time.Since(start),
			}
		}

		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  fmt.Sprintf("queue depth %d", depth),
			Duration: time.Since(start),
		}
	})
}
