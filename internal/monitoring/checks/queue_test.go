package checks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/internal/monitoring"
	"github.com/charlesng35/shortlink/internal/queue"
)

func TestQueueProbeReportsDepth(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312800}))
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "b", TS: 1705312801}))

	check := Queue(q, 10, time.Second)
	result := check.Run(ctx)
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "queue depth 2")
}

func TestQueueProbeDegradesAtThreshold(t *testing.T) {
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312800}))
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "b", TS: 1705312801}))

	check := Queue(q, 2, time.Second)
	result := check.Run(ctx)
	require.Equal(t, monitoring.StatusDegraded, result.Status)
}

func TestQueueProbeNilQueueIsUp(t *testing.T) {
	check := Queue(nil, 10, time.Second)
	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Equal(t, "queue disabled", result.Details)
}
