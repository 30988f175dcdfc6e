package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/shortlink/internal/clicks"
)

func TestMemoryQueuePublishReceive(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312800}))
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "b", TS: 1705312801}))

	batch, err := q.Receive(ctx, 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch.Events, 2)
	require.Equal(t, "a", batch.Events[0].Alias)
	require.Equal(t, "b", batch.Events[1].Alias)
}

func TestMemoryQueueReceiveHonorsMax(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: int64(1705312800 + i)}))
	}

	batch, err := q.Receive(ctx, 3, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch.Events, 3)

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, depth)
}

func TestMemoryQueueFullReportsError(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1}))
	require.Error(t, q.Publish(ctx, clicks.Event{Alias: "b", TS: 2}))
}

func TestMemoryQueueRetryRedelivers(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1}))

	batch, err := q.Receive(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch.Events, 1)

	depth, err := q.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, depth)

	require.NoError(t, q.Retry(ctx, batch))

	again, err := q.Receive(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, again.Events, 1)
	require.Equal(t, "a", again.Events[0].Alias)
}

func TestMemoryQueueClosedPublish(t *testing.T) {
	q := NewMemoryQueue(1)
	q.Close()
	require.ErrorIs(t, q.Publish(context.Background(), clicks.Event{Alias: "a", TS: 1}), ErrClosed)
}

func TestMemoryQueueReceiveContextCancel(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx, 1, time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
