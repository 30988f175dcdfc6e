package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/internal/database/testutil"
	"github.com/charlesng35/shortlink/pkg/metrics"
)

type stubApplier struct {
	mu      sync.Mutex
	batches [][]clicks.Event
	failN   int
}

func (s *stubApplier) Apply(ctx context.Context, events []clicks.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("apply failed")
	}
	s.batches = append(s.batches, events)
	return nil
}

func (s *stubApplier) applied() [][]clicks.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]clicks.Event, len(s.batches))
	copy(out, s.batches)
	return out
}

func TestConsumerAppliesAndAcks(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	applier := &stubApplier{}
	consumer, err := NewConsumer(q, applier, ConsumerConfig{BatchSize: 10, Linger: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, consumer.Run(ctx))
	}()

	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312800}))
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "b", TS: 1705312801}))

	require.Eventually(t, func() bool {
		batches := applier.applied()
		total := 0
		for _, b := range batches {
			total += len(b)
		}
		return total == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestConsumerRetriesFailedBatch(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	applier := &stubApplier{failN: 1}
	consumer, err := NewConsumer(q, applier, ConsumerConfig{BatchSize: 10, Linger: 10 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, consumer.Run(ctx))
	}()

	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312800}))

	// The first apply fails; the batch is returned to the queue and applied
	// on the second delivery.
	require.Eventually(t, func() bool {
		batches := applier.applied()
		return len(batches) == 1 && len(batches[0]) == 1 && batches[0][0].Alias == "a"
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func clickBatchSizeSamples(t *testing.T) (uint64, float64) {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, metrics.ClickBatchSize.Write(m))
	return m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum()
}

func TestConsumerObservesBatchSizeOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	agg, err := clicks.NewAggregator(db)
	require.NoError(t, err)

	q := NewMemoryQueue(8)
	defer q.Close()

	consumer, err := NewConsumer(q, agg, ConsumerConfig{BatchSize: 10, Linger: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312800}))
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312801}))
	require.NoError(t, q.Publish(ctx, clicks.Event{Alias: "a", TS: 1705312802}))

	countBefore, sumBefore := clickBatchSizeSamples(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, consumer.Run(ctx))
	}()

	// All three events were queued before the consumer started, so they
	// arrive as a single batch with exactly one size observation.
	require.Eventually(t, func() bool {
		m := &dto.Metric{}
		if err := metrics.ClickBatchSize.Write(m); err != nil {
			return false
		}
		return m.GetHistogram().GetSampleCount() > countBefore
	}, time.Second, 10*time.Millisecond)

	count, sum := clickBatchSizeSamples(t)
	require.Equal(t, countBefore+1, count)
	require.Equal(t, sumBefore+3, sum)

	cancel()
	<-done
}

func TestConsumerRequiresSourceAndApplier(t *testing.T) {
	_, err := NewConsumer(nil, &stubApplier{}, ConsumerConfig{})
	require.Error(t, err)

	_, err = NewConsumer(NewMemoryQueue(1), nil, ConsumerConfig{})
	require.Error(t, err)
}

func TestConsumerStopsOnClose(t *testing.T) {
	q := NewMemoryQueue(1)

	consumer, err := NewConsumer(q, &stubApplier{}, ConsumerConfig{BatchSize: 1, Linger: 10 * time.Millisecond})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, consumer.Run(context.Background()))
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after queue close")
	}
}
