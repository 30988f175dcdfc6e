package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charlesng35/shortlink/internal/clicks"
)

const defaultMemoryCapacity = 4096

// MemoryQueue is a process-local queue backed by a buffered channel. It
// serves single-binary deployments and tests; events do not survive a
// restart.
type MemoryQueue struct {
	ch chan clicks.Event

	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue constructs a memory queue with the supplied capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryQueue{ch: make(chan clicks.Event, capacity)}
}

// Publish enqueues one event without blocking; a full queue is an error so
// the caller can count the dropped event.
func (q *MemoryQueue) Publish(ctx context.Context, event clicks.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.mu.Unlock()

	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("queue: memory queue full")
	}
}

// Receive blocks for the first event, then drains until max events are
// gathered or linger elapses.
func (q *MemoryQueue) Receive(ctx context.Context, max int, linger time.Duration) (*Batch, error) {
	if max <= 0 {
		max = 1
	}

	var first clicks.Event
	select {
	case event, ok := <-q.ch:
		if !ok {
			return nil, ErrClosed
		}
		first = event
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	batch := &Batch{Events: append(make([]clicks.Event, 0, max), first)}

	timer := time.NewTimer(linger)
	defer timer.Stop()

	for len(batch.Events) < max {
		select {
		case event, ok := <-q.ch:
			if !ok {
				return batch, nil
			}
			batch.Events = append(batch.Events, event)
		case <-timer.C:
			return batch, nil
		case <-ctx.Done():
			return batch, nil
		}
	}
	return batch, nil
}

// Ack is a no-op: events were removed from the channel on receive.
func (q *MemoryQueue) Ack(ctx context.Context, batch *Batch) error { return nil }

// Retry re-enqueues the batch. Events that no longer fit are lost, which is
// acceptable for the in-process queue.
func (q *MemoryQueue) Retry(ctx context.Context, batch *Batch) error {
	if batch == nil {
		return nil
	}
	for _, event := range batch.Events {
		if err := q.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting events and releases blocked receivers.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Len reports the number of buffered events, used by health probes.
func (q *MemoryQueue) Len(ctx context.Context) (int64, error) {
	return int64(len(q.ch)), nil
}
