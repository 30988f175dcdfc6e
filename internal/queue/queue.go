// Package queue carries click events from the redirect path to the
// aggregation worker. Delivery is at-least-once: a batch is acknowledged or
// retried as a whole, never partially.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/shortlink/internal/clicks"
)

// ErrClosed is returned once a queue has been shut down.
var ErrClosed = errors.New("queue: closed")

// Publisher enqueues click events. Publish failures are reported so callers
// can log and count them, but the redirect path never propagates them.
type Publisher interface {
	Publish(ctx context.Context, event clicks.Event) error
}

// Batch is a bounded slice of events pending acknowledgement.
type Batch struct {
	Events []clicks.Event
}

// Source delivers batches of click events. Receive blocks until at least one
// event is available, then gathers more until max events are collected or
// linger elapses.
type Source interface {
	Receive(ctx context.Context, max int, linger time.Duration) (*Batch, error)
	// Ack marks every event in the batch as processed.
	Ack(ctx context.Context, batch *Batch) error
	// Retry returns the whole batch to the queue for redelivery.
	Retry(ctx context.Context, batch *Batch) error
}
