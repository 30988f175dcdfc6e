package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/pkg/logger"
	"github.com/charlesng35/shortlink/pkg/metrics"
)

const (
	defaultBatchSize = 100
	defaultLinger    = 5 * time.Second
)

// Applier folds a batch of click events into the counters. Implemented by
// clicks.Aggregator.
type Applier interface {
	Apply(ctx context.Context, events []clicks.Event) error
}

// Consumer drives the receive/apply/ack loop against a Source.
type Consumer struct {
	source    Source
	applier   Applier
	batchSize int
	linger    time.Duration
	log       *zap.Logger
}

// ConsumerConfig tunes batch collection.
type ConsumerConfig struct {
	BatchSize int
	Linger    time.Duration
}

// NewConsumer constructs a Consumer.
func NewConsumer(source Source, applier Applier, cfg ConsumerConfig) (*Consumer, error) {
	if source == nil {
		return nil, errors.New("queue: source is required")
	}
	if applier == nil {
		return nil, errors.New("queue: applier is required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	linger := cfg.Linger
	if linger <= 0 {
		linger = defaultLinger
	}

	return &Consumer{
		source:    source,
		applier:   applier,
		batchSize: batchSize,
		linger:    linger,
		log:       logger.WithModule("consumer"),
	}, nil
}

// Run consumes batches until ctx is cancelled. A failed apply leaves the
// batch unacknowledged: it is returned to the source for redelivery and no
// event in it is dropped.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		batch, err := c.source.Receive(ctx, c.batchSize, c.linger)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrClosed) {
				return nil
			}
			c.log.Warn("receive failed", zap.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		if batch == nil || len(batch.Events) == 0 {
			continue
		}

		c.process(ctx, batch)
	}
}

func (c *Consumer) process(ctx context.Context, batch *Batch) {
	if err := c.applier.Apply(ctx, batch.Events); err != nil {
		metrics.ClickBatches.WithLabelValues("retried").Inc()
		c.log.Error("batch apply failed, returning batch for redelivery",
			zap.Int("events", len(batch.Events)),
			zap.Error(err),
		)
		if retryErr := c.source.Retry(ctx, batch); retryErr != nil {
			c.log.Error("batch redelivery failed, events lost",
				zap.Int("events", len(batch.Events)),
				zap.Error(retryErr),
			)
		}
		return
	}

	// Batch size is observed by the applier, which also sees batches that
	// never pass through a consumer.
	metrics.ClickBatches.WithLabelValues("applied").Inc()
	if err := c.source.Ack(ctx, batch); err != nil {
		c.log.Warn("batch ack failed", zap.Error(err))
	}
}
