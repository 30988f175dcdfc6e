package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/shortlink/internal/cache"
	"github.com/charlesng35/shortlink/internal/clicks"
	"github.com/charlesng35/shortlink/pkg/logger"
)

// DefaultRedisKey is the list the click queue lives under (before the
// client's own key prefix is applied).
const DefaultRedisKey = "q:clicks"

const redisPollInterval = 250 * time.Millisecond

// RedisQueue is a Redis-list-backed queue shared between the server and the
// click worker. Events are JSON-encoded; producers LPUSH and the consumer
// RPOPs so delivery is oldest-first.
type RedisQueue struct {
	client *cache.RedisClient
	key    string
	log    *zap.Logger
}

// NewRedisQueue constructs a queue on the supplied client and list key.
func NewRedisQueue(client *cache.RedisClient, key string) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("queue: redis client is required")
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key, log: logger.WithModule("queue")}, nil
}

// Publish appends one event to the list.
func (q *RedisQueue) Publish(ctx context.Context, event clicks.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.PushList(ctx, q.key, payload)
}

// Receive blocks (polling) for the first event, then drains the list until
// max events are gathered, the list is empty past linger, or ctx ends.
// Unparseable payloads are dropped with a log line so a poison message
// cannot wedge the queue.
func (q *RedisQueue) Receive(ctx context.Context, max int, linger time.Duration) (*Batch, error) {
	if max <= 0 {
		max = 1
	}

	batch := &Batch{Events: make([]clicks.Event, 0, max)}
	deadline := time.Time{}

	for len(batch.Events) < max {
		if err := ctx.Err(); err != nil {
			if len(batch.Events) > 0 {
				return batch, nil
			}
			return nil, err
		}

		payload, ok, err := q.client.PopList(ctx, q.key)
		if err != nil {
			if len(batch.Events) > 0 {
				return batch, nil
			}
			return nil, err
		}

		if !ok {
			if len(batch.Events) > 0 {
				if deadline.IsZero() {
					deadline = time.Now().Add(linger)
				}
				if time.Now().After(deadline) {
					return batch, nil
				}
			}
			select {
			case <-time.After(redisPollInterval):
			case <-ctx.Done():
				if len(batch.Events) > 0 {
					return batch, nil
				}
				return nil, ctx.Err()
			}
			continue
		}

		var event clicks.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			q.log.Warn("dropping unparseable click payload", zap.Error(err))
			continue
		}
		batch.Events = append(batch.Events, event)
	}

	return batch, nil
}

// Ack is a no-op: events were removed from the list on receive. A crash
// between receive and apply loses that batch; the accepted trade-off is the
// same as the upstream queue's at-least-once window.
func (q *RedisQueue) Ack(ctx context.Context, batch *Batch) error { return nil }

// Retry pushes the batch onto the tail of the list so it is redelivered
// ahead of newer events.
func (q *RedisQueue) Retry(ctx context.Context, batch *Batch) error {
	if batch == nil || len(batch.Events) == 0 {
		return nil
	}

	payloads := make([][]byte, 0, len(batch.Events))
	for i := len(batch.Events) - 1; i >= 0; i-- {
		payload, err := json.Marshal(batch.Events[i])
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}
	return q.client.PushListTail(ctx, q.key, payloads...)
}

// Len reports the queue depth, used by health probes.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.ListLen(ctx, q.key)
}
