package clicks

import (
	"context"
	"errors"
)

// SyncRecorder applies each click inline as a one-event batch. It serves
// deployments without a queue so that exactly one write path updates the
// counters.
type SyncRecorder struct {
	agg *Aggregator
}

// NewSyncRecorder constructs a SyncRecorder over the aggregator.
func NewSyncRecorder(agg *Aggregator) (*SyncRecorder, error) {
	if agg == nil {
		return nil, errors.New("clicks: aggregator is required")
	}
	return &SyncRecorder{agg: agg}, nil
}

// Publish applies the event immediately.
func (r *SyncRecorder) Publish(ctx context.Context, event Event) error {
	return r.agg.Apply(ctx, []Event{event})
}
