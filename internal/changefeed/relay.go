package changefeed

import (
	"context"
	"log/slog"
	"time"

	"tranquility/internal/platform/metrics"
)

// Producer delivers pending rows to the broker. It must return only after
// every row is acknowledged or return an error.
type Producer interface {
	Produce(ctx context.Context, batch []Pending) error
}

// Relay moves outbox rows to a Producer.
type Relay struct {
	outbox   *Outbox
	producer Producer
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithLogger(l *slog.Logger) RelayOption {
	return func(r *Relay) { r.logger = l }
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

// NewRelay creates a Relay.
func NewRelay(outbox *Outbox, producer Producer, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:   outbox,
		producer: producer,
		interval: time.Second,
		batch:    100,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run publishes until ctx is cancelled. Failed batches are retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.metrics.IncrementOutboxErrors()
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
			}
		}
	}
}

// RunOnce publishes one batch and returns how many rows were delivered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.Pending(ctx, r.batch)
	if err != nil || len(pending) == 0 {
		return 0, err
	}
	if err := r.producer.Produce(ctx, pending); err != nil {
		return 0, err
	}
	ids := make([]int64, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}
	if err := r.outbox.MarkPublished(ctx, ids, time.Now().UTC()); err != nil {
		return 0, err
	}
	r.metrics.AddOutboxPublished(len(pending))
	r.logger.DebugContext(ctx, "outbox batch published", "count", len(pending))
	return len(pending), nil
}
