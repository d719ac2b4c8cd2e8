package messaging

import (
	"context"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/logger"
	"github.com/eventfold/analytics/internal/metrics"
)

// Fanout publishes accepted events to the bus on a bounded worker pool so the
// ingestion response never waits on it. There is no ordering guarantee
// relative to the HTTP response, and publish failures are invisible to the
// original caller.
type Fanout struct {
	publisher Publisher
	pool      pond.Pool
}

// NewFanout creates a fan-out over the given publisher with a bounded pool
func NewFanout(pub Publisher, workers, queueSize int) *Fanout {
	return &Fanout{
		publisher: pub,
		pool: pond.NewPool(workers,
			pond.WithQueueSize(queueSize),
			pond.WithNonBlocking(true),
		),
	}
}

// Publish enqueues a batch for asynchronous delivery and returns immediately.
// When the pool queue is full the batch is dropped and logged; the bus is
// best effort by contract.
func (f *Fanout) Publish(envelopes []domain.EventEnvelope) {
	if len(envelopes) == 0 || !f.publisher.Connected() {
		return
	}

	_, ok := f.pool.TrySubmit(func() {
		ctx := context.Background()
		published := 0
		for i := range envelopes {
			env := &envelopes[i]
			if err := f.publisher.Publish(ctx, SubjectFor(env.EventType), env); err != nil {
				logger.Warn("bus publish failed",
					zap.String("event_id", env.EventID),
					zap.Error(err),
				)
				continue
			}
			published++
			metrics.EventsPublished.Inc()
		}
		logger.Debug("published events to bus",
			zap.Int("published", published),
			zap.Int("total", len(envelopes)),
		)
	})
	if !ok {
		logger.Warn("bus fan-out queue full, dropping batch",
			zap.Int("events", len(envelopes)),
		)
	}
}

// Close waits for in-flight publishes to finish
func (f *Fanout) Close() {
	f.pool.StopAndWait()
}
