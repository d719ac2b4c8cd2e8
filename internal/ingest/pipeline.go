package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/logger"
	"github.com/eventfold/analytics/internal/metrics"
	"github.com/eventfold/analytics/internal/store"
)

// Invalidator removes cache entries made stale by an ingestion
type Invalidator interface {
	InvalidateUsers(ctx context.Context, userIDs []string)
}

// BusPublisher fans accepted events out to the message bus
type BusPublisher interface {
	Publish(envelopes []domain.EventEnvelope)
}

// envelopeSource identifies this service in published bus messages
const envelopeSource = "eventfold-analytics"

// Pipeline orchestrates batch ingestion: identifier normalization, the
// transactional store write with its per-event fallback, cache invalidation,
// and best-effort bus fan-out.
type Pipeline struct {
	store       store.Store
	invalidator Invalidator
	bus         BusPublisher
}

// NewPipeline creates an ingestion pipeline. The bus publisher may be nil
// when no message bus is configured.
func NewPipeline(s store.Store, inv Invalidator, bus BusPublisher) *Pipeline {
	return &Pipeline{
		store:       s,
		invalidator: inv,
		bus:         bus,
	}
}

// Ingest persists a batch of events and returns how many were durably
// accepted. A duplicate event identifier inside the batch triggers the
// per-event fallback so the remaining events are not lost; any other store
// error aborts the whole batch.
func (p *Pipeline) Ingest(ctx context.Context, batch []domain.EventInput) (*domain.IngestResult, error) {
	result := &domain.IngestResult{TotalReceived: len(batch)}
	if len(batch) == 0 {
		return result, nil
	}

	started := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(started).Seconds())
	}()

	rows := p.normalize(ctx, batch, started)

	accepted, err := p.store.IngestBatch(ctx, rows)
	userIDs := distinctUserIDs(rows)
	if err != nil {
		if !errors.Is(err, domain.ErrDuplicateEvent) {
			return nil, err
		}
		logger.WarnCtx(ctx, "batch insert hit a duplicate event id, retrying per event",
			zap.Int("batchSize", len(rows)))
		metrics.IngestFallbacks.Inc()

		fallback, ferr := p.store.InsertEventsIndividually(ctx, rows)
		if ferr != nil {
			return nil, ferr
		}
		accepted = fallback.Persisted
		userIDs = fallback.UserIDs
		metrics.EventsDuplicate.Add(float64(fallback.Duplicates))
	}

	result.Accepted = accepted
	metrics.EventsIngested.Add(float64(accepted))

	if accepted > 0 {
		p.invalidator.InvalidateUsers(ctx, userIDs)
		if p.bus != nil {
			p.bus.Publish(p.envelopes(rows))
		}
	}

	logger.InfoCtx(ctx, "ingested event batch",
		zap.Int("received", result.TotalReceived),
		zap.Int("accepted", result.Accepted))
	return result, nil
}

// normalize converts raw inputs into persistable rows: malformed or missing
// event identifiers are replaced with fresh ones, and the denormalized event
// date is derived from the occurrence timestamp.
func (p *Pipeline) normalize(ctx context.Context, batch []domain.EventInput, now time.Time) []store.EventRow {
	rows := make([]store.EventRow, 0, len(batch))
	for _, in := range batch {
		id, err := uuid.Parse(in.EventID)
		if err != nil {
			id = uuid.New()
			if in.EventID == "" {
				logger.DebugCtx(ctx, "generated id for event submitted without one",
					zap.String("generated", id.String()))
			} else {
				logger.WarnCtx(ctx, "replacing malformed event id",
					zap.String("eventID", in.EventID),
					zap.String("generated", id.String()))
			}
		}

		occurredAt := in.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = now
		}

		rows = append(rows, store.EventRow{
			EventID:    id,
			OccurredAt: occurredAt,
			UserID:     in.UserID,
			EventType:  in.EventType,
			Properties: in.Properties,
			EventDate:  eventDate(occurredAt),
		})
	}
	return rows
}

// envelopes builds the bus messages for a batch. The fallback path does not
// report which individual events survived, so fan-out covers the whole batch;
// downstream consumers deduplicate by event id.
func (p *Pipeline) envelopes(rows []store.EventRow) []domain.EventEnvelope {
	now := time.Now().UTC()
	envelopes := make([]domain.EventEnvelope, 0, len(rows))
	for _, row := range rows {
		envelopes = append(envelopes, domain.EventEnvelope{
			EventID:     row.EventID.String(),
			OccurredAt:  row.OccurredAt,
			UserID:      row.UserID,
			EventType:   row.EventType,
			Properties:  row.Properties,
			PublishedAt: now,
			Source:      envelopeSource,
		})
	}
	return envelopes
}

func eventDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func distinctUserIDs(rows []store.EventRow) []string {
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.UserID]; ok {
			continue
		}
		seen[row.UserID] = struct{}{}
		ids = append(ids, row.UserID)
	}
	return ids
}
