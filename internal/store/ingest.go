package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/logger"
	"github.com/eventfold/analytics/internal/store/schema"
)

// eventFieldCount is the number of bound parameters per event row in a bulk insert
const eventFieldCount = 6

// IngestBatch persists a batch of normalized events in a single transaction:
// upsert users, bulk-insert events, derive retention facts, commit. The write
// order is load-bearing: the retention derivation's earliest-date query must
// observe this transaction's own event rows.
//
// A unique violation on an event identifier rolls everything back and is
// reported as domain.ErrDuplicateEvent; the pipeline then retries per-event.
func (s *pgStore) IngestBatch(ctx context.Context, rows []EventRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertUsers(tx, distinctUserIDs(rows), now); err != nil {
			return err
		}

		events := make([]schema.Event, len(rows))
		for i, row := range rows {
			events[i] = toSchemaEvent(row)
		}
		if err := tx.CreateInBatches(&events, calculateSafeBatchSize(len(events), eventFieldCount)).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("batch insert hit existing event_id: %w", domain.ErrDuplicateEvent)
			}
			return fmt.Errorf("failed to insert events: %w", err)
		}

		return deriveRetention(tx, rows)
	})
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// InsertEventsIndividually is the degraded path after a batch-level duplicate.
// Each event gets its own sub-transaction (savepoint) so a duplicate or a
// broken row only discards that event; everything that survived commits once
// at the end, including retention facts for the surviving events.
func (s *pgStore) InsertEventsIndividually(ctx context.Context, rows []EventRow) (*FallbackResult, error) {
	if len(rows) == 0 {
		return &FallbackResult{}, nil
	}

	now := time.Now().UTC()
	var persisted []EventRow
	duplicates := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			row := row
			err := tx.Transaction(func(sub *gorm.DB) error {
				if err := upsertUsers(sub, []string{row.UserID}, now); err != nil {
					return err
				}
				event := toSchemaEvent(row)
				if err := sub.Create(&event).Error; err != nil {
					return err
				}
				return nil
			})
			if err != nil {
				if isUniqueViolation(err) {
					duplicates++
					logger.Debug("skipped duplicate event",
						zap.String("event_id", row.EventID.String()),
						zap.String("user_id", row.UserID),
					)
				} else {
					logger.ErrorCtx(ctx, fmt.Errorf("failed to insert event individually: %w", err),
						zap.String("event_id", row.EventID.String()),
					)
				}
				continue
			}
			persisted = append(persisted, row)
		}

		if len(persisted) == 0 {
			// Nothing survived; commit the empty transaction rather than error
			return nil
		}
		return deriveRetention(tx, persisted)
	})
	if err != nil {
		return nil, err
	}

	return &FallbackResult{
		Persisted:  len(persisted),
		Duplicates: duplicates,
		UserIDs:    distinctUserIDs(persisted),
	}, nil
}

// deriveRetention computes each user's cohort date from the full event history
// visible to tx (including rows inserted earlier in the same transaction) and
// inserts one retention fact per event with conflict-do-nothing semantics.
//
// Cohort dates are recomputed from history on every batch, so a backfilled
// event older than the recorded cohort shifts the cohort backward for rows
// derived from that point on. Retention offsets within a single batch for a
// new user are therefore always non-negative.
func deriveRetention(tx *gorm.DB, rows []EventRow) error {
	if len(rows) == 0 {
		return nil
	}

	type firstEvent struct {
		UserID    string    `gorm:"column:user_id"`
		FirstDate time.Time `gorm:"column:first_date"`
	}

	var firsts []firstEvent
	err := tx.Model(&schema.Event{}).
		Select("user_id, MIN(event_date) AS first_date").
		Where("user_id IN ?", distinctUserIDs(rows)).
		Group("user_id").
		Scan(&firsts).Error
	if err != nil {
		return fmt.Errorf("failed to query first events: %w", err)
	}

	cohorts := make(map[string]time.Time, len(firsts))
	for _, fe := range firsts {
		cohorts[fe.UserID] = fe.FirstDate
	}

	// One fact per (user, cohort, activity date); duplicates within the batch collapse here
	type tripleKey struct {
		userID   string
		activity string
	}
	seen := make(map[tripleKey]bool, len(rows))
	facts := make([]schema.UserRetention, 0, len(rows))
	for _, row := range rows {
		cohort, ok := cohorts[row.UserID]
		if !ok {
			// The event was inserted in this transaction, so history must contain it
			cohort = row.EventDate
		}
		key := tripleKey{userID: row.UserID, activity: row.EventDate.Format("2006-01-02")}
		if seen[key] {
			continue
		}
		seen[key] = true
		facts = append(facts, schema.UserRetention{
			UserID:       row.UserID,
			CohortDate:   cohort,
			ActivityDate: row.EventDate,
			RetentionDay: daysBetween(cohort, row.EventDate),
		})
	}

	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "cohort_date"}, {Name: "activity_date"}},
		DoNothing: true,
	}).CreateInBatches(&facts, calculateSafeBatchSize(len(facts), 4)).Error
	if err != nil {
		return fmt.Errorf("failed to insert retention facts: %w", err)
	}
	return nil
}

func toSchemaEvent(row EventRow) schema.Event {
	return schema.Event{
		EventID:    row.EventID,
		OccurredAt: row.OccurredAt,
		UserID:     row.UserID,
		EventType:  row.EventType,
		Properties: datatypes.JSONMap(row.Properties),
		EventDate:  row.EventDate,
	}
}

// distinctUserIDs collects the unique user ids of a batch, preserving first-seen order
func distinctUserIDs(rows []EventRow) []string {
	seen := make(map[string]bool, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if seen[row.UserID] {
			continue
		}
		seen[row.UserID] = true
		ids = append(ids, row.UserID)
	}
	return ids
}

// daysBetween returns to minus from in whole days; both are date-granular values
func daysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
