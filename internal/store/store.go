package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eventfold/analytics/internal/store/schema"
)

// EventRow is a normalized event ready for persistence. The pipeline has
// already repaired the identifier and derived the event date by the time a row
// reaches the store.
type EventRow struct {
	EventID    uuid.UUID
	OccurredAt time.Time
	UserID     string
	EventType  string
	Properties map[string]interface{}
	EventDate  time.Time
}

// FallbackResult reports what the per-event fallback path did with a batch.
// Duplicates counts only the rows skipped for an existing event identifier;
// rows lost to other per-event errors are in neither count.
type FallbackResult struct {
	Persisted  int
	Duplicates int
	UserIDs    []string
}

// DAUPoint is one day of the daily-active-users series
type DAUPoint struct {
	Date        time.Time `gorm:"column:event_date"`
	UniqueUsers int64     `gorm:"column:unique_users"`
}

// EventTypeCount is one entry of the top-events ranking
type EventTypeCount struct {
	EventType string `gorm:"column:event_type"`
	Count     int64  `gorm:"column:event_count"`
}

// RetentionDayCount is the number of retained users at one day offset of a cohort
type RetentionDayCount struct {
	RetentionDay  int   `gorm:"column:retention_day"`
	RetainedUsers int64 `gorm:"column:retained_users"`
}

// CohortSummary is one cohort with its day-zero population
type CohortSummary struct {
	CohortDate time.Time `gorm:"column:cohort_date"`
	TotalUsers int64     `gorm:"column:total_users"`
}

// UserEventStats aggregates a single user's event and retention history
type UserEventStats struct {
	EventsByType map[string]int64
	TotalEvents  int64
	FirstEventAt *time.Time
	LastEventAt  *time.Time
	FirstCohort  *time.Time
	LastActivity *time.Time
	ActiveDays   int64
}

// IngestionMetrics summarizes store-wide ingestion state for monitoring
type IngestionMetrics struct {
	TotalEvents      int64
	EventsToday      int64
	EventsByType     []EventTypeCount
	TotalUsers       int64
	ActiveUsersToday int64
	CohortCount      int64
	RetentionRows    int64
}

// Store defines the interface for database operations
type Store interface {
	// IngestBatch persists a batch atomically: user upsert, bulk event insert,
	// retention derivation, one commit. A unique violation on an event
	// identifier aborts the whole transaction and is reported as
	// domain.ErrDuplicateEvent so the caller can fall back to per-event
	// processing. Returns the number of events inserted.
	IngestBatch(ctx context.Context, rows []EventRow) (int, error)

	// InsertEventsIndividually is the degraded path after a batch-level
	// duplicate: each event runs in its own sub-transaction so a duplicate
	// only discards that event. Returns the persisted and duplicate counts
	// and the user ids touched by persisted events.
	InsertEventsIndividually(ctx context.Context, rows []EventRow) (*FallbackResult, error)

	// CreateUser inserts a user row, failing with domain.ErrUserAlreadyExists on conflict
	CreateUser(ctx context.Context, userID, name, email string) (*schema.User, error)
	// GetUser retrieves a user by external identifier; nil when absent
	GetUser(ctx context.Context, userID string) (*schema.User, error)
	// ListUsers retrieves users, optionally only active ones, newest first
	ListUsers(ctx context.Context, activeOnly bool) ([]*schema.User, error)

	// CreateAPIKey persists a new API key record
	CreateAPIKey(ctx context.Context, key *schema.APIKey) error
	// GetAPIKeyByHash retrieves an active key by its hash; nil when absent
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*schema.APIKey, error)
	// TouchAPIKey records the time a key was last used
	TouchAPIKey(ctx context.Context, id int64, usedAt time.Time) error
	// RevokeAPIKey deactivates a key; reports whether the key existed
	RevokeAPIKey(ctx context.Context, id int64) (bool, error)
	// ListAPIKeys retrieves keys filtered by owner and activity, newest first
	ListAPIKeys(ctx context.Context, userID string, activeOnly bool) ([]*schema.APIKey, error)

	// DailyActiveUsers counts distinct users per day over a date range
	DailyActiveUsers(ctx context.Context, from, to time.Time) ([]DAUPoint, error)
	// TopEventTypes ranks event types by count over a date range
	TopEventTypes(ctx context.Context, from, to time.Time, limit int) ([]EventTypeCount, error)
	// CohortSize counts the day-zero population of a cohort
	CohortSize(ctx context.Context, cohortDate time.Time) (int64, error)
	// RetentionCounts returns retained-user counts per day offset for a cohort
	RetentionCounts(ctx context.Context, cohortDate time.Time, windows int) ([]RetentionDayCount, error)
	// CohortList returns the most recent cohorts with their populations
	CohortList(ctx context.Context, limit int) ([]CohortSummary, error)
	// UserRetentionRows returns a user's retention facts ordered by day offset
	UserRetentionRows(ctx context.Context, userID string) ([]*schema.UserRetention, error)
	// UserEventStats aggregates one user's event history and retention summary
	UserEventStats(ctx context.Context, userID string) (*UserEventStats, error)
	// IngestionMetrics summarizes store-wide totals; today is the reference date
	IngestionMetrics(ctx context.Context, today time.Time) (*IngestionMetrics, error)
}
