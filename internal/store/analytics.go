package store

import (
	"context"
	"fmt"
	"time"

	"github.com/eventfold/analytics/internal/store/schema"
)

// hasRetentionTable reports whether the derived retention table exists yet.
// Fresh deployments can serve analytics before the first ingestion has run
// migrations, so retention queries degrade to empty results instead of erroring.
func (s *pgStore) hasRetentionTable() bool {
	return s.db.Migrator().HasTable(&schema.UserRetention{})
}

// DailyActiveUsers counts distinct users per day over a date range
func (s *pgStore) DailyActiveUsers(ctx context.Context, from, to time.Time) ([]DAUPoint, error) {
	var points []DAUPoint
	err := s.db.WithContext(ctx).
		Model(&schema.Event{}).
		Select("event_date, COUNT(DISTINCT user_id) AS unique_users").
		Where("event_date BETWEEN ? AND ?", from, to).
		Group("event_date").
		Order("event_date").
		Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query daily active users: %w", err)
	}
	return points, nil
}

// TopEventTypes ranks event types by count over a date range
func (s *pgStore) TopEventTypes(ctx context.Context, from, to time.Time, limit int) ([]EventTypeCount, error) {
	var counts []EventTypeCount
	err := s.db.WithContext(ctx).
		Model(&schema.Event{}).
		Select("event_type, COUNT(*) AS event_count").
		Where("event_date BETWEEN ? AND ?", from, to).
		Group("event_type").
		Order("event_count DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top event types: %w", err)
	}
	return counts, nil
}

// CohortSize counts the day-zero population of a cohort
func (s *pgStore) CohortSize(ctx context.Context, cohortDate time.Time) (int64, error) {
	if !s.hasRetentionTable() {
		return 0, nil
	}

	var size int64
	err := s.db.WithContext(ctx).
		Model(&schema.UserRetention{}).
		Where("cohort_date = ? AND retention_day = 0", cohortDate).
		Distinct("user_id").
		Count(&size).Error
	if err != nil {
		return 0, fmt.Errorf("failed to query cohort size: %w", err)
	}
	return size, nil
}

// RetentionCounts returns retained-user counts per day offset for a cohort
func (s *pgStore) RetentionCounts(ctx context.Context, cohortDate time.Time, windows int) ([]RetentionDayCount, error) {
	if !s.hasRetentionTable() {
		return nil, nil
	}

	var counts []RetentionDayCount
	err := s.db.WithContext(ctx).
		Model(&schema.UserRetention{}).
		Select("retention_day, COUNT(DISTINCT user_id) AS retained_users").
		Where("cohort_date = ? AND retention_day >= 0 AND retention_day <= ?", cohortDate, windows).
		Group("retention_day").
		Order("retention_day").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query retention counts: %w", err)
	}
	return counts, nil
}

// CohortList returns the most recent cohorts with their day-zero populations
func (s *pgStore) CohortList(ctx context.Context, limit int) ([]CohortSummary, error) {
	if !s.hasRetentionTable() {
		return nil, nil
	}

	var cohorts []CohortSummary
	err := s.db.WithContext(ctx).
		Model(&schema.UserRetention{}).
		Select("cohort_date, COUNT(DISTINCT user_id) AS total_users").
		Where("retention_day = 0").
		Group("cohort_date").
		Order("cohort_date DESC").
		Limit(limit).
		Scan(&cohorts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort list: %w", err)
	}
	return cohorts, nil
}

// UserRetentionRows returns a user's retention facts ordered by day offset
func (s *pgStore) UserRetentionRows(ctx context.Context, userID string) ([]*schema.UserRetention, error) {
	if !s.hasRetentionTable() {
		return nil, nil
	}

	var rows []*schema.UserRetention
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("retention_day").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query user retention rows: %w", err)
	}
	return rows, nil
}

// UserEventStats aggregates one user's event history and retention summary
func (s *pgStore) UserEventStats(ctx context.Context, userID string) (*UserEventStats, error) {
	stats := &UserEventStats{EventsByType: make(map[string]int64)}

	var byType []EventTypeCount
	err := s.db.WithContext(ctx).
		Model(&schema.Event{}).
		Select("event_type, COUNT(*) AS event_count").
		Where("user_id = ?", userID).
		Group("event_type").
		Scan(&byType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events by type: %w", err)
	}
	for _, tc := range byType {
		stats.EventsByType[tc.EventType] = tc.Count
		stats.TotalEvents += tc.Count
	}

	type bounds struct {
		First *time.Time `gorm:"column:first_at"`
		Last  *time.Time `gorm:"column:last_at"`
	}
	var b bounds
	err = s.db.WithContext(ctx).
		Model(&schema.Event{}).
		Select("MIN(occurred_at) AS first_at, MAX(occurred_at) AS last_at").
		Where("user_id = ?", userID).
		Scan(&b).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query event bounds: %w", err)
	}
	stats.FirstEventAt = b.First
	stats.LastEventAt = b.Last

	if s.hasRetentionTable() {
		type retention struct {
			FirstCohort  *time.Time `gorm:"column:first_cohort"`
			LastActivity *time.Time `gorm:"column:last_activity"`
			ActiveDays   int64      `gorm:"column:active_days"`
		}
		var r retention
		err = s.db.WithContext(ctx).
			Model(&schema.UserRetention{}).
			Select("MIN(cohort_date) AS first_cohort, MAX(activity_date) AS last_activity, COUNT(id) AS active_days").
			Where("user_id = ?", userID).
			Scan(&r).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query retention stats: %w", err)
		}
		stats.FirstCohort = r.FirstCohort
		stats.LastActivity = r.LastActivity
		stats.ActiveDays = r.ActiveDays
	}

	return stats, nil
}

// IngestionMetrics summarizes store-wide totals; today is the reference date
func (s *pgStore) IngestionMetrics(ctx context.Context, today time.Time) (*IngestionMetrics, error) {
	metrics := &IngestionMetrics{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&schema.Event{}).Count(&metrics.TotalEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if err := db.Model(&schema.Event{}).Where("event_date = ?", today).Count(&metrics.EventsToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's events: %w", err)
	}

	err := db.Model(&schema.Event{}).
		Select("event_type, COUNT(*) AS event_count").
		Group("event_type").
		Order("event_count DESC").
		Limit(10).
		Scan(&metrics.EventsByType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}

	if err := db.Model(&schema.User{}).Count(&metrics.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	err = db.Model(&schema.Event{}).
		Where("event_date = ?", today).
		Distinct("user_id").
		Count(&metrics.ActiveUsersToday).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	if s.hasRetentionTable() {
		err = db.Model(&schema.UserRetention{}).
			Distinct("cohort_date").
			Count(&metrics.CohortCount).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count cohorts: %w", err)
		}
		if err := db.Model(&schema.UserRetention{}).Count(&metrics.RetentionRows).Error; err != nil {
			return nil, fmt.Errorf("failed to count retention rows: %w", err)
		}
	}

	return metrics, nil
}
