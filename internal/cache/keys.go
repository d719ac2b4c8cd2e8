package cache

import (
	"fmt"
	"time"
)

// Cache keys are deterministic functions of the query name and its arguments,
// grouped under prefixes so a mutation can invalidate a whole logical domain
// with one pattern delete.
const (
	aggregatePrefix = "analytics"
	userPrefix      = "user"
)

const dateLayout = "2006-01-02"

// KeyDAU is the cache key for a daily-active-users query
func KeyDAU(from, to time.Time) string {
	return fmt.Sprintf("%s:dau:%s:%s", aggregatePrefix, from.Format(dateLayout), to.Format(dateLayout))
}

// KeyTopEvents is the cache key for a top-events query
func KeyTopEvents(from, to time.Time, limit int) string {
	return fmt.Sprintf("%s:top_events:%s:%s:%d", aggregatePrefix, from.Format(dateLayout), to.Format(dateLayout), limit)
}

// KeyRetention is the cache key for a cohort retention-curve query
func KeyRetention(cohortDate time.Time, windows int) string {
	return fmt.Sprintf("%s:retention:%s:%d", aggregatePrefix, cohortDate.Format(dateLayout), windows)
}

// KeyCohorts is the cache key for the active-cohorts list
func KeyCohorts(limit int) string {
	return fmt.Sprintf("%s:cohorts:%d", aggregatePrefix, limit)
}

// KeyIngestionMetrics is the cache key for store-wide ingestion metrics
func KeyIngestionMetrics() string {
	return fmt.Sprintf("%s:ingestion_metrics", aggregatePrefix)
}

// KeyUserRetention is the cache key for one user's retention history
func KeyUserRetention(userID string) string {
	return fmt.Sprintf("%s:%s:retention", userPrefix, userID)
}

// KeyUserStats is the cache key for one user's event statistics
func KeyUserStats(userID string) string {
	return fmt.Sprintf("%s:%s:stats", userPrefix, userID)
}

// PatternAggregates matches every global aggregate entry
func PatternAggregates() string {
	return aggregatePrefix + ":*"
}

// PatternUser matches every cached entry derived from one user's data
func PatternUser(userID string) string {
	return fmt.Sprintf("%s:%s:*", userPrefix, userID)
}
