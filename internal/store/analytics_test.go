package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAnalytics ingests a small fixed history: u1 active on days 0, 1 and 3,
// u2 active on day 0 only, u3 joining on day 1.
func seedAnalytics(t *testing.T, s Store) {
	t.Helper()
	rows := []EventRow{
		makeRow("u1", "page_view", day(0)),
		makeRow("u1", "click", day(0)),
		makeRow("u1", "page_view", day(1)),
		makeRow("u1", "purchase", day(3)),
		makeRow("u2", "page_view", day(0)),
		makeRow("u3", "page_view", day(1)),
	}
	_, err := s.IngestBatch(context.Background(), rows)
	require.NoError(t, err)
}

func TestDailyActiveUsers(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	points, err := s.DailyActiveUsers(context.Background(), day(0), day(3))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, int64(2), points[0].UniqueUsers) // day 0: u1, u2
	assert.Equal(t, int64(2), points[1].UniqueUsers) // day 1: u1, u3
	assert.Equal(t, int64(1), points[2].UniqueUsers) // day 3: u1
}

func TestDailyActiveUsersEmptyRange(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	points, err := s.DailyActiveUsers(context.Background(), day(10), day(20))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestTopEventTypes(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	counts, err := s.TopEventTypes(context.Background(), day(0), day(3), 2)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	assert.Equal(t, "page_view", counts[0].EventType)
	assert.Equal(t, int64(4), counts[0].Count)
}

func TestCohortQueries(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)
	ctx := context.Background()

	// Day-zero cohort holds u1 and u2
	size, err := s.CohortSize(ctx, day(0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	counts, err := s.RetentionCounts(ctx, day(0), 7)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, 0, counts[0].RetentionDay)
	assert.Equal(t, int64(2), counts[0].RetainedUsers)
	assert.Equal(t, 1, counts[1].RetentionDay)
	assert.Equal(t, int64(1), counts[1].RetainedUsers)
	assert.Equal(t, 3, counts[2].RetentionDay)
	assert.Equal(t, int64(1), counts[2].RetainedUsers)

	cohorts, err := s.CohortList(ctx, 10)
	require.NoError(t, err)
	require.Len(t, cohorts, 2)
	// Newest cohort first
	assert.Equal(t, int64(1), cohorts[0].TotalUsers) // day 1: u3
	assert.Equal(t, int64(2), cohorts[1].TotalUsers) // day 0: u1, u2
}

func TestUserEventStatsAggregation(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	stats, err := s.UserEventStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalEvents)
	assert.Equal(t, int64(2), stats.EventsByType["page_view"])
	assert.Equal(t, int64(1), stats.EventsByType["purchase"])
	require.NotNil(t, stats.FirstEventAt)
	require.NotNil(t, stats.LastEventAt)
	assert.True(t, stats.LastEventAt.After(*stats.FirstEventAt))
	require.NotNil(t, stats.FirstCohort)
	assert.Equal(t, int64(3), stats.ActiveDays)
}

func TestUserEventStatsUnknownUser(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	stats, err := s.UserEventStats(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEvents)
	assert.Nil(t, stats.FirstEventAt)
	assert.Zero(t, stats.ActiveDays)
}

func TestIngestionMetricsSummary(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	metrics, err := s.IngestionMetrics(context.Background(), day(0))
	require.NoError(t, err)
	assert.Equal(t, int64(6), metrics.TotalEvents)
	assert.Equal(t, int64(3), metrics.EventsToday)      // day 0 events
	assert.Equal(t, int64(2), metrics.ActiveUsersToday) // u1, u2
	assert.Equal(t, int64(3), metrics.TotalUsers)
	assert.Equal(t, int64(2), metrics.CohortCount)
	assert.Equal(t, int64(5), metrics.RetentionRows)

	require.NotEmpty(t, metrics.EventsByType)
	assert.Equal(t, "page_view", metrics.EventsByType[0].EventType)
}

func TestRetentionQueriesBeforeFirstIngest(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	size, err := s.CohortSize(ctx, day(0))
	require.NoError(t, err)
	assert.Zero(t, size)

	counts, err := s.RetentionCounts(ctx, day(0), 7)
	require.NoError(t, err)
	assert.Empty(t, counts)

	cohorts, err := s.CohortList(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, cohorts)

	rows, err := s.UserRetentionRows(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDailyActiveUsersOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	seedAnalytics(t, s)

	points, err := s.DailyActiveUsers(context.Background(), day(0), day(3))
	require.NoError(t, err)
	for i := 1; i < len(points); i++ {
		assert.True(t, points[i].Date.After(points[i-1].Date))
	}
}
