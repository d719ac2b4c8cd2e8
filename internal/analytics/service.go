package analytics

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/cache"
	"github.com/eventfold/analytics/internal/logger"
	"github.com/eventfold/analytics/internal/metrics"
	"github.com/eventfold/analytics/internal/store"
)

// DefaultCacheTTL bounds how long an aggregate result may be served from cache
const DefaultCacheTTL = 5 * time.Minute

const dateLayout = "2006-01-02"

// Service serves aggregate analytics, fronted by the cache. Every query
// checks the cache first, computes against the store on a miss, and
// populates the cache with a bounded TTL. Cache failures degrade to store
// reads and are never surfaced.
type Service struct {
	store store.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewService creates an analytics service. A zero ttl falls back to
// DefaultCacheTTL.
func NewService(s store.Store, c cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{store: s, cache: c, ttl: ttl}
}

// DAUEntry is one day of the daily-active-users series
type DAUEntry struct {
	Date        string `json:"date"`
	UniqueUsers int64  `json:"unique_user_count"`
}

// DAUReport is the daily-active-users series over a date range
type DAUReport struct {
	From    string     `json:"from_date"`
	To      string     `json:"to_date"`
	Entries []DAUEntry `json:"daily_active_users"`
}

// TopEventEntry is one entry of the top-events ranking
type TopEventEntry struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// TopEventsReport ranks event types by volume over a date range
type TopEventsReport struct {
	From    string          `json:"from_date"`
	To      string          `json:"to_date"`
	Entries []TopEventEntry `json:"top_events"`
}

// RetentionWindow is one day offset of a cohort's retention curve
type RetentionWindow struct {
	DayOffset        int     `json:"day_offset"`
	ActivityDate     string  `json:"activity_date"`
	RetainedCount    int64   `json:"retained_count"`
	RetentionPercent float64 `json:"retention_rate_percent"`
}

// RetentionCurve is a cohort's retention over a window of day offsets
type RetentionCurve struct {
	CohortStartDate  string            `json:"cohort_start_date"`
	TotalCohortUsers int64             `json:"total_cohort_users"`
	Windows          []RetentionWindow `json:"windows"`
}

// UserActivityDay is one active day in a user's retention history
type UserActivityDay struct {
	ActivityDate string `json:"activity_date"`
	RetentionDay int    `json:"retention_day"`
}

// UserRetentionReport summarizes a single user's retention history
type UserRetentionReport struct {
	UserID           string            `json:"user_id"`
	CohortDate       string            `json:"cohort_date,omitempty"`
	TotalDaysTracked int               `json:"total_days_tracked"`
	ActiveDays       int               `json:"active_days"`
	RetentionPercent float64           `json:"retention_rate_percent"`
	DailyActivity    []UserActivityDay `json:"daily_activity"`
}

// CohortEntry is one cohort with its day-zero population
type CohortEntry struct {
	CohortDate string `json:"cohort_date"`
	TotalUsers int64  `json:"total_users"`
}

// UserStatsReport aggregates a single user's event history
type UserStatsReport struct {
	UserID       string           `json:"user_id"`
	TotalEvents  int64            `json:"total_events"`
	EventsByType map[string]int64 `json:"events_by_type"`
	FirstEventAt *time.Time       `json:"first_event_at,omitempty"`
	LastEventAt  *time.Time       `json:"last_event_at,omitempty"`
	CohortDate   string           `json:"cohort_date,omitempty"`
	ActiveDays   int64            `json:"active_days"`
}

// IngestionReport summarizes store-wide ingestion state
type IngestionReport struct {
	TotalEvents      int64            `json:"total_events"`
	EventsToday      int64            `json:"events_today"`
	EventsByType     []TopEventEntry  `json:"events_by_type"`
	TotalUsers       int64            `json:"total_users"`
	ActiveUsersToday int64            `json:"active_users_today"`
	CohortCount      int64            `json:"cohort_count"`
	RetentionRows    int64            `json:"retention_rows"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// DailyActiveUsers returns distinct-user counts per day over a date range
func (s *Service) DailyActiveUsers(ctx context.Context, from, to time.Time) (*DAUReport, error) {
	key := cache.KeyDAU(from, to)
	var report DAUReport
	if s.fromCache(ctx, "dau", key, &report) {
		return &report, nil
	}

	points, err := s.store.DailyActiveUsers(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report = DAUReport{
		From:    from.Format(dateLayout),
		To:      to.Format(dateLayout),
		Entries: make([]DAUEntry, 0, len(points)),
	}
	for _, p := range points {
		report.Entries = append(report.Entries, DAUEntry{
			Date:        p.Date.Format(dateLayout),
			UniqueUsers: p.UniqueUsers,
		})
	}

	s.toCache(ctx, key, &report)
	return &report, nil
}

// TopEvents ranks event types by count over a date range
func (s *Service) TopEvents(ctx context.Context, from, to time.Time, limit int) (*TopEventsReport, error) {
	key := cache.KeyTopEvents(from, to, limit)
	var report TopEventsReport
	if s.fromCache(ctx, "top_events", key, &report) {
		return &report, nil
	}

	counts, err := s.store.TopEventTypes(ctx, from, to, limit)
	if err != nil {
		return nil, err
	}

	report = TopEventsReport{
		From:    from.Format(dateLayout),
		To:      to.Format(dateLayout),
		Entries: toTopEventEntries(counts),
	}

	s.toCache(ctx, key, &report)
	return &report, nil
}

// Retention returns a cohort's retention curve over a window of day offsets.
// A cohort with no members yields an empty curve rather than an error.
func (s *Service) Retention(ctx context.Context, cohortDate time.Time, windows int) (*RetentionCurve, error) {
	key := cache.KeyRetention(cohortDate, windows)
	var curve RetentionCurve
	if s.fromCache(ctx, "retention", key, &curve) {
		return &curve, nil
	}

	total, err := s.store.CohortSize(ctx, cohortDate)
	if err != nil {
		return nil, err
	}
	curve = RetentionCurve{
		CohortStartDate: cohortDate.Format(dateLayout),
		Windows:         []RetentionWindow{},
	}
	if total == 0 {
		return &curve, nil
	}
	curve.TotalCohortUsers = total

	counts, err := s.store.RetentionCounts(ctx, cohortDate, windows)
	if err != nil {
		return nil, err
	}
	retained := make(map[int]int64, len(counts))
	for _, c := range counts {
		retained[c.RetentionDay] = c.RetainedUsers
	}
	// One window per day offset, zero-filled, so the curve is always dense
	for day := 0; day <= windows; day++ {
		curve.Windows = append(curve.Windows, RetentionWindow{
			DayOffset:        day,
			ActivityDate:     cohortDate.AddDate(0, 0, day).Format(dateLayout),
			RetainedCount:    retained[day],
			RetentionPercent: percent(retained[day], total),
		})
	}

	s.toCache(ctx, key, &curve)
	return &curve, nil
}

// UserRetention returns a single user's retention history. A user with no
// recorded activity yields a zeroed report.
func (s *Service) UserRetention(ctx context.Context, userID string) (*UserRetentionReport, error) {
	key := cache.KeyUserRetention(userID)
	var report UserRetentionReport
	if s.fromCache(ctx, "user_retention", key, &report) {
		return &report, nil
	}

	rows, err := s.store.UserRetentionRows(ctx, userID)
	if err != nil {
		return nil, err
	}
	report = UserRetentionReport{
		UserID:        userID,
		DailyActivity: []UserActivityDay{},
	}
	if len(rows) == 0 {
		return &report, nil
	}

	report.CohortDate = rows[0].CohortDate.Format(dateLayout)
	report.ActiveDays = len(rows)
	for _, row := range rows {
		if row.RetentionDay+1 > report.TotalDaysTracked {
			report.TotalDaysTracked = row.RetentionDay + 1
		}
		report.DailyActivity = append(report.DailyActivity, UserActivityDay{
			ActivityDate: row.ActivityDate.Format(dateLayout),
			RetentionDay: row.RetentionDay,
		})
	}
	report.RetentionPercent = percent(int64(report.ActiveDays), int64(report.TotalDaysTracked))

	s.toCache(ctx, key, &report)
	return &report, nil
}

// Cohorts returns the most recent cohorts with their day-zero populations
func (s *Service) Cohorts(ctx context.Context, limit int) ([]CohortEntry, error) {
	key := cache.KeyCohorts(limit)
	var entries []CohortEntry
	if s.fromCache(ctx, "cohorts", key, &entries) {
		return entries, nil
	}

	summaries, err := s.store.CohortList(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries = make([]CohortEntry, 0, len(summaries))
	for _, c := range summaries {
		entries = append(entries, CohortEntry{
			CohortDate: c.CohortDate.Format(dateLayout),
			TotalUsers: c.TotalUsers,
		})
	}

	s.toCache(ctx, key, &entries)
	return entries, nil
}

// UserStats aggregates a single user's event history
func (s *Service) UserStats(ctx context.Context, userID string) (*UserStatsReport, error) {
	key := cache.KeyUserStats(userID)
	var report UserStatsReport
	if s.fromCache(ctx, "user_stats", key, &report) {
		return &report, nil
	}

	stats, err := s.store.UserEventStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	report = UserStatsReport{
		UserID:       userID,
		TotalEvents:  stats.TotalEvents,
		EventsByType: stats.EventsByType,
		FirstEventAt: stats.FirstEventAt,
		LastEventAt:  stats.LastEventAt,
		ActiveDays:   stats.ActiveDays,
	}
	if stats.FirstCohort != nil {
		report.CohortDate = stats.FirstCohort.Format(dateLayout)
	}

	s.toCache(ctx, key, &report)
	return &report, nil
}

// IngestionMetrics summarizes store-wide ingestion totals
func (s *Service) IngestionMetrics(ctx context.Context) (*IngestionReport, error) {
	key := cache.KeyIngestionMetrics()
	var report IngestionReport
	if s.fromCache(ctx, "ingestion_metrics", key, &report) {
		return &report, nil
	}

	now := time.Now().UTC()
	m, err := s.store.IngestionMetrics(ctx, now)
	if err != nil {
		return nil, err
	}
	report = IngestionReport{
		TotalEvents:      m.TotalEvents,
		EventsToday:      m.EventsToday,
		EventsByType:     toTopEventEntries(m.EventsByType),
		TotalUsers:       m.TotalUsers,
		ActiveUsersToday: m.ActiveUsersToday,
		CohortCount:      m.CohortCount,
		RetentionRows:    m.RetentionRows,
		GeneratedAt:      now,
	}

	s.toCache(ctx, key, &report)
	return &report, nil
}

// fromCache attempts a cache read, reporting hits and misses per query name.
// Cache errors count as misses.
func (s *Service) fromCache(ctx context.Context, query, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		logger.WarnCtx(ctx, "cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if hit {
		metrics.CacheHits.WithLabelValues(query).Inc()
		return true
	}
	metrics.CacheMisses.WithLabelValues(query).Inc()
	return false
}

func (s *Service) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		logger.WarnCtx(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func toTopEventEntries(counts []store.EventTypeCount) []TopEventEntry {
	entries := make([]TopEventEntry, 0, len(counts))
	for _, c := range counts {
		entries = append(entries, TopEventEntry{EventType: c.EventType, Count: c.Count})
	}
	return entries
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}
