package rest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

const (
	defaultRangeDays = 30
	defaultTopLimit  = 10
	maxTopLimit      = 100
	defaultWindows   = 30
	maxWindows       = 365
	defaultCohorts   = 30
	maxCohorts       = 365
)

// DateRangeQuery holds a parsed from/to date range
type DateRangeQuery struct {
	From time.Time
	To   time.Time
}

// ParseDateRangeQuery parses the from_date and to_date query parameters.
// When absent, the range defaults to the last 30 days.
func ParseDateRangeQuery(c *gin.Context) (*DateRangeQuery, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	q := &DateRangeQuery{
		From: now.AddDate(0, 0, -defaultRangeDays),
		To:   now,
	}

	if raw := c.Query("from_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid from_date %q, expected YYYY-MM-DD", raw)
		}
		q.From = parsed
	}
	if raw := c.Query("to_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid to_date %q, expected YYYY-MM-DD", raw)
		}
		q.To = parsed
	}

	if q.To.Before(q.From) {
		return nil, fmt.Errorf("to_date must not precede from_date")
	}
	return q, nil
}

// ParseDateQuery parses a single required date query parameter
func ParseDateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return parsed, nil
}

// ParseBoundedIntQuery parses an integer query parameter clamped to [1, max]
func ParseBoundedIntQuery(c *gin.Context, name string, fallback, max int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s %q, expected a positive integer", name, raw)
	}
	if value > max {
		value = max
	}
	return value, nil
}

// ParseBoolQuery parses an optional boolean query parameter
func ParseBoolQuery(c *gin.Context, name string, fallback bool) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q, expected a boolean", name, raw)
	}
	return value, nil
}
