package cache

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysAreDeterministic(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "analytics:dau:2024-03-01:2024-03-31", KeyDAU(from, to))
	assert.Equal(t, "analytics:top_events:2024-03-01:2024-03-31:10", KeyTopEvents(from, to, 10))
	assert.Equal(t, "analytics:retention:2024-03-01:30", KeyRetention(from, 30))
	assert.Equal(t, "analytics:cohorts:30", KeyCohorts(30))
	assert.Equal(t, "analytics:ingestion_metrics", KeyIngestionMetrics())
	assert.Equal(t, "user:u1:retention", KeyUserRetention("u1"))
	assert.Equal(t, "user:u1:stats", KeyUserStats("u1"))
}

func TestPatternsCoverTheirKeys(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	aggregateKeys := []string{
		KeyDAU(from, from),
		KeyTopEvents(from, from, 10),
		KeyRetention(from, 30),
		KeyCohorts(30),
		KeyIngestionMetrics(),
	}
	for _, key := range aggregateKeys {
		matched, err := path.Match(PatternAggregates(), key)
		require.NoError(t, err)
		assert.True(t, matched, "aggregate pattern must cover %s", key)
	}

	userKeys := []string{KeyUserRetention("u1"), KeyUserStats("u1")}
	for _, key := range userKeys {
		matched, err := path.Match(PatternUser("u1"), key)
		require.NoError(t, err)
		assert.True(t, matched, "user pattern must cover %s", key)

		matched, err = path.Match(PatternUser("u2"), key)
		require.NoError(t, err)
		assert.False(t, matched, "another user's pattern must not cover %s", key)
	}
}

type recordingCache struct {
	Cache
	patterns []string
	err      error
}

func (r *recordingCache) DeletePattern(_ context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return r.err
}

func TestInvalidateUsers(t *testing.T) {
	rec := &recordingCache{}
	inv := NewInvalidator(rec)

	inv.InvalidateUsers(context.Background(), []string{"u1", "u2"})

	assert.Equal(t, []string{
		PatternUser("u1"),
		PatternUser("u2"),
		PatternAggregates(),
	}, rec.patterns)
}

func TestInvalidateSwallowsCacheErrors(t *testing.T) {
	rec := &recordingCache{err: errors.New("connection refused")}
	inv := NewInvalidator(rec)

	// Must not panic or propagate; every pattern is still attempted
	inv.InvalidateUsers(context.Background(), []string{"u1"})
	assert.Len(t, rec.patterns, 2)
}

func TestDisconnectedClientIsNoOp(t *testing.T) {
	c := NewClient(Config{Addr: "localhost:0"})

	var dest map[string]interface{}
	hit, err := c.Get(context.Background(), "analytics:cohorts:30", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, c.Delete(context.Background(), "k"))
	assert.NoError(t, c.DeletePattern(context.Background(), "analytics:*"))
	assert.False(t, c.Connected())
}
