package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/eventfold/analytics/internal/logger"
)

// Invalidator deletes cache entries whose results may be stale after a
// successful ingestion. It owns no state of its own; every call is best
// effort, and a cache failure is logged and swallowed so it can never fail
// the ingestion that triggered it.
type Invalidator struct {
	cache Cache
}

// NewInvalidator creates an invalidator over the given cache
func NewInvalidator(c Cache) *Invalidator {
	return &Invalidator{cache: c}
}

// InvalidateUsers deletes per-user entries for each affected user plus the
// global aggregate entries, since any new event changes both
func (i *Invalidator) InvalidateUsers(ctx context.Context, userIDs []string) {
	for _, id := range userIDs {
		if err := i.cache.DeletePattern(ctx, PatternUser(id)); err != nil {
			logger.WarnCtx(ctx, "cache invalidation failed",
				zap.String("user_id", id),
				zap.Error(err),
			)
		}
	}
	i.InvalidateAggregates(ctx)
}

// InvalidateAggregates deletes every global aggregate entry
func (i *Invalidator) InvalidateAggregates(ctx context.Context) {
	if err := i.cache.DeletePattern(ctx, PatternAggregates()); err != nil {
		logger.WarnCtx(ctx, "aggregate cache invalidation failed", zap.Error(err))
	}
}
