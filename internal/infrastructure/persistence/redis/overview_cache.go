package redis

import (
	"context"
	"errors"

	"github.com/ivnmtz09/yonna-akademia/internal/application/query"
)

// OverviewCache stores StatsOverviewDTOs for TTLOverview. Entries are also
// dropped by the event cascade whenever a user's figures change.
type OverviewCache struct {
	cache *Cache
}

// NewOverviewCache creates the overview cache.
func NewOverviewCache(cache *Cache) *OverviewCache {
	return &OverviewCache{cache: cache}
}

// OverviewKey returns the cache key for a user's overview.
func OverviewKey(userID string) string {
	return PrefixOverview + userID
}

// GetOverview returns the cached overview. A miss is not an error.
func (o *OverviewCache) GetOverview(ctx context.Context, userID string) (*query.StatsOverviewDTO, bool, error) {
	var dto query.StatsOverviewDTO
	err := o.cache.Get(ctx, OverviewKey(userID), &dto)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &dto, true, nil
}

// SetOverview caches dto.
func (o *OverviewCache) SetOverview(ctx context.Context, userID string, dto *query.StatsOverviewDTO) error {
	if dto == nil {
		return ErrCacheNilValue
	}
	return o.cache.Set(ctx, OverviewKey(userID), dto, TTLOverview)
}

// InvalidateOverview drops the cached overview.
func (o *OverviewCache) InvalidateOverview(ctx context.Context, userID string) error {
	return o.cache.Delete(ctx, OverviewKey(userID))
}
