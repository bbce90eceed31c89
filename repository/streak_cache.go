package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

// RedisStreakCache keeps rendered streak views in Redis.
// With Redis disabled every call is a miss.
type RedisStreakCache struct {
	ttl time.Duration
}

// NewRedisStreakCache creates a cache whose entries live for ttl.
func NewRedisStreakCache(ttl time.Duration) *RedisStreakCache {
	return &RedisStreakCache{ttl: ttl}
}

var _ services.StreakCache = (*RedisStreakCache)(nil)

func streakKey(userID uint) string {
	return fmt.Sprintf("cache:streak:%d", userID)
}

func (c *RedisStreakCache) Get(ctx context.Context, userID uint) (services.StreakView, bool) {
	var view services.StreakView
	if !utils.CacheGetJSON(ctx, streakKey(userID), &view) {
		return services.StreakView{}, false
	}
	return view, true
}

func (c *RedisStreakCache) Set(ctx context.Context, userID uint, view services.StreakView) error {
	return utils.CacheSetJSON(ctx, streakKey(userID), view, c.ttl)
}

func (c *RedisStreakCache) Invalidate(ctx context.Context, userID uint) error {
	return utils.CacheDelete(ctx, streakKey(userID))
}
