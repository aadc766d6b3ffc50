// Package cache holds computed tracker series between refreshes, in process
// memory or in a shared redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/energimultiguna/cngops/pkg/models"
)

// MemoryTrackerCache keeps series in process memory
type MemoryTrackerCache struct {
	series *expiring[string, *models.TrackerSeries]
}

// NewMemoryTrackerCache creates an in-memory tracker cache whose series lapse
// ttl after they were computed
func NewMemoryTrackerCache(ttl time.Duration) *MemoryTrackerCache {
	return &MemoryTrackerCache{series: newExpiring[string, *models.TrackerSeries](ttl)}
}

func (c *MemoryTrackerCache) Get(_ context.Context, plate string) (*models.TrackerSeries, bool) {
	return c.series.get(plate)
}

func (c *MemoryTrackerCache) Set(_ context.Context, plate string, series *models.TrackerSeries) {
	c.series.put(plate, series)
}

func (c *MemoryTrackerCache) Invalidate(_ context.Context, plate string) {
	c.series.drop(plate)
}

// RedisTrackerCache shares series between processes. Redis failures are
// logged and treated as misses so the tracker still computes from storage.
type RedisTrackerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTrackerCache returns a redis-backed tracker cache
func NewRedisTrackerCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTrackerCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTrackerCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisTrackerCache) key(plate string) string {
	return fmt.Sprintf("tracker:%s", plate)
}

func (c *RedisTrackerCache) Get(ctx context.Context, plate string) (*models.TrackerSeries, bool) {
	data, err := c.client.Get(ctx, c.key(plate)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("tracker cache read failed", zap.String("plate", plate), zap.Error(err))
		return nil, false
	}
	var series models.TrackerSeries
	if err := json.Unmarshal(data, &series); err != nil {
		c.logger.Warn("tracker cache entry corrupt", zap.String("plate", plate), zap.Error(err))
		return nil, false
	}
	return &series, true
}

func (c *RedisTrackerCache) Set(ctx context.Context, plate string, series *models.TrackerSeries) {
	data, err := json.Marshal(series)
	if err != nil {
		c.logger.Warn("encoding tracker series", zap.String("plate", plate), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(plate), data, c.ttl).Err(); err != nil {
		c.logger.Warn("tracker cache write failed", zap.String("plate", plate), zap.Error(err))
	}
}

func (c *RedisTrackerCache) Invalidate(ctx context.Context, plate string) {
	if err := c.client.Del(ctx, c.key(plate)).Err(); err != nil {
		c.logger.Warn("tracker cache delete failed", zap.String("plate", plate), zap.Error(err))
	}
}
