package pools

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the cache subsystem backed by Redis. Invalidation walks the
// keyspace with SCAN rather than KEYS so it never blocks the server.
type RedisCache struct {
	client    *redis.Client
	scanBatch int64
}

func NewRedisCache(client *redis.Client, scanBatch int64) *RedisCache {
	if scanBatch <= 0 {
		scanBatch = 500
	}
	return &RedisCache{client: client, scanBatch: scanBatch}
}

func (c *RedisCache) Stats(ctx context.Context) (CacheStats, error) {
	info, err := c.client.Info(ctx, "stats").Result()
	if err != nil {
		return CacheStats{}, fmt.Errorf("redis info: %w", err)
	}

	stats := CacheStats{HitRatePercent: parseHitRate(info)}

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return stats, fmt.Errorf("redis dbsize: %w", err)
	}
	stats.Keys = size
	return stats, nil
}

func (c *RedisCache) Invalidate(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		pattern = "*"
	}

	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, c.scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// parseHitRate extracts keyspace_hits and keyspace_misses from an INFO
// payload. With no lookups yet the hit rate is 100.
func parseHitRate(info string) float64 {
	var hits, misses float64
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), ":")
		if !ok {
			continue
		}
		switch key {
		case "keyspace_hits":
			hits, _ = strconv.ParseFloat(value, 64)
		case "keyspace_misses":
			misses, _ = strconv.ParseFloat(value, 64)
		}
	}

	if hits+misses == 0 {
		return 100
	}
	return hits / (hits + misses) * 100
}
