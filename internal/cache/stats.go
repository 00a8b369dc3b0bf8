// Package cache хранит вычисленную статистику в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/256dpi/xo"
	"github.com/redis/go-redis/v9"

	"github.com/UkralStul/blog-service/internal/domain"
)

const statsKey = "blog:stats"

// StatsCache - кэш статистики с коротким TTL.
type StatsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewStatsCache подключается к Redis и проверяет соединение.
func NewStatsCache(ctx context.Context, addr string, ttl time.Duration) (*StatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, xo.WF(err, "error connecting to redis")
	}

	return NewStatsCacheWithClient(client, ttl), nil
}

// NewStatsCacheWithClient использует готовый клиент.
func NewStatsCacheWithClient(client redis.UniversalClient, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get возвращает статистику из кэша. Промах - (nil, nil).
func (c *StatsCache) Get(ctx context.Context) (*domain.Stats, error) {
	value, err := c.client.Get(ctx, statsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, xo.W(err)
	}

	var stats domain.Stats
	if err := json.Unmarshal(value, &stats); err != nil {
		return nil, xo.W(err)
	}
	return &stats, nil
}

// Set сохраняет статистику на время TTL.
func (c *StatsCache) Set(ctx context.Context, stats *domain.Stats) error {
	value, err := json.Marshal(stats)
	if err != nil {
		return xo.W(err)
	}
	if err := c.client.Set(ctx, statsKey, value, c.ttl).Err(); err != nil {
		return xo.W(err)
	}
	return nil
}

// Invalidate сбрасывает кэш.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		return xo.W(err)
	}
	return nil
}

// Close закрывает клиент.
func (c *StatsCache) Close() error {
	return c.client.Close()
}
