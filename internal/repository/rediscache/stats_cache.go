package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"go.uber.org/zap"
)

// StatsCache кэширует сводку журнала. Любой сбой Redis означает промах:
// сервис идет в Postgres, а предохранитель перестает дергать Redis, пока тот лежит.
type StatsCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	cb      *gobreaker.CircuitBreaker
	metrics *infra.Metrics
	logger  *zap.Logger
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration, metrics *infra.Metrics, logger *zap.Logger) *StatsCache {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	c := &StatsCache{
		rdb:     rdb,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.Named("stats-cache"),
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-stats-cache",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Промах кэша — не сбой
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := 0.0
			if to == gobreaker.StateOpen {
				state = 1
			}
			c.metrics.CacheBreakerState.Set(state)
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c
}

func (c *StatsCache) Get(ctx context.Context) (*domain.Statistics, bool) {
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.rdb.Get(ctx, infra.RedisKeyAuditStats).Bytes()
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("stats cache miss", zap.Error(err))
		}
		return nil, false
	}

	var s domain.Statistics
	if err := json.Unmarshal(res.([]byte), &s); err != nil {
		c.logger.Warn("corrupted stats cache entry", zap.Error(err))
		return nil, false
	}
	return &s, true
}

func (c *StatsCache) Set(ctx context.Context, s *domain.Statistics) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Set(ctx, infra.RedisKeyAuditStats, data, c.ttl).Err()
	})
	if err != nil {
		c.logger.Debug("stats cache set failed", zap.Error(err))
	}
}

// Invalidate вызывается после новой пачки событий и после любого изменения tombstone,
// иначе счетчики отстают от журнала до истечения TTL.
func (c *StatsCache) Invalidate(ctx context.Context) {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.rdb.Del(ctx, infra.RedisKeyAuditStats).Err()
	})
	if err != nil {
		c.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
