package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectPostgres поднимает пул и дожидается ответа базы с экспоненциальным бэкоффом.
// Ошибка здесь фатальна для процесса: вызывающий завершает работу.
func ConnectPostgres(ctx context.Context, cfg DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	pcfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	attempt := 0
	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(max(cfg.ConnectRetries, 1)),
		retry.DelayType(retry.BackOffDelay),
	).Do(func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			logger.Warn("postgres not ready", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: unreachable: %w", err)
	}

	return pool, nil
}

// ConnectRedis: Redis не критичен (кэш и блокировки), поэтому недоступность только логируется.
func ConnectRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
	).Do(func() error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		logger.Warn("redis unreachable, continuing without cache", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return rdb
}
