package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/promulher-api/internal/console/service"
	"github.com/xela07ax/promulher-api/internal/infra"
	"github.com/xela07ax/promulher-api/internal/repository/postgres"
	"github.com/xela07ax/promulher-api/internal/repository/rediscache"
)

// Ретеншн-джоб: физически удаляет мягко удаленные события старше retention.days.
// Запускается рядом с API в любом количестве копий, чистит только держатель блокировки.
func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("retention")

	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.ConnectPostgres(appCtx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer pool.Close()

	rdb := infra.ConnectRedis(appCtx, cfg.Redis, logger)
	defer rdb.Close()

	metrics := infra.NewMetrics(nil)
	statsCache := rediscache.NewStatsCache(rdb, cfg.Redis.StatsTTL, metrics, logger)
	auditService := service.NewAuditService(postgres.NewAuditRepo(pool), statsCache, metrics, logger)
	lock := rediscache.NewLock(rdb, infra.RedisKeyRetentionLock, cfg.Retention.LockTTL)

	sweep := func() {
		ok, err := lock.Acquire(appCtx)
		if err != nil {
			logger.Warn("retention lock unavailable, skipping sweep", zap.Error(err))
			return
		}
		if !ok {
			logger.Debug("another instance holds the retention lock")
			return
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("failed to release retention lock", zap.Error(err))
			}
		}()

		ctx, cancel := context.WithTimeout(appCtx, cfg.Retention.LockTTL)
		defer cancel()
		if _, err := auditService.PurgeOlderThan(ctx, cfg.Retention.Days); err != nil {
			logger.Error("retention sweep failed", zap.Error(err))
		}
	}

	interval := cfg.Retention.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	logger.Info("retention job started", zap.Int("days", cfg.Retention.Days), zap.Duration("interval", interval))

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-appCtx.Done():
			logger.Info("retention job stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
