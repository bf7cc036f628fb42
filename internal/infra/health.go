package infra

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger — зависимость, готовность которой отражает health-сервис.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunHealthProbe периодически пингует зависимость и переключает статус gRPC health.
// Пустое имя сервиса — общий статус процесса.
func RunHealthProbe(ctx context.Context, hs *health.Server, p Pinger, interval time.Duration, logger *zap.Logger) {
	logger = logger.With(zap.String("mod", "health-probe"))
	if interval <= 0 {
		interval = 10 * time.Second
	}

	last := healthpb.HealthCheckResponse_UNKNOWN
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err := p.Ping(pingCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			if last != status {
				logger.Warn("dependency is not ready", zap.Error(err))
			}
		}
		if last != status {
			hs.SetServingStatus("", status)
			logger.Info("health status changed", zap.String("status", status.String()))
			last = status
		}
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
