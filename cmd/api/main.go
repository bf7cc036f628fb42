package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/promulher-api/internal/audit"
	"github.com/xela07ax/promulher-api/internal/console/handler"
	"github.com/xela07ax/promulher-api/internal/console/server"
	"github.com/xela07ax/promulher-api/internal/console/service"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"github.com/xela07ax/promulher-api/internal/infra/auth"
	"github.com/xela07ax/promulher-api/internal/repository/postgres"
	"github.com/xela07ax/promulher-api/internal/repository/rediscache"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла: SIGINT/SIGTERM отменяют фоновые горутины
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Инфраструктура. Пул Postgres создается один раз, без него сервис не стартует
	pool, err := infra.ConnectPostgres(appCtx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(appCtx, pool); err != nil {
		logger.Fatal("schema migration failed", zap.Error(err))
	}

	rdb := infra.ConnectRedis(appCtx, cfg.Redis, logger)
	defer rdb.Close()

	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("auth public key", zap.Error(err))
	}
	privKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("auth private key", zap.Error(err))
	}

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)

	// 3. Журнал аудита: асинхронная запись пачками
	auditRepo := postgres.NewAuditRepo(pool)
	statsCache := rediscache.NewStatsCache(rdb, cfg.Redis.StatsTTL, metrics, logger)
	recorder := audit.NewRecorder(auditRepo, audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		Invalidator:   statsCache,
	}, metrics, logger)
	recorder.Start()

	recorder.Log(audit.System(domain.ActionStartup, domain.Details{
		Description: "Servidor iniciado",
		Extra: map[string]any{
			"addr":    cfg.Server.Addr(),
			"version": version,
		},
	}))

	capture := audit.NewCapture(recorder, audit.CaptureOptions{
		ExcludePaths:    cfg.Audit.ExcludePaths,
		ExcludeMethods:  cfg.Audit.ExcludeMethods,
		IncludeBody:     cfg.Audit.IncludeBody,
		IncludeQuery:    cfg.Audit.IncludeQuery,
		SensitiveFields: cfg.Audit.SensitiveFields,
	}, logger)

	// 4. Сервисы (Dependency Injection)
	auditService := service.NewAuditService(auditRepo, statsCache, metrics, logger)

	userRepo := postgres.NewUserRepo(pool)
	signer := auth.NewSigner(privKey, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(userRepo, signer, recorder, logger)
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost, cfg.Auth.AllowPrivilegedSignup, logger)

	questionnaireService := service.NewQuestionnaireService(postgres.NewQuestionnaireRepo(pool), logger)
	reportService := service.NewReportService(postgres.NewReportRepo(pool))

	loginLimiter := auth.NewIPLimiter(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst)
	go loginLimiter.Cleanup(appCtx.Done())

	// 5. HTTP
	api := server.NewAPIServer(
		logger,
		metrics,
		auth.NewBaseValidator(pubKey),
		loginLimiter,
		capture,
		recorder,
		pool,
		server.Handlers{
			Auth:      handler.NewAuthHandler(authService, logger),
			Users:     handler.NewUserHandler(userService, logger),
			Audit:     handler.NewAuditHandler(auditService, logger),
			Reports:   handler.NewReportHandler(reportService, logger),
			Victims:   handler.NewQuestionnaireHandler(questionnaireService, domain.KindVictim, logger),
			Authors:   handler.NewQuestionnaireHandler(questionnaireService, domain.KindAuthor, logger),
			ProMulher: handler.NewQuestionnaireHandler(questionnaireService, domain.KindPromulher, logger),
			Protege:   handler.NewQuestionnaireHandler(questionnaireService, domain.KindProtege, logger),
		},
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Экспортируем метрики для Prometheus
	metricsSrv := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// gRPC health: статус SERVING, пока отвечает Postgres
	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	go infra.RunHealthProbe(appCtx, healthSrv, pool, 0, logger)

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.HealthAddr)
		if err != nil {
			logger.Error("failed to listen gRPC health", zap.String("addr", cfg.GRPC.HealthAddr), zap.Error(err))
			return
		}
		logger.Info("gRPC health server started", zap.String("addr", cfg.GRPC.HealthAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("gRPC health server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// 6. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("API stopping...")

	recorder.Log(audit.System(domain.ActionShutdown, domain.Details{
		Description: "Servidor encerrado",
	}))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()

	// Последним: дописываем журнал, включая SHUTDOWN и события последних запросов
	recorder.Stop()
	logger.Info("API exited properly")
}
