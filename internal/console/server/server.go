package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/promulher-api/internal/audit"
	"github.com/xela07ax/promulher-api/internal/console/handler"
	"github.com/xela07ax/promulher-api/internal/infra"
	"github.com/xela07ax/promulher-api/internal/infra/auth"
	"go.uber.org/zap"
)

// HealthChecker — проверка готовности зависимостей для /health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handlers — обработчики бизнес-доменов.
type Handlers struct {
	Auth    *handler.AuthHandler   // /login
	Users   *handler.UserHandler   // /createUser, /users
	Audit   *handler.AuditHandler  // /logs
	Reports *handler.ReportHandler // /reports

	Victims   *handler.QuestionnaireHandler // /vquestionnaires
	Authors   *handler.QuestionnaireHandler // /questionnaires
	ProMulher *handler.QuestionnaireHandler // /promulher
	Protege   *handler.QuestionnaireHandler // /protege-mulher
}

type APIServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	metrics *infra.Metrics

	// Проверка токенов (RS256)
	authValidator auth.TokenValidator
	loginLimiter  *auth.IPLimiter

	// Пассивный захват и явные события (ERROR из recoverer)
	capture *audit.Capture
	auditor audit.Auditor

	health   HealthChecker
	handlers Handlers
}

// NewAPIServer собирает роутер со всеми зависимостями.
func NewAPIServer(
	logger *zap.Logger,
	metrics *infra.Metrics,
	validator auth.TokenValidator,
	loginLimiter *auth.IPLimiter,
	capture *audit.Capture,
	auditor audit.Auditor,
	health HealthChecker,
	h Handlers,
) *APIServer {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	s := &APIServer{
		router:        chi.NewRouter(),
		logger:        logger.Named("api"),
		metrics:       metrics,
		authValidator: validator,
		loginLimiter:  loginLimiter,
		capture:       capture,
		auditor:       auditor,
		health:        health,
		handlers:      h,
	}

	s.routes()
	return s
}

func (s *APIServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(infra.TracingMiddleware)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(s.recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/health", s.healthz)

		// Логин доступен без токена, но с ограничением частоты по IP
		r.With(s.loginLimiter.Middleware).Post("/login", s.handlers.Auth.Login)
		r.Post("/createUser", s.handlers.Users.Create)
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		// Захват идет после auth: без Actor событие не пишется
		r.Use(s.capture.Middleware)
		// Паника внутри периметра подписывается пользователем, а не системой
		r.Use(s.recoverer)

		r.Mount("/users", s.handlers.Users.Routes())
		r.Mount("/logs", s.handlers.Audit.Routes())
		r.Mount("/reports", s.handlers.Reports.Routes())

		r.Mount("/vquestionnaires", s.handlers.Victims.Routes())
		r.Mount("/questionnaires", s.handlers.Authors.Routes())
		r.Mount("/promulher", s.handlers.ProMulher.Routes())
		r.Mount("/protege-mulher", s.handlers.Protege.Routes())
	})
}

func (s *APIServer) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ServeHTTP позволяет использовать APIServer как стандартный http.Handler
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
