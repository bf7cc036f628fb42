package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/promulher-api/internal/audit"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"github.com/xela07ax/promulher-api/internal/infra/auth"
	"go.uber.org/zap"
)

// instrument пишет access-лог и метрики запроса. Метка route — шаблон chi,
// чтобы id в путях не раздували кардинальность.
func (s *APIServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		s.metrics.TotalRequests.WithLabelValues(r.Method, route).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("trace_id", infra.TraceID(r.Context())),
		)
	})
}

// recoverer превращает панику обработчика в 500 и событие ERROR в журнале.
func (s *APIServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			msg := fmt.Sprint(rec)
			s.logger.Error("panic recovered",
				zap.String("path", r.URL.Path),
				zap.String("panic", msg),
				zap.Stack("stack"),
			)

			s.auditor.Log(audit.Failure(
				domain.ActorFromContext(r.Context()),
				domain.RequestInfo{Method: r.Method, URL: r.URL.RequestURI(), Path: r.URL.Path},
				msg,
				auth.ClientIP(r),
				r.UserAgent(),
			))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"message":"Erro interno do servidor"}`))
		}()
		next.ServeHTTP(w, r)
	})
}
