package auth

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — проверка подписи и срока действия токена
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// NewMiddleware проверяет Bearer-токен и кладет Actor в контекст запроса.
// Захват аудита ниже по цепочке опирается только на этот Actor.
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Token de autenticação não fornecido")
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.String("path", r.URL.Path), zap.Error(err))
				unauthorized(w, "Falha na autenticação")
				return
			}
			if claims.UserID == "" {
				unauthorized(w, "Token malformado ou ausente de userId")
				return
			}

			actor := &domain.Actor{
				ID:        claims.UserID,
				Name:      claims.Name,
				Role:      claims.Role,
				IP:        ClientIP(r),
				UserAgent: r.UserAgent(),
			}

			next.ServeHTTP(w, r.WithContext(domain.WithActor(r.Context(), actor)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}

// ClientIP: RealIP из chi уже переписал RemoteAddr, отрезаем только порт.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
