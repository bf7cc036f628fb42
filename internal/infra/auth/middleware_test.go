package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

type MockValidator struct {
	Claims *domain.CustomClaims
	Err    error
}

func (m *MockValidator) VerifyToken(string) (*domain.CustomClaims, error) {
	return m.Claims, m.Err
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  *MockValidator
		wantStatus int
	}{
		{"no header", "", &MockValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer x", &MockValidator{Err: errors.New("bad sig")}, http.StatusUnauthorized},
		{"missing user id", "Bearer x", &MockValidator{Claims: &domain.CustomClaims{Role: domain.RoleAdmin}}, http.StatusUnauthorized},
		{"ok", "Bearer x", &MockValidator{Claims: &domain.CustomClaims{UserID: "u-1", Name: "Ana", Role: domain.RoleAdmin}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actor *domain.Actor
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor = domain.ActorFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/logs", nil)
			req.RemoteAddr = "203.0.113.7:5555"
			req.Header.Set("User-Agent", "curl/8")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			NewMiddleware(tt.validator, zap.NewNop())(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				if actor != nil {
					t.Error("handler must not run")
				}
				return
			}
			if actor == nil || actor.ID != "u-1" || actor.Role != domain.RoleAdmin {
				t.Fatalf("actor = %+v", actor)
			}
			if actor.IP != "203.0.113.7" || actor.UserAgent != "curl/8" {
				t.Errorf("request metadata = %s / %s", actor.IP, actor.UserAgent)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.2:443"
	if got := ClientIP(r); got != "198.51.100.2" {
		t.Errorf("got %q", got)
	}
	// после RealIP порт может отсутствовать
	r.RemoteAddr = "198.51.100.3"
	if got := ClientIP(r); got != "198.51.100.3" {
		t.Errorf("got %q", got)
	}
}
