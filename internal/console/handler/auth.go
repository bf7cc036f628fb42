package handler

import (
	"context"
	"net/http"

	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra/auth"
	"go.uber.org/zap"
)

type AuthService interface {
	Login(ctx context.Context, req domain.LoginRequest, ip, userAgent string) (*domain.TokenResponse, error)
}

type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

func NewAuthHandler(s AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, logger: logger.Named("auth-handler")}
}

// Login — POST /login {email, senha}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.service.Login(r.Context(), req, auth.ClientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
