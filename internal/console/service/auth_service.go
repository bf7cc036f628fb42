package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/promulher-api/internal/audit"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const msgInvalidCredentials = "Credenciais inválidas"

// Причины неудачного входа, попадают в details.reason события LOGIN_FAILED.
const (
	reasonUserNotFound    = "user_not_found"
	reasonInvalidPassword = "invalid_password"
)

type AuthProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type TokenSigner interface {
	Sign(u *domain.User, role domain.Role) (string, error)
}

type AuthService struct {
	repo    AuthProvider
	signer  TokenSigner
	auditor audit.Auditor
	logger  *zap.Logger
}

func NewAuthService(repo AuthProvider, signer TokenSigner, auditor audit.Auditor, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:    repo,
		signer:  signer,
		auditor: auditor,
		logger:  logger.With(zap.String("mod", "auth-service")),
	}
}

// Login проверяет email/senha и выпускает токен. Каждая попытка попадает в журнал.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest, ip, userAgent string) (*domain.TokenResponse, error) {
	if err := infra.ValidateStruct(req); err != nil {
		return nil, err
	}

	// 1. Аутентификация (источник правды — Postgres)
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service: failed to load user: %w: %w", domain.ErrPersistence, err)
	}
	if user == nil {
		s.auditor.Log(audit.LoginFailed(req.Email, reasonUserNotFound, ip, userAgent))
		return nil, domain.NewUnauthorized(msgInvalidCredentials)
	}

	// 2. Проверка пароля. Не уточняем клиенту, что именно неверно
	if err := bcrypt.CompareHashAndPassword([]byte(user.Senha), []byte(req.Senha)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("stored password hash is unusable", zap.String("user_id", user.ID), zap.Error(err))
		}
		s.auditor.Log(audit.LoginFailed(req.Email, reasonInvalidPassword, ip, userAgent))
		return nil, domain.NewUnauthorized(msgInvalidCredentials)
	}

	// 3. Все, кроме admin/superadmin, получают роль user
	role := NormalizeRole(user.Role)

	token, err := s.signer.Sign(user, role)
	if err != nil {
		return nil, fmt.Errorf("auth_service: %w", err)
	}

	s.auditor.Log(audit.LoginSucceeded(domain.Actor{
		ID:        user.ID,
		Name:      user.Nome,
		Role:      role,
		IP:        ip,
		UserAgent: userAgent,
	}))

	return &domain.TokenResponse{Message: "Login bem-sucedido", Token: token}, nil
}

func NormalizeRole(r domain.Role) domain.Role {
	if r == domain.RoleSuperAdmin || r == domain.RoleAdmin {
		return r
	}
	return domain.RoleUser
}
