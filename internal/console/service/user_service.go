package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgUserNotFound = "Usuário não encontrado"
	msgUserExists   = "Usuário já existe!"
	msgAccessDenied = "Acesso negado"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) (bool, error)
	DeleteUser(ctx context.Context, id string) (bool, error)
}

type UserService struct {
	repo       UserRepository
	bcryptCost int
	logger     *zap.Logger

	// Регистрация публичная (без токена). При false через нее можно завести только user.
	allowPrivilegedSignup bool
}

func NewUserService(repo UserRepository, bcryptCost int, allowPrivilegedSignup bool, logger *zap.Logger) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger.With(zap.String("mod", "user-service")),

		allowPrivilegedSignup: allowPrivilegedSignup,
	}
}

// Create регистрирует пользователя. Роль по умолчанию — user.
// Вызывается без токена, поэтому admin/superadmin разрешены только при allowPrivilegedSignup.
func (s *UserService) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := infra.ValidateStruct(req); err != nil {
		return nil, err
	}
	if !s.allowPrivilegedSignup && req.Role != "" && req.Role != domain.RoleUser {
		s.logger.Warn("privileged signup rejected", zap.String("role", string(req.Role)))
		return nil, domain.NewForbidden(msgAccessDenied)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Senha), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("user_service: failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	now := time.Now()
	u := &domain.User{
		ID:        uuid.NewString(),
		Nome:      req.Nome,
		Email:     req.Email,
		Senha:     string(hash),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.NewConflict(msgUserExists)
		}
		return nil, fmt.Errorf("user_service: failed to create user: %w: %w", domain.ErrPersistence, err)
	}
	s.logger.Info("user created", zap.String("id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// List: администраторы видят всех, остальные — только себя.
func (s *UserService) List(ctx context.Context, caller *domain.Actor) ([]*domain.User, error) {
	if caller == nil {
		return nil, domain.NewForbidden(msgAccessDenied)
	}
	if isAdmin(caller.Role) {
		users, err := s.repo.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("user_service: failed to list users: %w: %w", domain.ErrPersistence, err)
		}
		return users, nil
	}

	users := make([]*domain.User, 0, 1)
	if !validID(caller.ID) {
		return users, nil
	}
	self, err := s.repo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("user_service: failed to load user: %w: %w", domain.ErrPersistence, err)
	}
	if self != nil {
		users = append(users, self)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, caller *domain.Actor, id string) (*domain.User, error) {
	if err := canAccessUser(caller, id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Update перезаписывает email и роль; nome и senha меняются, только если присланы.
// Сменить роль может только администратор.
func (s *UserService) Update(ctx context.Context, caller *domain.Actor, id string, req domain.UpdateUserRequest) (*domain.User, error) {
	if err := canAccessUser(caller, id); err != nil {
		return nil, err
	}
	if err := infra.ValidateStruct(req); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Role != u.Role && !isAdmin(caller.Role) {
		return nil, domain.NewForbidden(msgAccessDenied)
	}

	u.Email = req.Email
	u.Role = req.Role
	if req.Nome != "" {
		u.Nome = req.Nome
	}
	if req.Senha != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Senha), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("user_service: failed to hash password: %w", err)
		}
		u.Senha = string(hash)
	}
	u.UpdatedAt = time.Now()

	ok, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.NewConflict(msgUserExists)
		}
		return nil, fmt.Errorf("user_service: failed to update user: %w: %w", domain.ErrPersistence, err)
	}
	if !ok {
		return nil, domain.NewNotFound(msgUserNotFound)
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, caller *domain.Actor, id string) error {
	if caller == nil || !isAdmin(caller.Role) {
		return domain.NewForbidden(msgAccessDenied)
	}
	if !validID(id) {
		return domain.NewNotFound(msgUserNotFound)
	}
	ok, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return fmt.Errorf("user_service: failed to delete user: %w: %w", domain.ErrPersistence, err)
	}
	if !ok {
		return domain.NewNotFound(msgUserNotFound)
	}
	s.logger.Info("user deleted", zap.String("id", id), zap.String("by", caller.ID))
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, domain.NewNotFound(msgUserNotFound)
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user_service: failed to load user: %w: %w", domain.ErrPersistence, err)
	}
	if u == nil {
		return nil, domain.NewNotFound(msgUserNotFound)
	}
	return u, nil
}

// canAccessUser: администратор — любой профиль, пользователь — только свой.
func canAccessUser(caller *domain.Actor, id string) error {
	if caller == nil {
		return domain.NewForbidden(msgAccessDenied)
	}
	if isAdmin(caller.Role) || caller.ID == id {
		return nil
	}
	return domain.NewForbidden(msgAccessDenied)
}
