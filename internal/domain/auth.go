package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CustomClaims struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Senha string `json:"senha" validate:"required"`
}

type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type User struct {
	ID        string    `json:"id"`
	Nome      string    `json:"nome"`
	Email     string    `json:"email"`
	Senha     string    `json:"-"` // bcrypt-хэш, наружу не отдаем
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateUserRequest struct {
	Nome  string `json:"nome" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Senha string `json:"senha" validate:"required,min=6"`
	Role  Role   `json:"role" validate:"omitempty,oneof=superadmin admin user"`
}

type UpdateUserRequest struct {
	Nome  string `json:"nome"`
	Email string `json:"email" validate:"required,email"`
	Senha string `json:"senha" validate:"omitempty,min=6"`
	Role  Role   `json:"role" validate:"required,oneof=superadmin admin user"`
}
