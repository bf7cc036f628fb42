package service

import "github.com/xela07ax/promulher-api/internal/domain"

// Operation — класс операции над журналом аудита.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpDelete Operation = "delete"
	OpPurge  Operation = "purge"
)

var (
	msgReadDenied   = "Acesso negado. Apenas administradores podem acessar logs."
	msgDeleteDenied = "Acesso negado. Apenas super administradores podem excluir logs."
)

// Authorize решает, может ли роль выполнить операцию. Неизвестная роль или операция — отказ.
func Authorize(role domain.Role, op Operation) error {
	switch op {
	case OpCreate:
		if role == domain.RoleSuperAdmin || role == domain.RoleAdmin || role == domain.RoleUser {
			return nil
		}
		return denied(role, op, msgReadDenied)
	case OpRead:
		if role == domain.RoleSuperAdmin || role == domain.RoleAdmin {
			return nil
		}
		return denied(role, op, msgReadDenied)
	case OpDelete, OpPurge:
		if role == domain.RoleSuperAdmin {
			return nil
		}
		return denied(role, op, msgDeleteDenied)
	}
	return denied(role, op, msgReadDenied)
}

func denied(role domain.Role, op Operation, msg string) error {
	return &domain.AccessError{Role: role, Operation: string(op), Message: msg}
}

// isAdmin — admin или superadmin (управление пользователями).
func isAdmin(role domain.Role) bool {
	return role == domain.RoleSuperAdmin || role == domain.RoleAdmin
}
