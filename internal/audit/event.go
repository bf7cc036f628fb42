package audit

import (
	"time"

	"github.com/xela07ax/promulher-api/internal/domain"
)

// Конструкторы событий явного захвата. Их результат отдается в Auditor.Log,
// поэтому вызывающий никогда не ждет записи и не получает ее ошибок.

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// System — события жизненного цикла процесса (STARTUP, SHUTDOWN, ERROR).
func System(action domain.Action, details domain.Details) domain.AuditEvent {
	return domain.AuditEvent{
		UserName:  domain.SystemActorName,
		UserRole:  domain.RoleSystem,
		Action:    action,
		Module:    domain.ModuleSystem,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// LoginSucceeded фиксирует успешный вход уже аутентифицированного пользователя.
func LoginSucceeded(actor domain.Actor) domain.AuditEvent {
	return domain.AuditEvent{
		UserID:   stringPtr(actor.ID),
		UserName: actor.Name,
		UserRole: actor.Role,
		Action:   domain.ActionLogin,
		Module:   domain.ModuleAuth,
		Details: domain.Details{
			Description: "Login realizado com sucesso",
			Extra: map[string]any{
				"loginMethod":  "email_password",
				"sessionStart": time.Now(),
			},
		},
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Timestamp: time.Now(),
	}
}

// LoginFailed пишется без userId: имя актора — присланный email как есть.
func LoginFailed(email, reason, ip, userAgent string) domain.AuditEvent {
	name := email
	if name == "" {
		name = "Desconhecido"
	}
	return domain.AuditEvent{
		UserName: name,
		UserRole: domain.RoleUser,
		Action:   domain.ActionLoginFailed,
		Module:   domain.ModuleAuth,
		Details: domain.Details{
			Description: "Tentativa de login falhada",
			Extra: map[string]any{
				"email":  email,
				"reason": reason,
			},
		},
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}
}

// Failure — ошибка обработки запроса. Без актора подписывается системой.
func Failure(actor *domain.Actor, req domain.RequestInfo, message string, ip, userAgent string) domain.AuditEvent {
	e := System(domain.ActionError, domain.Details{
		Description: "Erro: " + message,
		Error:       &domain.ErrorInfo{Name: "Error", Message: message},
		Request:     &req,
	})
	if actor != nil {
		e.UserID = stringPtr(actor.ID)
		e.UserName = actor.Name
		e.UserRole = actor.Role
	}
	e.IPAddress = ip
	e.UserAgent = userAgent
	return e
}
