package domain

import "time"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleSystem     Role = "system"
)

// Valid проверяет роль против закрытого списка, включая системную.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleUser, RoleSystem:
		return true
	}
	return false
}

type Action string

const (
	ActionCreate      Action = "CREATE"
	ActionRead        Action = "READ"
	ActionUpdate      Action = "UPDATE"
	ActionDelete      Action = "DELETE"
	ActionLogin       Action = "LOGIN"
	ActionLogout      Action = "LOGOUT"
	ActionLoginFailed Action = "LOGIN_FAILED"
	ActionExport      Action = "EXPORT"
	ActionPrint       Action = "PRINT"
	ActionAccess      Action = "ACCESS"
	ActionSearch      Action = "SEARCH"
	ActionView        Action = "VIEW"
	ActionStartup     Action = "STARTUP"
	ActionShutdown    Action = "SHUTDOWN"
	ActionError       Action = "ERROR"
)

var allActions = []Action{
	ActionCreate, ActionRead, ActionUpdate, ActionDelete,
	ActionLogin, ActionLogout, ActionLoginFailed,
	ActionExport, ActionPrint, ActionAccess, ActionSearch, ActionView,
	ActionStartup, ActionShutdown, ActionError,
}

func (a Action) Valid() bool {
	for _, v := range allActions {
		if v == a {
			return true
		}
	}
	return false
}

type Module string

const (
	ModuleVictim     Module = "VICTIM"
	ModuleAuthor     Module = "AUTHOR"
	ModulePromulher  Module = "PROMULHER"
	ModuleProtege    Module = "PROTEGE"
	ModuleUser       Module = "USER"
	ModuleAuth       Module = "AUTH"
	ModuleDashboard  Module = "DASHBOARD"
	ModuleNavigation Module = "NAVIGATION"
	ModuleReport     Module = "REPORT"
	ModuleSystem     Module = "SYSTEM"
)

var allModules = []Module{
	ModuleVictim, ModuleAuthor, ModulePromulher, ModuleProtege, ModuleUser,
	ModuleAuth, ModuleDashboard, ModuleNavigation, ModuleReport, ModuleSystem,
}

func (m Module) Valid() bool {
	for _, v := range allModules {
		if v == m {
			return true
		}
	}
	return false
}

// Имя, которым подписываются события без пользователя (старт, остановка, ошибки).
const (
	SystemActorName = "Sistema"
)

// AuditEvent — единица журнала аудита.
// Timestamp — время самого события (может быть задано вызывающим задним числом),
// CreatedAt/UpdatedAt — время жизни записи в хранилище. Их нельзя смешивать.
type AuditEvent struct {
	ID        string  `json:"id"`
	UserID    *string `json:"userId"`
	UserName  string  `json:"userName"`
	UserRole  Role    `json:"userRole"`
	Action    Action  `json:"action"`
	Module    Module  `json:"module"`
	Details   Details `json:"details"`
	IPAddress string  `json:"ipAddress,omitempty"`
	UserAgent string  `json:"userAgent,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Tombstone. Меняются только через SoftDelete/Restore.
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy *string    `json:"deletedBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuditFilter — набор условий выборки. Пустые поля не участвуют в запросе.
type AuditFilter struct {
	UserID    string
	Action    Action
	Module    Module
	StartDate *time.Time
	EndDate   *time.Time
	Search    string

	// IncludeDeleted используется только внутренними путями (поиск по ID для restore).
	IncludeDeleted bool
}

type AuditPage struct {
	Logs       []AuditEvent `json:"logs"`
	Pagination Pagination   `json:"pagination"`
	SearchTerm string       `json:"searchTerm,omitempty"`
}

// CreateAuditEventRequest — тело POST /logs.
type CreateAuditEventRequest struct {
	UserID    string     `json:"userId" validate:"required"`
	UserName  string     `json:"userName" validate:"required"`
	UserRole  Role       `json:"userRole" validate:"required"`
	Action    Action     `json:"action" validate:"required"`
	Module    Module     `json:"module" validate:"required"`
	Details   Details    `json:"details"`
	Timestamp *time.Time `json:"timestamp"`
	UserAgent string     `json:"userAgent"`
	IPAddress string     `json:"-"`
}

// Через POST /logs нельзя записать системные и служебные действия.
var (
	ManualActions = []Action{
		ActionCreate, ActionRead, ActionUpdate, ActionDelete,
		ActionLogin, ActionLogout,
		ActionExport, ActionPrint,
		ActionAccess, ActionSearch, ActionView,
	}
	ManualModules = []Module{
		ModuleVictim, ModuleAuthor, ModulePromulher, ModuleProtege, ModuleUser,
		ModuleAuth, ModuleDashboard, ModuleNavigation, ModuleReport,
	}
	ManualRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}
)
