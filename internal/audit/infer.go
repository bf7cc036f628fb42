package audit

import (
	"net/http"
	"strings"

	"github.com/xela07ax/promulher-api/internal/domain"
)

// ActionFromMethod: POST→CREATE, PUT/PATCH→UPDATE, DELETE→DELETE, GET→READ, иначе ACCESS.
func ActionFromMethod(method string) domain.Action {
	switch method {
	case http.MethodPost:
		return domain.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return domain.ActionUpdate
	case http.MethodDelete:
		return domain.ActionDelete
	case http.MethodGet:
		return domain.ActionRead
	default:
		return domain.ActionAccess
	}
}

// Порядок важен: "/vquestionnaires" содержит "/questionnaires" и должен проверяться раньше.
var pathModules = []struct {
	fragment string
	module   domain.Module
}{
	{"/users", domain.ModuleUser},
	{"/vquestionnaires", domain.ModuleVictim},
	{"/questionnaires", domain.ModuleAuthor},
	{"/promulher", domain.ModulePromulher},
	{"/protege-mulher", domain.ModuleProtege},
	{"/reports", domain.ModuleReport},
	{"/login", domain.ModuleAuth},
}

// ModuleFromPath возвращает модуль по первому совпавшему фрагменту, иначе NAVIGATION.
func ModuleFromPath(path string) domain.Module {
	for _, pm := range pathModules {
		if strings.Contains(path, pm.fragment) {
			return pm.module
		}
	}
	return domain.ModuleNavigation
}
