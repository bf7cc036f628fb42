package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

const msgInternalError = "Erro interno do servidor"

// envelope — общий формат ответов журнала: {success, message, data}.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку сервиса в HTTP-ответ. Неизвестные ошибки — 500 без подробностей.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func errorResponse(err error) (int, envelope) {
	var (
		vErr *domain.ValidationError
		aErr *domain.AccessError
		pErr *domain.PublicError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, envelope{Message: vErr.Message, Errors: vErr.Fields}
	case errors.As(err, &aErr):
		return http.StatusForbidden, envelope{Message: aErr.Message}
	case errors.As(err, &pErr):
		return statusFor(pErr.Kind), envelope{Message: pErr.Message}
	}
	return statusFor(err), envelope{Message: msgInternalError}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("JSON inválido", nil)
	}
	return nil
}
