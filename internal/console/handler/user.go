package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

type UserService interface {
	Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	List(ctx context.Context, caller *domain.Actor) ([]*domain.User, error)
	Get(ctx context.Context, caller *domain.Actor, id string) (*domain.User, error)
	Update(ctx context.Context, caller *domain.Actor, id string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, caller *domain.Actor, id string) error
}

type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

func NewUserHandler(s UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: s, logger: logger.Named("user-handler")}
}

func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
	return r
}

// Create — POST /createUser, регистрация открыта.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.service.Create(r.Context(), req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Usuário criado com sucesso!"})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context(), domain.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.service.Update(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Usuário atualizado com sucesso"})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Usuário deletado com sucesso"})
}
