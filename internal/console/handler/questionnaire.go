package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

type QuestionnaireService interface {
	List(ctx context.Context, kind domain.QuestionnaireKind) ([]*domain.Questionnaire, error)
	LookupVictim(ctx context.Context, cpf, rg string) (*domain.Questionnaire, error)
	Get(ctx context.Context, kind domain.QuestionnaireKind, id string) (*domain.Questionnaire, error)
	Create(ctx context.Context, caller *domain.Actor, kind domain.QuestionnaireKind, data map[string]any) (*domain.Questionnaire, error)
	Update(ctx context.Context, kind domain.QuestionnaireKind, id string, patch map[string]any) (*domain.Questionnaire, error)
	Delete(ctx context.Context, kind domain.QuestionnaireKind, id string) error
}

// QuestionnaireHandler обслуживает один тип анкеты; на каждый путь свой экземпляр.
type QuestionnaireHandler struct {
	service QuestionnaireService
	kind    domain.QuestionnaireKind
	logger  *zap.Logger
}

func NewQuestionnaireHandler(s QuestionnaireService, kind domain.QuestionnaireKind, logger *zap.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		service: s,
		kind:    kind,
		logger:  logger.Named("questionnaire-handler").With(zap.String("kind", string(kind))),
	}
}

func (h *QuestionnaireHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
	})
	return r
}

// List: для анкет жертв ?cpf= или ?rg= превращает список в поиск одной записи.
func (h *QuestionnaireHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.kind == domain.KindVictim {
		q := r.URL.Query()
		if cpf, rg := q.Get("cpf"), q.Get("rg"); cpf != "" || rg != "" {
			item, err := h.service.LookupVictim(r.Context(), cpf, rg)
			if err != nil {
				writeError(w, h.logger, err)
				return
			}
			writeJSON(w, http.StatusOK, item)
			return
		}
	}

	items, err := h.service.List(r.Context(), h.kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *QuestionnaireHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), h.kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *QuestionnaireHandler) Create(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := decodeJSON(r, &data); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if data == nil {
		data = map[string]any{}
	}

	item, err := h.service.Create(r.Context(), domain.ActorFromContext(r.Context()), h.kind, data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *QuestionnaireHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if patch == nil {
		patch = map[string]any{}
	}

	item, err := h.service.Update(r.Context(), h.kind, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *QuestionnaireHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), h.kind, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
