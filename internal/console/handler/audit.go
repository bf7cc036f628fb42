package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra/auth"
	"go.uber.org/zap"
)

// Срок очистки для DELETE /logs/purge без параметра days.
const defaultPurgeDays = 365

// AuditService — то, что нужно обработчику журнала от сервисного слоя.
type AuditService interface {
	Record(ctx context.Context, caller *domain.Actor, req domain.CreateAuditEventRequest) (*domain.AuditEvent, error)
	List(ctx context.Context, caller *domain.Actor, f domain.AuditFilter, page domain.PageRequest) (*domain.AuditPage, error)
	Search(ctx context.Context, caller *domain.Actor, term string, page domain.PageRequest) (*domain.AuditPage, error)
	ListByUser(ctx context.Context, caller *domain.Actor, userID string, page domain.PageRequest) (*domain.AuditPage, error)
	ListByAction(ctx context.Context, caller *domain.Actor, action string, page domain.PageRequest) (*domain.AuditPage, error)
	ListByModule(ctx context.Context, caller *domain.Actor, module string, page domain.PageRequest) (*domain.AuditPage, error)
	Get(ctx context.Context, caller *domain.Actor, id string) (*domain.AuditEvent, error)
	Stats(ctx context.Context, caller *domain.Actor) (*domain.Statistics, error)
	SoftDelete(ctx context.Context, caller *domain.Actor, id string) (*domain.AuditEvent, error)
	Restore(ctx context.Context, caller *domain.Actor, id string) (*domain.AuditEvent, error)
	Purge(ctx context.Context, caller *domain.Actor, days int) (int64, error)
}

type AuditHandler struct {
	service AuditService
	logger  *zap.Logger
}

func NewAuditHandler(s AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger.Named("audit-handler")}
}

// Routes монтируется в /logs. Статические пути регистрируются раньше /{id}.
func (h *AuditHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/search", h.Search)
	r.Get("/user/{userID}", h.ListByUser)
	r.Get("/action/{action}", h.ListByAction)
	r.Get("/module/{module}", h.ListByModule)
	r.Delete("/purge", h.Purge)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/restore", h.Restore)
	})
	return r
}

// Create — POST /logs, явная запись события клиентом.
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAuditEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.IPAddress = auth.ClientIP(r)
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}

	e, err := h.service.Record(r.Context(), domain.ActorFromContext(r.Context()), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Log criado com sucesso", Data: e})
}

// List — GET /logs?page=&limit=&sortBy=&sortOrder=&userId=&action=&module=&startDate=&endDate=&search=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page := parsePage(r)

	res, err := h.service.List(r.Context(), domain.ActorFromContext(r.Context()), f, page)
	h.writePage(w, res, err)
}

func (h *AuditHandler) Search(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Search(r.Context(), domain.ActorFromContext(r.Context()), r.URL.Query().Get("q"), parsePage(r))
	h.writePage(w, res, err)
}

func (h *AuditHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListByUser(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "userID"), parsePage(r))
	h.writePage(w, res, err)
}

func (h *AuditHandler) ListByAction(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListByAction(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "action"), parsePage(r))
	h.writePage(w, res, err)
}

func (h *AuditHandler) ListByModule(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListByModule(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "module"), parsePage(r))
	h.writePage(w, res, err)
}

func (h *AuditHandler) writePage(w http.ResponseWriter, res *domain.AuditPage, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: res})
}

func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), domain.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: stats})
}

func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: e})
}

func (h *AuditHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.SoftDelete(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Log excluído com sucesso"})
}

func (h *AuditHandler) Restore(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Restore(r.Context(), domain.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Log restaurado com sucesso", Data: e})
}

// Purge — DELETE /logs/purge?days=N. Без days используется срок по умолчанию.
func (h *AuditHandler) Purge(w http.ResponseWriter, r *http.Request) {
	days := defaultPurgeDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, domain.NewValidationError(
				"Parâmetro days deve ser um inteiro positivo", map[string]string{"days": "inválido"}))
			return
		}
		days = n
	}

	n, err := h.service.Purge(r.Context(), domain.ActorFromContext(r.Context()), days)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]int64{"purged": n}})
}

func parsePage(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.PageRequest{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: strings.ToLower(q.Get("sortOrder")),
	}.Normalize()
}

func parseFilter(r *http.Request) (domain.AuditFilter, error) {
	q := r.URL.Query()
	f := domain.AuditFilter{
		UserID: q.Get("userId"),
		Search: q.Get("search"),
	}

	if v := q.Get("action"); v != "" {
		f.Action = domain.Action(strings.ToUpper(v))
		if !f.Action.Valid() {
			return f, domain.NewValidationError("Ação inválida", map[string]string{"action": "inválido"})
		}
	}
	if v := q.Get("module"); v != "" {
		f.Module = domain.Module(strings.ToUpper(v))
		if !f.Module.Valid() {
			return f, domain.NewValidationError("Módulo inválido", map[string]string{"module": "inválido"})
		}
	}

	var err error
	if f.StartDate, err = parseDate(q.Get("startDate"), false); err != nil {
		return f, domain.NewValidationError("Data inválida", map[string]string{"startDate": "inválido"})
	}
	if f.EndDate, err = parseDate(q.Get("endDate"), true); err != nil {
		return f, domain.NewValidationError("Data inválida", map[string]string{"endDate": "inválido"})
	}
	return f, nil
}

// parseDate принимает RFC 3339 или YYYY-MM-DD. Дата без времени для конца
// периода означает конец этого дня, чтобы граница оставалась включительной.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
