package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/promulher-api/internal/domain"
	"github.com/xela07ax/promulher-api/internal/infra"
	"go.uber.org/zap"
)

// DefaultRetentionDays — срок хранения мягко удаленных событий, если не задан явно.
const DefaultRetentionDays = 365

const msgLogNotFound = "Log não encontrado"

// AuditRepository описывает контракт хранилища журнала.
type AuditRepository interface {
	Insert(ctx context.Context, e *domain.AuditEvent) error
	List(ctx context.Context, f domain.AuditFilter, page domain.PageRequest) ([]domain.AuditEvent, int64, error)
	GetByID(ctx context.Context, id string, includeDeleted bool) (*domain.AuditEvent, error)
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) (*domain.AuditEvent, error)
	Restore(ctx context.Context, id string) (*domain.AuditEvent, error)
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context, w domain.StatsWindow) (*domain.Statistics, error)
}

// StatsCache — короткоживущий кэш сводки. Промах и сбой неразличимы для сервиса.
type StatsCache interface {
	Get(ctx context.Context) (*domain.Statistics, bool)
	Set(ctx context.Context, s *domain.Statistics)
	Invalidate(ctx context.Context)
}

type noopStatsCache struct{}

func (noopStatsCache) Get(context.Context) (*domain.Statistics, bool) { return nil, false }
func (noopStatsCache) Set(context.Context, *domain.Statistics)        {}
func (noopStatsCache) Invalidate(context.Context)                     {}

type AuditService struct {
	repo    AuditRepository
	cache   StatsCache
	metrics *infra.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewAuditService(repo AuditRepository, cache StatsCache, metrics *infra.Metrics, logger *zap.Logger) *AuditService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	return &AuditService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger.With(zap.String("mod", "audit-service")),
		now:     time.Now,
	}
}

// Record синхронно сохраняет событие, присланное клиентом (POST /logs).
func (s *AuditService) Record(ctx context.Context, caller *domain.Actor, req domain.CreateAuditEventRequest) (*domain.AuditEvent, error) {
	if err := Authorize(callerRole(caller), OpCreate); err != nil {
		return nil, err
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := s.now()
	ts := now
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = *req.Timestamp
	}
	userID := req.UserID

	e := &domain.AuditEvent{
		ID:        uuid.NewString(),
		UserID:    &userID,
		UserName:  req.UserName,
		UserRole:  req.UserRole,
		Action:    req.Action,
		Module:    req.Module,
		Details:   req.Details,
		IPAddress: req.IPAddress,
		UserAgent: req.UserAgent,
		Timestamp: ts,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("audit_service: failed to record event: %w: %w", domain.ErrPersistence, err)
	}
	s.metrics.AuditCaptured.WithLabelValues(string(e.Module)).Inc()
	s.cache.Invalidate(ctx)
	return e, nil
}

func validateCreateRequest(req domain.CreateAuditEventRequest) error {
	if err := infra.ValidateStruct(req); err != nil {
		return err
	}
	if !slices.Contains(domain.ManualActions, req.Action) {
		return domain.NewValidationError(
			"Ação inválida. Valores permitidos: "+joinValues(domain.ManualActions), map[string]string{"action": "inválido"})
	}
	if !slices.Contains(domain.ManualModules, req.Module) {
		return domain.NewValidationError(
			"Módulo inválido. Valores permitidos: "+joinValues(domain.ManualModules), map[string]string{"module": "inválido"})
	}
	if !slices.Contains(domain.ManualRoles, req.UserRole) {
		return domain.NewValidationError(
			"Role inválida. Valores permitidos: "+joinValues(domain.ManualRoles), map[string]string{"userRole": "inválido"})
	}
	return nil
}

// List — постраничная выборка активных событий по фильтру.
func (s *AuditService) List(ctx context.Context, caller *domain.Actor, f domain.AuditFilter, page domain.PageRequest) (*domain.AuditPage, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	// includeDeleted наружу не выставляется
	f.IncludeDeleted = false
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return nil, domain.NewValidationError("Período inválido: endDate anterior a startDate", map[string]string{"endDate": "inválido"})
	}
	return s.list(ctx, f, page)
}

// Search — регистронезависимый поиск по имени пользователя, описанию и названию объекта.
func (s *AuditService) Search(ctx context.Context, caller *domain.Actor, term string, page domain.PageRequest) (*domain.AuditPage, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.NewValidationError("Termo de busca é obrigatório", map[string]string{"q": "obrigatório"})
	}
	res, err := s.list(ctx, domain.AuditFilter{Search: term}, page)
	if err != nil {
		return nil, err
	}
	res.SearchTerm = term
	return res, nil
}

func (s *AuditService) ListByUser(ctx context.Context, caller *domain.Actor, userID string, page domain.PageRequest) (*domain.AuditPage, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	return s.list(ctx, domain.AuditFilter{UserID: userID}, page)
}

func (s *AuditService) ListByAction(ctx context.Context, caller *domain.Actor, action string, page domain.PageRequest) (*domain.AuditPage, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	a := domain.Action(strings.ToUpper(action))
	if !a.Valid() {
		return nil, domain.NewValidationError("Ação inválida", map[string]string{"action": "inválido"})
	}
	return s.list(ctx, domain.AuditFilter{Action: a}, page)
}

func (s *AuditService) ListByModule(ctx context.Context, caller *domain.Actor, module string, page domain.PageRequest) (*domain.AuditPage, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	m := domain.Module(strings.ToUpper(module))
	if !m.Valid() {
		return nil, domain.NewValidationError("Módulo inválido", map[string]string{"module": "inválido"})
	}
	return s.list(ctx, domain.AuditFilter{Module: m}, page)
}

func (s *AuditService) list(ctx context.Context, f domain.AuditFilter, page domain.PageRequest) (*domain.AuditPage, error) {
	page = page.Normalize()
	logs, total, err := s.repo.List(ctx, f, page)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to list logs: %w: %w", domain.ErrPersistence, err)
	}
	if logs == nil {
		logs = []domain.AuditEvent{}
	}
	return &domain.AuditPage{
		Logs:       logs,
		Pagination: domain.NewPagination(page.Page, page.Limit, total),
	}, nil
}

// Get возвращает активное событие. Удаленные и несуществующие неразличимы.
func (s *AuditService) Get(ctx context.Context, caller *domain.Actor, id string) (*domain.AuditEvent, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.NewNotFound(msgLogNotFound)
	}
	e, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to get log: %w: %w", domain.ErrPersistence, err)
	}
	if e == nil {
		return nil, domain.NewNotFound(msgLogNotFound)
	}
	return e, nil
}

// Stats отдает сводку из кэша, при промахе считает по хранилищу и кладет в кэш.
func (s *AuditService) Stats(ctx context.Context, caller *domain.Actor) (*domain.Statistics, error) {
	if err := Authorize(callerRole(caller), OpRead); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	stats, err := s.repo.Stats(ctx, domain.NewStatsWindow(s.now()))
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to compute stats: %w: %w", domain.ErrPersistence, err)
	}
	stats.Finalize()
	s.cache.Set(ctx, stats)
	return stats, nil
}

// SoftDelete помечает активное событие удаленным. Повторное удаление — NotFound.
func (s *AuditService) SoftDelete(ctx context.Context, caller *domain.Actor, id string) (*domain.AuditEvent, error) {
	if err := Authorize(callerRole(caller), OpDelete); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.NewNotFound(msgLogNotFound)
	}

	e, err := s.repo.SoftDelete(ctx, id, caller.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to delete log: %w: %w", domain.ErrPersistence, err)
	}
	if e == nil {
		return nil, domain.NewNotFound(msgLogNotFound)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("audit event soft-deleted", zap.String("id", id), zap.String("by", caller.ID))
	return e, nil
}

// Restore снимает пометку удаления. Для активного события ничего не меняет.
func (s *AuditService) Restore(ctx context.Context, caller *domain.Actor, id string) (*domain.AuditEvent, error) {
	if err := Authorize(callerRole(caller), OpDelete); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.NewNotFound(msgLogNotFound)
	}

	e, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to restore log: %w: %w", domain.ErrPersistence, err)
	}
	if e == nil {
		return nil, domain.NewNotFound(msgLogNotFound)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("audit event restored", zap.String("id", id), zap.String("by", caller.ID))
	return e, nil
}

// Purge — ручной запуск очистки через API.
func (s *AuditService) Purge(ctx context.Context, caller *domain.Actor, days int) (int64, error) {
	if err := Authorize(callerRole(caller), OpPurge); err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, domain.NewValidationError("Parâmetro days deve ser um inteiro positivo", map[string]string{"days": "inválido"})
	}
	return s.PurgeOlderThan(ctx, days)
}

// PurgeOlderThan физически удаляет мягко удаленные события старше days дней.
// Вызывается ретеншн-джобом без проверки ролей.
func (s *AuditService) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -days)

	n, err := s.repo.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit_service: failed to purge logs: %w: %w", domain.ErrPersistence, err)
	}
	if n > 0 {
		s.metrics.AuditPurged.Add(float64(n))
		s.cache.Invalidate(ctx)
	}
	s.logger.Info("audit purge finished", zap.Int("days", days), zap.Time("cutoff", cutoff), zap.Int64("purged", n))
	return n, nil
}

func callerRole(a *domain.Actor) domain.Role {
	if a == nil {
		return ""
	}
	return a.Role
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// joinValues склеивает допустимые значения для сообщения об ошибке.
func joinValues[T ~string](set []T) string {
	parts := make([]string, len(set))
	for i, v := range set {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
