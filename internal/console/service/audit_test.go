package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/promulher-api/internal/domain"
	"go.uber.org/zap"
)

// MockAuditRepo — хранилище в памяти с семантикой tombstone.
type MockAuditRepo struct {
	mu     sync.Mutex
	Events map[string]*domain.AuditEvent
	Err    error

	StatsCalls  int
	LastFilter  domain.AuditFilter
	PurgeCutoff time.Time
}

func NewMockAuditRepo() *MockAuditRepo {
	return &MockAuditRepo{Events: map[string]*domain.AuditEvent{}}
}

func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEvent) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Events[e.ID] = &cp
	return nil
}

func (m *MockAuditRepo) List(ctx context.Context, f domain.AuditFilter, page domain.PageRequest) ([]domain.AuditEvent, int64, error) {
	if m.Err != nil {
		return nil, 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastFilter = f

	var out []domain.AuditEvent
	for _, e := range m.Events {
		if e.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.UserID != "" && (e.UserID == nil || *e.UserID != f.UserID) {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.Module != "" && e.Module != f.Module {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.UserName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	total := int64(len(out))
	from := min(page.Offset(), len(out))
	to := min(from+page.Limit, len(out))
	return out[from:to], total, nil
}

func (m *MockAuditRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*domain.AuditEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Events[id]
	if !ok || (e.IsDeleted && !includeDeleted) {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *MockAuditRepo) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) (*domain.AuditEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Events[id]
	if !ok || e.IsDeleted {
		return nil, nil
	}
	e.IsDeleted = true
	e.DeletedAt = &at
	e.DeletedBy = &deletedBy
	e.UpdatedAt = at
	cp := *e
	return &cp, nil
}

func (m *MockAuditRepo) Restore(ctx context.Context, id string) (*domain.AuditEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Events[id]
	if !ok {
		return nil, nil
	}
	e.IsDeleted = false
	e.DeletedAt = nil
	e.DeletedBy = nil
	cp := *e
	return &cp, nil
}

func (m *MockAuditRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PurgeCutoff = cutoff
	var n int64
	for id, e := range m.Events {
		if e.IsDeleted && e.Timestamp.Before(cutoff) {
			delete(m.Events, id)
			n++
		}
	}
	return n, nil
}

func (m *MockAuditRepo) Stats(ctx context.Context, w domain.StatsWindow) (*domain.Statistics, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatsCalls++
	s := &domain.Statistics{}
	for _, e := range m.Events {
		if !e.IsDeleted {
			s.TotalLogs++
		}
	}
	return s, nil
}

// MockStatsCache считает инвалидации.
type MockStatsCache struct {
	Stored        *domain.Statistics
	Invalidations int
}

func (c *MockStatsCache) Get(context.Context) (*domain.Statistics, bool) {
	return c.Stored, c.Stored != nil
}
func (c *MockStatsCache) Set(_ context.Context, s *domain.Statistics) { c.Stored = s }
func (c *MockStatsCache) Invalidate(context.Context) {
	c.Stored = nil
	c.Invalidations++
}

var (
	superAdmin = &domain.Actor{ID: "sa-1", Name: "Root", Role: domain.RoleSuperAdmin}
	admin      = &domain.Actor{ID: "ad-1", Name: "Ana", Role: domain.RoleAdmin}
	plainUser  = &domain.Actor{ID: "us-1", Name: "Bia", Role: domain.RoleUser}
)

func newAuditService(t *testing.T) (*AuditService, *MockAuditRepo, *MockStatsCache) {
	t.Helper()
	repo := NewMockAuditRepo()
	cache := &MockStatsCache{}
	svc := NewAuditService(repo, cache, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, cache
}

func validRequest() domain.CreateAuditEventRequest {
	return domain.CreateAuditEventRequest{
		UserID:   "us-1",
		UserName: "Bia",
		UserRole: domain.RoleUser,
		Action:   domain.ActionExport,
		Module:   domain.ModuleReport,
		Details:  domain.Details{Description: "Exportou relatório"},
	}
}

func seed(t *testing.T, svc *AuditService) *domain.AuditEvent {
	t.Helper()
	e, err := svc.Record(context.Background(), plainUser, validRequest())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return e
}

func TestAuditService_Record(t *testing.T) {
	svc, repo, cache := newAuditService(t)

	e, err := svc.Record(context.Background(), plainUser, validRequest())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		t.Errorf("id is not a uuid: %q", e.ID)
	}
	if !e.Timestamp.Equal(svc.now()) {
		t.Errorf("timestamp = %v, want server time", e.Timestamp)
	}
	if e.IsDeleted {
		t.Error("new event must be active")
	}
	if len(repo.Events) != 1 {
		t.Errorf("stored %d events", len(repo.Events))
	}
	if cache.Invalidations != 1 {
		t.Errorf("cache invalidations = %d", cache.Invalidations)
	}
}

func TestAuditService_RecordBackdated(t *testing.T) {
	svc, _, _ := newAuditService(t)
	past := time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC)
	req := validRequest()
	req.Timestamp = &past

	e, err := svc.Record(context.Background(), plainUser, req)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !e.Timestamp.Equal(past) {
		t.Errorf("timestamp = %v, want %v", e.Timestamp, past)
	}
	if !e.CreatedAt.Equal(svc.now()) {
		t.Errorf("createdAt = %v, want server time", e.CreatedAt)
	}
}

func TestAuditService_RecordValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.CreateAuditEventRequest)
		wantMsg string
	}{
		{
			name:    "missing fields",
			mutate:  func(r *domain.CreateAuditEventRequest) { r.UserID = ""; r.Module = "" },
			wantMsg: "Campos obrigatórios ausentes: userId, module",
		},
		{
			name:    "system action is not accepted manually",
			mutate:  func(r *domain.CreateAuditEventRequest) { r.Action = domain.ActionLoginFailed },
			wantMsg: "Ação inválida",
		},
		{
			name:    "unknown module",
			mutate:  func(r *domain.CreateAuditEventRequest) { r.Module = "BILLING" },
			wantMsg: "Módulo inválido",
		},
		{
			name:    "system role",
			mutate:  func(r *domain.CreateAuditEventRequest) { r.UserRole = domain.RoleSystem },
			wantMsg: "Role inválida",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newAuditService(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Record(context.Background(), plainUser, req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.HasPrefix(verr.Message, tt.wantMsg) {
				t.Errorf("message = %q, want prefix %q", verr.Message, tt.wantMsg)
			}
			if len(repo.Events) != 0 {
				t.Error("invalid event must not be stored")
			}
		})
	}
}

func TestAuditService_RecordRequiresKnownRole(t *testing.T) {
	svc, _, _ := newAuditService(t)
	_, err := svc.Record(context.Background(), nil, validRequest())
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestAuditService_ReadRequiresAdmin(t *testing.T) {
	svc, _, _ := newAuditService(t)
	ctx := context.Background()

	if _, err := svc.List(ctx, plainUser, domain.AuditFilter{}, domain.PageRequest{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("List: %v", err)
	}
	if _, err := svc.Stats(ctx, plainUser); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Stats: %v", err)
	}
	// отказ раньше валидации
	if _, err := svc.Search(ctx, plainUser, "", domain.PageRequest{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Search: %v", err)
	}
}

func TestAuditService_ListHidesDeleted(t *testing.T) {
	svc, repo, _ := newAuditService(t)
	ctx := context.Background()
	a := seed(t, svc)
	seed(t, svc)

	if _, err := svc.SoftDelete(ctx, superAdmin, a.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	page, err := svc.List(ctx, admin, domain.AuditFilter{IncludeDeleted: true}, domain.PageRequest{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.LastFilter.IncludeDeleted {
		t.Error("includeDeleted must not reach the repository from the API")
	}
	if len(page.Logs) != 1 || page.Pagination.Total != 1 {
		t.Errorf("got %d logs, total %d", len(page.Logs), page.Pagination.Total)
	}
}

func TestAuditService_ListRejectsInvertedRange(t *testing.T) {
	svc, _, _ := newAuditService(t)
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	_, err := svc.List(context.Background(), admin, domain.AuditFilter{StartDate: &start, EndDate: &end}, domain.PageRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestAuditService_ListEmptyIsNotNil(t *testing.T) {
	svc, _, _ := newAuditService(t)
	page, err := svc.List(context.Background(), admin, domain.AuditFilter{}, domain.PageRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Logs == nil {
		t.Error("logs must be an empty slice")
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != domain.DefaultPageLimit {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestAuditService_Search(t *testing.T) {
	svc, _, _ := newAuditService(t)
	ctx := context.Background()
	seed(t, svc)

	if _, err := svc.Search(ctx, admin, "   ", domain.PageRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank term: %v", err)
	}

	page, err := svc.Search(ctx, admin, " bia ", domain.PageRequest{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.SearchTerm != "bia" || len(page.Logs) != 1 {
		t.Errorf("term=%q logs=%d", page.SearchTerm, len(page.Logs))
	}
}

func TestAuditService_ListByActionAndModule(t *testing.T) {
	svc, _, _ := newAuditService(t)
	ctx := context.Background()
	seed(t, svc)

	page, err := svc.ListByAction(ctx, admin, "export", domain.PageRequest{})
	if err != nil || len(page.Logs) != 1 {
		t.Fatalf("ListByAction: %v, %+v", err, page)
	}
	if _, err := svc.ListByAction(ctx, admin, "DANCE", domain.PageRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad action: %v", err)
	}

	page, err = svc.ListByModule(ctx, admin, "REPORT", domain.PageRequest{})
	if err != nil || len(page.Logs) != 1 {
		t.Fatalf("ListByModule: %v, %+v", err, page)
	}
	if _, err := svc.ListByModule(ctx, admin, "nowhere", domain.PageRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("bad module: %v", err)
	}

	page, err = svc.ListByUser(ctx, admin, "us-1", domain.PageRequest{})
	if err != nil || len(page.Logs) != 1 {
		t.Fatalf("ListByUser: %v, %+v", err, page)
	}
}

func TestAuditService_Get(t *testing.T) {
	svc, _, _ := newAuditService(t)
	ctx := context.Background()
	e := seed(t, svc)

	got, err := svc.Get(ctx, admin, e.ID)
	if err != nil || got.ID != e.ID {
		t.Fatalf("Get: %v", err)
	}

	for _, id := range []string{"not-a-uuid", uuid.NewString()} {
		if _, err := svc.Get(ctx, admin, id); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Get(%q): %v", id, err)
		}
	}
}

func TestAuditService_SoftDeleteLifecycle(t *testing.T) {
	svc, _, cache := newAuditService(t)
	ctx := context.Background()
	e := seed(t, svc)
	before := cache.Invalidations

	if _, err := svc.SoftDelete(ctx, admin, e.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("admin delete: %v", err)
	}

	deleted, err := svc.SoftDelete(ctx, superAdmin, e.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if !deleted.IsDeleted || deleted.DeletedBy == nil || *deleted.DeletedBy != superAdmin.ID || deleted.DeletedAt == nil {
		t.Errorf("tombstone not set: %+v", deleted)
	}
	if cache.Invalidations != before+1 {
		t.Error("delete must invalidate stats cache")
	}

	if _, err := svc.Get(ctx, admin, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("deleted event must be invisible: %v", err)
	}
	if _, err := svc.SoftDelete(ctx, superAdmin, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}

	restored, err := svc.Restore(ctx, superAdmin, e.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.IsDeleted || restored.DeletedAt != nil || restored.DeletedBy != nil {
		t.Errorf("tombstone not cleared: %+v", restored)
	}
	// повторный restore не ошибка
	if _, err := svc.Restore(ctx, superAdmin, e.ID); err != nil {
		t.Errorf("idempotent restore: %v", err)
	}
	if _, err := svc.Restore(ctx, superAdmin, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("restore unknown: %v", err)
	}
}

func TestAuditService_Purge(t *testing.T) {
	svc, repo, _ := newAuditService(t)
	ctx := context.Background()

	old := validRequest()
	oldTs := svc.now().AddDate(-2, 0, 0)
	old.Timestamp = &oldTs
	oldEvent, err := svc.Record(ctx, plainUser, old)
	if err != nil {
		t.Fatal(err)
	}
	fresh := seed(t, svc)
	kept := seed(t, svc)

	for _, id := range []string{oldEvent.ID, fresh.ID} {
		if _, err := svc.SoftDelete(ctx, superAdmin, id); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := svc.Purge(ctx, admin, 30); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("admin purge: %v", err)
	}
	for _, days := range []int{0, -5} {
		if _, err := svc.Purge(ctx, superAdmin, days); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("Purge(days=%d): %v", days, err)
		}
	}

	n, err := svc.Purge(ctx, superAdmin, 365)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if want := svc.now().AddDate(0, 0, -365); !repo.PurgeCutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", repo.PurgeCutoff, want)
	}
	if _, ok := repo.Events[fresh.ID]; !ok {
		t.Error("recently deleted event must survive")
	}
	if _, ok := repo.Events[kept.ID]; !ok {
		t.Error("active event must never be purged")
	}
}

func TestAuditService_PurgeOlderThanDefaults(t *testing.T) {
	svc, repo, _ := newAuditService(t)
	if _, err := svc.PurgeOlderThan(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if want := svc.now().AddDate(0, 0, -DefaultRetentionDays); !repo.PurgeCutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", repo.PurgeCutoff, want)
	}
}

func TestAuditService_StatsUsesCache(t *testing.T) {
	svc, repo, cache := newAuditService(t)
	ctx := context.Background()
	seed(t, svc)

	first, err := svc.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if first.TotalLogs != 1 || first.MostCommonAction != domain.NoActionLabel {
		t.Errorf("stats = %+v", first)
	}
	if first.TopUsers == nil || first.RecentActivity == nil {
		t.Error("lists must be finalized")
	}

	if _, err := svc.Stats(ctx, superAdmin); err != nil {
		t.Fatal(err)
	}
	if repo.StatsCalls != 1 {
		t.Errorf("repo.Stats called %d times, want 1", repo.StatsCalls)
	}

	seed(t, svc)
	if cache.Stored != nil {
		t.Error("record must invalidate cache")
	}
	second, _ := svc.Stats(ctx, admin)
	if second.TotalLogs != 2 || repo.StatsCalls != 2 {
		t.Errorf("total=%d calls=%d", second.TotalLogs, repo.StatsCalls)
	}
}

func TestAuditService_PersistenceError(t *testing.T) {
	svc, repo, _ := newAuditService(t)
	repo.Err = errors.New("connection refused")

	_, err := svc.Record(context.Background(), plainUser, validRequest())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
	_, err = svc.List(context.Background(), admin, domain.AuditFilter{}, domain.PageRequest{})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}
