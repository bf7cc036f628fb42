package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xela07ax/promulher-api/internal/domain"
)

type MockReportRepo struct {
	Since      time.Time
	AgesByKind map[domain.QuestionnaireKind]map[int]int64
	Err        error
}

func (m *MockReportRepo) VictimsPerMonth(ctx context.Context, since time.Time) ([]domain.GroupCount, error) {
	m.Since = since
	return []domain.GroupCount{{ID: "2024-05", Count: 3}}, m.Err
}
func (m *MockReportRepo) ViolenceTypes(ctx context.Context) ([]domain.GroupCount, error) {
	return nil, m.Err
}
func (m *MockReportRepo) AuthorsByMunicipality(ctx context.Context) ([]domain.GroupCount, error) {
	return nil, m.Err
}
func (m *MockReportRepo) AvgChildren(ctx context.Context) (*domain.AvgChildren, error) {
	return &domain.AvgChildren{VictimsAvg: 1.5}, m.Err
}
func (m *MockReportRepo) HousingIncome(ctx context.Context) ([]domain.HousingIncome, error) {
	return nil, m.Err
}
func (m *MockReportRepo) Ages(ctx context.Context, kind domain.QuestionnaireKind, now time.Time) (map[int]int64, error) {
	return m.AgesByKind[kind], m.Err
}

func TestReportService_Run(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &MockReportRepo{}
	svc := NewReportService(repo)
	svc.now = func() time.Time { return now }

	for _, r := range svc.Catalogue() {
		if _, err := svc.Run(context.Background(), r.Slug); err != nil {
			t.Errorf("Run(%s): %v", r.Slug, err)
		}
	}
	if !repo.Since.Equal(now.AddDate(-1, 0, 0)) {
		t.Errorf("since = %v", repo.Since)
	}

	if _, err := svc.Run(context.Background(), "unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown slug: %v", err)
	}

	repo.Err = errors.New("boom")
	if _, err := svc.Run(context.Background(), "violence-types"); !errors.Is(err, domain.ErrPersistence) {
		t.Errorf("repo error: %v", err)
	}
}

func TestReportService_AgeDistribution(t *testing.T) {
	repo := &MockReportRepo{AgesByKind: map[domain.QuestionnaireKind]map[int]int64{
		domain.KindVictim: {17: 1, 18: 2, 30: 1, 31: 4, 51: 2},
	}}
	svc := NewReportService(repo)

	res, err := svc.Run(context.Background(), "age-distribution")
	if err != nil {
		t.Fatal(err)
	}
	dist := res.(*domain.AgeDistribution)

	want := []int64{1, 3, 4, 2}
	if len(dist.Victims) != 4 {
		t.Fatalf("victims buckets = %v", dist.Victims)
	}
	for i, b := range dist.Victims {
		if b.Label != ageLabels[i] || b.Count != want[i] {
			t.Errorf("bucket %d = %+v, want %s=%d", i, b, ageLabels[i], want[i])
		}
	}
	// пустая сторона все равно отдает все корзины
	if len(dist.Authors) != 4 || dist.Authors[0].Count != 0 {
		t.Errorf("authors = %v", dist.Authors)
	}
}
