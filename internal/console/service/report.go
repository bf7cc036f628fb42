package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xela07ax/promulher-api/internal/domain"
)

type ReportRepository interface {
	VictimsPerMonth(ctx context.Context, since time.Time) ([]domain.GroupCount, error)
	ViolenceTypes(ctx context.Context) ([]domain.GroupCount, error)
	AuthorsByMunicipality(ctx context.Context) ([]domain.GroupCount, error)
	AvgChildren(ctx context.Context) (*domain.AvgChildren, error)
	HousingIncome(ctx context.Context) ([]domain.HousingIncome, error)
	Ages(ctx context.Context, kind domain.QuestionnaireKind, now time.Time) (map[int]int64, error)
}

// Порядок корзин в отчете по возрастам.
var ageLabels = []string{"<18", "18–30", "31–50", ">50"}

type ReportService struct {
	repo ReportRepository
	now  func() time.Time
}

func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo, now: time.Now}
}

func (s *ReportService) Catalogue() []domain.ReportInfo {
	return domain.Reports
}

// Run выполняет отчет по slug. Неизвестный slug — NotFound.
func (s *ReportService) Run(ctx context.Context, slug string) (any, error) {
	var (
		res any
		err error
	)
	switch slug {
	case "victims-per-month":
		res, err = s.repo.VictimsPerMonth(ctx, s.now().AddDate(-1, 0, 0))
	case "violence-types":
		res, err = s.repo.ViolenceTypes(ctx)
	case "authors-by-municipality":
		res, err = s.repo.AuthorsByMunicipality(ctx)
	case "avg-children":
		res, err = s.repo.AvgChildren(ctx)
	case "housing-income":
		res, err = s.repo.HousingIncome(ctx)
	case "age-distribution":
		res, err = s.ageDistribution(ctx)
	default:
		return nil, domain.NewNotFound("Relatório não encontrado")
	}
	if err != nil {
		return nil, fmt.Errorf("report_service: %s: %w: %w", slug, domain.ErrPersistence, err)
	}
	return res, nil
}

func (s *ReportService) ageDistribution(ctx context.Context) (*domain.AgeDistribution, error) {
	now := s.now()
	victims, err := s.repo.Ages(ctx, domain.KindVictim, now)
	if err != nil {
		return nil, err
	}
	authors, err := s.repo.Ages(ctx, domain.KindAuthor, now)
	if err != nil {
		return nil, err
	}
	return &domain.AgeDistribution{
		Victims: bucketAges(victims),
		Authors: bucketAges(authors),
	}, nil
}

// bucketAges раскладывает "возраст -> количество" по корзинам; пустые корзины остаются с нулем.
func bucketAges(ages map[int]int64) []domain.AgeBucket {
	counts := make(map[string]int64, len(ageLabels))
	for age, n := range ages {
		counts[domain.AgeLabel(age)] += n
	}
	out := make([]domain.AgeBucket, len(ageLabels))
	for i, label := range ageLabels {
		out[i] = domain.AgeBucket{Label: label, Count: counts[label]}
	}
	return out
}
