package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/promulher-api/internal/domain"
)

// Год фиксирован в 365 дней: возраст считается так же, как в исторических отчетах.
const secondsPerYear = 365 * 24 * 60 * 60

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) VictimsPerMonth(ctx context.Context, since time.Time) ([]domain.GroupCount, error) {
	return r.groupCounts(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month, COUNT(*)
		FROM questionnaires
		WHERE kind = 'victim' AND created_at >= $1
		GROUP BY month ORDER BY month`, since)
}

func (r *ReportRepo) ViolenceTypes(ctx context.Context) ([]domain.GroupCount, error) {
	return r.groupCounts(ctx, `
		SELECT vt, COUNT(*) AS cnt
		FROM questionnaires,
		     jsonb_array_elements_text(
		         CASE WHEN jsonb_typeof(data->'violenceTypes') = 'array' THEN data->'violenceTypes' ELSE '[]'::jsonb END
		     ) AS vt
		WHERE kind = 'victim'
		GROUP BY vt ORDER BY cnt DESC, vt`)
}

func (r *ReportRepo) AuthorsByMunicipality(ctx context.Context) ([]domain.GroupCount, error) {
	return r.groupCounts(ctx, `
		SELECT COALESCE(data->>'authorMunicipality', '') AS municipality, COUNT(*) AS cnt
		FROM questionnaires
		WHERE kind = 'author'
		GROUP BY municipality ORDER BY cnt DESC, municipality`)
}

func (r *ReportRepo) AvgChildren(ctx context.Context) (*domain.AvgChildren, error) {
	out := &domain.AvgChildren{}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG((data->>'childrenLivingWith')::numeric)
				FILTER (WHERE kind = 'victim' AND jsonb_typeof(data->'childrenLivingWith') = 'number'), 0)::float8,
			COALESCE(AVG((data->>'numberOfChildrenWithVictim')::numeric)
				FILTER (WHERE kind = 'author' AND jsonb_typeof(data->'numberOfChildrenWithVictim') = 'number'), 0)::float8
		FROM questionnaires
		WHERE kind IN ('victim', 'author')`).Scan(&out.VictimsAvg, &out.AuthorsAvg)
	if err != nil {
		return nil, fmt.Errorf("postgres: avg children: %w", err)
	}
	return out, nil
}

func (r *ReportRepo) HousingIncome(ctx context.Context) ([]domain.HousingIncome, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT data->>'housingCondition', data->>'familyIncome', COUNT(*) AS cnt
		FROM questionnaires
		WHERE kind = 'victim' AND data ? 'housingCondition' AND data ? 'familyIncome'
		GROUP BY 1, 2 ORDER BY cnt DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: housing income: %w", err)
	}
	defer rows.Close()

	out := make([]domain.HousingIncome, 0)
	for rows.Next() {
		var h domain.HousingIncome
		if err := rows.Scan(&h.Housing, &h.Income, &h.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan housing income: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Поле даты рождения по типу анкеты.
var birthFields = map[domain.QuestionnaireKind]string{
	domain.KindVictim: "birthDate",
	domain.KindAuthor: "authorBirthDate",
}

// Ages возвращает распределение "возраст в годах -> количество" по дате рождения.
// Значения, не похожие на дату, пропускаются.
func (r *ReportRepo) Ages(ctx context.Context, kind domain.QuestionnaireKind, now time.Time) (map[int]int64, error) {
	birthField, ok := birthFields[kind]
	if !ok {
		return nil, fmt.Errorf("postgres: no birth date field for %q", kind)
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT floor(extract(epoch FROM ($2::timestamptz - (data->>'%[1]s')::timestamptz)) / %[2]d)::int AS age, COUNT(*)
		FROM questionnaires
		WHERE kind = $1 AND data->>'%[1]s' ~ '^\d{4}-\d{2}-\d{2}'
		GROUP BY age`, birthField, secondsPerYear), string(kind), now)
	if err != nil {
		return nil, fmt.Errorf("postgres: ages: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int64)
	for rows.Next() {
		var age int
		var cnt int64
		if err := rows.Scan(&age, &cnt); err != nil {
			return nil, fmt.Errorf("postgres: scan ages: %w", err)
		}
		out[age] += cnt
	}
	return out, rows.Err()
}

func (r *ReportRepo) groupCounts(ctx context.Context, query string, args ...any) ([]domain.GroupCount, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: report query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.GroupCount, 0)
	for rows.Next() {
		var g domain.GroupCount
		if err := rows.Scan(&g.ID, &g.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan report row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
