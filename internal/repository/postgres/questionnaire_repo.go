package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/promulher-api/internal/domain"
)

const questionnaireColumns = `id::text, kind, data, created_by, created_at, updated_at`

type QuestionnaireRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionnaireRepo(pool *pgxpool.Pool) *QuestionnaireRepo {
	return &QuestionnaireRepo{pool: pool}
}

func (r *QuestionnaireRepo) Create(ctx context.Context, q *domain.Questionnaire) error {
	data, err := json.Marshal(q.Data)
	if err != nil {
		return fmt.Errorf("postgres: marshal questionnaire: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO questionnaires (id, kind, data, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, string(q.Kind), data, q.CreatedBy, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to create questionnaire: %w", err)
	}
	return nil
}

// List — анкеты одного типа, новые первыми. match — точное совпадение полей документа.
func (r *QuestionnaireRepo) List(ctx context.Context, kind domain.QuestionnaireKind, match map[string]string) ([]*domain.Questionnaire, error) {
	query := "SELECT " + questionnaireColumns + " FROM questionnaires WHERE kind = $1"
	args := []any{string(kind)}
	if len(match) > 0 {
		doc, err := json.Marshal(match)
		if err != nil {
			return nil, fmt.Errorf("postgres: marshal match: %w", err)
		}
		args = append(args, doc)
		query += " AND data @> $2::jsonb"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list questionnaires: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Questionnaire, 0)
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Get возвращает nil, nil если анкеты нет.
func (r *QuestionnaireRepo) Get(ctx context.Context, kind domain.QuestionnaireKind, id string) (*domain.Questionnaire, error) {
	q, err := scanQuestionnaire(r.pool.QueryRow(ctx,
		"SELECT "+questionnaireColumns+" FROM questionnaires WHERE kind = $1 AND id = $2", string(kind), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

// Update сливает присланные поля с документом (ключи верхнего уровня заменяются целиком).
func (r *QuestionnaireRepo) Update(ctx context.Context, kind domain.QuestionnaireKind, id string, patch map[string]any) (*domain.Questionnaire, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal questionnaire patch: %w", err)
	}
	q, err := scanQuestionnaire(r.pool.QueryRow(ctx, `
		UPDATE questionnaires SET data = data || $3::jsonb, updated_at = NOW()
		WHERE kind = $1 AND id = $2
		RETURNING `+questionnaireColumns, string(kind), id, data))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func (r *QuestionnaireRepo) Delete(ctx context.Context, kind domain.QuestionnaireKind, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questionnaires WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to delete questionnaire: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanQuestionnaire(row pgx.Row) (*domain.Questionnaire, error) {
	var (
		q    domain.Questionnaire
		data []byte
	)
	if err := row.Scan(&q.ID, &q.Kind, &data, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan questionnaire: %w", err)
	}
	if err := json.Unmarshal(data, &q.Data); err != nil {
		return nil, fmt.Errorf("postgres: decode questionnaire %s: %w", q.ID, err)
	}
	return &q, nil
}
