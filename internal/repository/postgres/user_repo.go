package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/promulher-api/internal/domain"
)

const userColumns = `id::text, nome, email, senha, role, created_at, updated_at`

// uniqueViolation — код ошибки Postgres для нарушения UNIQUE.
const uniqueViolation = "23505"

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, nome, email, senha, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Nome, u.Email, u.Senha, string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("postgres: failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail возвращает nil, nil если пользователя нет.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *UserRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser перезаписывает редактируемые поля. false — пользователь не найден.
func (r *UserRepo) UpdateUser(ctx context.Context, u *domain.User) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET nome = $2, email = $3, senha = $4, role = $5, updated_at = $6
		WHERE id = $1`,
		u.ID, u.Nome, u.Email, u.Senha, string(u.Role), u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, domain.ErrConflict
		}
		return false, fmt.Errorf("postgres: failed to update user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepo) DeleteUser(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: failed to delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.Senha, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan user: %w", err)
	}
	return u, nil
}
