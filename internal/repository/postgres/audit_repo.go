package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/promulher-api/internal/domain"
)

const auditColumns = `id::text, user_id, user_name, user_role, action, module, details,
	ip_address, user_agent, timestamp, is_deleted, deleted_at, deleted_by, created_at, updated_at`

// Колонки, по которым разрешена сортировка. Ключ — имя поля в API.
var auditSortColumns = map[string]string{
	"timestamp": "timestamp",
	"action":    "action",
	"module":    "module",
	"userName":  "user_name",
	"userRole":  "user_role",
	"createdAt": "created_at",
}

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// WriteBatch вставляет пачку событий одним запросом.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	const numFields = 12
	var placeholders strings.Builder
	vals := make([]interface{}, 0, len(events)*numFields)

	for i, e := range events {
		p := i * numFields
		if i > 0 {
			placeholders.WriteString(",")
		}
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10, p+11, p+12)

		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("postgres: marshal details of %s: %w", e.ID, err)
		}

		vals = append(vals,
			e.ID, e.UserID, e.UserName, string(e.UserRole), string(e.Action), string(e.Module),
			details, nullString(e.IPAddress), nullString(e.UserAgent), e.Timestamp, e.CreatedAt, e.UpdatedAt,
		)
	}

	query := `INSERT INTO audit_logs
		(id, user_id, user_name, user_role, action, module, details, ip_address, user_agent, timestamp, created_at, updated_at)
		VALUES ` + placeholders.String()

	if _, err := r.pool.Exec(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write audit batch: %w", err)
	}
	return nil
}

// Insert — синхронная запись одного события (POST /logs).
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEvent) error {
	return r.WriteBatch(ctx, []domain.AuditEvent{*e})
}

// List возвращает страницу событий и общее число совпавших записей.
func (r *AuditRepo) List(ctx context.Context, f domain.AuditFilter, page domain.PageRequest) ([]domain.AuditEvent, int64, error) {
	where, args := buildAuditWhere(f)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to count audit logs: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM audit_logs%s ORDER BY %s LIMIT $%d OFFSET $%d",
		auditColumns, where, auditOrderBy(page), len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to query audit logs: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	events := make([]domain.AuditEvent, 0, page.Limit)
	for rows.Next() {
		e, err := scanAuditEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: audit rows: %w", err)
	}
	return events, total, nil
}

// GetByID возвращает nil, nil если события нет (или оно удалено, а includeDeleted=false).
func (r *AuditRepo) GetByID(ctx context.Context, id string, includeDeleted bool) (*domain.AuditEvent, error) {
	query := "SELECT " + auditColumns + " FROM audit_logs WHERE id = $1"
	if !includeDeleted {
		query += " AND is_deleted = FALSE"
	}

	e, err := scanAuditEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// SoftDelete ищет только среди активных: повторное удаление вернет nil.
func (r *AuditRepo) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) (*domain.AuditEvent, error) {
	query := `UPDATE audit_logs
		SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + auditColumns

	e, err := scanAuditEvent(r.pool.QueryRow(ctx, query, id, at, nullString(deletedBy)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// Restore снимает tombstone. На активном событии ничего не меняет, включая updated_at.
func (r *AuditRepo) Restore(ctx context.Context, id string) (*domain.AuditEvent, error) {
	query := `UPDATE audit_logs
		SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL,
		    updated_at = CASE WHEN is_deleted THEN NOW() ELSE updated_at END
		WHERE id = $1
		RETURNING ` + auditColumns

	e, err := scanAuditEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// PurgeDeletedBefore физически удаляет мягко удаленные события старше cutoff (по timestamp события).
func (r *AuditRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE is_deleted = TRUE AND timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to purge audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats считает сводку по активным событиям в границах окна w.
func (r *AuditRepo) Stats(ctx context.Context, w domain.StatsWindow) (*domain.Statistics, error) {
	s := &domain.Statistics{}

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE timestamp >= $1 AND timestamp < $2),
			COUNT(*) FILTER (WHERE timestamp >= $3),
			COUNT(*) FILTER (WHERE timestamp >= $4),
			COUNT(DISTINCT user_id) FILTER (WHERE timestamp >= $5 AND user_id IS NOT NULL)
		FROM audit_logs
		WHERE is_deleted = FALSE`,
		w.StartOfDay, w.StartOfDay.AddDate(0, 0, 1), w.Last24h, w.Last7Days, w.Last30Days,
	).Scan(&s.TotalLogs, &s.LogsToday, &s.LogsLast24h, &s.LogsLast7Days, &s.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count stats: %w", err)
	}

	if s.ActionStats, err = r.actionStats(ctx); err != nil {
		return nil, err
	}
	if s.ModuleStats, err = r.moduleStats(ctx); err != nil {
		return nil, err
	}
	if s.TopUsers, err = r.topUsers(ctx, 5); err != nil {
		return nil, err
	}
	if s.RecentActivity, err = r.recentActivity(ctx, 10); err != nil {
		return nil, err
	}

	s.Finalize()
	return s, nil
}

func (r *AuditRepo) actionStats(ctx context.Context) ([]domain.ActionCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT action, COUNT(*) AS cnt FROM audit_logs
		WHERE is_deleted = FALSE
		GROUP BY action ORDER BY cnt DESC, action`)
	if err != nil {
		return nil, fmt.Errorf("postgres: action stats: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ActionCount, 0)
	for rows.Next() {
		var a domain.ActionCount
		if err := rows.Scan(&a.Action, &a.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan action stats: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AuditRepo) moduleStats(ctx context.Context) ([]domain.ModuleCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT module, COUNT(*) AS cnt FROM audit_logs
		WHERE is_deleted = FALSE
		GROUP BY module ORDER BY cnt DESC, module`)
	if err != nil {
		return nil, fmt.Errorf("postgres: module stats: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ModuleCount, 0)
	for rows.Next() {
		var m domain.ModuleCount
		if err := rows.Scan(&m.Module, &m.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan module stats: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// topUsers группирует по user_id; имя берется из самого раннего события пользователя.
func (r *AuditRepo) topUsers(ctx context.Context, limit int) ([]domain.UserActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, (array_agg(user_name ORDER BY timestamp))[1], COUNT(*) AS cnt
		FROM audit_logs
		WHERE is_deleted = FALSE AND user_id IS NOT NULL
		GROUP BY user_id
		ORDER BY cnt DESC, user_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: top users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.UserActivity, 0, limit)
	for rows.Next() {
		var u domain.UserActivity
		if err := rows.Scan(&u.UserID, &u.UserName, &u.Count); err != nil {
			return nil, fmt.Errorf("postgres: scan top users: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *AuditRepo) recentActivity(ctx context.Context, limit int) ([]domain.ActivitySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, action, module, user_name, timestamp, COALESCE(details->>'description', '')
		FROM audit_logs
		WHERE is_deleted = FALSE
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent activity: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ActivitySummary, 0, limit)
	for rows.Next() {
		var a domain.ActivitySummary
		if err := rows.Scan(&a.ID, &a.Action, &a.Module, &a.UserName, &a.Timestamp, &a.Description); err != nil {
			return nil, fmt.Errorf("postgres: scan recent activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// buildAuditWhere превращает фильтр в WHERE-часть и аргументы. Удаленные исключаются по умолчанию.
func buildAuditWhere(f domain.AuditFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !f.IncludeDeleted {
		conds = append(conds, "is_deleted = FALSE")
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.Module != "" {
		add("module = $%d", string(f.Module))
	}
	if f.StartDate != nil {
		add("timestamp >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("timestamp <= $%d", *f.EndDate)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		args = append(args, "%"+escapeLike(term)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(user_name ILIKE $%d OR details->>'description' ILIKE $%d OR details->>'itemName' ILIKE $%d)", n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func auditOrderBy(p domain.PageRequest) string {
	col, ok := auditSortColumns[p.SortBy]
	if !ok {
		col = "timestamp"
	}
	dir := "DESC"
	if p.SortOrder == "asc" {
		dir = "ASC"
	}
	// id — стабильный порядок при равных значениях
	return col + " " + dir + ", id " + dir
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanAuditEvent(row pgx.Row) (*domain.AuditEvent, error) {
	var (
		e                   domain.AuditEvent
		details             []byte
		ipAddress, userAgnt *string
	)
	err := row.Scan(
		&e.ID, &e.UserID, &e.UserName, &e.UserRole, &e.Action, &e.Module, &details,
		&ipAddress, &userAgnt, &e.Timestamp, &e.IsDeleted, &e.DeletedAt, &e.DeletedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("postgres: scan audit event: %w", err)
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("postgres: decode details of %s: %w", e.ID, err)
		}
	}
	if ipAddress != nil {
		e.IPAddress = *ipAddress
	}
	if userAgnt != nil {
		e.UserAgent = *userAgnt
	}
	return &e, nil
}
