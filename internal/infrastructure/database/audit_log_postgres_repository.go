package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classbridge/records-admin-service/internal/domain/entity"
	"github.com/classbridge/records-admin-service/internal/domain/repository"
)

type pgxAuditLogRepository struct {
	db *pgxpool.Pool
}

// NewPgxAuditLogRepository creates a new pgx-backed audit log store.
func NewPgxAuditLogRepository(db *pgxpool.Pool) repository.AuditLogRepository {
	return &pgxAuditLogRepository{db: db}
}

func (r *pgxAuditLogRepository) Create(ctx context.Context, entry *entity.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, resource_type, resource_id, ip_address, user_agent, success, error_message, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.QueryRow(ctx, query,
		entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.ErrorMessage,
		entry.Details, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *pgxAuditLogRepository) List(ctx context.Context, params repository.ListAuditLogParams) ([]*entity.AuditLog, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`SELECT id, user_id, action, resource_type, resource_id, ip_address, user_agent, success, error_message, details, created_at FROM audit_logs WHERE 1=1`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(*) FROM audit_logs WHERE 1=1`)

	args := []interface{}{}
	argCount := 1

	addFilter := func(condition string, value interface{}) {
		baseQuery.WriteString(fmt.Sprintf(" AND %s $%d", condition, argCount))
		countQuery.WriteString(fmt.Sprintf(" AND %s $%d", condition, argCount))
		args = append(args, value)
		argCount++
	}

	if params.UserID != nil {
		addFilter("user_id =", *params.UserID)
	}
	if params.Action != nil && *params.Action != "" {
		addFilter("action =", *params.Action)
	}
	if params.ResourceType != nil && *params.ResourceType != "" {
		addFilter("resource_type =", *params.ResourceType)
	}
	if params.ResourceID != nil && *params.ResourceID != "" {
		addFilter("resource_id =", *params.ResourceID)
	}
	if params.Success != nil {
		addFilter("success =", *params.Success)
	}
	if params.DateFrom != nil {
		addFilter("created_at >=", *params.DateFrom)
	}
	if params.DateTo != nil {
		addFilter("created_at <=", *params.DateTo)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	if total == 0 {
		return []*entity.AuditLog{}, 0, nil
	}

	sortBy := params.SortBy
	switch sortBy {
	case "created_at", "action", "user_id":
	default:
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	baseQuery.WriteString(fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder))

	if params.PerPage > 0 {
		baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, params.PerPage)
		argCount++
		if params.Page > 1 {
			baseQuery.WriteString(fmt.Sprintf(" OFFSET $%d", argCount))
			args = append(args, (params.Page-1)*params.PerPage)
			argCount++
		}
	}

	rows, err := r.db.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*entity.AuditLog
	for rows.Next() {
		entry := &entity.AuditLog{}
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType, &entry.ResourceID,
			&entry.IPAddress, &entry.UserAgent, &entry.Success, &entry.ErrorMessage,
			&entry.Details, &entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log entry: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error after iterating audit logs: %w", err)
	}
	return logs, total, nil
}

func (r *pgxAuditLogRepository) Stats(ctx context.Context, since time.Time) (*repository.AuditLogStats, error) {
	stats := &repository.AuditLogStats{CountsByAction: map[string]int64{}}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT success) FROM audit_logs WHERE created_at >= $1`,
		since,
	).Scan(&stats.TotalEntries, &stats.FailedEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to compute audit log totals: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT action, COUNT(*) FROM audit_logs WHERE created_at >= $1 GROUP BY action`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute audit log action counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan audit log action count: %w", err)
		}
		stats.CountsByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating audit log stats: %w", err)
	}
	return stats, nil
}

func (r *pgxAuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	commandTag, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

var _ repository.AuditLogRepository = (*pgxAuditLogRepository)(nil)
