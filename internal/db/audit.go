package db

import (
	"context"
	"fmt"
)

// CreateAuditLog inserts a new audit log entry
func (q *Queries) CreateAuditLog(ctx context.Context, params CreateAuditLogParams) error {
	query := `
		INSERT INTO audit_log (
			entity_type, entity_id, operation,
			user_id, user_name,
			metadata, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.db.ExecContext(ctx, query,
		params.EntityType,
		params.EntityID,
		params.Operation,
		params.UserID,
		params.UserName,
		params.Metadata,
		params.IPAddress,
		params.UserAgent,
	)
	return err
}

// auditLogFilter builds the shared WHERE clause and argument list for the
// audit log filters, so GetAuditLogs and GetAuditLogsCount stay in sync.
func auditLogFilter(params GetAuditLogsParams) (string, []interface{}) {
	clause := " WHERE 1=1"
	var args []interface{}
	argNum := 1

	if params.EntityType.Valid {
		clause += fmt.Sprintf(" AND entity_type = $%d", argNum)
		args = append(args, params.EntityType.String)
		argNum++
	}

	if params.Operation.Valid {
		clause += fmt.Sprintf(" AND operation = $%d", argNum)
		args = append(args, params.Operation.String)
		argNum++
	}

	if params.UserID.Valid {
		clause += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, params.UserID.String)
		argNum++
	}

	if params.StartTime.Valid {
		clause += fmt.Sprintf(" AND timestamp >= $%d", argNum)
		args = append(args, params.StartTime.Time)
		argNum++
	}

	if params.EndTime.Valid {
		clause += fmt.Sprintf(" AND timestamp <= $%d", argNum)
		args = append(args, params.EndTime.Time)
		argNum++
	}

	return clause, args
}

// GetAuditLogs queries audit logs with filters and pagination.
func (q *Queries) GetAuditLogs(ctx context.Context, params GetAuditLogsParams) ([]AuditLog, error) {
	clause, args := auditLogFilter(params)
	argNum := len(args) + 1

	query := `
		SELECT
			id, timestamp, user_id, user_name,
			entity_type, entity_id, operation,
			metadata, ip_address, user_agent, created_at
		FROM audit_log
	` + clause + " ORDER BY timestamp DESC"

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, params.Limit)
		argNum++
	}

	if params.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, params.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		err := rows.Scan(
			&log.ID, &log.Timestamp, &log.UserID, &log.UserName,
			&log.EntityType, &log.EntityID, &log.Operation,
			&log.Metadata, &log.IPAddress, &log.UserAgent, &log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// GetAuditLogsCount returns the total number of audit logs matching the
// same filters as GetAuditLogs, ignoring pagination, for page-count math.
func (q *Queries) GetAuditLogsCount(ctx context.Context, params GetAuditLogsParams) (int, error) {
	clause, args := auditLogFilter(params)
	query := "SELECT COUNT(*) FROM audit_log" + clause

	var count int
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetAuditLogsByEntity retrieves all audit entries for a specific entity
func (q *Queries) GetAuditLogsByEntity(ctx context.Context, entityType, entityID string, limit int) ([]AuditLog, error) {
	query := `
		SELECT
			id, timestamp, user_id, user_name,
			entity_type, entity_id, operation,
			metadata, ip_address, user_agent, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp DESC
		LIMIT $3
	`

	rows, err := q.db.QueryContext(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []AuditLog
	for rows.Next() {
		var log AuditLog
		err := rows.Scan(
			&log.ID, &log.Timestamp, &log.UserID, &log.UserName,
			&log.EntityType, &log.EntityID, &log.Operation,
			&log.Metadata, &log.IPAddress, &log.UserAgent, &log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
