package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ========================================
// AUDIT LOG MODELS
// ========================================

// AuditLog represents an audit log entry for a plan or solve job mutation.
type AuditLog struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	UserID     sql.NullString  `json:"user_id,omitempty"`
	UserName   sql.NullString  `json:"user_name,omitempty"`
	EntityType string          `json:"entity_type"`
	EntityID   sql.NullString  `json:"entity_id,omitempty"`
	Operation  string          `json:"operation"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	IPAddress  sql.NullString  `json:"ip_address,omitempty"`
	UserAgent  sql.NullString  `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CreateAuditLogParams contains parameters for creating an audit log.
type CreateAuditLogParams struct {
	EntityType string
	EntityID   sql.NullString
	Operation  string
	UserID     sql.NullString
	UserName   sql.NullString
	Metadata   json.RawMessage
	IPAddress  sql.NullString
	UserAgent  sql.NullString
}

// GetAuditLogsParams contains parameters for querying audit logs.
type GetAuditLogsParams struct {
	EntityType sql.NullString
	Operation  sql.NullString
	UserID     sql.NullString
	StartTime  sql.NullTime
	EndTime    sql.NullTime
	Limit      int32
	Offset     int32
}

// ========================================
// SOLVE JOB MODELS
// ========================================

// SolveJob is one asynchronous plan-solve request, tracked from submission
// through the solver's termination.
type SolveJob struct {
	ID               string
	RequestedBy      sql.NullString
	Status           string // pending, running, completed, failed, cancelled, time_limit
	HorizonStart     time.Time
	HorizonEnd       time.Time
	InputDigest      sql.NullString
	VarCount         sql.NullInt32
	ConstraintCount  sql.NullInt32
	ObjectiveValue   sql.NullFloat64
	WarningsJSON     json.RawMessage
	ErrorMessage     sql.NullString
	StartedAt        sql.NullTime
	CompletedAt      sql.NullTime
	DurationSeconds  sql.NullInt32
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
