package api

import (
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/pinggolf/breadplan/internal/db"
)

// PaginationMeta describes a page of a larger result set.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// AuditLogListResponse wraps audit log data with pagination metadata
type AuditLogListResponse struct {
	Data       []map[string]interface{} `json:"data"`
	Pagination PaginationMeta           `json:"pagination"`
}

// handleListAuditLogs lists audit logs with filtering and pagination
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityType := r.URL.Query().Get("entity_type")
	operation := r.URL.Query().Get("operation")
	userID := r.URL.Query().Get("user_id")
	startTimeStr := r.URL.Query().Get("start_time")
	endTimeStr := r.URL.Query().Get("end_time")

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsedPage, err := strconv.Atoi(pageStr); err == nil && parsedPage >= 1 {
			page = parsedPage
		}
	}

	pageSize := 50
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsedSize, err := strconv.Atoi(pageSizeStr); err == nil {
			switch parsedSize {
			case 25, 50, 100, 200:
				pageSize = parsedSize
			default:
				pageSize = 50
			}
		}
	}

	offset := (page - 1) * pageSize

	params := db.GetAuditLogsParams{
		Limit:  int32(pageSize),
		Offset: int32(offset),
	}

	if entityType != "" {
		params.EntityType = sql.NullString{String: entityType, Valid: true}
	}
	if operation != "" {
		params.Operation = sql.NullString{String: operation, Valid: true}
	}
	if userID != "" {
		params.UserID = sql.NullString{String: userID, Valid: true}
	}
	if startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			params.StartTime = sql.NullTime{Time: startTime, Valid: true}
		}
	}
	if endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			params.EndTime = sql.NullTime{Time: endTime, Valid: true}
		}
	}

	totalCount, err := s.db.GetAuditLogsCount(ctx, params)
	if err != nil {
		http.Error(w, "Failed to count audit logs", http.StatusInternalServerError)
		return
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(pageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	logs, err := s.db.GetAuditLogs(ctx, params)
	if err != nil {
		http.Error(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]interface{}, 0, len(logs))
	for _, log := range logs {
		item := map[string]interface{}{
			"id":         log.ID,
			"timestamp":  log.Timestamp,
			"entityType": log.EntityType,
			"operation":  log.Operation,
			"createdAt":  log.CreatedAt,
		}

		if log.UserID.Valid {
			item["userId"] = log.UserID.String
		}
		if log.UserName.Valid {
			item["userName"] = log.UserName.String
		}
		if log.EntityID.Valid {
			item["entityId"] = log.EntityID.String
		}
		if log.IPAddress.Valid {
			item["ipAddress"] = log.IPAddress.String
		}
		if log.UserAgent.Valid {
			item["userAgent"] = log.UserAgent.String
		}

		if len(log.Metadata) > 0 {
			var metadata map[string]interface{}
			if err := json.Unmarshal(log.Metadata, &metadata); err == nil {
				item["metadata"] = metadata
			}
		}

		response = append(response, item)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuditLogListResponse{
		Data: response,
		Pagination: PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalCount: totalCount,
			TotalPages: totalPages,
		},
	})
}
