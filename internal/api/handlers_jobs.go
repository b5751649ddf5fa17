package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"

	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/queue"
)

// SolveJobRequest is the payload accepted by the solve submission endpoint.
// It carries everything plan.Build needs, serialized for the wire; the
// solve worker unmarshals it back into a plan.Input.
type SolveJobRequest struct {
	Locations     []domain.Location      `json:"locations"`
	Routes        []domain.Route         `json:"routes"`
	Products      []string               `json:"products"`
	HorizonStart  string                 `json:"horizonStart"`
	HorizonDays   int                    `json:"horizonDays"`
	Forecast      domain.Forecast        `json:"forecast"`
	Labor         domain.LaborCalendar   `json:"labor"`
	Trucks        []domain.Truck         `json:"trucks"`
	StartingStock domain.InventorySnapshot `json:"startingInventory"`
}

// SolveJobResponse reports a job's identity and current status.
type SolveJobResponse struct {
	JobID          string   `json:"jobId"`
	Status         string   `json:"status"`
	ObjectiveValue *float64 `json:"objectiveValue,omitempty"`
	ErrorMessage   string   `json:"errorMessage,omitempty"`
}

// handleSubmitSolveJob accepts a plan-solve request, persists it, and
// dispatches it to the solve worker pool over NATS.
func (s *Server) handleSubmitSolveJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SolveJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	parsedStart, err := time.Parse("2006-01-02", req.HorizonStart)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid horizonStart: %v", err), http.StatusBadRequest)
		return
	}
	horizonStart := domain.NewDate(parsedStart)
	if req.HorizonDays <= 0 {
		http.Error(w, "horizonDays must be positive", http.StatusBadRequest)
		return
	}

	principal := s.principalFromRequest(r)
	if err := s.rateLimiter.Wait(ctx, principal); err != nil {
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	jobID := uuid.NewString()
	horizon := domain.DateRange{Start: horizonStart, End: horizonStart.AddDays(req.HorizonDays - 1)}

	if err := s.db.CreateSolveJob(ctx, jobID, principal,
		sql.NullTime{Time: horizon.Start.Time(), Valid: true},
		sql.NullTime{Time: horizon.End.Time(), Valid: true}, ""); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to create solve job")
		http.Error(w, "Failed to create solve job", http.StatusInternalServerError)
		return
	}

	for _, stage := range solvePipelineStages {
		_ = s.db.CreateSolveJobStage(ctx, jobID, stage)
	}

	payload, err := json.Marshal(struct {
		JobID string          `json:"jobId"`
		Input SolveJobRequest `json:"input"`
	}{JobID: jobID, Input: req})
	if err != nil {
		http.Error(w, "Failed to encode solve job", http.StatusInternalServerError)
		return
	}

	if err := s.natsManager.Publish(queue.SubjectSolveSubmit, payload); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to dispatch solve job")
		_ = s.db.FailSolveJob(ctx, jobID, "failed to dispatch to solve worker pool")
		http.Error(w, "Failed to dispatch solve job", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SolveJobResponse{JobID: jobID, Status: "pending"})
}

// solvePipelineStages names the stages a solve job is tracked through,
// mirroring internal/planning/plan.Build's call sequence.
var solvePipelineStages = []string{"network", "routes", "cohort", "model", "solve"}

// handleGetSolveJob returns the status of a solve job.
func (s *Server) handleGetSolveJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	job, err := s.db.GetSolveJob(ctx, jobID)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"jobId":        job.ID,
		"status":       job.Status,
		"horizonStart": job.HorizonStart,
		"horizonEnd":   job.HorizonEnd,
		"createdAt":    job.CreatedAt,
	}
	if job.VarCount.Valid {
		resp["varCount"] = job.VarCount.Int32
	}
	if job.ConstraintCount.Valid {
		resp["constraintCount"] = job.ConstraintCount.Int32
	}
	if job.ObjectiveValue.Valid {
		resp["objectiveValue"] = job.ObjectiveValue.Float64
	}
	if job.ErrorMessage.Valid {
		resp["errorMessage"] = job.ErrorMessage.String
	}
	if job.DurationSeconds.Valid {
		resp["durationSeconds"] = job.DurationSeconds.Int32
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleListSolveJobs lists recent solve jobs.
func (s *Server) handleListSolveJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	jobs, err := s.db.ListSolveJobs(ctx, limit)
	if err != nil {
		http.Error(w, "Failed to list solve jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"jobs": jobs})
}

// handleCancelSolveJob requests cancellation of a pending or running solve job.
func (s *Server) handleCancelSolveJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	if err := s.db.CancelSolveJob(ctx, jobID, "cancelled by operator"); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err := s.natsManager.Publish(queue.GetSolveCancelSubject(jobID), []byte(jobID)); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to publish cancellation")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"jobId":   jobID,
	})
}

// handleSolveJobProgress streams pipeline-stage progress via SSE until the
// job reaches a terminal status or the client disconnects.
func (s *Server) handleSolveJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := s.natsManager.Subscribe(queue.GetSolveStageSubject(jobID), func(msg *nats.Msg) {
		fmt.Fprintf(w, "data: %s\n\n", string(msg.Data))
		flusher.Flush()
	})
	if err != nil {
		http.Error(w, "Failed to subscribe to progress updates", http.StatusInternalServerError)
		return
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			job, err := s.db.GetSolveJob(r.Context(), jobID)
			if err != nil {
				return
			}
			switch job.Status {
			case "completed", "failed", "cancelled", "time_limit":
				return
			}
		}
	}
}
