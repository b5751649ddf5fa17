package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// CreateSolveJob inserts a new solve job in the pending state.
func (q *Queries) CreateSolveJob(ctx context.Context, jobID, requestedBy string, horizonStart, horizonEnd sql.NullTime, inputDigest string) error {
	query := `
		INSERT INTO solve_jobs (
			id, requested_by, status, horizon_start, horizon_end, input_digest
		) VALUES ($1, $2, 'pending', $3, $4, $5)
	`
	_, err := q.db.ExecContext(ctx, query, jobID, requestedBy, horizonStart, horizonEnd, inputDigest)
	return err
}

// StartSolveJob marks a job as running.
func (q *Queries) StartSolveJob(ctx context.Context, jobID string) error {
	query := `
		UPDATE solve_jobs
		SET status = 'running', started_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	_, err := q.db.ExecContext(ctx, query, jobID)
	return err
}

// UpdateSolveJobModelSize records the built model's variable and
// constraint counts, surfaced to callers before the solve itself starts.
func (q *Queries) UpdateSolveJobModelSize(ctx context.Context, jobID string, varCount, constraintCount int, warnings []string) error {
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}
	query := `
		UPDATE solve_jobs
		SET var_count = $1, constraint_count = $2, warnings = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err = q.db.ExecContext(ctx, query, varCount, constraintCount, warningsJSON, jobID)
	return err
}

// CompleteSolveJob marks a job as completed with its objective value.
func (q *Queries) CompleteSolveJob(ctx context.Context, jobID string, objectiveValue float64) error {
	query := `
		UPDATE solve_jobs
		SET status = 'completed',
		    objective_value = $1,
		    completed_at = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::INTEGER,
		    updated_at = NOW()
		WHERE id = $2
	`
	_, err := q.db.ExecContext(ctx, query, objectiveValue, jobID)
	return err
}

// FailSolveJob marks a job as failed with an error message.
func (q *Queries) FailSolveJob(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE solve_jobs
		SET status = 'failed',
		    error_message = $1,
		    completed_at = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::INTEGER,
		    updated_at = NOW()
		WHERE id = $2
	`
	_, err := q.db.ExecContext(ctx, query, errorMsg, jobID)
	return err
}

// TimeLimitSolveJob marks a job as stopped by the solver's time limit
// without having found an incumbent worth reporting.
func (q *Queries) TimeLimitSolveJob(ctx context.Context, jobID string) error {
	query := `
		UPDATE solve_jobs
		SET status = 'time_limit',
		    completed_at = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::INTEGER,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := q.db.ExecContext(ctx, query, jobID)
	return err
}

// CancelSolveJob marks a job as cancelled, only if it hasn't already
// reached a terminal state.
func (q *Queries) CancelSolveJob(ctx context.Context, jobID, message string) error {
	query := `
		UPDATE solve_jobs
		SET status = 'cancelled',
		    error_message = $1,
		    completed_at = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM (NOW() - started_at))::INTEGER,
		    updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'running')
	`
	result, err := q.db.ExecContext(ctx, query, message, jobID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("job not found or not in cancellable state")
	}

	return nil
}

// GetSolveJob fetches a job by ID.
func (q *Queries) GetSolveJob(ctx context.Context, jobID string) (*SolveJob, error) {
	query := `
		SELECT
			id, requested_by, status, horizon_start, horizon_end, input_digest,
			var_count, constraint_count, objective_value, warnings,
			started_at, completed_at, duration_seconds,
			error_message, created_at, updated_at
		FROM solve_jobs
		WHERE id = $1
	`

	job := &SolveJob{}
	err := q.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.RequestedBy, &job.Status, &job.HorizonStart, &job.HorizonEnd, &job.InputDigest,
		&job.VarCount, &job.ConstraintCount, &job.ObjectiveValue, &job.WarningsJSON,
		&job.StartedAt, &job.CompletedAt, &job.DurationSeconds,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ListSolveJobs returns the most recent solve jobs, newest first.
func (q *Queries) ListSolveJobs(ctx context.Context, limit int) ([]SolveJob, error) {
	query := `
		SELECT
			id, requested_by, status, horizon_start, horizon_end, input_digest,
			var_count, constraint_count, objective_value, warnings,
			started_at, completed_at, duration_seconds,
			error_message, created_at, updated_at
		FROM solve_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []SolveJob
	for rows.Next() {
		var job SolveJob
		err := rows.Scan(
			&job.ID, &job.RequestedBy, &job.Status, &job.HorizonStart, &job.HorizonEnd, &job.InputDigest,
			&job.VarCount, &job.ConstraintCount, &job.ObjectiveValue, &job.WarningsJSON,
			&job.StartedAt, &job.CompletedAt, &job.DurationSeconds,
			&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ========================================
// Solve Job Pipeline Stage Tracking
// ========================================
//
// A solve job passes through five pipeline stages (network, routes,
// cohort, model, solve) before a result is available; these mirror the
// pure core packages a Plan is built from (internal/planning/plan).

// CreateSolveJobStage creates a new pipeline stage record in pending state.
func (q *Queries) CreateSolveJobStage(ctx context.Context, jobID, stage string) error {
	query := `
		INSERT INTO solve_job_stages (job_id, stage, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (job_id, stage) DO NOTHING
	`
	_, err := q.db.ExecContext(ctx, query, jobID, stage)
	return err
}

// StartSolveJobStage marks a pipeline stage as started.
func (q *Queries) StartSolveJobStage(ctx context.Context, jobID, stage string) error {
	query := `
		UPDATE solve_job_stages
		SET status = 'running', started_at = NOW(), updated_at = NOW()
		WHERE job_id = $1 AND stage = $2
	`
	_, err := q.db.ExecContext(ctx, query, jobID, stage)
	return err
}

// CompleteSolveJobStage marks a pipeline stage as completed.
func (q *Queries) CompleteSolveJobStage(ctx context.Context, jobID, stage string, durationMs int64) error {
	query := `
		UPDATE solve_job_stages
		SET status = 'completed', duration_ms = $3, completed_at = NOW(), updated_at = NOW()
		WHERE job_id = $1 AND stage = $2
	`
	_, err := q.db.ExecContext(ctx, query, jobID, stage, durationMs)
	return err
}

// FailSolveJobStage marks a pipeline stage as failed.
func (q *Queries) FailSolveJobStage(ctx context.Context, jobID, stage, errorMsg string) error {
	query := `
		UPDATE solve_job_stages
		SET status = 'failed', error_message = $3, completed_at = NOW(), updated_at = NOW()
		WHERE job_id = $1 AND stage = $2
	`
	_, err := q.db.ExecContext(ctx, query, jobID, stage, errorMsg)
	return err
}
