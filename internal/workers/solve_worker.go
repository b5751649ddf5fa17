package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pinggolf/breadplan/internal/db"
	"github.com/pinggolf/breadplan/internal/planning/domain"
	"github.com/pinggolf/breadplan/internal/planning/perr"
	"github.com/pinggolf/breadplan/internal/planning/plan"
	"github.com/pinggolf/breadplan/internal/queue"
	"github.com/pinggolf/breadplan/internal/solver"
)

// SolveWorker picks up submitted solve jobs, runs the planning pipeline
// (network build, route enumeration, cohort indexing, model build) and
// hands the resulting model to the external MILP solver.
type SolveWorker struct {
	nats        *queue.Manager
	db          *db.Queries
	cbc         *solver.CBCSolver
	logger      zerolog.Logger
	registry    *plan.Registry
	cancelFuncs map[string]context.CancelFunc
	cancelMu    sync.Mutex
}

// NewSolveWorker creates a new solve worker.
func NewSolveWorker(natsManager *queue.Manager, queries *db.Queries, cbc *solver.CBCSolver, logger zerolog.Logger) *SolveWorker {
	return &SolveWorker{
		nats:        natsManager,
		db:          queries,
		cbc:         cbc,
		logger:      logger,
		registry:    plan.NewRegistry(),
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// SolveRequestMessage is the payload published to plan.solve.submit.
type SolveRequestMessage struct {
	JobID string             `json:"jobId"`
	Input SolveInputPayload `json:"input"`
}

// SolveInputPayload mirrors the wire shape of the API's solve job request;
// kept as a separate type (rather than importing internal/api) so the
// worker and the HTTP layer don't form an import cycle.
type SolveInputPayload struct {
	Locations     []domain.Location        `json:"locations"`
	Routes        []domain.Route           `json:"routes"`
	Products      []string                 `json:"products"`
	HorizonStart  string                   `json:"horizonStart"`
	HorizonDays   int                      `json:"horizonDays"`
	Forecast      domain.Forecast          `json:"forecast"`
	Labor         domain.LaborCalendar     `json:"labor"`
	Trucks        []domain.Truck           `json:"trucks"`
	StartingStock domain.InventorySnapshot `json:"startingInventory"`
}

// Start subscribes to the solve job queue and begins processing.
func (w *SolveWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("starting solve worker")

	if _, err := w.nats.QueueSubscribe(queue.SubjectSolveSubmit, queue.QueueGroupSolve, w.handleSubmit); err != nil {
		return fmt.Errorf("failed to subscribe to solve submissions: %w", err)
	}

	if _, err := w.nats.Subscribe("plan.solve.cancel.>", w.handleCancel); err != nil {
		return fmt.Errorf("failed to subscribe to solve cancellations: %w", err)
	}

	return nil
}

func (w *SolveWorker) handleCancel(msg *nats.Msg) {
	jobID := string(msg.Data)

	w.cancelMu.Lock()
	cancel, ok := w.cancelFuncs[jobID]
	w.cancelMu.Unlock()

	if ok {
		cancel()
	}
}

func (w *SolveWorker) handleSubmit(msg *nats.Msg) {
	var req SolveRequestMessage
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		w.logger.Error().Err(err).Msg("failed to decode solve request")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelMu.Lock()
	w.cancelFuncs[req.JobID] = cancel
	w.cancelMu.Unlock()
	defer func() {
		w.cancelMu.Lock()
		delete(w.cancelFuncs, req.JobID)
		w.cancelMu.Unlock()
		cancel()
	}()

	if err := w.db.StartSolveJob(ctx, req.JobID); err != nil {
		w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("failed to mark job running")
		return
	}

	result, err := w.run(ctx, req)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("solve job failed")
		_ = w.db.FailSolveJob(ctx, req.JobID, err.Error())
		w.publish(queue.GetSolveErrorSubject(req.JobID), map[string]string{"error": err.Error()})
		return
	}

	switch result.Status {
	case solver.StatusOptimal:
		if err := w.db.CompleteSolveJob(ctx, req.JobID, result.ObjectiveValue); err != nil {
			w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("failed to record completion")
			return
		}
		w.publish(queue.GetSolveCompleteSubject(req.JobID), map[string]interface{}{
			"objectiveValue": result.ObjectiveValue,
			"status":         string(result.Status),
		})
	case solver.StatusTimeLimit:
		_ = w.db.TimeLimitSolveJob(ctx, req.JobID)
		w.publish(queue.GetSolveErrorSubject(req.JobID), map[string]string{"status": string(result.Status)})
	case solver.StatusInfeasible:
		msg := perr.New(perr.KindSolverInfeasible, "solver terminated infeasible").Error()
		_ = w.db.FailSolveJob(ctx, req.JobID, msg)
		w.publish(queue.GetSolveErrorSubject(req.JobID), map[string]string{"error": msg})
	default:
		msg := fmt.Sprintf("solver returned unexpected status %q", result.Status)
		_ = w.db.FailSolveJob(ctx, req.JobID, msg)
		w.publish(queue.GetSolveErrorSubject(req.JobID), map[string]string{"error": msg})
	}
}

func (w *SolveWorker) run(ctx context.Context, req SolveRequestMessage) (solver.Result, error) {
	in := req.Input

	horizonStartT, err := time.Parse("2006-01-02", in.HorizonStart)
	if err != nil {
		return solver.Result{}, fmt.Errorf("invalid horizon start: %w", err)
	}
	horizonStart := domain.NewDate(horizonStartT)
	horizon := domain.DateRange{Start: horizonStart, End: horizonStart.AddDays(in.HorizonDays - 1)}

	w.reportStage(req.JobID, "network", "running")
	planInput := plan.Input{
		Locations:         in.Locations,
		Routes:            in.Routes,
		ManufacturingID:   firstManufacturingID(in.Locations),
		Products:          in.Products,
		Horizon:           horizon,
		Forecast:          in.Forecast,
		Labor:             in.Labor,
		Trucks:            in.Trucks,
		Costs:             domain.DefaultCostStructure(),
		StartingInventory: in.StartingStock,
	}

	p, err := plan.Build(planInput, w.registry)
	if err != nil {
		w.reportStage(req.JobID, "model", "failed")
		return solver.Result{}, err
	}
	w.reportStage(req.JobID, "model", "completed")

	if err := w.db.UpdateSolveJobModelSize(ctx, req.JobID, p.Model.VarCount(), p.Model.ConstraintCount(), p.Warnings); err != nil {
		w.logger.Warn().Err(err).Str("job_id", req.JobID).Msg("failed to record model size")
	}

	w.reportStage(req.JobID, "solve", "running")
	result, err := w.cbc.Solve(ctx, p.Model, req.JobID)
	if err != nil {
		w.reportStage(req.JobID, "solve", "failed")
		return solver.Result{}, err
	}
	w.reportStage(req.JobID, "solve", "completed")

	return result, nil
}

func (w *SolveWorker) reportStage(jobID, stage, status string) {
	ctx := context.Background()
	switch status {
	case "running":
		_ = w.db.StartSolveJobStage(ctx, jobID, stage)
	case "completed":
		_ = w.db.CompleteSolveJobStage(ctx, jobID, stage, 0)
	case "failed":
		_ = w.db.FailSolveJobStage(ctx, jobID, stage, "stage failed")
	}
	w.publish(queue.GetSolveStageSubject(jobID), map[string]string{"stage": stage, "status": status})
}

func (w *SolveWorker) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := w.nats.Publish(subject, data); err != nil {
		w.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish progress event")
	}
}

func firstManufacturingID(locations []domain.Location) string {
	for _, l := range locations {
		if l.Type == domain.LocationManufacturing {
			return l.ID
		}
	}
	return ""
}
