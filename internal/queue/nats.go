package queue

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Manager handles the NATS connection and messaging used to dispatch and
// track asynchronous solve jobs.
type Manager struct {
	conn    *nats.Conn
	url     string
	options []nats.Option
	logger  zerolog.Logger
}

// NewManager creates a new NATS manager.
func NewManager(natsURL string, logger zerolog.Logger) (*Manager, error) {
	options := []nats.Option{
		nats.Name("breadplan"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	}

	// Connect to NATS
	conn, err := nats.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info().Str("url", natsURL).Msg("connected to NATS")

	return &Manager{
		conn:    conn,
		url:     natsURL,
		options: options,
		logger:  logger,
	}, nil
}

// Close closes the NATS connection
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// Conn returns the NATS connection
func (m *Manager) Conn() *nats.Conn {
	return m.conn
}

// Publish publishes a message to a subject
func (m *Manager) Publish(subject string, data []byte) error {
	return m.conn.Publish(subject, data)
}

// Subscribe subscribes to a subject with a handler
func (m *Manager) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.Subscribe(subject, handler)
}

// QueueSubscribe creates a queue subscriber, load balanced across the
// solve workers listening on the same queue group.
func (m *Manager) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.QueueSubscribe(subject, queue, handler)
}

// Request sends a request and waits for a response
func (m *Manager) Request(subject string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	return m.conn.Request(subject, data, timeout)
}

// NATS subject patterns for the solve job pipeline.
const (
	// SubjectSolveSubmit is the request subject a worker queue-subscribes
	// to pick up newly submitted solve jobs.
	SubjectSolveSubmit = "plan.solve.submit"

	SubjectSolveProgress = "plan.solve.progress.%s" // plan.solve.progress.{jobID}
	SubjectSolveComplete = "plan.solve.complete.%s" // plan.solve.complete.{jobID}
	SubjectSolveError    = "plan.solve.error.%s"    // plan.solve.error.{jobID}
	SubjectSolveCancel   = "plan.solve.cancel.%s"   // plan.solve.cancel.{jobID}

	// SubjectSolveStage reports a single pipeline stage transition
	// (network, routes, cohort, model, solve) for a job.
	SubjectSolveStage = "plan.solve.stage.%s" // plan.solve.stage.{jobID}

	// QueueGroupSolve is the queue group solve workers subscribe under,
	// so a submitted job is picked up by exactly one worker.
	QueueGroupSolve = "solve-workers"
)

// GetSolveProgressSubject returns the progress subject for a solve job.
func GetSolveProgressSubject(jobID string) string {
	return fmt.Sprintf(SubjectSolveProgress, jobID)
}

// GetSolveCompleteSubject returns the completion subject for a solve job.
func GetSolveCompleteSubject(jobID string) string {
	return fmt.Sprintf(SubjectSolveComplete, jobID)
}

// GetSolveErrorSubject returns the error subject for a solve job.
func GetSolveErrorSubject(jobID string) string {
	return fmt.Sprintf(SubjectSolveError, jobID)
}

// GetSolveCancelSubject returns the cancellation subject for a solve job.
func GetSolveCancelSubject(jobID string) string {
	return fmt.Sprintf(SubjectSolveCancel, jobID)
}

// GetSolveStageSubject returns the pipeline-stage subject for a solve job.
func GetSolveStageSubject(jobID string) string {
	return fmt.Sprintf(SubjectSolveStage, jobID)
}
