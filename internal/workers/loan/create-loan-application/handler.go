package createloanapplication

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"loan-eligibility-workers/internal/common/database"
	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/common/outbox"
	"loan-eligibility-workers/internal/common/validation"
	"loan-eligibility-workers/internal/models"
)

const (
	TaskType = "create-loan-application"

	EventTypeApplicationCreated = "loan.application.created"
)

var (
	ErrInvalidInput         = errors.New("INPUT_VALIDATION_FAILED")
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
	ErrDuplicateApplication = errors.New("DUPLICATE_APPLICATION")
)

// EventOutbox is satisfied by *outbox.Relay.
type EventOutbox interface {
	Deliver(ctx context.Context, rec outbox.Record) error
}

const numberTaken = `SELECT EXISTS(SELECT 1 FROM loan_applications WHERE application_number = $1)`

const insertApplication = `
	INSERT INTO loan_applications (
		id, application_number, user_id, loan_amount, loan_term, purpose,
		prediction, confidence, prediction_degraded, status,
		eligibility_policy, total_collateral, required_collateral,
		verification_score, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`

const insertAudit = `
	INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
	VALUES ($1, $2, $3, $4, $5)`

type Handler struct {
	config     *Config
	db         *sql.DB
	events     EventOutbox
	rng        models.IntSource
	now        func() time.Time
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler accepts a nil events outbox when event publishing is disabled.
func NewHandler(config *Config, db *sql.DB, events EventOutbox, rng models.IntSource, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
		events:     events,
		rng:        rng,
		now:        time.Now,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, h.toStandardError(err))
		return
	}

	h.completeJob(client, job, output)
}

// execute writes the application, its audit entry and the outbox copy of the
// created event in one transaction, then delivers the event once committed.
// A failed delivery leaves the event pending for the relay; the job still
// completes because the application exists.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if res := validation.Struct(input); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Error())
	}

	createdAt := h.now().UTC()
	app := models.LoanApplication{
		ID:                 uuid.New().String(),
		UserID:             input.UserID,
		LoanAmount:         input.LoanAmount,
		LoanTerm:           input.LoanTerm,
		Purpose:            input.Purpose,
		Prediction:         input.Prediction,
		Confidence:         input.Confidence,
		PredictionDegraded: input.PredictionDegraded,
		Status:             models.StatusForPrediction(input.Prediction),
		EligibilityPolicy:  input.EligibilityPolicy,
		TotalCollateral:    input.TotalCollateral,
		RequiredCollateral: input.RequiredCollateral,
		VerificationScore:  input.VerificationScore,
		CreatedAt:          createdAt,
	}

	var event *outbox.Record
	err := database.WithTransaction(ctx, h.db, func(tx *sql.Tx) error {
		number, err := h.allocateNumber(ctx, tx, createdAt)
		if err != nil {
			return err
		}
		app.ApplicationNumber = number

		if _, err := tx.ExecContext(ctx, insertApplication,
			app.ID,
			app.ApplicationNumber,
			app.UserID,
			app.LoanAmount,
			app.LoanTerm,
			app.Purpose,
			app.Prediction,
			app.Confidence,
			app.PredictionDegraded,
			app.Status,
			app.EligibilityPolicy,
			app.TotalCollateral,
			app.RequiredCollateral,
			app.VerificationScore,
			createdAt,
		); err != nil {
			return fmt.Errorf("%w: insert application: %v", ErrDatabaseInsertFailed, err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"applicationNumber": app.ApplicationNumber,
			"userId":            app.UserID,
			"status":            app.Status,
			"prediction":        app.Prediction,
		})
		if _, err := tx.ExecContext(ctx, insertAudit,
			"application_created", "loan_application", app.ID, details, createdAt,
		); err != nil {
			return fmt.Errorf("%w: audit log: %v", ErrDatabaseInsertFailed, err)
		}

		if h.events == nil {
			return nil
		}
		rec, err := outbox.NewRecord(h.config.Topic, app.ApplicationNumber, EventTypeApplicationCreated, newCreatedEvent(app), createdAt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
		}
		if err := outbox.Enqueue(ctx, tx, rec); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
		}
		event = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	published := false
	if event != nil {
		if err := h.events.Deliver(ctx, *event); err != nil {
			h.logger.Warn("event left pending in outbox", map[string]interface{}{
				"applicationNumber": app.ApplicationNumber,
				"outboxId":          event.ID,
				"error":             err,
			})
		} else {
			published = true
		}
	}

	h.logger.Info("loan application created", map[string]interface{}{
		"applicationId":     app.ID,
		"applicationNumber": app.ApplicationNumber,
		"userId":            app.UserID,
		"status":            app.Status,
		"eventPublished":    published,
	})

	return &Output{
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		ApplicationStatus: app.Status,
		EventPublished:    published,
		CreatedAt:         createdAt.Format(time.RFC3339),
	}, nil
}

// allocateNumber draws application numbers until one is unused.
func (h *Handler) allocateNumber(ctx context.Context, q database.Execer, now time.Time) (string, error) {
	var last string
	for i := 0; i < h.config.NumberAttempts; i++ {
		last = models.NewApplicationNumber(h.rng, now)
		var taken bool
		if err := q.QueryRowContext(ctx, numberTaken, last).Scan(&taken); err != nil {
			return "", fmt.Errorf("%w: number check: %v", ErrDatabaseInsertFailed, err)
		}
		if !taken {
			return last, nil
		}
		h.logger.Warn("application number collision", map[string]interface{}{
			"applicationNumber": last,
			"attempt":           i + 1,
		})
	}
	return "", fmt.Errorf("%w: %s", ErrDuplicateApplication, last)
}

func newCreatedEvent(app models.LoanApplication) ApplicationCreatedEvent {
	return ApplicationCreatedEvent{
		EventID:           uuid.New().String(),
		EventType:         EventTypeApplicationCreated,
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		UserID:            app.UserID,
		LoanAmount:        app.LoanAmount,
		LoanTerm:          app.LoanTerm,
		Status:            app.Status,
		Prediction:        app.Prediction,
		Confidence:        app.Confidence,
		Degraded:          app.PredictionDegraded,
		OccurredAt:        app.CreatedAt,
	}
}

func (h *Handler) toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInputValidationFailedError(err.Error())
	case errors.Is(err, ErrDuplicateApplication):
		return apperrors.NewDuplicateApplicationError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewQueryTimeoutError("create loan application")
	default:
		return apperrors.NewDatabaseInsertFailedError(err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
