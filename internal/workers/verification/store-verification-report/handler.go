package storeverificationreport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"loan-eligibility-workers/internal/common/database"
	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
)

const (
	TaskType = "store-verification-report"
)

var (
	ErrInvalidInput         = errors.New("INPUT_VALIDATION_FAILED")
	ErrProfileNotFound      = errors.New("PROFILE_NOT_FOUND")
	ErrDatabaseUpdateFailed = errors.New("DATABASE_UPDATE_FAILED")
)

const updateReport = `
	UPDATE loan_profiles SET
		verification_report = $2,
		pan_verified = $3,
		aadhar_verified = $4,
		bank_verified = $5,
		cibil_verified = $6,
		income_verified = $7,
		profile_verified = $8,
		verified_at = $9,
		updated_at = $9
	WHERE user_id = $1`

const updateCibil = `UPDATE loan_profiles SET cibil_score = $2 WHERE user_id = $1`

const insertAudit = `
	INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
	VALUES ($1, $2, $3, $4, $5)`

type Handler struct {
	config     *Config
	db         *sql.DB
	now        func() time.Time
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
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
		h.errHandler.HandleJobError(context.Background(), client, job, toStandardError(err, input.UserID))
		return
	}

	h.completeJob(client, job, output)
}

// execute persists the report, the per-check flags and an overwritten
// credit score in one transaction. Any failure rolls all of it back.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if input.VerificationReport == nil {
		return nil, fmt.Errorf("%w: verificationReport is required", ErrInvalidInput)
	}

	report := input.VerificationReport
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal report: %v", ErrInvalidInput, err)
	}

	flags := report.Flags()
	profileVerified := report.ProfileVerified()
	verifiedAt := h.now().UTC()

	err = database.WithTransaction(ctx, h.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateReport,
			input.UserID,
			reportJSON,
			nullableBool(flags.PANVerified),
			nullableBool(flags.AadhaarVerified),
			nullableBool(flags.BankVerified),
			nullableBool(flags.CibilVerified),
			nullableBool(flags.IncomeVerified),
			profileVerified,
			verifiedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: update report: %v", ErrDatabaseUpdateFailed, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, input.UserID)
		}

		if input.CibilScoreUpdated {
			if _, err := tx.ExecContext(ctx, updateCibil, input.UserID, input.CibilScore); err != nil {
				return fmt.Errorf("%w: update cibil score: %v", ErrDatabaseUpdateFailed, err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"overallStatus":     report.OverallStatus,
			"verificationScore": report.VerificationScore,
			"cibilScoreUpdated": input.CibilScoreUpdated,
		})
		if _, err := tx.ExecContext(ctx, insertAudit,
			"verification_stored", "loan_profile", input.UserID, details, verifiedAt,
		); err != nil {
			return fmt.Errorf("%w: audit log: %v", ErrDatabaseUpdateFailed, err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrProfileNotFound) && !errors.Is(err, ErrDatabaseUpdateFailed) {
			err = fmt.Errorf("%w: %v", ErrDatabaseUpdateFailed, err)
		}
		return nil, err
	}

	h.logger.Info("verification report stored", map[string]interface{}{
		"userId":            input.UserID,
		"profileVerified":   profileVerified,
		"cibilScoreUpdated": input.CibilScoreUpdated,
	})

	out := &Output{
		Stored:          true,
		ProfileVerified: profileVerified,
		VerifiedAt:      verifiedAt.Format(time.RFC3339),
	}
	if input.CibilScoreUpdated {
		out.CibilScore = input.CibilScore
	}
	return out, nil
}

func nullableBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func toStandardError(err error, userID string) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInputValidationFailedError(err.Error())
	case errors.Is(err, ErrProfileNotFound):
		return apperrors.NewProfileNotFoundError(userID)
	default:
		return apperrors.NewDatabaseUpdateFailedError(err).WithMetadata("userId", userID)
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
