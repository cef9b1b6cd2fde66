package loadloanprofile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/models"
)

const (
	TaskType = "load-loan-profile"
)

var (
	ErrProfileNotFound     = errors.New("PROFILE_NOT_FOUND")
	ErrDatabaseQueryFailed = errors.New("DATABASE_QUERY_FAILED")
	ErrQueryTimeout        = errors.New("QUERY_TIMEOUT")
	ErrInvalidInput        = errors.New("INPUT_VALIDATION_FAILED")
)

const selectProfile = `
	SELECT id, user_id, full_name, email, phone_number, date_of_birth,
	       pan_number, aadhar_number, employment_type, education, no_of_dependents,
	       income_annum, cibil_score, bank_name, account_number, ifsc_code, bank_balance,
	       residential_assets_value, commercial_assets_value, vehicle_assets_value,
	       luxury_assets_value, gold_assets_value, profile_completed,
	       pan_verified, aadhar_verified, bank_verified, cibil_verified, income_verified,
	       profile_verified, verification_report, verified_at, updated_at
	FROM loan_profiles
	WHERE user_id = $1`

type Handler struct {
	config     *Config
	db         *sql.DB
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		db:         db,
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
		h.errHandler.HandleJobError(context.Background(), client, job, h.toStandardError(err, input.UserID))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	profile, err := scanProfile(h.db.QueryRowContext(ctx, selectProfile, input.UserID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, input.UserID)
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %v", ErrQueryTimeout, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrDatabaseQueryFailed, err)
	}

	h.logger.Info("loan profile loaded", map[string]interface{}{
		"userId":          profile.UserID,
		"profileVerified": profile.ProfileVerified,
	})

	return &Output{
		Profile:         profile,
		ProfileComplete: profile.IsComplete(),
	}, nil
}

func scanProfile(row *sql.Row) (*models.LoanProfile, error) {
	var (
		p                                 models.LoanProfile
		pan, aadhaar, bank, cibil, income sql.NullBool
		report                            []byte
		verifiedAt                        sql.NullTime
	)

	err := row.Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Email, &p.PhoneNumber, &p.DateOfBirth,
		&p.PANNumber, &p.AadhaarNumber, &p.EmploymentType, &p.Education, &p.NoOfDependents,
		&p.IncomeAnnum, &p.CibilScore, &p.BankName, &p.AccountNumber, &p.IFSCCode, &p.BankBalance,
		&p.ResidentialAssetsValue, &p.CommercialAssetsValue, &p.VehicleAssetsValue,
		&p.LuxuryAssetsValue, &p.GoldAssetsValue, &p.ProfileCompleted,
		&pan, &aadhaar, &bank, &cibil, &income,
		&p.ProfileVerified, &report, &verifiedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PANVerified = nullBool(pan)
	p.AadhaarVerified = nullBool(aadhaar)
	p.BankVerified = nullBool(bank)
	p.CibilVerified = nullBool(cibil)
	p.IncomeVerified = nullBool(income)
	if len(report) > 0 {
		p.VerificationReport = json.RawMessage(report)
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	return &p, nil
}

func nullBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func (h *Handler) toStandardError(err error, userID string) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.NewInputValidationFailedError(err.Error())
	case errors.Is(err, ErrProfileNotFound):
		return apperrors.NewProfileNotFoundError(userID)
	case errors.Is(err, ErrQueryTimeout):
		return apperrors.NewQueryTimeoutError("load profile")
	default:
		return apperrors.NewDatabaseQueryFailedError(err)
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
