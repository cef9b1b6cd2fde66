package checkloaneligibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"

	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/common/validation"
	"loan-eligibility-workers/internal/eligibility"
)

const (
	TaskType = "check-loan-eligibility"
)

var (
	ErrInvalidInput = errors.New("INPUT_VALIDATION_FAILED")
)

type Handler struct {
	config     *Config
	gate       *eligibility.Gate
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler fails when the configured policy is invalid so a bad deploy
// is caught at startup rather than on the first job.
func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	gate, err := eligibility.NewGate(config.Gate)
	if err != nil {
		return nil, fmt.Errorf("create eligibility gate: %w", err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		gate:       gate,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
	}, nil
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
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewInputValidationFailedError(err.Error()))
		return
	}

	h.completeJob(client, job, output)
}

// execute treats ineligibility as a normal result. Only malformed input
// is an error.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if res := validation.Struct(input); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Error())
	}

	decision := h.gate.Check(input.Profile.Applicant(), decimal.NewFromFloat(input.LoanAmount))
	metrics.EligibilityDecisions.WithLabelValues(string(decision.Policy), strconv.FormatBool(decision.Eligible)).Inc()

	h.logger.Info("eligibility decided", map[string]interface{}{
		"userId":             input.UserID,
		"policy":             decision.Policy,
		"eligible":           decision.Eligible,
		"totalCollateral":    decision.TotalCollateral.StringFixed(2),
		"requiredCollateral": decision.RequiredCollateral.StringFixed(2),
		"reasons":            decision.Reasons,
	})

	out := &Output{
		Eligible:           decision.Eligible,
		EligibilityPolicy:  string(decision.Policy),
		TotalCollateral:    decision.TotalCollateral.StringFixed(2),
		RequiredCollateral: decision.RequiredCollateral.StringFixed(2),
		Shortfall:          decision.Shortfall.StringFixed(2),
		Reasons:            decision.Reasons,
	}
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	if decision.Policy == eligibility.PolicyAbsoluteFloor {
		out.MaxEligibleLoan = decision.MaxEligibleLoan.StringFixed(2)
	}
	return out, nil
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
