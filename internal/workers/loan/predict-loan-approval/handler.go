package predictloanapproval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/common/validation"
	"loan-eligibility-workers/internal/models"
	"loan-eligibility-workers/internal/prediction"
)

const (
	TaskType = "predict-loan-approval"
)

var (
	ErrInvalidInput = errors.New("INPUT_VALIDATION_FAILED")
)

type Handler struct {
	config     *Config
	adapter    *prediction.Adapter
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, adapter *prediction.Adapter, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	if !adapter.Available() {
		l.Warn("prediction model unavailable, answering with fallback", nil)
	}
	return &Handler{
		config:     config,
		adapter:    adapter,
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
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewInputValidationFailedError(err.Error()))
		return
	}

	h.completeJob(client, job, output)
}

// execute never fails on a missing model; the adapter degrades instead.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if res := validation.Struct(input); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Error())
	}

	features := input.Profile.Features(input.LoanAmount, input.LoanTerm)
	if res := validation.Struct(features); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Error())
	}

	result := h.adapter.Predict(features)

	metrics.Predictions.WithLabelValues(result.Decision, strconv.FormatBool(result.Degraded)).Inc()
	metrics.PredictionConfidence.Observe(result.Confidence)

	fields := map[string]interface{}{
		"userId":     input.UserID,
		"prediction": result.Decision,
		"confidence": result.Confidence,
		"degraded":   result.Degraded,
	}
	if len(result.UnseenCategories) > 0 {
		fields["unseenCategories"] = result.UnseenCategories
	}
	if result.Degraded {
		fields["reason"] = result.Reason
		h.logger.Warn("prediction degraded", fields)
	} else {
		h.logger.Info("prediction made", fields)
	}

	return &Output{
		Prediction:          result.Decision,
		Confidence:          result.Confidence,
		ApprovalProbability: result.ApprovalProbability,
		PredictionDegraded:  result.Degraded,
		DegradedReason:      result.Reason,
		ModelVersion:        result.ModelVersion,
		UnseenCategories:    result.UnseenCategories,
		ApplicationStatus:   models.StatusForPrediction(result.Decision),
	}, nil
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
