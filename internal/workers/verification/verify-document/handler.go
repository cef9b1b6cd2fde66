package verifydocument

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
	"loan-eligibility-workers/internal/verification"
)

const (
	TaskType = "verify-document"
)

var (
	ErrUnknownCheckKind = errors.New("UNKNOWN_CHECK_KIND")
	ErrMissingDocument  = errors.New("INPUT_VALIDATION_FAILED")
)

type Handler struct {
	config     *Config
	aggregator *verification.Aggregator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, aggregator *verification.Aggregator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		aggregator: aggregator,
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
		var stdErr error
		if errors.Is(err, ErrUnknownCheckKind) {
			stdErr = apperrors.NewUnknownCheckKindError(input.Kind)
		} else {
			stdErr = apperrors.NewInputValidationFailedError(err.Error())
		}
		h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	kind, err := verification.ParseKind(input.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCheckKind, input.Kind)
	}

	data := input.profileData()
	ok, err := h.aggregator.Applies(kind, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCheckKind, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no %s document supplied", ErrMissingDocument, kind)
	}

	rec, err := h.aggregator.RunOne(kind, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCheckKind, err)
	}
	metrics.VerificationChecks.WithLabelValues(string(kind), strconv.FormatBool(rec.Verified)).Inc()

	h.logger.Info("document verified", map[string]interface{}{
		"kind":     kind,
		"verified": rec.Verified,
	})

	return &Output{
		Kind:        string(kind),
		Verified:    rec.Verified,
		Message:     rec.Message,
		Details:     rec.Details,
		ActualScore: rec.ActualScore,
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
