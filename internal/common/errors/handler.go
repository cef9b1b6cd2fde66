package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"loan-eligibility-workers/internal/common/metrics"
)

// Logger is the slice of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports a failed job to the engine: retryable errors fail the
// job with a decremented retry count, everything else throws a BPMN error.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Resolution is what the handler will tell the engine about a failed job.
type Resolution struct {
	Error   *StandardError
	BPMN    *BPMNError
	Throw   bool
	Retries int32
}

// Resolve normalizes err and decides between failing with retries and
// throwing a BPMN error.
func (h *ErrorHandler) Resolve(job entities.Job, err error) Resolution {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	remaining := job.Retries - 1
	if limit := int32(bpmnErr.Retries); remaining > limit {
		remaining = limit
	}
	if bpmnErr.Retries == 0 || remaining <= 0 {
		return Resolution{Error: stdErr, BPMN: bpmnErr, Throw: true}
	}
	return Resolution{Error: stdErr, BPMN: bpmnErr, Retries: remaining}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	res := h.Resolve(job, err)
	h.logError(job, res)
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(res.Error.Code)).Inc()

	if res.Throw {
		h.throwBPMNError(ctx, client, job, res.BPMN)
		return
	}
	h.failJobWithRetries(ctx, client, job, res.BPMN, res.Retries)
}

// Normalize returns the StandardError inside err, or wraps err as an
// internal error.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := errorVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			h.send(ctx, job, func(ctx context.Context) error {
				_, err := withVars.Send(ctx)
				return err
			})
			return
		}
	}
	h.send(ctx, job, func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := errorVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			h.send(ctx, job, func(ctx context.Context) error {
				_, err := withVars.Send(ctx)
				return err
			})
			return
		}
	}
	h.send(ctx, job, func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}

func (h *ErrorHandler) send(ctx context.Context, job entities.Job, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		h.logger.Error("failed to report job failure", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func errorVariables(bpmnErr *BPMNError) (string, bool) {
	raw, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (h *ErrorHandler) logError(job entities.Job, res Resolution) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"errorCode":          string(res.Error.Code),
		"bpmnErrorCode":      res.BPMN.Code,
		"message":            res.BPMN.Message,
		"details":            res.Error.Details,
		"retryable":          res.Error.Retryable,
		"retries":            res.Retries,
		"thrown":             res.Throw,
		"errorCategory":      GetErrorCategory(res.Error.Code),
		"processInstanceKey": job.ProcessInstanceKey,
	})
}
