package main

const configTemplate = `package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: {{ .TimeoutExpr }},
	}
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{- range .Input }}
	{{ .GoName }} {{ .GoType }} ` + "`" + `json:"{{ .JSONName }}"{{ if .Validate }} validate:"{{ .Validate }}"{{ end }}` + "`" + `
{{- end }}
}

type Output struct {
{{- range .Output }}
	{{ .GoName }} {{ .GoType }} ` + "`" + `json:"{{ .JSONName }}{{ if not .Required }},omitempty{{ end }}"` + "`" + `
{{- end }}
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/common/validation"
)

const (
	TaskType = "{{ .TaskType }}"
)

var (
	ErrInvalidInput = errors.New("INPUT_VALIDATION_FAILED")
	ErrNotImplemented = errors.New("NOT_IMPLEMENTED")
)

type Handler struct {
	config     *Config
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if res := validation.Struct(input); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Error())
	}
	return nil, ErrNotImplemented
}

func (h *Handler) toStandardError(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return apperrors.NewInputValidationFailedError(err.Error())
	}
	return apperrors.NewInternalError(err)
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
`
