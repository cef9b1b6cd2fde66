package indexverificationreport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/verification"
)

const (
	TaskType = "index-verification-report"
)

var (
	ErrInvalidInput   = errors.New("INPUT_VALIDATION_FAILED")
	ErrIndexingFailed = errors.New("INDEXING_FAILED")
)

// Indexer is satisfied by *database.ElasticsearchClient.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) (int64, error)
}

type Handler struct {
	config     *Config
	indexer    Indexer
	now        func() time.Time
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, indexer Indexer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		indexer:    indexer,
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
		var stdErr error
		if errors.Is(err, ErrInvalidInput) {
			stdErr = apperrors.NewInputValidationFailedError(err.Error())
		} else {
			stdErr = apperrors.NewIndexingFailedError(h.config.Index, err)
		}
		h.errHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.UserID) == "" || input.VerificationReport == nil {
		return nil, fmt.Errorf("%w: userId and verificationReport are required", ErrInvalidInput)
	}

	report := input.VerificationReport
	doc := reportDocument{
		UserID:            input.UserID,
		OverallStatus:     report.OverallStatus,
		VerificationScore: report.VerificationScore,
		ChecksPassed:      report.ChecksPassed,
		TotalChecks:       report.TotalChecks,
		VerificationDate:  report.VerificationDate,
		FailedChecks:      failedChecks(report),
		Flags:             report.Flags(),
		Report:            *report,
		IndexedAt:         h.now().UTC(),
	}

	version, err := h.indexer.IndexDocument(ctx, h.config.Index, input.UserID, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexingFailed, err)
	}

	h.logger.Info("verification report indexed", map[string]interface{}{
		"userId":  input.UserID,
		"index":   h.config.Index,
		"version": version,
	})

	return &Output{
		Indexed:    true,
		Index:      h.config.Index,
		DocumentID: input.UserID,
		Version:    version,
	}, nil
}

func failedChecks(r *verification.Report) []string {
	failed := []string{}
	for kind, rec := range r.Verifications {
		if !rec.Verified {
			failed = append(failed, string(kind))
		}
	}
	sort.Strings(failed)
	return failed
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
