package runverification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"loan-eligibility-workers/internal/common/database"
	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/verification"
)

const (
	TaskType = "run-verification"

	cacheKeyPrefix = "verification:"
)

var (
	ErrInvalidInput = errors.New("INPUT_VALIDATION_FAILED")
)

// ReportCache stores finished reports so a retried job does not draw new
// bureau values for the same profile.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Handler struct {
	config     *Config
	aggregator *verification.Aggregator
	cache      ReportCache
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

// NewHandler builds the worker. cache may be nil.
func NewHandler(config *Config, aggregator *verification.Aggregator, cache ReportCache, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		aggregator: aggregator,
		cache:      cache,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	userID := input.UserID
	if userID == "" {
		userID = input.Profile.UserID
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	data := input.Profile.VerificationInput()
	key := cacheKey(userID, data)

	report, cached := h.lookup(ctx, key)
	if !cached {
		report = h.aggregator.Run(data)
		for kind, rec := range report.Verifications {
			metrics.VerificationChecks.WithLabelValues(string(kind), strconv.FormatBool(rec.Verified)).Inc()
		}
		h.store(ctx, key, report)
	}

	score, updated := report.CreditScoreUpdate(input.Profile.CibilScore, h.config.CreditDriftThreshold)

	h.logger.Info("verification completed", map[string]interface{}{
		"userId":            userID,
		"overallStatus":     report.OverallStatus,
		"verificationScore": report.VerificationScore,
		"checksPassed":      report.ChecksPassed,
		"totalChecks":       report.TotalChecks,
		"cibilScoreUpdated": updated,
		"cached":            cached,
	})

	return &Output{
		VerificationReport: report,
		Flags:              report.Flags(),
		ProfileVerified:    report.ProfileVerified(),
		OverallStatus:      report.OverallStatus,
		VerificationScore:  report.VerificationScore,
		CibilScore:         score,
		CibilScoreUpdated:  updated,
		Cached:             cached,
	}, nil
}

func (h *Handler) lookup(ctx context.Context, key string) (*verification.Report, bool) {
	if h.cache == nil {
		return nil, false
	}
	var report verification.Report
	err := h.cache.GetJSON(ctx, key, &report)
	switch {
	case err == nil:
		metrics.VerificationCacheHits.WithLabelValues("hit").Inc()
		return &report, true
	case errors.Is(err, database.ErrCacheMiss):
		metrics.VerificationCacheHits.WithLabelValues("miss").Inc()
	default:
		metrics.VerificationCacheHits.WithLabelValues("error").Inc()
		h.logger.Warn("verification cache read failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
	return nil, false
}

func (h *Handler) store(ctx context.Context, key string, report *verification.Report) {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return
	}
	if err := h.cache.SetJSON(ctx, key, report, h.config.CacheTTL); err != nil {
		h.logger.Warn("verification cache write failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
}

// cacheKey changes whenever any verified field of the profile changes.
func cacheKey(userID string, data verification.ProfileData) string {
	raw, _ := json.Marshal(data)
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + userID + ":" + hex.EncodeToString(sum[:8])
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
