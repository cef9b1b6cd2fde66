package camunda

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"loan-eligibility-workers/internal/common/config"
	"loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/common/observability"
	"loan-eligibility-workers/internal/common/validation"
)

// Group tracks the job workers opened by the manager so they can be
// closed together on shutdown.
type Group struct {
	mu         sync.Mutex
	workers    map[string]worker.JobWorker
	obs        *observability.Observability
	schemas    *validation.SchemaValidator
	errHandler *errors.ErrorHandler
	logger     *zap.Logger
}

func NewGroup(
	obs *observability.Observability,
	schemas *validation.SchemaValidator,
	errHandler *errors.ErrorHandler,
	log *zap.Logger,
) *Group {
	return &Group{
		workers:    make(map[string]worker.JobWorker),
		obs:        obs,
		schemas:    schemas,
		errHandler: errHandler,
		logger:     log,
	}
}

// Start opens an instrumented job worker for taskType. Disabled workers
// are skipped.
func (g *Group) Start(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) {
	if !wcfg.Enabled {
		g.logger.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, ValidateInput(taskType, g.schemas, g.errHandler, handler), g.obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	g.mu.Lock()
	g.workers[taskType] = jw
	g.mu.Unlock()

	g.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
}

// Len returns the number of open workers.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.workers)
}

// Stop closes every worker and waits for in-flight jobs.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for taskType, jw := range g.workers {
		g.logger.Info("stopping worker", zap.String("taskType", taskType))
		jw.Close()
		jw.AwaitClose()
	}
	g.workers = make(map[string]worker.JobWorker)
}

// Instrument wraps handler with the active-jobs gauge, the duration
// histogram and a tracing span.
func Instrument(taskType string, handler worker.JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		ctx, span := obs.StartSpan(context.Background(), taskType, job.Key)
		defer span.End()

		handler(client, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		obs.RecordJobProcessed(ctx, taskType, "handled")
		obs.RecordJobDuration(ctx, taskType, elapsed, "handled")
	}
}

// ValidateInput rejects jobs whose variables do not match the input schema
// registered for taskType before handler sees them.
func ValidateInput(taskType string, schemas *validation.SchemaValidator, errHandler *errors.ErrorHandler, handler worker.JobHandler) worker.JobHandler {
	if schemas == nil || errHandler == nil {
		return handler
	}
	return func(client worker.JobClient, job entities.Job) {
		var vars map[string]interface{}
		if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
			errHandler.HandleJobError(context.Background(), client, job, errors.NewParseError(err))
			return
		}
		if res := schemas.Validate(taskType, vars); !res.Valid {
			errHandler.HandleJobError(context.Background(), client, job, errors.NewInputValidationFailedError(res.Error()))
			return
		}
		handler(client, job)
	}
}
