// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loan-eligibility-workers/internal/api"
	"loan-eligibility-workers/internal/common/aws"
	"loan-eligibility-workers/internal/common/camunda"
	"loan-eligibility-workers/internal/common/config"
	"loan-eligibility-workers/internal/common/database"
	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/kafka"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/observability"
	"loan-eligibility-workers/internal/common/outbox"
	"loan-eligibility-workers/internal/common/validation"
	"loan-eligibility-workers/internal/eligibility"
	"loan-eligibility-workers/internal/prediction"
	"loan-eligibility-workers/internal/verification"
	"loan-eligibility-workers/pkg/registry"

	cle "loan-eligibility-workers/internal/workers/loan/check-loan-eligibility"
	cla "loan-eligibility-workers/internal/workers/loan/create-loan-application"
	pla "loan-eligibility-workers/internal/workers/loan/predict-loan-approval"
	sdn "loan-eligibility-workers/internal/workers/loan/send-decision-notification"
	llp "loan-eligibility-workers/internal/workers/profile/load-loan-profile"
	ivr "loan-eligibility-workers/internal/workers/verification/index-verification-report"
	rv "loan-eligibility-workers/internal/workers/verification/run-verification"
	svr "loan-eligibility-workers/internal/workers/verification/store-verification-report"
	vd "loan-eligibility-workers/internal/workers/verification/verify-document"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	boot := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.Build(cfg.Logging.Level, cfg.Logging.Format, cfg.App.Name)
	if err != nil {
		boot.Fatal("logger build failed", zap.Error(err))
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ClientConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	if applied, err := pg.Migrate(); err != nil {
		zapLog.Fatal("migrations failed", zap.Error(err))
	} else if applied {
		zapLog.Info("Database migrations applied")
	}

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	// --- Kafka + event outbox ---
	var producer *kafka.Producer
	var relay *outbox.Relay
	var events cla.EventOutbox
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		relay = outbox.NewRelay(pg.GetDB(), producer, outbox.Config{
			BatchSize: cfg.Kafka.Outbox.BatchSize,
			MinAge:    config.GetDuration(cfg.Kafka.Outbox.MinAge),
			Interval:  config.GetDuration(cfg.Kafka.Outbox.Interval),
		}, log)
		events = relay
		zapLog.Info("Kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	// --- AWS notification channels ---
	var sesSvc sdn.SESService
	var snsSvc sdn.SNSService
	if cfg.Notifications.Email.Enabled {
		c, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sesSvc = c
	}
	if cfg.Notifications.SMS.Enabled {
		c, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		snsSvc = c
	}

	// --- Decision engine ---
	rng := verification.NewRandom(cfg.Verification.Seed)
	aggregator := verification.NewDefaultAggregator(rng, time.Now)

	gateCfg, err := cfg.Eligibility.GateConfig()
	if err != nil {
		zapLog.Fatal("eligibility config invalid", zap.Error(err))
	}
	gate, err := eligibility.NewGate(gateCfg)
	if err != nil {
		zapLog.Fatal("eligibility gate failed", zap.Error(err))
	}

	adapter, err := prediction.LoadAdapter(cfg.Prediction.ModelPath, cfg.Prediction.Fallback())
	if err != nil {
		zapLog.Warn("prediction model unavailable, serving fallback decisions",
			zap.String("modelPath", cfg.Prediction.ModelPath),
			zap.Error(err),
		)
	}

	// --- Input schemas ---
	schemas := validation.NewSchemaValidator()
	reg, err := registry.LoadRegistry(cfg.App.RegistryPath)
	if err != nil {
		zapLog.Warn("activity registry not loaded, input schemas disabled", zap.Error(err))
	} else if err := reg.RegisterInputSchemas(schemas); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}

	errHandler := apperrors.NewErrorHandler(log)
	group := camunda.NewGroup(obs, schemas, errHandler, zapLog)
	client := zeebe.GetClient()

	workerTimeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	// --- Profile ---
	{
		c := llp.LoadConfig()
		c.Timeout = workerTimeout(llp.TaskType)
		h := llp.NewHandler(c, pg.GetDB(), log)
		group.Start(client, llp.TaskType, config.GetWorkerConfig(cfg, llp.TaskType), h.Handle)
	}

	// --- Verification ---
	{
		c := rv.LoadConfig()
		c.Timeout = workerTimeout(rv.TaskType)
		c.CacheTTL = cfg.Verification.GetCacheTTL()
		c.CreditDriftThreshold = cfg.Verification.CreditDriftThreshold
		h := rv.NewHandler(c, aggregator, redis, log)
		group.Start(client, rv.TaskType, config.GetWorkerConfig(cfg, rv.TaskType), h.Handle)
	}
	{
		c := vd.LoadConfig()
		c.Timeout = workerTimeout(vd.TaskType)
		h := vd.NewHandler(c, aggregator, log)
		group.Start(client, vd.TaskType, config.GetWorkerConfig(cfg, vd.TaskType), h.Handle)
	}
	{
		c := svr.LoadConfig()
		c.Timeout = workerTimeout(svr.TaskType)
		h := svr.NewHandler(c, pg.GetDB(), log)
		group.Start(client, svr.TaskType, config.GetWorkerConfig(cfg, svr.TaskType), h.Handle)
	}
	{
		c := ivr.LoadConfig()
		c.Timeout = workerTimeout(ivr.TaskType)
		c.Index = cfg.Database.Elasticsearch.ReportIndex
		h := ivr.NewHandler(c, esClient, log)
		group.Start(client, ivr.TaskType, config.GetWorkerConfig(cfg, ivr.TaskType), h.Handle)
	}

	// --- Loan decision ---
	{
		c := cle.LoadConfig()
		c.Timeout = workerTimeout(cle.TaskType)
		c.Gate = gateCfg
		h, err := cle.NewHandler(c, log)
		if err != nil {
			zapLog.Fatal("failed to create check-loan-eligibility handler", zap.Error(err))
		}
		group.Start(client, cle.TaskType, config.GetWorkerConfig(cfg, cle.TaskType), h.Handle)
	}
	{
		c := pla.LoadConfig()
		c.Timeout = workerTimeout(pla.TaskType)
		h := pla.NewHandler(c, adapter, log)
		group.Start(client, pla.TaskType, config.GetWorkerConfig(cfg, pla.TaskType), h.Handle)
	}
	{
		c := cla.LoadConfig()
		c.Timeout = workerTimeout(cla.TaskType)
		c.Topic = cfg.Kafka.Topic
		h := cla.NewHandler(c, pg.GetDB(), events, rng, log)
		group.Start(client, cla.TaskType, config.GetWorkerConfig(cfg, cla.TaskType), h.Handle)
	}
	{
		c := sdn.LoadConfig()
		c.Timeout = workerTimeout(sdn.TaskType)
		c.EmailEnabled = cfg.Notifications.Email.Enabled
		c.FromEmail = cfg.Notifications.Email.FromEmail
		c.SMSEnabled = cfg.Notifications.SMS.Enabled
		c.SenderID = cfg.Notifications.SMS.SenderID
		h := sdn.NewHandler(c, sesSvc, snsSvc, log)
		group.Start(client, sdn.TaskType, config.GetWorkerConfig(cfg, sdn.TaskType), h.Handle)
	}

	zapLog.Info("workers registered", zap.Int("count", group.Len()))

	// --- HTTP surface ---
	srv := api.NewServer(aggregator, gate, adapter, api.Options{
		Mode: cfg.HTTP.Mode,
		Readiness: []api.ReadinessCheck{
			{Name: "postgres", Check: pg.Ping},
			{Name: "redis", Check: redis.Ping},
			{Name: "elasticsearch", Check: func(context.Context) error { return esClient.Ping() }},
			{Name: "zeebe", Check: zeebe.HealthCheck},
		},
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: config.GetDuration(cfg.HTTP.ReadTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		group.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error shutting down HTTP server", zap.Error(err))
		}
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Error("Error shutting down observability", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("worker manager exited with error", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			zapLog.Error("Error closing Kafka producer", zap.Error(err))
		}
	}
	if err := redis.Close(); err != nil {
		zapLog.Error("Error closing Redis client", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL client", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}
