// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"loan-eligibility-workers/internal/eligibility"
	"loan-eligibility-workers/internal/prediction"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top, and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that were left blank in yaml.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Database.Redis.Password == "" {
		cfg.Database.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.Database.Elasticsearch.Password == "" {
		cfg.Database.Elasticsearch.Password = os.Getenv("ELASTICSEARCH_PASSWORD")
	}
	if cfg.Prediction.ModelPath == "" {
		cfg.Prediction.ModelPath = os.Getenv("MODEL_PATH")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "loan-eligibility-workers"
	}
	if cfg.App.RegistryPath == "" {
		cfg.App.RegistryPath = "configs/activity-registry.json"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.ConnMaxLifetime == 0 {
		cfg.Database.Postgres.ConnMaxLifetime = 300
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.ReportIndex == "" {
		cfg.Database.Elasticsearch.ReportIndex = "verification-reports"
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "loan.application.created"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 10
	}
	if cfg.Kafka.Outbox.Interval == 0 {
		cfg.Kafka.Outbox.Interval = 5000
	}
	if cfg.Kafka.Outbox.MinAge == 0 {
		cfg.Kafka.Outbox.MinAge = 30000
	}
	if cfg.Kafka.Outbox.BatchSize == 0 {
		cfg.Kafka.Outbox.BatchSize = 100
	}

	if cfg.Verification.CreditDriftThreshold == 0 {
		cfg.Verification.CreditDriftThreshold = 10
	}
	if cfg.Verification.CacheTTL == 0 {
		cfg.Verification.CacheTTL = 3600
	}

	gate := eligibility.DefaultConfig()
	if cfg.Eligibility.Policy == "" {
		cfg.Eligibility.Policy = string(gate.Policy)
	}
	if cfg.Eligibility.MinCollateralRatio == "" {
		cfg.Eligibility.MinCollateralRatio = gate.MinCollateralRatio.String()
	}
	if cfg.Eligibility.MinCollateral == "" {
		cfg.Eligibility.MinCollateral = gate.MinCollateral.String()
	}
	if cfg.Eligibility.MinCreditScore == 0 {
		cfg.Eligibility.MinCreditScore = gate.MinCreditScore
	}
	if cfg.Eligibility.MaxLoanToCollateral == "" {
		cfg.Eligibility.MaxLoanToCollateral = gate.MaxLoanToCollateral.String()
	}

	fallback := prediction.DefaultFallback()
	if cfg.Prediction.ModelPath == "" {
		cfg.Prediction.ModelPath = "configs/models/loan_model.json"
	}
	if cfg.Prediction.FallbackDecision == "" {
		cfg.Prediction.FallbackDecision = fallback.Decision
	}
	if cfg.Prediction.FallbackConfidence == 0 {
		cfg.Prediction.FallbackConfidence = fallback.Confidence
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1
	}

	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}
	if cfg.HTTP.Mode == "" {
		cfg.HTTP.Mode = "release"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 10000
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}

	if _, err := cfg.Eligibility.GateConfig(); err != nil {
		return err
	}

	switch cfg.Prediction.FallbackDecision {
	case prediction.DecisionApproved, prediction.DecisionRejected:
	default:
		return fmt.Errorf("prediction.fallback_decision must be %s or %s", prediction.DecisionApproved, prediction.DecisionRejected)
	}
	if cfg.Prediction.FallbackConfidence < 0 || cfg.Prediction.FallbackConfidence > 100 {
		return fmt.Errorf("prediction.fallback_confidence must be within [0,100]")
	}

	return nil
}

// GateConfig parses the eligibility section. Exactly one policy is active.
func (e EligibilityConfig) GateConfig() (eligibility.Config, error) {
	var out eligibility.Config
	out.Policy = eligibility.Policy(e.Policy)
	out.MinCreditScore = e.MinCreditScore

	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"eligibility.min_collateral_ratio", e.MinCollateralRatio, &out.MinCollateralRatio},
		{"eligibility.min_collateral", e.MinCollateral, &out.MinCollateral},
		{"eligibility.max_loan_to_collateral", e.MaxLoanToCollateral, &out.MaxLoanToCollateral},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return out, fmt.Errorf("%w: %s: %v", eligibility.ErrInvalidConfig, f.name, err)
		}
		*f.dst = d
	}

	if _, err := eligibility.NewGate(out); err != nil {
		return out, err
	}
	return out, nil
}

// Fallback returns the degraded prediction answer.
func (p PredictionConfig) Fallback() prediction.Fallback {
	return prediction.Fallback{Decision: p.FallbackDecision, Confidence: p.FallbackConfidence}
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
