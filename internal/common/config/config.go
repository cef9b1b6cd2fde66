// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Kafka         KafkaConfig             `mapstructure:"kafka"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Verification  VerificationConfig      `mapstructure:"verification"`
	Eligibility   EligibilityConfig       `mapstructure:"eligibility"`
	Prediction    PredictionConfig        `mapstructure:"prediction"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	RegistryPath string `mapstructure:"registry_path"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	MaxConnections  int    `mapstructure:"max_connections"`
	MaxIdle         int    `mapstructure:"max_idle"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
	SSLMode         string `mapstructure:"sslmode"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the lib/pq keyword connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the postgres:// form used by the migration driver.
func (p PostgresConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	URL         string   `mapstructure:"url"`
	ReportIndex string   `mapstructure:"report_index"`
}

// GetURL returns the explicit URL or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the application event producer.
type KafkaConfig struct {
	Enabled      bool         `mapstructure:"enabled"`
	Brokers      []string     `mapstructure:"brokers"`
	Topic        string       `mapstructure:"topic"`
	BatchTimeout int          `mapstructure:"batch_timeout"` // milliseconds
	Outbox       OutboxConfig `mapstructure:"outbox"`
}

// OutboxConfig drives the relay that re-sends events left pending.
type OutboxConfig struct {
	Interval  int `mapstructure:"interval"` // milliseconds
	MinAge    int `mapstructure:"min_age"`  // milliseconds
	BatchSize int `mapstructure:"batch_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Decision Engine Configuration ---

// VerificationConfig tunes the simulated verification run.
type VerificationConfig struct {
	// Seed fixes the simulated bureau draws. Zero seeds from the clock.
	Seed                 int64 `mapstructure:"seed"`
	CreditDriftThreshold int   `mapstructure:"credit_drift_threshold"`
	CacheTTL             int   `mapstructure:"cache_ttl"` // seconds
}

// GetCacheTTL returns the report cache lifetime.
func (v VerificationConfig) GetCacheTTL() time.Duration {
	return time.Duration(v.CacheTTL) * time.Second
}

// EligibilityConfig selects exactly one eligibility policy. Amounts are
// decimal strings.
type EligibilityConfig struct {
	Policy              string `mapstructure:"policy"`
	MinCollateralRatio  string `mapstructure:"min_collateral_ratio"`
	MinCollateral       string `mapstructure:"min_collateral"`
	MinCreditScore      int    `mapstructure:"min_credit_score"`
	MaxLoanToCollateral string `mapstructure:"max_loan_to_collateral"`
}

// PredictionConfig locates the model artifact and the degraded answer.
type PredictionConfig struct {
	ModelPath          string  `mapstructure:"model_path"`
	FallbackDecision   string  `mapstructure:"fallback_decision"`
	FallbackConfidence float64 `mapstructure:"fallback_confidence"`
}

// NotificationConfig holds settings for the send-decision-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// ObservabilityConfig controls metric and trace exporters.
type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// HTTPConfig configures the REST surface and the health/metrics listener.
type HTTPConfig struct {
	Address         string `mapstructure:"address"`
	Mode            string `mapstructure:"mode"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
