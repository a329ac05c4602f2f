package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/joho/godotenv"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Gateway    GatewayConfig    `validate:"required"`
	Scheduler  SchedulerConfig  `validate:"required"`
	Temporal   TemporalConfig   `validate:"required"`
	Events     EventsConfig     `validate:"required"`
	Kafka      KafkaConfig      `validate:"required"`
	Redis      RedisConfig      `validate:"required"`
	Cache      CacheConfig      `validate:"required"`
	Sentry     SentryConfig     `validate:"required"`
}

type DeploymentMode string

const (
	ModeLocal  DeploymentMode = "local"
	ModeAPI    DeploymentMode = "api"
	ModeWorker DeploymentMode = "worker"
)

type DeploymentConfig struct {
	Mode DeploymentMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret" validate:"required"`
}

type LoggingConfig struct {
	Level          types.LogLevel `mapstructure:"level"`
	FluentdEnabled bool           `mapstructure:"fluentd_enabled"`
	FluentdHost    string         `mapstructure:"fluentd_host"`
	FluentdPort    int            `mapstructure:"fluentd_port"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// GetDSN returns the lib/pq connection string.
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type GatewayConfig struct {
	Provider    types.GatewayProvider `mapstructure:"provider"`
	Timeout     time.Duration         `mapstructure:"timeout"`
	Currency    string                `mapstructure:"currency"`
	Cybersource CybersourceConfig     `mapstructure:"cybersource"`
	Stripe      StripeConfig          `mapstructure:"stripe"`
}

type CybersourceConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	MerchantID    string `mapstructure:"merchant_id"`
	APIKey        string `mapstructure:"api_key"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// MaxRetries only applies to idempotent reads.
	MaxRetries int `mapstructure:"max_retries"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type SchedulerMode string

const (
	SchedulerModeInProcess SchedulerMode = "inprocess"
	SchedulerModeTemporal  SchedulerMode = "temporal"
)

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Mode     SchedulerMode `mapstructure:"mode"`
	// CronSpec uses six fields, seconds first.
	CronSpec           string        `mapstructure:"cron_spec"`
	Timezone           string        `mapstructure:"timezone"`
	InterScheduleDelay time.Duration `mapstructure:"inter_schedule_delay"`
	DistributedLock    bool          `mapstructure:"distributed_lock"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	SelectionRetries   uint64        `mapstructure:"selection_retries"`
}

type TemporalConfig struct {
	Address   string                  `mapstructure:"address"`
	Namespace string                  `mapstructure:"namespace"`
	TaskQueue types.TemporalTaskQueue `mapstructure:"task_queue"`
	// CronSchedule uses standard five-field cron syntax.
	CronSchedule string `mapstructure:"cron_schedule"`
}

type EventPublisherType string

const (
	EventPublisherMemory EventPublisherType = "memory"
	EventPublisherKafka  EventPublisherType = "kafka"
)

type EventsConfig struct {
	Publisher EventPublisherType `mapstructure:"publisher"`
	Topic     string             `mapstructure:"topic"`
}

type KafkaConfig struct {
	Brokers       []string             `mapstructure:"brokers"`
	ClientID      string               `mapstructure:"client_id"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"`
	// WebhookDedupeTTL is how long a processed gateway event id is remembered.
	WebhookDedupeTTL time.Duration `mapstructure:"webhook_dedupe_ttl"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// NewConfig loads configuration from config.yaml, .env and RENTPAY_* env vars.
func NewConfig() (*Configuration, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RENTPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read config file").
				Mark(ierr.ErrValidation)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse configuration").
			Mark(ierr.ErrValidation)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetDefaultConfig returns the configuration produced by defaults alone.
func GetDefaultConfig() *Configuration {
	v := viper.New()
	setDefaults(v)
	var cfg Configuration
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("auth.secret", "change-me")

	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("logging.fluentd_enabled", false)
	v.SetDefault("logging.fluentd_port", 24224)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "rentpay")
	v.SetDefault("postgres.password", "rentpay")
	v.SetDefault("postgres.dbname", "rentpay")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("gateway.provider", string(types.GatewayProviderCybersource))
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.currency", types.DefaultCurrency)
	v.SetDefault("gateway.cybersource.base_url", "https://apitest.cybersource.com")
	v.SetDefault("gateway.cybersource.max_retries", 2)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.mode", string(SchedulerModeInProcess))
	v.SetDefault("scheduler.cron_spec", "0 0 2 * * *")
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.inter_schedule_delay", 2*time.Second)
	v.SetDefault("scheduler.distributed_lock", false)
	v.SetDefault("scheduler.lock_ttl", 2*time.Hour)
	v.SetDefault("scheduler.selection_retries", 3)

	v.SetDefault("temporal.address", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", string(types.TemporalTaskQueueRecurringPayments))
	v.SetDefault("temporal.cron_schedule", "0 2 * * *")

	v.SetDefault("events.publisher", string(EventPublisherMemory))
	v.SetDefault("events.topic", "rentpay.events")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "rentpay")
	v.SetDefault("kafka.sasl_mechanism", string(sarama.SASLTypePlaintext))

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("cache.webhook_dedupe_ttl", 24*time.Hour)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}

// Validate rejects configurations the service cannot start with.
func (c *Configuration) Validate() error {
	if err := c.Gateway.Provider.Validate(); err != nil {
		return err
	}
	if c.Gateway.Timeout <= 0 {
		return ierr.NewError("gateway timeout must be positive").
			WithHint("Set gateway.timeout to a positive duration").
			Mark(ierr.ErrValidation)
	}
	switch c.Scheduler.Mode {
	case SchedulerModeInProcess, SchedulerModeTemporal:
	default:
		return ierr.NewError("invalid scheduler mode").
			WithHintf("Scheduler mode must be one of: %s, %s", SchedulerModeInProcess, SchedulerModeTemporal).
			Mark(ierr.ErrValidation)
	}
	if c.Scheduler.InterScheduleDelay < 0 {
		return ierr.NewError("inter schedule delay must not be negative").
			WithHint("Set scheduler.inter_schedule_delay to zero or more").
			Mark(ierr.ErrValidation)
	}
	if err := types.ValidateTimezone(c.Scheduler.Timezone); err != nil {
		return err
	}
	switch c.Events.Publisher {
	case EventPublisherMemory, EventPublisherKafka:
	default:
		return ierr.NewError("invalid event publisher").
			WithHintf("Event publisher must be one of: %s, %s", EventPublisherMemory, EventPublisherKafka).
			Mark(ierr.ErrValidation)
	}
	return nil
}
