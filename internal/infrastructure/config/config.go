package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Deduction DeductionConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
}

// RedisConfig holds Redis connection settings.
// An empty Host disables Redis and the worker uses in-memory idempotency.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// DeductionConfig holds the retry coordinator and idempotency settings
type DeductionConfig struct {
	SweepInterval    time.Duration // how often the coordinator looks for due jobs
	BatchSize        int           // jobs claimed per sweep
	MaxAttempts      int           // executions before a job is exhausted
	StaleLockTimeout time.Duration // processing jobs older than this are reclaimed
	MaxBackoff       time.Duration // upper bound of the retry delay
	IdempotencyTTL   time.Duration // how long the fast path remembers deducted orders
	CleanupEnabled   bool
	CleanupRetention time.Duration // completed jobs older than this are deleted
	CleanupInterval  time.Duration // how often the cleanup pass runs
}

// KafkaConfig holds the payment-confirmation consumer settings
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to export metrics and traces
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	ServiceName       string        // Service name attached to metrics and spans
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration // Metric export interval
	SamplingRatio     float64       // Trace sampling ratio (0.0-1.0, 1.0 = 100%)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CAFE_ prefix (e.g., CAFE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

// fromViper builds the config from an already populated viper instance
func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CAFE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Enabled:  v.GetBool("redis.enabled"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Deduction: DeductionConfig{
			SweepInterval:    v.GetDuration("deduction.sweep_interval"),
			BatchSize:        v.GetInt("deduction.batch_size"),
			MaxAttempts:      v.GetInt("deduction.max_attempts"),
			StaleLockTimeout: v.GetDuration("deduction.stale_lock_timeout"),
			MaxBackoff:       v.GetDuration("deduction.max_backoff"),
			IdempotencyTTL:   v.GetDuration("deduction.idempotency_ttl"),
			CleanupEnabled:   v.GetBool("deduction.cleanup_enabled"),
			CleanupRetention: v.GetDuration("deduction.cleanup_retention"),
			CleanupInterval:  v.GetDuration("deduction.cleanup_interval"),
		},
		Kafka: KafkaConfig{
			Enabled:  v.GetBool("kafka.enabled"),
			Brokers:  v.GetStringSlice("kafka.brokers"),
			Topic:    v.GetString("kafka.topic"),
			GroupID:  v.GetString("kafka.group_id"),
			MinBytes: v.GetInt("kafka.min_bytes"),
			MaxBytes: v.GetInt("kafka.max_bytes"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cafe-deduction-worker"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "cafe"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Deduction.SweepInterval == 0 {
		cfg.Deduction.SweepInterval = 10 * time.Second
	}
	if cfg.Deduction.BatchSize == 0 {
		cfg.Deduction.BatchSize = 50
	}
	if cfg.Deduction.MaxAttempts == 0 {
		cfg.Deduction.MaxAttempts = 5
	}
	if cfg.Deduction.StaleLockTimeout == 0 {
		cfg.Deduction.StaleLockTimeout = 5 * time.Minute
	}
	if cfg.Deduction.MaxBackoff == 0 {
		cfg.Deduction.MaxBackoff = 10 * time.Minute
	}
	if cfg.Deduction.IdempotencyTTL == 0 {
		cfg.Deduction.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Deduction.CleanupRetention == 0 {
		cfg.Deduction.CleanupRetention = 168 * time.Hour
	}
	if cfg.Deduction.CleanupInterval == 0 {
		cfg.Deduction.CleanupInterval = time.Hour
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "order.payment.confirmed"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "inventory-deduction"
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20 // 10MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Deduction.SweepInterval < 0 || c.Deduction.StaleLockTimeout < 0 || c.Deduction.MaxBackoff < 0 || c.Deduction.CleanupInterval < 0 {
		return fmt.Errorf("deduction durations cannot be negative")
	}
	if c.Deduction.BatchSize < 0 {
		return fmt.Errorf("deduction.batch_size cannot be negative")
	}
	if c.Deduction.MaxAttempts < 1 {
		return fmt.Errorf("deduction.max_attempts must be at least 1, got %d", c.Deduction.MaxAttempts)
	}
	if c.Deduction.StaleLockTimeout <= c.Deduction.SweepInterval {
		return fmt.Errorf("deduction.stale_lock_timeout (%s) must exceed deduction.sweep_interval (%s)",
			c.Deduction.StaleLockTimeout, c.Deduction.SweepInterval)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.enabled is true")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
