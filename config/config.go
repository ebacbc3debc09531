// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/modular-health/modular-health-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	// Validation constants
	minJWTLength    = 32
	minSecretLength = 16
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// JWTSecret verifies Supabase-issued HS256 access tokens on the user API.
	JWTSecret string `mapstructure:"JWT_SECRET" yaml:"jwt_secret"`
	// SchedulerSecret authenticates external scheduler calls to the job
	// trigger endpoints (X-Scheduler-Secret header).
	SchedulerSecret string `mapstructure:"SCHEDULER_SECRET" yaml:"scheduler_secret"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST" yaml:"host"`
	Port         int    `mapstructure:"PORT" yaml:"port"`
	User         string `mapstructure:"USER" yaml:"user"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	Name         string `mapstructure:"NAME" yaml:"name"`
	SSLMode      string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and
// other URL-based database tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS" yaml:"address"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	DB       int    `mapstructure:"DB" yaml:"db"`
	UseTLS   bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
}

// PushConfig holds configuration for the Expo push delivery client.
type PushConfig struct {
	Enabled bool `mapstructure:"ENABLED" yaml:"enabled"`
	// APIUrl is the Expo push endpoint; overridable for tests.
	APIUrl string `mapstructure:"API_URL" yaml:"api_url"`
	// TimeoutSeconds is the HTTP client timeout for push requests.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// SchedulerConfig holds configuration for the in-process job scheduler.
// CadenceSpec and MatchToleranceSeconds are coupled: the match tolerance
// widens exact slot times into a window so that a cadence coarser than once
// per minute does not silently miss slots.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"ENABLED" yaml:"enabled"`
	// AutoLogSpec is the cron spec for the auto-log job (default every minute).
	AutoLogSpec string `mapstructure:"AUTO_LOG_SPEC" yaml:"auto_log_spec"`
	// ReminderSpec is the cron spec for the reminder job.
	ReminderSpec string `mapstructure:"REMINDER_SPEC" yaml:"reminder_spec"`
	// MatchToleranceSeconds widens slot matching around the current minute.
	// Zero reproduces strict same-minute matching.
	MatchToleranceSeconds int `mapstructure:"MATCH_TOLERANCE_SECONDS" yaml:"match_tolerance_seconds"`
	// LeaseTTLSeconds is the redis run-lease expiry guarding overlapping runs.
	LeaseTTLSeconds int `mapstructure:"LEASE_TTL_SECONDS" yaml:"lease_ttl_seconds"`
}

// WorkerPoolConfig holds configuration for the reminder dispatch worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	QueueSize              int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// RateLimitConfig holds configuration for rate limiting the job endpoints.
type RateLimitConfig struct {
	JobRequestsPerMinute int `mapstructure:"JOB_REQUESTS_PER_MINUTE" yaml:"job_requests_per_minute"`
	WindowSeconds        int `mapstructure:"WINDOW_SECONDS" yaml:"window_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server     ServerConfig     `mapstructure:"SERVER" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"DATABASE" yaml:"database"`
	Redis      RedisConfig      `mapstructure:"REDIS" yaml:"redis"`
	Push       PushConfig       `mapstructure:"PUSH" yaml:"push"`
	Scheduler  SchedulerConfig  `mapstructure:"SCHEDULER" yaml:"scheduler"`
	WorkerPool WorkerPoolConfig `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
	RateLimit  RateLimitConfig  `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "modular_health_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("PUSH.ENABLED", true)
	v.SetDefault("PUSH.API_URL", "https://exp.host/--/api/v2/push/send")
	v.SetDefault("PUSH.TIMEOUT_SECONDS", 30)
	v.SetDefault("SCHEDULER.ENABLED", true)
	v.SetDefault("SCHEDULER.AUTO_LOG_SPEC", "* * * * *")
	v.SetDefault("SCHEDULER.REMINDER_SPEC", "* * * * *")
	v.SetDefault("SCHEDULER.MATCH_TOLERANCE_SECONDS", 30)
	v.SetDefault("SCHEDULER.LEASE_TTL_SECONDS", 55)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 10)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 1000)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("RATE_LIMIT.JOB_REQUESTS_PER_MINUTE", 10)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.VERSION", "VERSION"},
		{"SERVER.JWT_SECRET", "SUPABASE_JWT_SECRET"},
		{"SERVER.SCHEDULER_SECRET", "SCHEDULER_SECRET"},
		// Database config
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"DATABASE.MAX_OPEN_CONNS", "DB_MAX_OPEN_CONNS"},
		// Redis config
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Push config
		{"PUSH.ENABLED", "PUSH_ENABLED"},
		{"PUSH.API_URL", "PUSH_API_URL"},
		{"PUSH.TIMEOUT_SECONDS", "PUSH_TIMEOUT_SECONDS"},
		// Scheduler config
		{"SCHEDULER.ENABLED", "SCHEDULER_ENABLED"},
		{"SCHEDULER.AUTO_LOG_SPEC", "SCHEDULER_AUTO_LOG_SPEC"},
		{"SCHEDULER.REMINDER_SPEC", "SCHEDULER_REMINDER_SPEC"},
		{"SCHEDULER.MATCH_TOLERANCE_SECONDS", "SCHEDULER_MATCH_TOLERANCE_SECONDS"},
		{"SCHEDULER.LEASE_TTL_SECONDS", "SCHEDULER_LEASE_TTL_SECONDS"},
		// WorkerPool config
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
		// Rate limit config
		{"RATE_LIMIT.JOB_REQUESTS_PER_MINUTE", "RATE_LIMIT_JOB_REQUESTS_PER_MINUTE"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"scheduler_enabled", v.GetBool("SCHEDULER.ENABLED"),
		"auto_log_spec", v.GetString("SCHEDULER.AUTO_LOG_SPEC"),
		"match_tolerance_seconds", v.GetInt("SCHEDULER.MATCH_TOLERANCE_SECONDS"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	// Validate Server Config
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.JWTSecret) < minJWTLength {
		return fmt.Errorf("JWT secret must be at least %d characters long", minJWTLength)
	}
	if len(cfg.Server.SchedulerSecret) > 0 && len(cfg.Server.SchedulerSecret) < minSecretLength {
		return fmt.Errorf("scheduler secret must be at least %d characters long", minSecretLength)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	// Validate Database Config
	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	// Validate Redis Config
	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate Push Config
	if cfg.Push.Enabled {
		if _, err := url.ParseRequestURI(cfg.Push.APIUrl); err != nil {
			return fmt.Errorf("invalid push API URL: %w", err)
		}
		if cfg.Push.TimeoutSeconds <= 0 {
			return fmt.Errorf("push timeout must be positive")
		}
	}

	// Validate Scheduler Config
	if cfg.Scheduler.MatchToleranceSeconds < 0 {
		return fmt.Errorf("scheduler match tolerance must not be negative")
	}
	if cfg.Scheduler.LeaseTTLSeconds <= 0 {
		return fmt.Errorf("scheduler lease TTL must be positive")
	}
	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.AutoLogSpec == "" || cfg.Scheduler.ReminderSpec == "" {
			return fmt.Errorf("scheduler cron specs are required when the scheduler is enabled")
		}
	}

	// Validate WorkerPool config
	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	// Validate RateLimit config
	if cfg.RateLimit.JobRequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit job requests per minute must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}

	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
