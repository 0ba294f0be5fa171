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
	Event     EventConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Retry     RetryConfig
	Circuit   CircuitConfig
	Conflict  ConflictConfig
	DLQ       DLQConfig
	Calendar  CalendarConfig
	Archive   ArchiveConfig
	Telemetry TelemetryConfig

	Marketplace MarketplaceConfig
}

// MarketplaceConfig holds per-platform adapter credentials. Platforms are
// registered only when their Enabled flag is set.
type MarketplaceConfig struct {
	Tokopedia TokopediaCredentials
	Shopee    ShopeeCredentials
	Lazada    LazadaCredentials
}

// TokopediaCredentials holds the Tokopedia Seller API OAuth client pair
type TokopediaCredentials struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	FsID         int64
	ShopID       int64
}

// ShopeeCredentials holds the Shopee OpenAPI partner credentials
type ShopeeCredentials struct {
	Enabled     bool
	PartnerID   int64
	PartnerKey  string
	ShopID      int64
	AccessToken string
}

// LazadaCredentials holds the Lazada Open Platform app credentials
type LazadaCredentials struct {
	Enabled     bool
	AppKey      string
	AppSecret   string
	AccessToken string
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
	Port string
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
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// EventConfig holds event bus configuration
type EventConfig struct {
	BufferSize     int
	HandlerTimeout time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SchedulerConfig holds sync worker and background sweep configuration
type SchedulerConfig struct {
	Enabled            bool
	SyncWorkers        int
	QueueSize          int
	JobTimeout         time.Duration
	EscalationInterval time.Duration // how often to sweep conflicts past their deadline
	DLQRetryInterval   time.Duration // how often to re-inspect retryable DLQ entries
}

// RetryConfig holds retry engine configuration for platform operations
type RetryConfig struct {
	MaxRetries     int
	BaseDelayMs    int
	MaxDelayMs     int
	JitterFraction float64
}

// BaseDelay returns the base retry delay as a duration
func (r *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the retry delay cap as a duration
func (r *RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// CircuitConfig holds circuit breaker configuration
type CircuitConfig struct {
	FailureThreshold int
	WindowMs         int
	CoolDownMs       int
}

// Window returns the failure counting window as a duration
func (c *CircuitConfig) Window() time.Duration {
	return time.Duration(c.WindowMs) * time.Millisecond
}

// CoolDown returns the open-state cool-down as a duration
func (c *CircuitConfig) CoolDown() time.Duration {
	return time.Duration(c.CoolDownMs) * time.Millisecond
}

// ConflictConfig holds cross-channel conflict detection tolerances
type ConflictConfig struct {
	PriceVarianceToleranceIDR int64
	StatusGraceMs             int
}

// StatusGrace returns the status divergence grace period as a duration
func (c *ConflictConfig) StatusGrace() time.Duration {
	return time.Duration(c.StatusGraceMs) * time.Millisecond
}

// DLQConfig holds dead letter queue configuration
type DLQConfig struct {
	MaxRetries       int           // manual requeue attempts before an entry is parked
	RetentionDays    int           // how long resolved entries are kept before archive
	ArchiveEnabled   bool          // archive resolved entries to object storage
	IdempotencyTTL   time.Duration // how long a consumed sync idempotency key is held
	InMemoryFallback bool          // allow in-memory idempotency store when Redis is down
}

// CalendarConfig holds Indonesian business calendar configuration
type CalendarConfig struct {
	BusinessStartHour int  // WIB hour, inclusive
	BusinessEndHour   int  // WIB hour, exclusive
	IncludeSaturday   bool // treat Saturday as a business day
}

// ArchiveConfig holds S3 object storage settings for DLQ payload archival
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible storage (empty = AWS)
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
	DBMetricsEnabled  bool          // Export connection pool gauges from the GORM pool
	// Log export and continuous profiling
	LogsEnabled       bool   // Ship zap output to the OTEL Collector alongside stdout
	ProfilingEnabled  bool   // Enable continuous profiling (Pyroscope)
	ProfilingEndpoint string // Pyroscope server address (e.g., "http://localhost:4040")
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CSYNC_ prefix (e.g., CSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			BufferSize:     v.GetInt("event.buffer_size"),
			HandlerTimeout: v.GetDuration("event.handler_timeout"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			SyncWorkers:        v.GetInt("scheduler.sync_workers"),
			QueueSize:          v.GetInt("scheduler.queue_size"),
			JobTimeout:         v.GetDuration("scheduler.job_timeout"),
			EscalationInterval: v.GetDuration("scheduler.escalation_interval"),
			DLQRetryInterval:   v.GetDuration("scheduler.dlq_retry_interval"),
		},
		Retry: RetryConfig{
			MaxRetries:     v.GetInt("retry.max_retries"),
			BaseDelayMs:    v.GetInt("retry.base_delay_ms"),
			MaxDelayMs:     v.GetInt("retry.max_delay_ms"),
			JitterFraction: v.GetFloat64("retry.jitter_fraction"),
		},
		Circuit: CircuitConfig{
			FailureThreshold: v.GetInt("circuit.failure_threshold"),
			WindowMs:         v.GetInt("circuit.window_ms"),
			CoolDownMs:       v.GetInt("circuit.cool_down_ms"),
		},
		Conflict: ConflictConfig{
			PriceVarianceToleranceIDR: v.GetInt64("conflict.price_variance_tolerance_idr"),
			StatusGraceMs:             v.GetInt("conflict.status_grace_ms"),
		},
		DLQ: DLQConfig{
			MaxRetries:       v.GetInt("dlq.max_retries"),
			RetentionDays:    v.GetInt("dlq.retention_days"),
			ArchiveEnabled:   v.GetBool("dlq.archive_enabled"),
			IdempotencyTTL:   v.GetDuration("dlq.idempotency_ttl"),
			InMemoryFallback: v.GetBool("dlq.in_memory_fallback"),
		},
		Calendar: CalendarConfig{
			BusinessStartHour: v.GetInt("calendar.business_start_hour"),
			BusinessEndHour:   v.GetInt("calendar.business_end_hour"),
			IncludeSaturday:   v.GetBool("calendar.include_saturday"),
		},
		Archive: ArchiveConfig{
			Bucket:          v.GetString("archive.bucket"),
			Region:          v.GetString("archive.region"),
			Endpoint:        v.GetString("archive.endpoint"),
			AccessKeyID:     v.GetString("archive.access_key_id"),
			SecretAccessKey: v.GetString("archive.secret_access_key"),
			UsePathStyle:    v.GetBool("archive.use_path_style"),
		},
		Marketplace: MarketplaceConfig{
			Tokopedia: TokopediaCredentials{
				Enabled:      v.GetBool("marketplace.tokopedia.enabled"),
				ClientID:     v.GetString("marketplace.tokopedia.client_id"),
				ClientSecret: v.GetString("marketplace.tokopedia.client_secret"),
				FsID:         v.GetInt64("marketplace.tokopedia.fs_id"),
				ShopID:       v.GetInt64("marketplace.tokopedia.shop_id"),
			},
			Shopee: ShopeeCredentials{
				Enabled:     v.GetBool("marketplace.shopee.enabled"),
				PartnerID:   v.GetInt64("marketplace.shopee.partner_id"),
				PartnerKey:  v.GetString("marketplace.shopee.partner_key"),
				ShopID:      v.GetInt64("marketplace.shopee.shop_id"),
				AccessToken: v.GetString("marketplace.shopee.access_token"),
			},
			Lazada: LazadaCredentials{
				Enabled:     v.GetBool("marketplace.lazada.enabled"),
				AppKey:      v.GetString("marketplace.lazada.app_key"),
				AppSecret:   v.GetString("marketplace.lazada.app_secret"),
				AccessToken: v.GetString("marketplace.lazada.access_token"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			DBMetricsEnabled:  v.GetBool("telemetry.db_metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingEndpoint: v.GetString("telemetry.profiling_endpoint"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "channelsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "channelsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
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
	if cfg.Event.BufferSize == 0 {
		cfg.Event.BufferSize = 256
	}
	if cfg.Event.HandlerTimeout == 0 {
		cfg.Event.HandlerTimeout = 30 * time.Second
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.Scheduler.SyncWorkers == 0 {
		cfg.Scheduler.SyncWorkers = 8
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 1024
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 2 * time.Minute
	}
	if cfg.Scheduler.EscalationInterval == 0 {
		cfg.Scheduler.EscalationInterval = 5 * time.Minute
	}
	if cfg.Scheduler.DLQRetryInterval == 0 {
		cfg.Scheduler.DLQRetryInterval = 15 * time.Minute
	}
	// Retry defaults: 3 retries, 500ms base doubling up to 30s
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.BaseDelayMs == 0 {
		cfg.Retry.BaseDelayMs = 500
	}
	if cfg.Retry.MaxDelayMs == 0 {
		cfg.Retry.MaxDelayMs = 30000
	}
	if cfg.Retry.JitterFraction == 0 {
		cfg.Retry.JitterFraction = 0.2
	}
	// Circuit breaker defaults: 10 failures in 1 minute, 30s cool-down
	if cfg.Circuit.FailureThreshold == 0 {
		cfg.Circuit.FailureThreshold = 10
	}
	if cfg.Circuit.WindowMs == 0 {
		cfg.Circuit.WindowMs = 60000
	}
	if cfg.Circuit.CoolDownMs == 0 {
		cfg.Circuit.CoolDownMs = 30000
	}
	// Conflict defaults: Rp 2000 price tolerance, 10 minute status grace
	if cfg.Conflict.PriceVarianceToleranceIDR == 0 {
		cfg.Conflict.PriceVarianceToleranceIDR = 2000
	}
	if cfg.Conflict.StatusGraceMs == 0 {
		cfg.Conflict.StatusGraceMs = 600000
	}
	if cfg.DLQ.MaxRetries == 0 {
		cfg.DLQ.MaxRetries = 5
	}
	if cfg.DLQ.RetentionDays == 0 {
		cfg.DLQ.RetentionDays = 30
	}
	if cfg.DLQ.IdempotencyTTL == 0 {
		cfg.DLQ.IdempotencyTTL = 24 * time.Hour
	}
	// Calendar defaults: 09:00-18:00 WIB
	if cfg.Calendar.BusinessStartHour == 0 {
		cfg.Calendar.BusinessStartHour = 9
	}
	if cfg.Calendar.BusinessEndHour == 0 {
		cfg.Calendar.BusinessEndHour = 18
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = "ap-southeast-3" // Jakarta
	}

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "channelsync-backend"
	}
	// Note: Insecure defaults to false for safety (TLS enabled by default)
	// DBTraceEnabled defaults to false (needs explicit enable)
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	// Note: DBLogFullSQL defaults to false for security (disable in production)
	if cfg.Telemetry.ProfilingEndpoint == "" {
		cfg.Telemetry.ProfilingEndpoint = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
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

	// Validate retry engine settings
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	if c.Retry.BaseDelayMs <= 0 {
		return fmt.Errorf("retry.base_delay_ms must be positive")
	}
	if c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		return fmt.Errorf("retry.max_delay_ms (%d) cannot be less than retry.base_delay_ms (%d)",
			c.Retry.MaxDelayMs, c.Retry.BaseDelayMs)
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		return fmt.Errorf("retry.jitter_fraction must be between 0 and 1, got %f", c.Retry.JitterFraction)
	}

	// Validate circuit breaker settings
	if c.Circuit.FailureThreshold <= 0 {
		return fmt.Errorf("circuit.failure_threshold must be positive")
	}
	if c.Circuit.WindowMs <= 0 {
		return fmt.Errorf("circuit.window_ms must be positive")
	}
	if c.Circuit.CoolDownMs <= 0 {
		return fmt.Errorf("circuit.cool_down_ms must be positive")
	}

	// Validate conflict tolerances
	if c.Conflict.PriceVarianceToleranceIDR < 0 {
		return fmt.Errorf("conflict.price_variance_tolerance_idr cannot be negative")
	}
	if c.Conflict.StatusGraceMs < 0 {
		return fmt.Errorf("conflict.status_grace_ms cannot be negative")
	}

	// Validate calendar hours
	if c.Calendar.BusinessStartHour < 0 || c.Calendar.BusinessStartHour > 23 {
		return fmt.Errorf("calendar.business_start_hour must be between 0 and 23")
	}
	if c.Calendar.BusinessEndHour <= c.Calendar.BusinessStartHour || c.Calendar.BusinessEndHour > 24 {
		return fmt.Errorf("calendar.business_end_hour must be after business_start_hour and at most 24")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.DLQ.ArchiveEnabled && c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required when dlq.archive_enabled is true in production")
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
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
