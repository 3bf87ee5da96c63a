package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Telemetry  TelemetryConfig
	Collection CollectionConfig
	Archive    ArchiveConfig
	Worker     WorkerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the service runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
	SwaggerEnabled   bool
	// Worker callback rate limit, per worker token
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
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
	ConnMaxLifetime time.Duration
	LogLevel        string
	SlowThreshold   time.Duration
	TraceEnabled    bool
}

// DSN returns the database connection string with properly escaped values
func (d DatabaseConfig) DSN() string {
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

// RedisConfig holds Redis connection settings. An empty host disables Redis
// and the supplier lock falls back to process memory.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	Insecure          bool
	ServiceName       string
	SamplingRatio     float64
	MetricsInterval   time.Duration
	LogsEnabled       bool
	ProfilingEnabled  bool
	ProfilingServer   string
}

// CollectionConfig holds supplier catalog collection settings
type CollectionConfig struct {
	PageSize           int
	PageDelay          time.Duration // fixed pause between page requests
	PageTimeout        time.Duration
	JobTimeout         time.Duration
	LockTTL            time.Duration
	MaxPages           int // safety ceiling per job
	LowStockThreshold  int
	MaxConcurrentJobs  int
	QueueSize          int
	DefaultWindowDays  int
	MaxErrors          int
	ScheduleEnabled    bool
	ScheduleInterval   time.Duration
	StaleSweepInterval time.Duration
	StaleGrace         time.Duration
}

// ArchiveConfig holds raw payload archive settings
type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	// CreateBucket creates the bucket on startup when it is missing
	CreateBucket bool
}

// WorkerConfig holds out-of-process collection worker settings
type WorkerConfig struct {
	URL             string
	CallbackBaseURL string
	TokenSecret     string
	TokenIssuer     string
	TokenTTL        time.Duration
	RequestTimeout  time.Duration
}

// Enabled reports whether a remote worker is configured.
func (w WorkerConfig) Enabled() bool {
	return w.URL != ""
}

// Load reads configuration from ./config.yaml (if present) and ERP_*
// environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from the given file, or searches the default
// locations when path is empty. Environment variables take precedence over
// the file, e.g. ERP_DATABASE_PASSWORD overrides database.password.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/backoffice")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			SwaggerEnabled:   v.GetBool("http.swagger_enabled"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
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
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
			TraceEnabled:    v.GetBool("database.trace_enabled"),
		},
		Redis: RedisConfig{
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ServiceName:       v.GetString("telemetry.service_name"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
		},
		Collection: CollectionConfig{
			PageSize:           v.GetInt("collection.page_size"),
			PageDelay:          v.GetDuration("collection.page_delay"),
			PageTimeout:        v.GetDuration("collection.page_timeout"),
			JobTimeout:         v.GetDuration("collection.job_timeout"),
			LockTTL:            v.GetDuration("collection.lock_ttl"),
			MaxPages:           v.GetInt("collection.max_pages"),
			LowStockThreshold:  v.GetInt("collection.low_stock_threshold"),
			MaxConcurrentJobs:  v.GetInt("collection.max_concurrent_jobs"),
			QueueSize:          v.GetInt("collection.queue_size"),
			DefaultWindowDays:  v.GetInt("collection.default_window_days"),
			MaxErrors:          v.GetInt("collection.max_errors"),
			ScheduleEnabled:    v.GetBool("collection.schedule_enabled"),
			ScheduleInterval:   v.GetDuration("collection.schedule_interval"),
			StaleSweepInterval: v.GetDuration("collection.stale_sweep_interval"),
			StaleGrace:         v.GetDuration("collection.stale_grace"),
		},
		Archive: ArchiveConfig{
			Enabled:         v.GetBool("archive.enabled"),
			Bucket:          v.GetString("archive.bucket"),
			Prefix:          v.GetString("archive.prefix"),
			Region:          v.GetString("archive.region"),
			Endpoint:        v.GetString("archive.endpoint"),
			AccessKeyID:     v.GetString("archive.access_key_id"),
			SecretAccessKey: v.GetString("archive.secret_access_key"),
			UsePathStyle:    v.GetBool("archive.use_path_style"),
			CreateBucket:    v.GetBool("archive.create_bucket"),
		},
		Worker: WorkerConfig{
			URL:             v.GetString("worker.url"),
			CallbackBaseURL: v.GetString("worker.callback_base_url"),
			TokenSecret:     v.GetString("worker.token_secret"),
			TokenIssuer:     v.GetString("worker.token_issuer"),
			TokenTTL:        v.GetDuration("worker.token_ttl"),
			RequestTimeout:  v.GetDuration("worker.request_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "backoffice")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.max_body_size", 10<<20)
	v.SetDefault("http.swagger_enabled", true)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("http.rate_limit_rps", 50.0)
	v.SetDefault("http.rate_limit_burst", 100)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "backoffice")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "backoffice:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "backoffice")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.metrics_interval", 30*time.Second)
	v.SetDefault("telemetry.profiling_server", "http://localhost:4040")

	v.SetDefault("collection.page_size", 100)
	v.SetDefault("collection.page_delay", 500*time.Millisecond)
	v.SetDefault("collection.page_timeout", 30*time.Second)
	v.SetDefault("collection.job_timeout", 30*time.Minute)
	v.SetDefault("collection.lock_ttl", 35*time.Minute)
	v.SetDefault("collection.max_pages", 1000)
	v.SetDefault("collection.low_stock_threshold", 10)
	v.SetDefault("collection.max_concurrent_jobs", 4)
	v.SetDefault("collection.queue_size", 64)
	v.SetDefault("collection.default_window_days", 7)
	v.SetDefault("collection.max_errors", 100)
	v.SetDefault("collection.schedule_interval", time.Hour)
	v.SetDefault("collection.stale_sweep_interval", 5*time.Minute)
	v.SetDefault("collection.stale_grace", 5*time.Minute)

	v.SetDefault("archive.prefix", "collection-payloads")
	v.SetDefault("archive.region", "us-east-1")

	v.SetDefault("worker.token_issuer", "backoffice")
	v.SetDefault("worker.token_ttl", 2*time.Hour)
	v.SetDefault("worker.request_timeout", 10*time.Second)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}

	col := c.Collection
	if col.PageSize <= 0 || col.PageSize > 500 {
		return fmt.Errorf("collection.page_size must be between 1 and 500, got %d", col.PageSize)
	}
	if col.MaxPages <= 0 {
		return fmt.Errorf("collection.max_pages must be positive")
	}
	if col.PageDelay < 0 {
		return fmt.Errorf("collection.page_delay cannot be negative")
	}
	if col.JobTimeout <= 0 || col.PageTimeout <= 0 {
		return fmt.Errorf("collection.job_timeout and collection.page_timeout must be positive")
	}
	if col.PageTimeout > col.JobTimeout {
		return fmt.Errorf("collection.page_timeout (%s) cannot exceed collection.job_timeout (%s)", col.PageTimeout, col.JobTimeout)
	}
	if col.LockTTL < col.JobTimeout {
		return fmt.Errorf("collection.lock_ttl (%s) cannot be shorter than collection.job_timeout (%s)", col.LockTTL, col.JobTimeout)
	}
	if col.LowStockThreshold < 1 {
		return fmt.Errorf("collection.low_stock_threshold must be at least 1")
	}
	if col.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("collection.max_concurrent_jobs must be positive")
	}
	if col.ScheduleEnabled && col.ScheduleInterval < time.Minute {
		return fmt.Errorf("collection.schedule_interval must be at least 1m")
	}

	if c.HTTP.RateLimitEnabled && (c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst < 1) {
		return fmt.Errorf("http.rate_limit_rps and http.rate_limit_burst must be positive when rate limiting is enabled")
	}

	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive is enabled")
	}
	if c.Worker.Enabled() {
		if len(c.Worker.TokenSecret) < 32 {
			return fmt.Errorf("worker.token_secret must be at least 32 characters when worker.url is set")
		}
		if c.Worker.CallbackBaseURL == "" {
			return fmt.Errorf("worker.callback_base_url is required when worker.url is set")
		}
	}

	if c.App.IsProduction() {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
			}
		}
	}
	return nil
}
