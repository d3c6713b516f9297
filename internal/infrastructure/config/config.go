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
	TenantDB  TenantDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Event     EventConfig
	Worker    WorkerConfig
	Channel   ChannelConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name       string
	Env        string
	BaseDomain string // Tenants live under subdomains of this domain
}

// DatabaseConfig holds the control-plane database connection settings.
// The same database hosts the shared pool for free-plan tenants.
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

// TenantDBConfig holds settings for dedicated per-tenant databases.
// Dedicated databases are created on the control-plane server; each gets its
// own, smaller connection pool.
type TenantDBConfig struct {
	DatabasePrefix  string // Prefix for dedicated database names (e.g. "tenant_")
	MaxOpenConns    int    // Per dedicated database
	MaxIdleConns    int
	ConnMaxLifetime int           // in minutes
	ConnMaxIdleTime int           // in minutes
	DirectoryTTL    time.Duration // How long directory lookups are cached
	MoveBatchSize   int           // Rows copied per batch during a placement move
	MoveSettleDelay time.Duration // Pause between pausing routing and copying
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EventConfig holds outbox processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// WorkerConfig holds background job configuration
type WorkerConfig struct {
	AttendanceAutoCloseEnabled bool
	AttendanceAutoCloseAfter   time.Duration // Open records older than this get auto-closed
	OverdueSweepEnabled        bool
	OverdueSweepInterval       time.Duration
	JanitorEnabled             bool
	JanitorInterval            time.Duration // Orphaned shared-row cleanup after placement moves
	DispatcherEnabled          bool
	DispatcherInterval         time.Duration
	DispatcherBatchSize        int
}

// ChannelConfig holds messaging channel (Meta Graph API) settings
type ChannelConfig struct {
	GraphBaseURL   string
	GraphVersion   string
	RequestTimeout time.Duration
	RatePerMinute  int // Max outbound messages per connection per minute
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint (e.g. "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // Non-TLS collector connection (development only)
	DBTraceEnabled    bool // Trace database queries via otelgorm
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from the TOML file and environment variables.
// Priority (highest to lowest):
//  1. Environment variables with RETAIL_ prefix (e.g. RETAIL_DATABASE_PASSWORD)
//  2. config.toml
//  3. Built-in defaults
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
		// Missing config file is fine; defaults and env vars carry it.
	}

	v.SetEnvPrefix("RETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:       v.GetString("app.name"),
			Env:        v.GetString("app.env"),
			BaseDomain: v.GetString("app.base_domain"),
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
		TenantDB: TenantDBConfig{
			DatabasePrefix:  v.GetString("tenantdb.database_prefix"),
			MaxOpenConns:    v.GetInt("tenantdb.max_open_conns"),
			MaxIdleConns:    v.GetInt("tenantdb.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("tenantdb.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("tenantdb.conn_max_idle_time"),
			DirectoryTTL:    v.GetDuration("tenantdb.directory_ttl"),
			MoveBatchSize:   v.GetInt("tenantdb.move_batch_size"),
			MoveSettleDelay: v.GetDuration("tenantdb.move_settle_delay"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
		},
		Worker: WorkerConfig{
			AttendanceAutoCloseEnabled: v.GetBool("worker.attendance_auto_close_enabled"),
			AttendanceAutoCloseAfter:   v.GetDuration("worker.attendance_auto_close_after"),
			OverdueSweepEnabled:        v.GetBool("worker.overdue_sweep_enabled"),
			OverdueSweepInterval:       v.GetDuration("worker.overdue_sweep_interval"),
			JanitorEnabled:             v.GetBool("worker.janitor_enabled"),
			JanitorInterval:            v.GetDuration("worker.janitor_interval"),
			DispatcherEnabled:          v.GetBool("worker.dispatcher_enabled"),
			DispatcherInterval:         v.GetDuration("worker.dispatcher_interval"),
			DispatcherBatchSize:        v.GetInt("worker.dispatcher_batch_size"),
		},
		Channel: ChannelConfig{
			GraphBaseURL:   v.GetString("channel.graph_base_url"),
			GraphVersion:   v.GetString("channel.graph_version"),
			RequestTimeout: v.GetDuration("channel.request_timeout"),
			RatePerMinute:  v.GetInt("channel.rate_per_minute"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
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
		cfg.App.Name = "retail-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.BaseDomain == "" {
		cfg.App.BaseDomain = "localhost"
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
		cfg.Database.DBName = "retail"
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
	if cfg.TenantDB.DatabasePrefix == "" {
		cfg.TenantDB.DatabasePrefix = "tenant_"
	}
	if cfg.TenantDB.MaxOpenConns == 0 {
		cfg.TenantDB.MaxOpenConns = 10
	}
	if cfg.TenantDB.MaxIdleConns == 0 {
		cfg.TenantDB.MaxIdleConns = 2
	}
	if cfg.TenantDB.ConnMaxLifetime == 0 {
		cfg.TenantDB.ConnMaxLifetime = 60
	}
	if cfg.TenantDB.ConnMaxIdleTime == 0 {
		cfg.TenantDB.ConnMaxIdleTime = 15
	}
	if cfg.TenantDB.DirectoryTTL == 0 {
		cfg.TenantDB.DirectoryTTL = 30 * time.Second
	}
	if cfg.TenantDB.MoveBatchSize == 0 {
		cfg.TenantDB.MoveBatchSize = 500
	}
	if cfg.TenantDB.MoveSettleDelay == 0 {
		cfg.TenantDB.MoveSettleDelay = 2 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "retail-backend"
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
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if cfg.Worker.AttendanceAutoCloseAfter == 0 {
		cfg.Worker.AttendanceAutoCloseAfter = 16 * time.Hour
	}
	if cfg.Worker.OverdueSweepInterval == 0 {
		cfg.Worker.OverdueSweepInterval = time.Hour
	}
	if cfg.Worker.JanitorInterval == 0 {
		cfg.Worker.JanitorInterval = 10 * time.Minute
	}
	if cfg.Worker.DispatcherInterval == 0 {
		cfg.Worker.DispatcherInterval = 5 * time.Second
	}
	if cfg.Worker.DispatcherBatchSize == 0 {
		cfg.Worker.DispatcherBatchSize = 50
	}
	if cfg.Channel.GraphBaseURL == "" {
		cfg.Channel.GraphBaseURL = "https://graph.facebook.com"
	}
	if cfg.Channel.GraphVersion == "" {
		cfg.Channel.GraphVersion = "v21.0"
	}
	if cfg.Channel.RequestTimeout == 0 {
		cfg.Channel.RequestTimeout = 30 * time.Second
	}
	if cfg.Channel.RatePerMinute == 0 {
		cfg.Channel.RatePerMinute = 60
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "retail-backend"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
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
	if c.TenantDB.MaxOpenConns <= 0 {
		return fmt.Errorf("tenantdb.max_open_conns must be positive")
	}
	if c.TenantDB.MaxIdleConns > c.TenantDB.MaxOpenConns {
		return fmt.Errorf("tenantdb.max_idle_conns (%d) cannot exceed tenantdb.max_open_conns (%d)",
			c.TenantDB.MaxIdleConns, c.TenantDB.MaxOpenConns)
	}
	if !validDatabasePrefix(c.TenantDB.DatabasePrefix) {
		return fmt.Errorf("tenantdb.database_prefix %q may only contain lowercase letters, digits, and underscores", c.TenantDB.DatabasePrefix)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// validDatabasePrefix keeps the prefix safe to interpolate into a quoted
// CREATE DATABASE identifier.
func validDatabasePrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, r := range prefix {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}
	return true
}

// DSN returns the control-plane connection string with escaped values
func (d *DatabaseConfig) DSN() string {
	return d.DSNForDatabase(d.DBName)
}

// DSNForDatabase returns a connection string for another database on the
// same server. Dedicated tenant databases are dialed through this.
func (d *DatabaseConfig) DSNForDatabase(dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   dbName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
