// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the dispatch core.
type Config struct {
	App          AppConfig          `koanf:"app"`
	GRPC         GRPCConfig         `koanf:"grpc"`
	HTTP         HTTPConfig         `koanf:"http"`
	Log          LogConfig          `koanf:"log"`
	Metrics      MetricsConfig      `koanf:"metrics"`
	Tracing      TracingConfig      `koanf:"tracing"`
	Database     DatabaseConfig     `koanf:"database"`
	Cache        CacheConfig        `koanf:"cache"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	Audit        AuditConfig        `koanf:"audit"`
	Swagger      SwaggerConfig      `koanf:"swagger"`
	Retry        RetryConfig        `koanf:"retry"`
	Provider     ProviderConfig     `koanf:"provider"`
	Solver       SolverConfig       `koanf:"solver"`
	EventBus     EventBusConfig     `koanf:"event_bus"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// GRPCConfig holds gRPC server settings.
type GRPCConfig struct {
	Port              int             `koanf:"port"`
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"` // bytes
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"` // bytes
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
	TLS               TLSConfig       `koanf:"tls"`
}

// KeepAliveConfig holds keepalive parameters.
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

// TLSConfig holds TLS settings.
type TLSConfig struct {
	Enabled  bool   `koanf:"enabled"`
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
	CAFile   string `koanf:"ca_file"`
}

// HTTPConfig holds HTTP server settings, used for the event-bus wire surface.
type HTTPConfig struct {
	Port                int           `koanf:"port"`
	ReadTimeout         time.Duration `koanf:"read_timeout"`
	WriteTimeout        time.Duration `koanf:"write_timeout"`
	ShutdownTimeout     time.Duration `koanf:"shutdown_timeout"`
	MaxConnections      int           `koanf:"max_connections"`
	CORS                CORSConfig    `koanf:"cors"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"` // postgres
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns the connection string.
func (d DatabaseConfig) DSN() string {
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
		)
	default:
		return ""
	}
}

// CacheConfig holds matrix cache backend settings.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// Address returns the cache backend address.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	Backend         string        `koanf:"backend"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// AuditConfig holds audit log settings.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Backend         string        `koanf:"backend"`
	FilePath        string        `koanf:"file_path"`
	BufferSize      int           `koanf:"buffer_size"`
	FlushPeriod     time.Duration `koanf:"flush_period"`
	ExcludeMethods  []string      `koanf:"exclude_methods"`
	IncludeRequest  bool          `koanf:"include_request"`
	IncludeResponse bool          `koanf:"include_response"`
}

// SwaggerConfig holds Swagger UI settings.
type SwaggerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Port    int    `koanf:"port"`
	Title   string `koanf:"title"`
}

// RetryConfig holds retry settings for outbound calls.
type RetryConfig struct {
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// ProviderConfig holds settings for the external routing and prediction providers.
type ProviderConfig struct {
	RoutingEndpoint   string        `koanf:"routing_endpoint"`
	PredictorEndpoint string        `koanf:"predictor_endpoint"`
	MatrixTimeout     time.Duration `koanf:"matrix_timeout"`     // default 10s
	DirectionsTimeout time.Duration `koanf:"directions_timeout"` // default 15s
	PredictorTimeout  time.Duration `koanf:"predictor_timeout"`  // default 20s
	BreakerThreshold  int           `koanf:"breaker_threshold"`  // consecutive failures to trip
	BreakerWindow     time.Duration `koanf:"breaker_window"`     // default 30s
	BreakerCooldown   time.Duration `koanf:"breaker_cooldown"`   // half-open after, default 60s
}

// SolverConfig holds VRP solver tuning parameters.
type SolverConfig struct {
	DefaultBudgetMS     int           `koanf:"default_budget_ms"` // default 30000
	HardCeilingMS       int           `koanf:"hard_ceiling_ms"`   // default 120000
	StallWindow         time.Duration `koanf:"stall_window"`      // default 5s, no-improvement cutoff
	CheckpointInterval  time.Duration `koanf:"checkpoint_interval"`
	MaxWaitMinutes      int           `koanf:"max_wait_minutes"` // default 30
	AverageSpeedKMH     float64       `koanf:"average_speed_kmh"`
	DefaultShiftMinutes int           `koanf:"default_shift_minutes"` // default 480
	Seed                int64         `koanf:"seed"`
	MaxConcurrentSolves int           `koanf:"max_concurrent_solves"`
}

// EventBusConfig holds pub/sub broker settings.
type EventBusConfig struct {
	HeartbeatInterval  time.Duration `koanf:"heartbeat_interval"`   // default 20s
	MissedHeartbeats   int           `koanf:"missed_heartbeats"`    // default 2
	ReplayWindow       time.Duration `koanf:"replay_window"`        // default 15m
	ReplayMaxEvents    int           `koanf:"replay_max_events"`    // default 1000 per room
	OutboundQueueSize  int           `koanf:"outbound_queue_size"`  // default 256
	DisconnectGrace    time.Duration `koanf:"disconnect_grace"`     // default 60s
	MaxConnections     int           `koanf:"max_connections"`      // default 10000
}

// OrchestratorConfig holds async job orchestrator settings.
type OrchestratorConfig struct {
	WorkerPoolSize        int           `koanf:"worker_pool_size"` // default 4
	MaxConcurrentOptimize int           `koanf:"max_concurrent_optimize"`
	CancelDeadline        time.Duration `koanf:"cancel_deadline"`         // default 30s
	StalenessThreshold    time.Duration `koanf:"staleness_threshold"`     // default 15m
	ProgressThrottle      time.Duration `koanf:"progress_throttle"`       // default 1s
	ReportInterval        time.Duration `koanf:"report_interval"`         // default 10s, liveness
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Sprintf("grpc.port must be between 1 and 65535, got %d", c.GRPC.Port))
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Solver.DefaultBudgetMS <= 0 {
		errs = append(errs, "solver.default_budget_ms must be positive")
	}
	if c.Solver.HardCeilingMS > 0 && c.Solver.DefaultBudgetMS > c.Solver.HardCeilingMS {
		errs = append(errs, "solver.default_budget_ms must not exceed solver.hard_ceiling_ms")
	}

	if c.Orchestrator.WorkerPoolSize <= 0 {
		errs = append(errs, "orchestrator.worker_pool_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
