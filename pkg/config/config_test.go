package config

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:          AppConfig{Name: "test-service"},
				GRPC:         GRPCConfig{Port: 50051},
				Log:          LogConfig{Level: "info"},
				Solver:       SolverConfig{DefaultBudgetMS: 30000, HardCeilingMS: 120000},
				Orchestrator: OrchestratorConfig{WorkerPoolSize: 4},
			},
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: Config{
				GRPC: GRPCConfig{Port: 50051},
				Log:  LogConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "invalid port - zero",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "invalid port - too high",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50051},
				Log:  LogConfig{Level: "invalid"},
			},
			wantErr: true,
		},
		{
			name: "valid debug level",
			cfg: Config{
				App:          AppConfig{Name: "test"},
				GRPC:         GRPCConfig{Port: 50051},
				Log:          LogConfig{Level: "debug"},
				Solver:       SolverConfig{DefaultBudgetMS: 30000},
				Orchestrator: OrchestratorConfig{WorkerPoolSize: 1},
			},
			wantErr: false,
		},
		{
			name: "solver budget exceeds ceiling",
			cfg: Config{
				App:    AppConfig{Name: "test"},
				GRPC:   GRPCConfig{Port: 50051},
				Log:    LogConfig{Level: "info"},
				Solver: SolverConfig{DefaultBudgetMS: 200000, HardCeilingMS: 120000},
			},
			wantErr: true,
		},
		{
			name: "missing solver budget",
			cfg: Config{
				App:  AppConfig{Name: "test"},
				GRPC: GRPCConfig{Port: 50051},
				Log:  LogConfig{Level: "info"},
			},
			wantErr: true,
		},
		{
			name: "zero worker pool",
			cfg: Config{
				App:          AppConfig{Name: "test"},
				GRPC:         GRPCConfig{Port: 50051},
				Log:          LogConfig{Level: "info"},
				Solver:       SolverConfig{DefaultBudgetMS: 30000},
				Orchestrator: OrchestratorConfig{WorkerPoolSize: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    DatabaseConfig
		expect string
	}{
		{
			name: "postgres",
			cfg: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
				SSLMode:  "disable",
			},
			expect: "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable",
		},
		{
			name: "unknown",
			cfg: DatabaseConfig{
				Driver: "unknown",
			},
			expect: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := tt.cfg.DSN()
			if dsn != tt.expect {
				t.Errorf("expected DSN %s, got %s", tt.expect, dsn)
			}
		})
	}
}

func TestCacheConfig_Address(t *testing.T) {
	cfg := CacheConfig{
		Host: "redis.local",
		Port: 6379,
	}

	addr := cfg.Address()
	if addr != "redis.local:6379" {
		t.Errorf("expected 'redis.local:6379', got %s", addr)
	}
}

func TestKeepAliveConfig(t *testing.T) {
	cfg := KeepAliveConfig{
		MaxConnectionIdle:     15 * time.Minute,
		MaxConnectionAge:      30 * time.Minute,
		MaxConnectionAgeGrace: 5 * time.Minute,
		Time:                  5 * time.Minute,
		Timeout:               20 * time.Second,
	}

	if cfg.MaxConnectionIdle != 15*time.Minute {
		t.Errorf("unexpected MaxConnectionIdle: %v", cfg.MaxConnectionIdle)
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"http://localhost:3000", "https://example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	if !cfg.Enabled {
		t.Error("expected CORS to be enabled")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %d", len(cfg.AllowedOrigins))
	}
}

func TestSolverConfig_Defaults(t *testing.T) {
	cfg := SolverConfig{
		DefaultBudgetMS: 30000,
		HardCeilingMS:   120000,
		StallWindow:     5 * time.Second,
		MaxWaitMinutes:  30,
	}

	if cfg.DefaultBudgetMS != 30000 {
		t.Errorf("unexpected DefaultBudgetMS: %d", cfg.DefaultBudgetMS)
	}
	if cfg.MaxWaitMinutes != 30 {
		t.Errorf("unexpected MaxWaitMinutes: %d", cfg.MaxWaitMinutes)
	}
}

func TestEventBusConfig_Defaults(t *testing.T) {
	cfg := EventBusConfig{
		HeartbeatInterval: 20 * time.Second,
		MissedHeartbeats:  2,
		ReplayWindow:      15 * time.Minute,
		OutboundQueueSize: 256,
	}

	if cfg.OutboundQueueSize != 256 {
		t.Errorf("unexpected OutboundQueueSize: %d", cfg.OutboundQueueSize)
	}
}

func TestOrchestratorConfig_Defaults(t *testing.T) {
	cfg := OrchestratorConfig{
		WorkerPoolSize:     4,
		CancelDeadline:     30 * time.Second,
		StalenessThreshold: 15 * time.Minute,
	}

	if cfg.WorkerPoolSize != 4 {
		t.Errorf("unexpected WorkerPoolSize: %d", cfg.WorkerPoolSize)
	}
}
