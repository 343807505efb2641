package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Logging     LoggingConfig    `toml:"logging"`
	Storage     StorageConfig    `toml:"storage"`
	Queue       QueueConfig      `toml:"queue"`
	Runner      RunnerConfig     `toml:"runner"`
	Workflow    WorkflowConfig   `toml:"workflow"`
	Encryption  EncryptionConfig `toml:"encryption"`
	Notify      NotifyConfig     `toml:"notify"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Reports     ReportsConfig    `toml:"reports"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type QueueConfig struct {
	MaxWorkers    int `toml:"max_workers" validate:"gte=1"` // Concurrent task workers
	QueueSize     int `toml:"queue_size" validate:"gte=1"`  // Buffered task backlog
	SweepInterval int `toml:"sweep_interval"`               // Scheduled-job sweep period in seconds
}

type RunnerConfig struct {
	OutputsDir     string `toml:"outputs_dir"`     // Root directory for per-job working directories
	DefaultTimeout int    `toml:"default_timeout"` // Seconds, when a job carries none
	KillGrace      int    `toml:"kill_grace"`      // Seconds between SIGTERM and SIGKILL
}

type WorkflowConfig struct {
	MaxParallel  int `toml:"max_parallel" validate:"gte=1"` // Default parallel-node concurrency
	PollInterval int `toml:"poll_interval"`                 // Tool-node job poll period in seconds
}

type EncryptionConfig struct {
	// Comma-separated base64 keys; first is current, the rest decrypt-only
	// for rotation. Overridden by VENATOR_ENCRYPTION_KEY.
	Keys string `toml:"keys"`
}

type NotifyConfig struct {
	WebhookURL string `toml:"webhook_url"` // Optional outbound webhook for notification nodes
	Timeout    int    `toml:"timeout"`     // Webhook request timeout in seconds
}

// WebSocketConfig contains configuration for WebSocket event streaming
type WebSocketConfig struct {
	// Per-connection broadcast rate limit for high-volume job output
	// (events per second; burst is twice the rate). 0 disables throttling.
	OutputRateLimit int `toml:"output_rate_limit"`
}

type ReportsConfig struct {
	Dir string `toml:"dir"` // Directory for generated report files
}

// DefaultConfig returns the baseline configuration before file/env overrides
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/venator",
			},
		},
		Queue: QueueConfig{
			MaxWorkers:    4,
			QueueSize:     256,
			SweepInterval: 60,
		},
		Runner: RunnerConfig{
			OutputsDir:     "./data/outputs",
			DefaultTimeout: 3600,
			KillGrace:      5,
		},
		Workflow: WorkflowConfig{
			MaxParallel:  5,
			PollInterval: 2,
		},
		Notify: NotifyConfig{
			Timeout: 10,
		},
		WebSocket: WebSocketConfig{
			OutputRateLimit: 200,
		},
		Reports: ReportsConfig{
			Dir: "./data/reports",
		},
	}
}

// LoadFromFiles loads configuration from defaults, then the given TOML files
// in order (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("VENATOR_ENCRYPTION_KEY"); key != "" {
		cfg.Encryption.Keys = key
	}
	if url := os.Getenv("VENATOR_WEBHOOK_URL"); url != "" {
		cfg.Notify.WebhookURL = url
	}
}

// ApplyFlagOverrides applies command-line overrides (highest priority)
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// DiscoverConfigFile looks for venator.toml next to the executable and in
// the working directory. Returns "" when none exists.
func DiscoverConfigFile() string {
	if _, err := os.Stat("venator.toml"); err == nil {
		return "venator.toml"
	}
	if exePath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exePath), "venator.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
