// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/artpar/simpleschema/core/adapter"
)

// Config is the root configuration structure.
type Config struct {
	Schema   SchemaConfig   `yaml:"schema"`
	Database adapter.Config `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Output   OutputConfig   `yaml:"output"`

	// Extra is passed through untouched to the hosting framework.
	Extra map[string]any `yaml:"extra,omitempty"`
}

// SchemaConfig locates the schema description.
type SchemaConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"` // Recompile when the schema file changes
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OutputConfig configures CLI output.
type OutputConfig struct {
	Format string `yaml:"format"` // "table", "json" or "yaml"
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SIMPLESCHEMA_SCHEMA_PATH      - Schema file (default: schema.yaml)
//	SIMPLESCHEMA_SCHEMA_WATCH     - Recompile on change (default: false)
//	SIMPLESCHEMA_DATABASE_TYPE    - mongodb, postgres, sqlite or rest (default: sqlite)
//	SIMPLESCHEMA_DATABASE_URI     - Database URI (default: simpleschema.db)
//	SIMPLESCHEMA_SERVER_HOST      - Server host (default: 0.0.0.0)
//	SIMPLESCHEMA_SERVER_PORT      - Server port (default: 8080)
//	SIMPLESCHEMA_LOG_LEVEL        - Log level: debug, info, warn, error (default: info)
//	SIMPLESCHEMA_LOG_FORMAT       - Log format: json or console (default: json)
//	SIMPLESCHEMA_METRICS_ENABLED  - Enable /metrics endpoint (default: false)
//	SIMPLESCHEMA_OUTPUT_FORMAT    - CLI output format (default: table)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from file when it exists, otherwise from the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SIMPLESCHEMA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Schema configuration
	if v := os.Getenv("SIMPLESCHEMA_SCHEMA_PATH"); v != "" {
		cfg.Schema.Path = v
	}
	if v := os.Getenv("SIMPLESCHEMA_SCHEMA_WATCH"); v != "" {
		cfg.Schema.Watch = parseBool(v)
	}

	// Database configuration
	if v := os.Getenv("SIMPLESCHEMA_DATABASE_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("SIMPLESCHEMA_DATABASE_URI"); v != "" {
		cfg.Database.URI = v
	}

	// Server configuration
	if v := os.Getenv("SIMPLESCHEMA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SIMPLESCHEMA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SIMPLESCHEMA_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("SIMPLESCHEMA_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Logging configuration
	if v := os.Getenv("SIMPLESCHEMA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SIMPLESCHEMA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("SIMPLESCHEMA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("SIMPLESCHEMA_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// Output configuration
	if v := os.Getenv("SIMPLESCHEMA_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Schema.Path == "" {
		cfg.Schema.Path = "schema.yaml"
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = adapter.TypeSQLite
	}
	if cfg.Database.URI == "" && cfg.Database.Type == adapter.TypeSQLite {
		cfg.Database.URI = "simpleschema.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "table"
	}

	if cfg.Extra == nil {
		cfg.Extra = map[string]any{}
	}
}

func validate(cfg *Config) error {
	var result *multierror.Error

	if _, err := adapter.Configure(cfg.Database); err != nil {
		result = multierror.Append(result, fmt.Errorf("database.type: %w", err))
	}
	if cfg.Database.URI == "" {
		result = multierror.Append(result, fmt.Errorf("database.uri is required for database type %q", cfg.Database.Type))
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port must be between 0 and 65535, got %d", cfg.Server.Port))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		result = multierror.Append(result, fmt.Errorf("logging.level must be one of: debug, info, warn, error"))
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		result = multierror.Append(result, fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format))
	}

	validOutputs := map[string]bool{"table": true, "json": true, "yaml": true}
	if !validOutputs[cfg.Output.Format] {
		result = multierror.Append(result, fmt.Errorf("output.format must be one of: table, json, yaml"))
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		result = multierror.Append(result, fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path))
	}

	return result.ErrorOrNil()
}
