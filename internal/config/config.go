// Package config manages the server configuration stored in jsonstore.yaml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name inside the data directory.
const FileName = "jsonstore.yaml"

// Config stores all server-wide configuration.
// Loaded from jsonstore.yaml, created with defaults if missing.
type Config struct {
	// HTTP is the address to listen on.
	HTTP string `yaml:"http"`

	// StorageDir holds the documents. Relative paths are resolved against the
	// data directory.
	StorageDir string `yaml:"storage_dir"`

	// CompressionThresholdBytes is the serialized document size above which
	// documents are stored gzip compressed.
	CompressionThresholdBytes int64 `yaml:"compression_threshold_bytes"`

	// ScanWorkers bounds the concurrency of search and bulk delete. 0 means
	// GOMAXPROCS of the running process.
	ScanWorkers int `yaml:"scan_workers,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MaxRequestBodyBytes limits the size of any single HTTP request body.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `yaml:"rate_limits"`
}

// RateLimits defines rate limiting configuration (requests per minute per
// client IP).
type RateLimits struct {
	// ReadPerMin limits GET requests. 0 means unlimited.
	ReadPerMin int `yaml:"read_per_min"`

	// WritePerMin limits POST, PATCH and DELETE requests. 0 means unlimited.
	WritePerMin int `yaml:"write_per_min"`

	// Burst is the number of requests allowed at once before throttling. 0
	// uses the per minute rate.
	Burst int `yaml:"burst"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.ReadPerMin < 0 {
		return errors.New("read_per_min must be non-negative")
	}
	if r.WritePerMin < 0 {
		return errors.New("write_per_min must be non-negative")
	}
	if r.Burst < 0 {
		return errors.New("burst must be non-negative")
	}
	return nil
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		HTTP:                      "127.0.0.1:8080",
		StorageDir:                "documents",
		CompressionThresholdBytes: 1 << 20, // 1 MiB
		LogLevel:                  "info",
		MaxRequestBodyBytes:       64 << 20, // 64 MiB
		RateLimits: RateLimits{
			ReadPerMin:  6000,
			WritePerMin: 600,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.HTTP == "" {
		return errors.New("http is required")
	}
	if c.StorageDir == "" {
		return errors.New("storage_dir is required")
	}
	if c.CompressionThresholdBytes <= 0 {
		return errors.New("compression_threshold_bytes must be positive")
	}
	if c.ScanWorkers < 0 {
		return errors.New("scan_workers must be non-negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	return nil
}

// ResolveStorageDir returns StorageDir, relative to dataDir when not absolute.
func (c *Config) ResolveStorageDir(dataDir string) string {
	if filepath.IsAbs(c.StorageDir) {
		return c.StorageDir
	}
	return filepath.Join(dataDir, c.StorageDir)
}

// Load loads configuration from path, or dataDir/jsonstore.yaml when path is
// empty. Creates the file with defaults if it doesn't exist.
func Load(dataDir, path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(dataDir, FileName)
	}
	cfg := Default()

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		// File doesn't exist, create it with defaults.
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ParseLevel converts a log level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
}
