// Package config provides configuration loading and management for mrivolume.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Ingestion parameters
	Ingest struct {
		// HTTPTimeout bounds a remote fetch. Zero waits forever.
		HTTPTimeout time.Duration `yaml:"httpTimeout"`

		// UserAgent is sent with remote requests when set
		UserAgent string `yaml:"userAgent"`

		// MaxDecompressedBytes caps the inflated size of a compressed volume. Zero disables the cap.
		MaxDecompressedBytes int64 `yaml:"maxDecompressedBytes"`
	} `yaml:"ingest"`

	// Output parameters
	Output struct {
		// Verbose prints step-by-step progress
		Verbose bool `yaml:"verbose"`

		// ExtractSlices saves every slice along each axis as JPEG
		ExtractSlices bool `yaml:"extractSlices"`

		// SlicesDir is the directory extracted slices are written under
		SlicesDir string `yaml:"slicesDir"`

		// JPEGQuality is the encoder quality for extracted slices (1-100)
		JPEGQuality int `yaml:"jpegQuality"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Format is logfmt or json
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Ingest.HTTPTimeout = 0
	cfg.Ingest.UserAgent = "mrivolume"
	cfg.Ingest.MaxDecompressedBytes = 2 << 30

	cfg.Output.Verbose = true
	cfg.Output.ExtractSlices = false
	cfg.Output.SlicesDir = "slices"
	cfg.Output.JPEGQuality = 90

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "logfmt"

	return cfg
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Ingest.HTTPTimeout < 0 {
		return fmt.Errorf("ingest.httpTimeout must not be negative")
	}
	if c.Ingest.MaxDecompressedBytes < 0 {
		return fmt.Errorf("ingest.maxDecompressedBytes must not be negative")
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpegQuality must be between 1 and 100, got %d", c.Output.JPEGQuality)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "logfmt", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
