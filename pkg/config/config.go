// Package config provides configuration loading and management for niftivol.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Batch controls the directory round-trip driver
	Batch struct {
		// InputDir is scanned (non-recursively) for volumes to copy
		InputDir string `yaml:"inputDir"`

		// OutputDir receives the re-written volumes under their original names
		OutputDir string `yaml:"outputDir"`

		// Extensions lists the file suffixes picked up from InputDir
		Extensions []string `yaml:"extensions"`

		// Verify re-opens every written file and compares it with its source
		Verify bool `yaml:"verify"`
	} `yaml:"batch"`

	// Generate controls random test volume generation
	Generate struct {
		// OutputDir receives one file per kind
		OutputDir string `yaml:"outputDir"`

		// Size is the edge length of the generated cubes
		Size int `yaml:"size"`

		// Seed makes generation reproducible
		Seed uint64 `yaml:"seed"`

		// Kinds selects which test volumes to write; empty means all
		Kinds []string `yaml:"kinds"`
	} `yaml:"generate"`

	// Log parameters
	Log struct {
		// Level is a logrus level name (debug, info, warn, error)
		Level string `yaml:"level"`

		// Format is "text" or "json"
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default batch parameters
	cfg.Batch.InputDir = "test_images"
	cfg.Batch.OutputDir = "test_output"
	cfg.Batch.Extensions = []string{".nii", ".nii.gz"}
	cfg.Batch.Verify = true

	// Set default generation parameters
	cfg.Generate.OutputDir = "test_images"
	cfg.Generate.Size = 25
	cfg.Generate.Seed = 1

	// Set default log parameters
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// Validate checks values that would otherwise fail deep inside a command
func (c *Config) Validate() error {
	if c.Generate.Size <= 0 {
		return fmt.Errorf("generate.size must be positive, got %d", c.Generate.Size)
	}
	if len(c.Batch.Extensions) == 0 {
		return fmt.Errorf("batch.extensions must not be empty")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
