// Package config loads service configuration from an optional YAML file
// with environment variable overrides for deployment-level settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime-tunable setting of the service. Algorithm
// constants that define the stored feature shape (histogram bins, canvas
// size) live in the features package and are not configurable here.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// DataDir is where uploaded training image files are stored.
	DataDir string `yaml:"data_dir"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	// MaxUploadBytes caps the size of a multipart request body.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	Detection DetectionConfig `yaml:"detection"`
}

// DetectionConfig tunes the matching pipeline.
type DetectionConfig struct {
	// ConfidenceThreshold is the minimum confidence for a match to be
	// reported.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MaxMatches caps the number of matches per detection.
	MaxMatches int `yaml:"max_matches"`

	// MinTrainingImages gates model training.
	MinTrainingImages int `yaml:"min_training_images"`

	// ExtractionTimeoutSeconds bounds per-image feature extraction.
	ExtractionTimeoutSeconds int `yaml:"extraction_timeout_seconds"`

	// MaxConcurrentExtractions bounds parallel extractions across all
	// requests.
	MaxConcurrentExtractions int `yaml:"max_concurrent_extractions"`
}

// ExtractionTimeout returns the configured timeout as a duration.
func (d DetectionConfig) ExtractionTimeout() time.Duration {
	return time.Duration(d.ExtractionTimeoutSeconds) * time.Second
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Port:           8080,
		DataDir:        "./data/training-images",
		DatabasePath:   "./data/product-vision.db",
		MaxUploadBytes: 50 << 20,
		Detection: DetectionConfig{
			ConfidenceThreshold:      0.3,
			MaxMatches:               10,
			MinTrainingImages:        3,
			ExtractionTimeoutSeconds: 10,
			MaxConcurrentExtractions: 4,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.Detection.ConfidenceThreshold < 0 || cfg.Detection.ConfidenceThreshold >= 1 {
		return nil, fmt.Errorf("confidence_threshold %g outside [0,1)", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.MinTrainingImages < 1 {
		return nil, fmt.Errorf("min_training_images must be at least 1")
	}

	return cfg, nil
}

// applyEnv overrides deployment-level settings from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
}
