package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("port: got %d, want 8080", cfg.Port)
	}
	if cfg.Detection.ConfidenceThreshold != 0.3 {
		t.Errorf("confidence threshold: got %g, want 0.3", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.MinTrainingImages != 3 {
		t.Errorf("min training images: got %d, want 3", cfg.Detection.MinTrainingImages)
	}
	if cfg.Detection.ExtractionTimeout() != 10*time.Second {
		t.Errorf("extraction timeout: got %s, want 10s", cfg.Detection.ExtractionTimeout())
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 9090
data_dir: /var/lib/pv/images
detection:
  confidence_threshold: 0.5
  max_matches: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Port)
	}
	if cfg.DataDir != "/var/lib/pv/images" {
		t.Errorf("data dir: got %q", cfg.DataDir)
	}
	if cfg.Detection.ConfidenceThreshold != 0.5 {
		t.Errorf("confidence threshold: got %g, want 0.5", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.MaxMatches != 3 {
		t.Errorf("max matches: got %d, want 3", cfg.Detection.MaxMatches)
	}
	// Settings absent from the file keep their defaults.
	if cfg.Detection.MinTrainingImages != 3 {
		t.Errorf("min training images: got %d, want default 3", cfg.Detection.MinTrainingImages)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 9090\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("port: got %d, want env override 7070", cfg.Port)
	}
	if cfg.DatabasePath != "/tmp/override.db" {
		t.Errorf("database path: got %q", cfg.DatabasePath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "port: 70000\n"},
		{"threshold out of range", "detection:\n  confidence_threshold: 1.5\n"},
		{"zero min training images", "detection:\n  min_training_images: 0\n"},
		{"malformed YAML", "port: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("writing config file: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
