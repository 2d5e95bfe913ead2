package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"rastermosaic/internal/models"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got error: %v", err)
	}
	if cfg.Mosaic.BlendWidth != models.DefaultSettings().BlendWidth {
		t.Errorf("Expected default blend width, got %v", cfg.Mosaic.BlendWidth)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Mosaic.BlendWidth = 6.5
	cfg.Mosaic.SamplingQuality = "high"
	cfg.Layout.Columns = 3
	cfg.Logging.Level = "debug"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Mosaic.BlendWidth != 6.5 || loaded.Layout.Columns != 3 {
		t.Errorf("Expected saved values, got width=%v columns=%d", loaded.Mosaic.BlendWidth, loaded.Layout.Columns)
	}
	if loaded.LogLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %v", loaded.LogLevel())
	}

	settings, err := loaded.MosaicSettings()
	if err != nil {
		t.Fatalf("Failed to convert settings: %v", err)
	}
	if settings.Quality != models.HighQuality {
		t.Errorf("Expected high quality, got %v", settings.Quality)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero width", "mosaic:\n  blendWidth: 0\n"},
		{"bad quality", "mosaic:\n  samplingQuality: ultra\n"},
		{"no columns", "layout:\n  columns: 0\n"},
		{"bad level", "logging:\n  level: chatty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("Expected an error for %s", tt.name)
			}
		})
	}
}
