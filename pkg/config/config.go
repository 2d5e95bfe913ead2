// Package config provides configuration loading and management for the seamless mosaic tools.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"rastermosaic/internal/models"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Mosaic tunables
	Mosaic struct {
		// ApplyGlobal enables global color balancing across all members
		ApplyGlobal bool `yaml:"applyGlobal"`

		// ApplyPositional enables positional color balancing toward each neighbor
		ApplyPositional bool `yaml:"applyPositional"`

		// BlendWidth is the width of the blend corridor in mosaic units
		BlendWidth float64 `yaml:"blendWidth"`

		// SamplingQuality is one of fast, normal or high
		SamplingQuality string `yaml:"samplingQuality"`
	} `yaml:"mosaic"`

	// Layout parameters used by the command line tool to place images
	Layout struct {
		// Columns is the number of images per row
		Columns int `yaml:"columns"`

		// Overlap is the number of pixels adjacent images share
		Overlap int `yaml:"overlap"`

		// PixelSize is the size of an output pixel in mosaic units
		PixelSize float64 `yaml:"pixelSize"`
	} `yaml:"layout"`

	// Output parameters
	Output struct {
		// File is the path of the rendered mosaic
		File string `yaml:"file"`

		// TileSize is the edge length of preview tiles in pixels
		TileSize int `yaml:"tileSize"`

		// SaveTiles writes the mosaic as a tile sequence next to the output file
		SaveTiles bool `yaml:"saveTiles"`

		// SaveOverlay writes a debug overlay of application shapes and corridors
		SaveOverlay bool `yaml:"saveOverlay"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is a logrus level name (debug, info, warn, error)
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default mosaic parameters
	defaults := models.DefaultSettings()
	cfg.Mosaic.ApplyGlobal = defaults.ApplyGlobal
	cfg.Mosaic.ApplyPositional = defaults.ApplyPositional
	cfg.Mosaic.BlendWidth = defaults.BlendWidth
	cfg.Mosaic.SamplingQuality = defaults.Quality.String()

	// Set default layout parameters
	cfg.Layout.Columns = 2
	cfg.Layout.Overlap = 8
	cfg.Layout.PixelSize = 1.0

	// Set default output parameters
	cfg.Output.File = "mosaic.png"
	cfg.Output.TileSize = 256
	cfg.Output.SaveTiles = false
	cfg.Output.SaveOverlay = false

	cfg.Logging.Level = "info"

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Mosaic.BlendWidth <= 0 {
		return fmt.Errorf("blendWidth must be positive, got %v", c.Mosaic.BlendWidth)
	}
	if _, err := models.ParseSamplingQuality(c.Mosaic.SamplingQuality); err != nil {
		return err
	}
	if c.Layout.Columns < 1 {
		return fmt.Errorf("columns must be at least 1, got %d", c.Layout.Columns)
	}
	if c.Layout.Overlap < 0 {
		return fmt.Errorf("overlap must not be negative, got %d", c.Layout.Overlap)
	}
	if c.Layout.PixelSize <= 0 {
		return fmt.Errorf("pixelSize must be positive, got %v", c.Layout.PixelSize)
	}
	if c.Output.TileSize < 1 {
		return fmt.Errorf("tileSize must be at least 1, got %d", c.Output.TileSize)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}
	return nil
}

// MosaicSettings converts the mosaic section into mosaic tunables
func (c *Config) MosaicSettings() (models.Settings, error) {
	quality, err := models.ParseSamplingQuality(c.Mosaic.SamplingQuality)
	if err != nil {
		return models.Settings{}, err
	}
	if c.Mosaic.BlendWidth <= 0 {
		return models.Settings{}, fmt.Errorf("blendWidth must be positive, got %v", c.Mosaic.BlendWidth)
	}
	return models.Settings{
		ApplyGlobal:     c.Mosaic.ApplyGlobal,
		ApplyPositional: c.Mosaic.ApplyPositional,
		BlendWidth:      c.Mosaic.BlendWidth,
		Quality:         quality,
	}, nil
}

// LogLevel returns the configured logrus level, falling back to info
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
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
