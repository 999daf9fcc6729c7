// Package config provides configuration loading and management for synaptogram.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"synaptogram/pkg/selection"
	"synaptogram/pkg/tiles"
)

// Session storage backends
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Grid layout of the tile view
	Grid struct {
		// NCols is the number of tiles per row
		NCols int `yaml:"nCols"`

		// Padding is the gutter between tiles in pixels
		Padding int `yaml:"padding"`
	} `yaml:"grid"`

	// Ranking parameters for the tile ordering
	Ranking struct {
		// SortChannel is the channel ranked on; empty ranks all channels
		SortChannel string `yaml:"sortChannel"`

		// SortValue is the aggregation name (min, max, mean, sum, std, ...)
		SortValue string `yaml:"sortValue"`

		// SortRadius is the physical radius of the sphere mask
		SortRadius float64 `yaml:"sortRadius"`
	} `yaml:"ranking"`

	// Tile extraction parameters
	Extraction struct {
		// Marker selects the point set to review
		Marker string `yaml:"marker"`

		// HalfSize is the number of voxels on each side of a point
		HalfSize int `yaml:"halfSize"`

		// Workers bounds how many channels are decoded concurrently
		Workers int `yaml:"workers"`
	} `yaml:"extraction"`

	// Session persistence
	Session struct {
		// Backend is "yaml" or "sqlite"
		Backend string `yaml:"backend"`

		// Path of the session file; empty derives it from the manifest
		Path string `yaml:"path"`
	} `yaml:"session"`

	// Keys maps key names to commands
	Keys map[string]string `yaml:"keys"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// Progress shows a progress bar while extracting tiles
		Progress bool `yaml:"progress"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Grid.NCols = 20
	cfg.Grid.Padding = 2

	cfg.Ranking.SortChannel = "GluR2"
	cfg.Ranking.SortValue = "max"
	cfg.Ranking.SortRadius = 0.5

	cfg.Extraction.Marker = "CtBP2"
	cfg.Extraction.HalfSize = 5
	cfg.Extraction.Workers = runtime.NumCPU()

	cfg.Session.Backend = BackendYAML

	cfg.Keys = selection.DefaultBindings()

	cfg.Output.Verbose = false
	cfg.Output.Progress = true

	return cfg
}

// Validate checks values that would otherwise fail deep inside the session
func (c *Config) Validate() error {
	if c.Grid.NCols <= 0 {
		return fmt.Errorf("grid.nCols must be positive, got %d", c.Grid.NCols)
	}
	if c.Grid.Padding < 0 {
		return fmt.Errorf("grid.padding must be non-negative, got %d", c.Grid.Padding)
	}
	if _, err := tiles.ParseAggregation(c.Ranking.SortValue); err != nil {
		return fmt.Errorf("ranking.sortValue: %w", err)
	}
	if c.Ranking.SortRadius < 0 {
		return fmt.Errorf("ranking.sortRadius must be non-negative, got %f", c.Ranking.SortRadius)
	}
	if c.Extraction.HalfSize <= 0 {
		return fmt.Errorf("extraction.halfSize must be positive, got %d", c.Extraction.HalfSize)
	}
	switch c.Session.Backend {
	case BackendYAML, BackendSQLite:
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", BackendYAML, BackendSQLite, c.Session.Backend)
	}
	if err := selection.ValidateBindings(c.Keys); err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	return nil
}

// TileRanking returns the tile ranking described by the configuration
func (c *Config) TileRanking() tiles.Ranking {
	return tiles.Ranking{
		Channel: c.Ranking.SortChannel,
		Value:   tiles.Aggregation(c.Ranking.SortValue),
		Radius:  c.Ranking.SortRadius,
	}
}

// TileGrid returns the grid layout described by the configuration
func (c *Config) TileGrid() tiles.Grid {
	return tiles.Grid{NCols: c.Grid.NCols, Padding: c.Grid.Padding}
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
