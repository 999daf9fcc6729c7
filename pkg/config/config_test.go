package config

import (
	"os"
	"path/filepath"
	"testing"

	"synaptogram/pkg/tiles"
)

// TestDefaultConfig verifies the defaults are valid and match the review layout
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid: %v", err)
	}
	if cfg.Grid.NCols != 20 || cfg.Grid.Padding != 2 {
		t.Errorf("Expected 20 columns with padding 2, got %d and %d", cfg.Grid.NCols, cfg.Grid.Padding)
	}

	ranking := cfg.TileRanking()
	if ranking.Channel != "GluR2" || ranking.Value != tiles.Max || ranking.Radius != 0.5 {
		t.Errorf("Unexpected default ranking %+v", ranking)
	}
	if cfg.Keys["d"] != "label:artifact" {
		t.Errorf("Expected d bound to label:artifact, got %q", cfg.Keys["d"])
	}
}

// TestLoadConfigMissing verifies a missing file yields defaults
func TestLoadConfigMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if cfg.Extraction.HalfSize != 5 {
		t.Errorf("Expected default half size 5, got %d", cfg.Extraction.HalfSize)
	}
}

// TestSaveAndLoadConfig verifies overrides survive a round trip through disk
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Ranking.SortValue = "mean"
	cfg.Ranking.SortChannel = ""
	cfg.Session.Backend = BackendSQLite
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Ranking.SortValue != "mean" || loaded.Ranking.SortChannel != "" {
		t.Errorf("Expected ranking overrides, got %+v", loaded.Ranking)
	}
	if loaded.Session.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %q", loaded.Session.Backend)
	}
}

// TestLoadConfigPartial verifies a partial file only overrides what it names
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "grid:\n  nCols: 10\nkeys:\n  x: label:dubious\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Grid.NCols != 10 || cfg.Grid.Padding != 2 {
		t.Errorf("Expected nCols 10 and default padding, got %+v", cfg.Grid)
	}
	if cfg.Keys["x"] != "label:dubious" || cfg.Keys["d"] != "label:artifact" {
		t.Errorf("Expected extra binding merged with defaults, got %v", cfg.Keys)
	}
}

// TestValidate verifies invalid values are rejected
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero columns", func(c *Config) { c.Grid.NCols = 0 }},
		{"negative padding", func(c *Config) { c.Grid.Padding = -1 }},
		{"unknown aggregation", func(c *Config) { c.Ranking.SortValue = "mode" }},
		{"negative radius", func(c *Config) { c.Ranking.SortRadius = -1 }},
		{"zero half size", func(c *Config) { c.Extraction.HalfSize = 0 }},
		{"unknown backend", func(c *Config) { c.Session.Backend = "csv" }},
		{"unknown command", func(c *Config) { c.Keys["q"] = "quit" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

// TestLoadConfigMalformed verifies parse errors are reported
func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("grid: [unterminated"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
