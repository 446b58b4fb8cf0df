// Package config loads nexus configuration from .nexus/config.yaml with
// sensible defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all nexus configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name"`

	// Panel placement tuning
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Per-space presentation (keyed by space id)
	Spaces map[string]SpaceConfig `yaml:"spaces"`

	// Snapshot store
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// WorkspaceConfig tunes panel placement.
type WorkspaceConfig struct {
	CascadeStep   int `yaml:"cascade_step"`
	OriginX       int `yaml:"origin_x"`
	OriginY       int `yaml:"origin_y"`
	DefaultWidth  int `yaml:"default_width"`
	DefaultHeight int `yaml:"default_height"`
	TileGap       int `yaml:"tile_gap"`
}

// SpaceConfig holds per-space presentation settings.
type SpaceConfig struct {
	Background string `yaml:"background"`
}

// SnapshotConfig locates the external snapshot store.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig mirrors the logging package's expectations.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Name: "nexus",
		Workspace: WorkspaceConfig{
			CascadeStep:   40,
			OriginX:       80,
			OriginY:       80,
			DefaultWidth:  480,
			DefaultHeight: 600,
			TileGap:       16,
		},
		Snapshot: SnapshotConfig{
			Path: filepath.Join(".nexus", "nexus.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the config file location under a workspace directory.
func Path(workspaceDir string) string {
	return filepath.Join(workspaceDir, ".nexus", "config.yaml")
}

// Load reads the config from workspaceDir/.nexus/config.yaml. A missing
// file yields the defaults; a malformed one is an error. Environment
// overrides are applied last.
func Load(workspaceDir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(workspaceDir))
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes the config under the workspace directory, creating .nexus/
// if needed.
func (c *Config) Save(workspaceDir string) error {
	path := Path(workspaceDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the workspace layer cannot work with.
func (c *Config) Validate() error {
	w := c.Workspace
	if w.CascadeStep < 0 || w.TileGap < 0 {
		return fmt.Errorf("workspace offsets must be non-negative")
	}
	if w.DefaultWidth <= 0 || w.DefaultHeight <= 0 {
		return fmt.Errorf("default panel size must be positive, got %dx%d", w.DefaultWidth, w.DefaultHeight)
	}
	return nil
}

// applyEnvOverrides lets the environment win over the file.
func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv("NEXUS_SNAPSHOT_PATH"); path != "" {
		cfg.Snapshot.Path = path
	}
	if level := os.Getenv("NEXUS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if debug := os.Getenv("NEXUS_DEBUG"); debug != "" {
		if v, err := strconv.ParseBool(debug); err == nil {
			cfg.Logging.DebugMode = v
		}
	}
	if step := os.Getenv("NEXUS_CASCADE_STEP"); step != "" {
		if v, err := strconv.Atoi(step); err == nil && v >= 0 {
			cfg.Workspace.CascadeStep = v
		}
	}
}
