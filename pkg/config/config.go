// Package config provides configuration loading and management for voxrender.
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
	// Display parameters
	Display struct {
		// Interpolation selects the texture sampling mode, "nearest" or "linear"
		Interpolation string `yaml:"interpolation"`

		// Resolution is the display sampling resolution in world units;
		// values coarser than the voxel size downsample the texture
		Resolution float64 `yaml:"resolution"`

		// Transform selects the voxel-to-world mapping mode:
		// "id", "pixdim" or "affine"
		Transform string `yaml:"transform"`

		// VolumeIndex selects which 4D volume to display
		VolumeIndex int `yaml:"volumeIndex"`
	} `yaml:"display"`

	// Render parameters
	Render struct {
		// MaxTextureSize caps either dimension of auto-sized offscreen
		// render textures
		MaxTextureSize int `yaml:"maxTextureSize"`

		// SliceSpacing is the world-space distance between lightbox slices
		SliceSpacing float64 `yaml:"sliceSpacing"`

		// Columns is the number of lightbox montage columns
		Columns int `yaml:"columns"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Directory is where rendered slice images are written
		Directory string `yaml:"directory"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default display parameters
	cfg.Display.Interpolation = "nearest"
	cfg.Display.Resolution = 1.0
	cfg.Display.Transform = "pixdim"
	cfg.Display.VolumeIndex = 0

	// Set default render parameters
	cfg.Render.MaxTextureSize = 256
	cfg.Render.SliceSpacing = 2.0
	cfg.Render.Columns = 5

	// Set default output parameters
	cfg.Output.Directory = "renders"
	cfg.Output.Verbose = true

	return cfg
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
