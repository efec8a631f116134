package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the built-in defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Display.Interpolation != "nearest" {
		t.Errorf("Expected nearest interpolation, got %q", cfg.Display.Interpolation)
	}
	if cfg.Display.Resolution != 1.0 {
		t.Errorf("Expected resolution 1.0, got %v", cfg.Display.Resolution)
	}
	if cfg.Display.Transform != "pixdim" {
		t.Errorf("Expected pixdim transform, got %q", cfg.Display.Transform)
	}
	if cfg.Render.MaxTextureSize != 256 {
		t.Errorf("Expected max texture size 256, got %d", cfg.Render.MaxTextureSize)
	}
	if cfg.Render.Columns != 5 {
		t.Errorf("Expected 5 columns, got %d", cfg.Render.Columns)
	}
}

// TestLoadConfigMissingFile verifies a missing file yields defaults.
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if cfg.Display.Resolution != 1.0 {
		t.Errorf("Expected default resolution, got %v", cfg.Display.Resolution)
	}
}

// TestLoadConfigOverrides verifies YAML values override defaults while
// unspecified fields keep them.
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxrender.yaml")
	content := []byte("display:\n  interpolation: linear\n  resolution: 2.5\nrender:\n  maxTextureSize: 128\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Display.Interpolation != "linear" {
		t.Errorf("Expected linear interpolation, got %q", cfg.Display.Interpolation)
	}
	if cfg.Display.Resolution != 2.5 {
		t.Errorf("Expected resolution 2.5, got %v", cfg.Display.Resolution)
	}
	if cfg.Render.MaxTextureSize != 128 {
		t.Errorf("Expected max texture size 128, got %d", cfg.Render.MaxTextureSize)
	}
	// Unspecified fields keep their defaults.
	if cfg.Display.Transform != "pixdim" {
		t.Errorf("Expected default transform, got %q", cfg.Display.Transform)
	}
	if cfg.Render.Columns != 5 {
		t.Errorf("Expected default columns, got %d", cfg.Render.Columns)
	}
}

// TestLoadConfigInvalidYAML verifies malformed files are rejected.
func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("display: [not a map"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected an error for invalid YAML")
	}
}

// TestSaveLoadRoundTrip verifies saved configuration loads back
// unchanged.
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "voxrender.yaml")

	cfg := DefaultConfig()
	cfg.Display.Interpolation = "linear"
	cfg.Render.SliceSpacing = 3.5
	cfg.Output.Verbose = false

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Display.Interpolation != "linear" {
		t.Errorf("Expected linear interpolation, got %q", loaded.Display.Interpolation)
	}
	if loaded.Render.SliceSpacing != 3.5 {
		t.Errorf("Expected slice spacing 3.5, got %v", loaded.Render.SliceSpacing)
	}
	if loaded.Output.Verbose {
		t.Error("Expected verbose false")
	}
}
