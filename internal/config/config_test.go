package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Tessellation.TileSize != 256 {
		t.Errorf("expected tile size 256, got %d", cfg.Tessellation.TileSize)
	}
	if cfg.Tessellation.Levels != 3 {
		t.Errorf("expected 3 levels, got %d", cfg.Tessellation.Levels)
	}
	if cfg.Texture.Units != 8 {
		t.Errorf("expected 8 texture units, got %d", cfg.Texture.Units)
	}
	if !cfg.Texture.UseShaders {
		t.Error("expected shaders on by default")
	}
	if cfg.Horizon.Undef != 1e30 {
		t.Errorf("expected undef 1e30, got %g", cfg.Horizon.Undef)
	}
	if cfg.Horizon.NearFactor != 2000 || cfg.Horizon.FarFactor != 8000 {
		t.Errorf("expected LOD factors 2000/8000, got %g/%g", cfg.Horizon.NearFactor, cfg.Horizon.FarFactor)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
tessellation:
  tile_size: 128
  workers: 4

texture:
  use_shaders: false

horizon:
  ramp: gray
  lod_near: 1000

data:
  grid: "surface.tif"
  layers:
    - path: "seismic.png"
      filter: nearest
    - path: "wells.png"
      origin: [10, 20]
      scale: [2, 2]
      opacity: 0.5

logging:
  level: "debug"
  log_file: "horizon.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Tessellation.TileSize != 128 {
		t.Errorf("expected tile size 128, got %d", cfg.Tessellation.TileSize)
	}
	if cfg.Tessellation.Levels != 3 {
		t.Errorf("expected default levels to survive, got %d", cfg.Tessellation.Levels)
	}
	if cfg.Texture.UseShaders {
		t.Error("expected shaders off")
	}
	if cfg.Horizon.NearFactor != 1000 || cfg.Horizon.FarFactor != 8000 {
		t.Errorf("LOD factors %g/%g", cfg.Horizon.NearFactor, cfg.Horizon.FarFactor)
	}
	if cfg.Data.Grid != "surface.tif" {
		t.Errorf("expected grid surface.tif, got %s", cfg.Data.Grid)
	}

	if len(cfg.Data.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(cfg.Data.Layers))
	}
	first, second := cfg.Data.Layers[0], cfg.Data.Layers[1]
	if first.Filter != "nearest" || first.Scale != [2]float32{1, 1} || first.Opacity != 1 {
		t.Errorf("first layer = %+v, want nearest with identity placement", first)
	}
	if second.Origin != [2]float32{10, 20} || second.Scale != [2]float32{2, 2} || second.Filter != "linear" {
		t.Errorf("second layer = %+v", second)
	}
	if second.Opacity != 0.5 {
		t.Errorf("second layer opacity %v", second.Opacity)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Tessellation.TileSize = 1
	cfg.Texture.Units = 1
	cfg.Horizon.Ramp = "rainbow"
	cfg.Data.Layers = []LayerConfig{{Path: "a.png", Scale: [2]float32{0, 1}, Filter: "cubic", Opacity: 2}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrTileSize) || !errors.Is(err, ErrUnits) {
		t.Errorf("missing sentinel errors in %v", err)
	}
	if got := len(multierr.Errors(err)); got != 6 {
		t.Errorf("expected 6 errors, got %d: %v", got, err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := Default()
	cfg.Viewer.Width = 2560
	cfg.Data.Layers = []LayerConfig{NewLayer("overlay.png")}
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Viewer.Width != 2560 {
		t.Errorf("expected width 2560, got %d", loaded.Viewer.Width)
	}
	if len(loaded.Data.Layers) != 1 || loaded.Data.Layers[0] != NewLayer("overlay.png") {
		t.Errorf("layers = %+v", loaded.Data.Layers)
	}
}

func TestConfigDir(t *testing.T) {
	if dir := ConfigDir(); dir == "" {
		t.Error("ConfigDir returned empty string")
	}
}
