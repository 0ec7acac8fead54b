// Package config loads horizon viewer and tool settings.
package config

// Config holds all settings.
type Config struct {
	Tessellation TessellationConfig `yaml:"tessellation"`
	Texture      TextureConfig      `yaml:"texture"`
	Horizon      HorizonConfig      `yaml:"horizon"`
	Viewer       ViewerConfig       `yaml:"viewer"`
	Data         DataConfig         `yaml:"data"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// TessellationConfig sizes the tile jobs.
type TessellationConfig struct {
	TileSize int `yaml:"tile_size"`
	Levels   int `yaml:"levels"`
	Workers  int `yaml:"workers"` // 0 = one per CPU
}

// TextureConfig controls the layered texture.
type TextureConfig struct {
	Units       int  `yaml:"units"`
	MaxCopySize int  `yaml:"max_copy_size"` // texels rescaled to power-of-two sizes
	UseShaders  bool `yaml:"use_shaders"`
}

// HorizonConfig holds surface settings.
type HorizonConfig struct {
	Undef      float64 `yaml:"undef"`
	NearFactor float64 `yaml:"lod_near"`
	FarFactor  float64 `yaml:"lod_far"`
	Ramp       string  `yaml:"ramp"` // "seismic" or "gray"
}

// ViewerConfig holds window settings.
type ViewerConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// DataConfig names the inputs.
type DataConfig struct {
	Grid   string        `yaml:"grid"` // raster path; empty = synthetic
	Layers []LayerConfig `yaml:"layers"`
}

// LayerConfig places one image layer over the horizon.
type LayerConfig struct {
	Path    string     `yaml:"path"`
	Origin  [2]float32 `yaml:"origin"`
	Scale   [2]float32 `yaml:"scale"`
	Filter  string     `yaml:"filter"` // "linear" or "nearest"
	Opacity float32    `yaml:"opacity"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Tessellation: TessellationConfig{
			TileSize: 256,
			Levels:   3,
		},
		Texture: TextureConfig{
			Units:       8,
			MaxCopySize: 32 * 32,
			UseShaders:  true,
		},
		Horizon: HorizonConfig{
			Undef:      1e30,
			NearFactor: 2000,
			FarFactor:  8000,
			Ramp:       "seismic",
		},
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// NewLayer returns a layer entry with identity placement.
func NewLayer(path string) LayerConfig {
	return LayerConfig{
		Path:    path,
		Scale:   [2]float32{1, 1},
		Filter:  "linear",
		Opacity: 1,
	}
}
