package config

import (
	"flag"
	"strings"
)

// layerFlag collects repeated -layer values.
type layerFlag []string

func (f *layerFlag) String() string { return strings.Join(*f, ",") }

func (f *layerFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagGrid      = flag.String("grid", "", "Elevation raster (empty = synthetic surface)")
	flagNoShaders = flag.Bool("no-shaders", false, "Composite layers on the CPU")
	flagWidth     = flag.Int("width", 0, "Window width")
	flagHeight    = flag.Int("height", 0, "Window height")
	flagLayers    layerFlag
)

func init() {
	flag.Var(&flagLayers, "layer", "Image layer over the horizon (repeatable)")
}

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagGrid != "" {
		cfg.Data.Grid = *flagGrid
	}
	if *flagNoShaders {
		cfg.Texture.UseShaders = false
	}
	if *flagWidth > 0 {
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Viewer.Height = *flagHeight
	}
	for _, path := range flagLayers {
		cfg.Data.Layers = append(cfg.Data.Layers, NewLayer(path))
	}
}
